//go:build ruleguard

// Package gorules defines project linter rules for motionsync-go.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// NaNCompare flags comparisons against math.NaN(), which are always false.
// Analysis results mark untouched slots with NaN, so this bug silently writes them.
func NaNCompare(m dsl.Matcher) {
	m.Match(`$x == math.NaN()`, `math.NaN() == $x`).
		Report("comparison with NaN is always false, use math.IsNaN($x)").
		Suggest("math.IsNaN($x)")

	m.Match(`$x != math.NaN()`, `math.NaN() != $x`).
		Report("comparison with NaN is always true, use !math.IsNaN($x)").
		Suggest("!math.IsNaN($x)")
}

// EnhancedErrors flags plain errors returned from the core motionsync packages.
// Errors crossing those boundaries carry a component and category.
//
//	return errors.Newf("sample rate %v out of range", rate).
//	    Component(ComponentEngine).
//	    Category(errors.CategoryValidation).
//	    Build()
func EnhancedErrors(m dsl.Matcher) {
	m.Match(`return fmt.Errorf($*args)`, `return $*_, fmt.Errorf($*args)`).
		Where(m.File().PkgPath.Matches(`/internal/motionsync(/engine|/model|/backend/[a-z]+)?$`) && !m.File().Name.Matches(`_test\.go$`)).
		Report("use errors.Newf(...).Component(...).Category(...).Build() instead of fmt.Errorf")
}

// StdLogging flags the log package and direct printing in library code.
func StdLogging(m dsl.Matcher) {
	m.Import("log")

	m.Match(
		`log.Printf($*_)`,
		`log.Println($*_)`,
		`log.Print($*_)`,
		`log.Fatalf($*_)`,
	).
		Where(m.File().PkgPath.Matches(`/internal/`)).
		Report("use the module logger (GetLogger().Module(...)) instead of the log package")

	m.Match(
		`fmt.Printf($*_)`,
		`fmt.Println($*_)`,
	).
		Where(m.File().PkgPath.Matches(`/internal/`) && !m.File().Name.Matches(`_test\.go$`)).
		Report("library code must not print, log through logger.Logger")
}

// ErrorField flags errors logged as strings.
func ErrorField(m dsl.Matcher) {
	m.Match(
		`logger.String("error", $err.Error())`,
		`logger.String("err", $err.Error())`,
	).
		Report("use logger.Error($err)").
		Suggest("logger.Error($err)")
}
