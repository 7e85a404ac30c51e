// Package model defines the avatar parameter surface the motion sync controller writes to.
//
// A renderer owns the real model; this package only needs indexed access to its parameters.
// ParameterTable is an in-memory implementation used by the replay tool and tests.
package model

import (
	"slices"

	"github.com/tphakala/motionsync-go/internal/errors"
)

// ComponentModel identifies this package in enhanced errors.
const ComponentModel = "model"

// Parameters is the avatar model boundary. Indices are dense in [0, ParameterCount()).
type Parameters interface {
	ParameterCount() int
	ParameterID(index int) string
	ParameterValue(index int) float64
	SetParameterValue(index int, value float64)
}

// IndexOf returns the index of id in p, or p.ParameterCount() when the model has no such
// parameter. The out-of-range result is safe to pass to SetValue and Value.
func IndexOf(p Parameters, id string) int {
	count := p.ParameterCount()
	for i := range count {
		if p.ParameterID(i) == id {
			return i
		}
	}
	return count
}

// SetValue writes value at index, ignoring indices outside the model.
func SetValue(p Parameters, index int, value float64) bool {
	if index < 0 || index >= p.ParameterCount() {
		return false
	}
	p.SetParameterValue(index, value)
	return true
}

// Value reads the value at index. Indices outside the model read as zero.
func Value(p Parameters, index int) float64 {
	if index < 0 || index >= p.ParameterCount() {
		return 0
	}
	return p.ParameterValue(index)
}

// Parameter describes one entry of a ParameterTable.
type Parameter struct {
	ID      string
	Min     float64
	Max     float64
	Default float64
}

// ParameterTable is a fixed list of parameters backed by a value slice.
// Writes are clamped to the parameter range when Min < Max.
type ParameterTable struct {
	params []Parameter
	values []float64
}

// NewParameterTable builds a table from params, starting each value at its default.
func NewParameterTable(params ...Parameter) (*ParameterTable, error) {
	seen := make(map[string]struct{}, len(params))
	t := &ParameterTable{
		params: make([]Parameter, 0, len(params)),
		values: make([]float64, 0, len(params)),
	}
	for _, p := range params {
		if p.ID == "" {
			return nil, errors.Newf("parameter id must not be empty").
				Component(ComponentModel).
				Category(errors.CategoryValidation).
				Context("index", len(t.params)).
				Build()
		}
		if _, dup := seen[p.ID]; dup {
			return nil, errors.Newf("duplicate parameter id %q", p.ID).
				Component(ComponentModel).
				Category(errors.CategoryValidation).
				Context("parameter_id", p.ID).
				Build()
		}
		seen[p.ID] = struct{}{}
		t.params = append(t.params, p)
		t.values = append(t.values, p.Default)
	}
	return t, nil
}

// NewUnboundedTable creates a table of ids with no range limits and zero defaults.
func NewUnboundedTable(ids ...string) (*ParameterTable, error) {
	params := make([]Parameter, len(ids))
	for i, id := range ids {
		params[i] = Parameter{ID: id}
	}
	return NewParameterTable(params...)
}

func (t *ParameterTable) ParameterCount() int { return len(t.params) }

func (t *ParameterTable) ParameterID(index int) string { return t.params[index].ID }

func (t *ParameterTable) ParameterValue(index int) float64 { return t.values[index] }

func (t *ParameterTable) SetParameterValue(index int, value float64) {
	p := t.params[index]
	if p.Min < p.Max {
		value = min(max(value, p.Min), p.Max)
	}
	t.values[index] = value
}

// Parameter returns the definition at index.
func (t *ParameterTable) Parameter(index int) Parameter { return t.params[index] }

// Reset restores every value to its default.
func (t *ParameterTable) Reset() {
	for i, p := range t.params {
		t.values[i] = p.Default
	}
}

// Snapshot returns a copy of the current values in index order.
func (t *ParameterTable) Snapshot() []float64 {
	return slices.Clone(t.values)
}

var _ Parameters = (*ParameterTable)(nil)
