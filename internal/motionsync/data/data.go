// Package data holds the parsed motion sync settings document and the views derived from it.
package data

import (
	"slices"

	"github.com/tphakala/motionsync-go/internal/logger"
)

// ComponentData identifies this package in enhanced errors.
const ComponentData = "motionsync.data"

// AnalysisType selects the analysis backend a Setting is processed with.
type AnalysisType int

const (
	AnalysisTypeCRI AnalysisType = iota
	AnalysisTypeUnknown
)

func (t AnalysisType) String() string {
	switch t {
	case AnalysisTypeCRI:
		return "CRI"
	default:
		return "Unknown"
	}
}

// MarshalYAML renders the type by name.
func (t AnalysisType) MarshalYAML() (any, error) { return t.String(), nil }

// ParseAnalysisType maps a document string to an AnalysisType.
// Unrecognized strings map to AnalysisTypeUnknown and false.
func ParseAnalysisType(s string) (AnalysisType, bool) {
	if s == "CRI" {
		return AnalysisTypeCRI, true
	}
	return AnalysisTypeUnknown, false
}

// UseCase describes what a Setting drives on the avatar.
type UseCase int

const (
	UseCaseMouth UseCase = iota
	UseCaseUnknown
)

func (u UseCase) String() string {
	if u == UseCaseMouth {
		return "Mouth"
	}
	return "Unknown"
}

// MarshalYAML renders the use case by name.
func (u UseCase) MarshalYAML() (any, error) { return u.String(), nil }

// ParseUseCase maps a document string to a UseCase.
func ParseUseCase(s string) (UseCase, bool) {
	if s == "Mouth" {
		return UseCaseMouth, true
	}
	return UseCaseUnknown, false
}

// MappingType is the kind of a Mapping entry.
type MappingType int

const (
	MappingTypeShape MappingType = iota
	MappingTypeUnknown
)

func (m MappingType) String() string {
	if m == MappingTypeShape {
		return "Shape"
	}
	return "Unknown"
}

// MarshalYAML renders the mapping type by name.
func (m MappingType) MarshalYAML() (any, error) { return m.String(), nil }

// ParseMappingType maps a document string to a MappingType.
func ParseMappingType(s string) (MappingType, bool) {
	if s == "Shape" {
		return MappingTypeShape, true
	}
	return MappingTypeUnknown, false
}

// DictionaryEntry names one setting in the document metadata.
type DictionaryEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Meta is the document metadata block.
type Meta struct {
	SettingCount int               `yaml:"setting_count"`
	Dictionary   []DictionaryEntry `yaml:"dictionary"`
}

// CubismParameter is an avatar parameter driven by a Setting.
type CubismParameter struct {
	ID     string  `yaml:"id"`
	Name   string  `yaml:"name"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Damper float64 `yaml:"damper"`
	Smooth int     `yaml:"smooth"`

	// ParameterIndex is the resolved index in the avatar model, or the model's parameter
	// count when the model has no parameter with this id. Set by ResolveParameterIndices.
	ParameterIndex int `yaml:"parameter_index"`
}

// AudioParameter is an audio feature produced by the analysis backend.
type AudioParameter struct {
	ID      string  `yaml:"id"`
	Name    string  `yaml:"name"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Scale   float64 `yaml:"scale"`
	Enabled bool    `yaml:"enabled"`
}

// MappingTarget is the weight an audio parameter contributes to one avatar parameter.
type MappingTarget struct {
	ID    string  `yaml:"id"`
	Value float64 `yaml:"value"`
}

// Mapping links one audio parameter to the avatar parameters.
type Mapping struct {
	Type             MappingType     `yaml:"type"`
	AudioParameterID string          `yaml:"audio_parameter_id"`
	Targets          []MappingTarget `yaml:"targets"`
}

// Setting is one independently processed motion sync configuration.
type Setting struct {
	ID           string       `yaml:"id"`
	AnalysisType AnalysisType `yaml:"analysis_type"`
	// AnalysisTypeName is the type as written in the document, kept for unrecognized types.
	AnalysisTypeName string            `yaml:"-"`
	UseCase          UseCase           `yaml:"use_case"`
	CubismParameters []CubismParameter `yaml:"cubism_parameters"`
	AudioParameters  []AudioParameter  `yaml:"audio_parameters"`
	Mappings         []Mapping         `yaml:"mappings"`

	BlendRatio float64 `yaml:"blend_ratio"`
	Smoothing  int     `yaml:"smoothing"`
	// SampleRate is the nominal analysis rate in updates per second, not the audio rate.
	SampleRate float64 `yaml:"sample_rate"`
}

// Data is a parsed settings document.
type Data struct {
	Version  int
	Meta     Meta
	settings []*Setting
	log      logger.Logger
}

// SettingCount returns the number of settings in the document.
func (d *Data) SettingCount() int {
	return len(d.settings)
}

// Setting returns the setting at index, or nil when index is out of range.
func (d *Data) Setting(index int) *Setting {
	if index < 0 || index >= len(d.settings) {
		return nil
	}
	return d.settings[index]
}

// Settings returns the settings in document order.
func (d *Data) Settings() []*Setting {
	return slices.Clone(d.settings)
}

// Clone returns a deep copy. Resolved parameter indices are copied as well.
func (d *Data) Clone() *Data {
	c := &Data{
		Version: d.Version,
		Meta: Meta{
			SettingCount: d.Meta.SettingCount,
			Dictionary:   slices.Clone(d.Meta.Dictionary),
		},
		settings: make([]*Setting, len(d.settings)),
		log:      d.log,
	}
	for i, s := range d.settings {
		cs := *s
		cs.CubismParameters = slices.Clone(s.CubismParameters)
		cs.AudioParameters = slices.Clone(s.AudioParameters)
		cs.Mappings = make([]Mapping, len(s.Mappings))
		for j, m := range s.Mappings {
			cs.Mappings[j] = m
			cs.Mappings[j].Targets = slices.Clone(m.Targets)
		}
		c.settings[i] = &cs
	}
	return c
}

// GetLogger returns the data package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("motionsync").Module("data")
}
