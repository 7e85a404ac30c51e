package data

import (
	"fmt"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/logger"
)

// Document keys
const (
	keyVersion          = "Version"
	keyMeta             = "Meta"
	keySettingCount     = "SettingCount"
	keyDictionary       = "Dictionary"
	keyID               = "Id"
	keyName             = "Name"
	keySettings         = "Settings"
	keyAnalysisType     = "AnalysisType"
	keyUseCase          = "UseCase"
	keyCubismParameters = "CubismParameters"
	keyMin              = "Min"
	keyMax              = "Max"
	keyDamper           = "Damper"
	keySmooth           = "Smooth"
	keyAudioParameters  = "AudioParameters"
	keyScale            = "Scale"
	keyEnabled          = "Enabled"
	keyMappings         = "Mappings"
	keyType             = "Type"
	keyTargets          = "Targets"
	keyValue            = "Value"
	keyPostProcessing   = "PostProcessing"
	keyBlendRatio       = "BlendRatio"
	keySmoothing        = "Smoothing"
	keySampleRate       = "SampleRate"
)

// Post processing defaults used when a setting omits them.
const (
	DefaultBlendRatio = 0.0
	DefaultSmoothing  = 1
	DefaultSampleRate = 30.0
)

// Option configures Parse.
type Option func(*parser)

// WithLogger sets the logger used for parse warnings and mapping diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(p *parser) {
		if l != nil {
			p.log = l
		}
	}
}

type parser struct {
	log logger.Logger
}

// Parse reads a motion sync settings document.
//
// Malformed JSON and a missing Settings array are errors. Unknown AnalysisType, UseCase
// and mapping Type strings are logged and stored as their Unknown value.
func Parse(buf []byte, opts ...Option) (*Data, error) {
	p := &parser{log: GetLogger()}
	for _, opt := range opts {
		opt(p)
	}

	root, err := jason.NewObjectFromBytes(buf)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentData).
			Category(errors.CategoryConfiguration).
			Context("operation", "parse-settings").
			Context("size", len(buf)).
			Build()
	}

	settingObjs, err := root.GetObjectArray(keySettings)
	if err != nil {
		return nil, errors.New(fmt.Errorf("settings document has no %s array: %w", keySettings, err)).
			Component(ComponentData).
			Category(errors.CategoryConfiguration).
			Context("operation", "parse-settings").
			Build()
	}

	d := &Data{
		Version:  int(optFloat(root, keyVersion)),
		settings: make([]*Setting, 0, len(settingObjs)),
		log:      p.log,
	}
	d.Meta = p.parseMeta(root)

	for i, obj := range settingObjs {
		s, err := p.parseSetting(obj)
		if err != nil {
			return nil, errors.New(err).
				Component(ComponentData).
				Category(errors.CategoryConfiguration).
				Context("operation", "parse-setting").
				Context("setting_index", i).
				Build()
		}
		d.settings = append(d.settings, s)
	}

	if d.Meta.SettingCount != len(d.settings) {
		p.log.Warn("meta setting count does not match settings",
			logger.Int("meta_count", d.Meta.SettingCount),
			logger.Int("settings", len(d.settings)))
		d.Meta.SettingCount = len(d.settings)
	}

	p.log.Debug("settings document parsed",
		logger.Int("version", d.Version),
		logger.Int("settings", len(d.settings)))

	return d, nil
}

func (p *parser) parseMeta(root *jason.Object) Meta {
	var meta Meta
	metaObj, err := root.GetObject(keyMeta)
	if err != nil {
		p.log.Warn("settings document has no meta block")
		return meta
	}

	meta.SettingCount = int(optFloat(metaObj, keySettingCount))
	entries, _ := metaObj.GetObjectArray(keyDictionary)
	for _, e := range entries {
		meta.Dictionary = append(meta.Dictionary, DictionaryEntry{
			ID:   optString(e, keyID),
			Name: optString(e, keyName),
		})
	}
	return meta
}

func (p *parser) parseSetting(obj *jason.Object) (*Setting, error) {
	id, err := obj.GetString(keyID)
	if err != nil {
		return nil, fmt.Errorf("setting has no %s: %w", keyID, err)
	}

	analysisType := optString(obj, keyAnalysisType)
	s := &Setting{ID: id, AnalysisTypeName: analysisType}

	var ok bool
	if s.AnalysisType, ok = ParseAnalysisType(analysisType); !ok {
		p.log.Warn("unknown analysis type",
			logger.String("setting", id),
			logger.String("analysis_type", analysisType))
	}

	useCase := optString(obj, keyUseCase)
	if s.UseCase, ok = ParseUseCase(useCase); !ok {
		p.log.Warn("unknown use case",
			logger.String("setting", id),
			logger.String("use_case", useCase))
	}

	cubismObjs, _ := obj.GetObjectArray(keyCubismParameters)
	for _, c := range cubismObjs {
		s.CubismParameters = append(s.CubismParameters, CubismParameter{
			ID:     optString(c, keyID),
			Name:   optString(c, keyName),
			Min:    optFloat(c, keyMin),
			Max:    optFloat(c, keyMax),
			Damper: optFloat(c, keyDamper),
			Smooth: int(optFloat(c, keySmooth)),
		})
	}

	audioObjs, _ := obj.GetObjectArray(keyAudioParameters)
	for _, a := range audioObjs {
		enabled, err := a.GetBoolean(keyEnabled)
		if err != nil {
			enabled = true
		}
		s.AudioParameters = append(s.AudioParameters, AudioParameter{
			ID:      optString(a, keyID),
			Name:    optString(a, keyName),
			Min:     optFloat(a, keyMin),
			Max:     optFloat(a, keyMax),
			Scale:   optFloat(a, keyScale),
			Enabled: enabled,
		})
	}

	mappingObjs, _ := obj.GetObjectArray(keyMappings)
	for _, m := range mappingObjs {
		typ := optString(m, keyType)
		mapping := Mapping{AudioParameterID: optString(m, keyID)}
		if mapping.Type, ok = ParseMappingType(typ); !ok {
			p.log.Warn("unknown mapping type",
				logger.String("setting", id),
				logger.String("audio_parameter", mapping.AudioParameterID),
				logger.String("type", typ))
		}
		targets, _ := m.GetObjectArray(keyTargets)
		for _, t := range targets {
			mapping.Targets = append(mapping.Targets, MappingTarget{
				ID:    optString(t, keyID),
				Value: optFloat(t, keyValue),
			})
		}
		s.Mappings = append(s.Mappings, mapping)
	}

	s.BlendRatio = DefaultBlendRatio
	s.Smoothing = DefaultSmoothing
	s.SampleRate = DefaultSampleRate
	post, err := obj.GetObject(keyPostProcessing)
	if err == nil {
		s.BlendRatio = floatOr(post, keyBlendRatio, DefaultBlendRatio)
		s.Smoothing = int(floatOr(post, keySmoothing, DefaultSmoothing))
		s.SampleRate = floatOr(post, keySampleRate, DefaultSampleRate)
	} else {
		p.log.Warn("setting has no post processing block", logger.String("setting", id))
	}

	return s, nil
}

func floatOr(obj *jason.Object, key string, def float64) float64 {
	f, err := obj.GetFloat64(key)
	if err != nil {
		return def
	}
	return f
}

func optString(obj *jason.Object, key string) string {
	s, _ := obj.GetString(key)
	return s
}

func optFloat(obj *jason.Object, key string) float64 {
	f, _ := obj.GetFloat64(key)
	return f
}
