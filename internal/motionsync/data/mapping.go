package data

import (
	"slices"

	"github.com/tphakala/motionsync-go/internal/logger"
	"github.com/tphakala/motionsync-go/internal/motionsync/model"
)

// Scale limits accepted by analysis backends.
const (
	MinScale = 0.1
	MaxScale = 10.0
)

// MappingInfo is what an analysis backend needs to know about one audio parameter.
//
// ModelParameterIDs and ModelParameterValues are positional: element i belongs to
// the setting's CubismParameters[i]. Backends must not look targets up by id.
type MappingInfo struct {
	AudioParameterID     string
	ModelParameterIDs    []string
	ModelParameterValues []float64
	Scale                float64
	Enabled              bool
}

// GetMappingInfoList builds one MappingInfo per enabled audio parameter of the setting at
// index that has a Mapping. Each audio parameter uses the first Mapping with its id.
// Returns nil when index is out of range.
func (d *Data) GetMappingInfoList(index int) []MappingInfo {
	s := d.Setting(index)
	if s == nil {
		return nil
	}
	log := d.logger().With(logger.String("setting", s.ID))

	infos := make([]MappingInfo, 0, len(s.AudioParameters))
	for _, ap := range s.AudioParameters {
		if !ap.Enabled {
			log.Debug("audio parameter disabled, skipping", logger.String("audio_parameter", ap.ID))
			continue
		}

		mi := slices.IndexFunc(s.Mappings, func(m Mapping) bool {
			return m.AudioParameterID == ap.ID
		})
		if mi < 0 {
			log.Debug("audio parameter has no mapping, skipping", logger.String("audio_parameter", ap.ID))
			continue
		}
		mapping := s.Mappings[mi]

		if len(mapping.Targets) != len(s.CubismParameters) {
			log.Warn("mapping target count differs from cubism parameter count",
				logger.String("audio_parameter", ap.ID),
				logger.Int("targets", len(mapping.Targets)),
				logger.Int("cubism_parameters", len(s.CubismParameters)))
		}

		n := min(len(mapping.Targets), len(s.CubismParameters))
		info := MappingInfo{
			AudioParameterID:     ap.ID,
			ModelParameterIDs:    make([]string, n),
			ModelParameterValues: make([]float64, n),
			Scale:                ap.Scale,
			Enabled:              ap.Enabled,
		}
		for i := range n {
			info.ModelParameterIDs[i] = mapping.Targets[i].ID
			info.ModelParameterValues[i] = mapping.Targets[i].Value
		}
		info.validate(log)
		infos = append(infos, info)
	}
	return infos
}

// validate logs problems a backend is likely to reject. It never fails.
func (mi *MappingInfo) validate(log logger.Logger) {
	if mi.AudioParameterID == "" {
		log.Warn("mapping info has an empty audio parameter id")
	}
	if len(mi.ModelParameterIDs) == 0 || len(mi.ModelParameterValues) == 0 {
		log.Warn("mapping info has no model parameters", logger.String("audio_parameter", mi.AudioParameterID))
	}
	if mi.Scale < MinScale || mi.Scale > MaxScale {
		log.Warn("mapping info scale out of range",
			logger.String("audio_parameter", mi.AudioParameterID),
			logger.Float64("scale", mi.Scale))
	}
}

// ResolveParameterIndices binds every CubismParameter to its index in p.
// Parameters missing from the model resolve to p.ParameterCount() so later writes are
// dropped by model.SetValue.
func (d *Data) ResolveParameterIndices(p model.Parameters) {
	log := d.logger()
	for _, s := range d.settings {
		for i := range s.CubismParameters {
			cp := &s.CubismParameters[i]
			cp.ParameterIndex = model.IndexOf(p, cp.ID)
			if cp.ParameterIndex >= p.ParameterCount() {
				log.Debug("cubism parameter not found in model",
					logger.String("setting", s.ID),
					logger.String("parameter", cp.ID))
			}
		}
	}
}

func (d *Data) logger() logger.Logger {
	if d.log == nil {
		return GetLogger()
	}
	return d.log
}
