package data

import (
	"slices"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/motionsync-go/internal/errors"
)

// ModelSetting is the motion sync view of a model setting (model3.json) document.
type ModelSetting struct {
	// MotionSyncFile is the settings document path relative to the model setting file.
	MotionSyncFile string
	// SoundFiles lists the non-empty motion sound files, grouped by motion group name.
	SoundFiles []string
}

// ParseModelSetting extracts FileReferences.MotionSync and the motion sound files.
// Motion groups are visited in name order.
func ParseModelSetting(buf []byte) (*ModelSetting, error) {
	root, err := jason.NewObjectFromBytes(buf)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentData).
			Category(errors.CategoryConfiguration).
			Context("operation", "parse-model-setting").
			Build()
	}

	refs, err := root.GetObject("FileReferences")
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentData).
			Category(errors.CategoryConfiguration).
			Context("operation", "parse-model-setting").
			Context("key", "FileReferences").
			Build()
	}

	ms := &ModelSetting{MotionSyncFile: optString(refs, "MotionSync")}

	motions, err := refs.GetObject("Motions")
	if err != nil {
		return ms, nil
	}

	names := make([]string, 0, len(motions.Map()))
	for name := range motions.Map() {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		entries, err := motions.GetObjectArray(name)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if sound := optString(e, "Sound"); sound != "" {
				ms.SoundFiles = append(ms.SoundFiles, sound)
			}
		}
	}
	return ms, nil
}
