package replay

import (
	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/motionsync/data"
	"github.com/tphakala/motionsync-go/internal/motionsync/model"
)

// BuildModel returns a parameter table holding every avatar parameter the settings drive,
// in first-seen order. Each parameter keeps the range of its first declaration and starts
// at zero clamped into that range.
func BuildModel(d *data.Data) (*model.ParameterTable, error) {
	seen := make(map[string]struct{})
	var params []model.Parameter
	for _, s := range d.Settings() {
		for _, cp := range s.CubismParameters {
			if _, ok := seen[cp.ID]; ok {
				continue
			}
			seen[cp.ID] = struct{}{}
			def := 0.0
			if cp.Min < cp.Max {
				def = min(max(def, cp.Min), cp.Max)
			}
			params = append(params, model.Parameter{ID: cp.ID, Min: cp.Min, Max: cp.Max, Default: def})
		}
	}

	table, err := model.NewParameterTable(params...)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentReplay).
			Category(errors.CategoryConfiguration).
			Context("operation", "build-model").
			Build()
	}
	return table, nil
}
