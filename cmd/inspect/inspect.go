package inspect

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/motionsync-go/internal/conf"
	"github.com/tphakala/motionsync-go/internal/logger"
	"github.com/tphakala/motionsync-go/internal/motionsync"
	"github.com/tphakala/motionsync-go/internal/motionsync/data"
	"github.com/tphakala/motionsync-go/internal/motionsync/engine"
)

// Command creates the inspect command that dumps a parsed settings document as YAML.
func Command(ctx *conf.Context) *cobra.Command {
	var showEngines bool

	cmd := &cobra.Command{
		Use:   "inspect <settings.motionsync3.json|model.model3.json>",
		Short: "Print a parsed motion sync settings document",
		Long: `Parse a motion sync settings document and print it as YAML together with the
mapping info each analysis backend would receive.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), afero.NewOsFs(), ctx.Settings, args[0], showEngines)
		},
	}

	cmd.Flags().BoolVar(&showEngines, "engines", false, "Initialize the analysis engines the document needs and list them")

	return cmd
}

type settingView struct {
	Setting     data.Setting      `yaml:",inline"`
	MappingInfo []mappingInfoView `yaml:"mapping_info"`
}

type mappingInfoView struct {
	AudioParameterID     string    `yaml:"audio_parameter_id"`
	ModelParameterIDs    []string  `yaml:"model_parameter_ids"`
	ModelParameterValues []float64 `yaml:"model_parameter_values,flow"`
	Scale                float64   `yaml:"scale"`
}

type engineView struct {
	Type    string `yaml:"type"`
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Error   string `yaml:"error,omitempty"`
}

type documentView struct {
	Source   string        `yaml:"source"`
	Version  int           `yaml:"version"`
	Meta     data.Meta     `yaml:"meta"`
	Settings []settingView `yaml:"settings"`
	Engines  []engineView  `yaml:"engines,omitempty"`
}

func run(w io.Writer, fs afero.Fs, settings *conf.Settings, path string, showEngines bool) error {
	log := logger.Global().Module("inspect")
	loader := data.NewLoader(fs, settings.Replay.CacheTTL, log)

	var (
		doc *data.Data
		err error
	)
	source := path
	if strings.HasSuffix(strings.ToLower(path), ".model3.json") {
		var ms *data.ModelSetting
		ms, doc, err = loader.LoadModelSetting(path)
		if err == nil && doc == nil {
			return fmt.Errorf("model setting %s has no motion sync file", path)
		}
		if ms != nil {
			source = ms.MotionSyncFile
		}
	} else {
		doc, err = loader.Load(path)
	}
	if err != nil {
		return err
	}

	view := documentView{
		Source:  source,
		Version: doc.Version,
		Meta:    doc.Meta,
	}
	for i, s := range doc.Settings() {
		sv := settingView{Setting: *s}
		for _, mi := range doc.GetMappingInfoList(i) {
			sv.MappingInfo = append(sv.MappingInfo, mappingInfoView{
				AudioParameterID:     mi.AudioParameterID,
				ModelParameterIDs:    mi.ModelParameterIDs,
				ModelParameterValues: mi.ModelParameterValues,
				Scale:                mi.Scale,
			})
		}
		view.Settings = append(view.Settings, sv)
	}

	if showEngines {
		view.Engines = engines(doc, settings, log)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return fmt.Errorf("error encoding yaml: %w", err)
	}
	return enc.Close()
}

// engines initializes one engine per analysis type used by doc.
func engines(doc *data.Data, settings *conf.Settings, log logger.Logger) []engineView {
	fw := motionsync.NewFramework()
	fw.StartUp(motionsync.Option{
		Logger: log,
		Engine: engine.Config{BitDepth: settings.Engine.BitDepth},
	})
	defer fw.CleanUp()

	seen := make(map[data.AnalysisType]bool)
	var views []engineView
	for _, s := range doc.Settings() {
		if seen[s.AnalysisType] {
			continue
		}
		seen[s.AnalysisType] = true

		ev := engineView{Type: s.AnalysisType.String()}
		if s.AnalysisType == data.AnalysisTypeUnknown && s.AnalysisTypeName != "" {
			ev.Type = s.AnalysisTypeName
		}
		e, err := fw.Manager().InitializeEngine(s.AnalysisType, engine.Config{BitDepth: settings.Engine.BitDepth})
		if err != nil {
			ev.Error = err.Error()
		} else {
			ev.Name = e.Name()
			ev.Version = e.Version().String()
		}
		views = append(views, ev)
	}
	return views
}
