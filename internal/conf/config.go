// config.go: runtime settings for motionsync-go and the viper wiring that loads them.
package conf

import (
	"bytes"
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// EnvPrefix is the prefix for environment variable overrides, e.g. MOTIONSYNC_ENGINE_SAMPLERATE.
const EnvPrefix = "MOTIONSYNC"

// EngineSettings holds analysis engine defaults.
type EngineSettings struct {
	SampleRate      float64 // sample rate used when the audio input does not carry one
	BitDepth        int     // bit depth reported to the engine
	AudioLevelRatio float64 // audio level effect ratio, 0.0 - 1.0
}

// ReplaySettings controls the replay command.
type ReplaySettings struct {
	FrameRate      int           // frames per second driving Update
	Realtime       bool          // pace frames with the wall clock
	ChunkSamples   int           // samples written to the ring buffer per push
	BufferCapacity int           // ring buffer capacity in bytes
	Output         string        // "table" or "jsonl"
	CacheTTL       time.Duration // settings document cache lifetime
}

// MetricsSettings controls prometheus metrics collection.
type MetricsSettings struct {
	Enabled  bool
	Listen   string // serve /metrics on this address while a replay runs, empty disables
	Textfile string // write text exposition to this file after a run
}

// TelemetrySettings controls sentry error reporting.
type TelemetrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

// Settings is the root configuration structure.
type Settings struct {
	Debug     bool
	Logging   logger.LoggingConfig
	Engine    EngineSettings
	Replay    ReplaySettings
	Metrics   MetricsSettings
	Telemetry TelemetrySettings

	ConfigFile string `yaml:"-" mapstructure:"-"` // file the settings were read from, empty when defaults were used
}

// NewViper returns a viper instance with defaults, config search paths and
// environment overrides applied. Commands bind their flags to it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for _, path := range DefaultConfigPaths() {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaultConfig(v)
	return v
}

// Load reads configuration into a Settings value. When configFile is empty the
// default search paths are used; a missing file falls back to defaults.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("operation", "read-config").
				Context("config_file", configFile).
				Build()
		}
		GetLogger().Debug("no config file found, using defaults",
			logger.String("search_paths", strings.Join(DefaultConfigPaths(), ",")))
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal-config").
			Build()
	}
	settings.ConfigFile = v.ConfigFileUsed()

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("operation", "validate-config").
			Build()
	}

	return settings, nil
}

// LoadDefaults returns settings built from the embedded default config only.
func LoadDefaults() (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaultConfig(v)
	if err := v.ReadConfig(bytes.NewReader(DefaultConfig())); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "read-embedded-config").
			Build()
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal-config").
			Build()
	}
	return settings, ValidateSettings(settings)
}

// DefaultConfig returns the embedded default config.yaml.
func DefaultConfig() []byte {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		// the file is compiled in, a failure here is a build problem
		panic(err)
	}
	return data
}

// DefaultConfigPaths returns the directories searched for config.yaml, in order.
func DefaultConfigPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		switch runtime.GOOS {
		case "windows":
			paths = append(paths, filepath.Join(home, "AppData", "Roaming", "motionsync"))
		default:
			paths = append(paths, filepath.Join(home, ".config", "motionsync"))
		}
	}

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/motionsync")
	}
	return paths
}
