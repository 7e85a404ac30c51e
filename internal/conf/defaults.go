// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/motionsync-go/internal/logger"
)

// Sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	v.SetDefault("engine.samplerate", 48000.0)
	v.SetDefault("engine.bitdepth", 32)
	v.SetDefault("engine.audiolevelratio", 0.0)

	v.SetDefault("replay.framerate", 60)
	v.SetDefault("replay.realtime", false)
	v.SetDefault("replay.chunksamples", 1024)
	v.SetDefault("replay.buffercapacity", 1<<20)
	v.SetDefault("replay.output", OutputTable)
	v.SetDefault("replay.cachettl", 10*time.Minute)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "")
	v.SetDefault("metrics.textfile", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")
	v.SetDefault("telemetry.environment", "production")
	v.SetDefault("telemetry.samplerate", 1.0)
}
