package conf

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tphakala/motionsync-go/internal/buildinfo"
	"github.com/tphakala/motionsync-go/internal/logger"
)

// Context carries the state shared by CLI commands. Settings is filled by the root
// command before any subcommand runs.
type Context struct {
	Viper    *viper.Viper
	Settings *Settings
	Build    *buildinfo.Context
}

// NewContext creates a command context around a fresh viper instance.
func NewContext(build *buildinfo.Context) *Context {
	return &Context{
		Viper: NewViper(),
		Build: build,
	}
}

// BindFlag binds a command line flag to a settings key. Flags only override the
// configuration when they are set explicitly.
func BindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if flag == nil {
		return
	}
	if err := v.BindPFlag(key, flag); err != nil {
		GetLogger().Warn("failed to bind flag",
			logger.String("key", key),
			logger.Error(err))
	}
}
