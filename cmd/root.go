package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/motionsync-go/cmd/inspect"
	"github.com/tphakala/motionsync-go/cmd/replay"
	"github.com/tphakala/motionsync-go/cmd/version"
	"github.com/tphakala/motionsync-go/internal/conf"
	"github.com/tphakala/motionsync-go/internal/logger"
	"github.com/tphakala/motionsync-go/internal/telemetry"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *conf.Context) *cobra.Command {
	var (
		configFile string
		central    *logger.CentralLogger
	)

	rootCmd := &cobra.Command{
		Use:           "motionsync",
		Short:         "Drive avatar parameters from audio",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, ctx, &configFile)

	versionCmd := version.Command(ctx)
	rootCmd.AddCommand(
		replay.Command(ctx),
		inspect.Command(ctx),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// version needs no configuration
		if cmd.Name() == versionCmd.Name() {
			return nil
		}

		settings, err := conf.Load(ctx.Viper, configFile)
		if err != nil {
			return err
		}
		if settings.Debug {
			settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
			if settings.Logging.Console != nil {
				settings.Logging.Console.Level = string(logger.LogLevelDebug)
			}
		}
		ctx.Settings = settings

		central, err = logger.NewCentralLogger(&settings.Logging)
		if err != nil {
			return fmt.Errorf("error initializing logger: %w", err)
		}
		logger.SetGlobal(central)

		if _, err := telemetry.Init(settings.Telemetry,
			telemetry.WithRelease(ctx.Build.GetVersion()),
			telemetry.WithLogger(central.Module("telemetry")),
		); err != nil {
			// telemetry is optional, keep running without it
			central.Module("cmd").Warn("telemetry disabled", logger.Error(err))
		}
		return nil
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if central == nil {
			return nil
		}
		telemetry.Shutdown(telemetry.DefaultFlushTimeout)
		return central.Close()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, ctx *conf.Context, configFile *string) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/motionsync, /etc/motionsync)")
	flags.BoolP("debug", "d", false, "Enable debug output")

	conf.BindFlag(ctx.Viper, "debug", flags.Lookup("debug"))
}
