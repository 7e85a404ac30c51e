package replay

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/motionsync-go/internal/conf"
	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/observability"
	"github.com/tphakala/motionsync-go/internal/replay"
)

// Command creates the replay command for playing a WAV file through a settings document.
func Command(ctx *conf.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <settings.motionsync3.json|model.model3.json> [input.wav]",
		Short: "Replay an audio file through motion sync",
		Long: `Decode a WAV file, run the motion sync controller at a fixed frame rate and print
the avatar parameter values of every frame. When a model3.json is given and no audio
file, the first motion sound file of the model is used.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := replay.Options{
				SettingsPath: args[0],
				Output:       cmd.OutOrStdout(),
			}
			if len(args) == 2 {
				opts.AudioPath = args[1]
			}

			if ctx.Settings.Metrics.Enabled {
				m, err := observability.NewMetrics()
				if err != nil {
					return fmt.Errorf("error initializing metrics: %w", err)
				}
				errors.AddErrorHook(m.ErrorHook())
				opts.Metrics = m
			}

			summary, err := replay.Run(cmd.Context(), ctx.Settings, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d frames, %d samples at %d Hz, %d processed by %d processor(s)\n",
				summary.Frames, summary.Samples, summary.SampleRate, summary.Processed, summary.Processors)
			return nil
		},
	}

	setupFlags(cmd, ctx)

	return cmd
}

// setupFlags configures flags specific to the replay command.
func setupFlags(cmd *cobra.Command, ctx *conf.Context) {
	flags := cmd.Flags()
	flags.IntP("framerate", "r", 0, "Frames per second driving the controller")
	flags.Bool("realtime", false, "Pace frames with the wall clock")
	flags.StringP("output", "o", "", "Output format: table, jsonl")
	flags.Int("chunk", 0, "Samples decoded per read")
	flags.Float64("level-ratio", 0, "Audio level effect ratio, 0.0 - 1.0")
	flags.Bool("metrics", false, "Collect prometheus metrics")
	flags.String("metrics-listen", "", "Serve /metrics on this address during the replay")
	flags.String("metrics-textfile", "", "Write metrics in text format to this file after the replay")

	conf.BindFlag(ctx.Viper, "replay.framerate", flags.Lookup("framerate"))
	conf.BindFlag(ctx.Viper, "replay.realtime", flags.Lookup("realtime"))
	conf.BindFlag(ctx.Viper, "replay.output", flags.Lookup("output"))
	conf.BindFlag(ctx.Viper, "replay.chunksamples", flags.Lookup("chunk"))
	conf.BindFlag(ctx.Viper, "engine.audiolevelratio", flags.Lookup("level-ratio"))
	conf.BindFlag(ctx.Viper, "metrics.enabled", flags.Lookup("metrics"))
	conf.BindFlag(ctx.Viper, "metrics.listen", flags.Lookup("metrics-listen"))
	conf.BindFlag(ctx.Viper, "metrics.textfile", flags.Lookup("metrics-textfile"))
}
