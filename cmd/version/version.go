package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/motionsync-go/internal/conf"
	"github.com/tphakala/motionsync-go/internal/cpuspec"
)

// Command creates the version command.
func Command(ctx *conf.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if _, err := fmt.Fprintln(w, ctx.Build.String()); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "cpu: %s\n", cpuspec.GetCPUSpec())
			return err
		},
	}
}
