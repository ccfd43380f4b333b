// Package app holds the lanwatch commands.
package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X lanwatch/cmd/lanwatch/app.version=..."
var version = "dev"

// NewRootCommand builds the lanwatch command tree
func NewRootCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "lanwatch",
		Short:        "Track selected LAN hosts reported by WatchYourLAN scanners",
		SilenceUsage: true,
	}
	cmd.SetContext(ctx)

	cmd.AddCommand(
		newServeCommand(),
		newProbeCommand(),
		newVersionCommand(),
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the lanwatch version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lanwatch %s\n", version)
		},
	}
}
