package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"lanwatch/internal/adapter"
	"lanwatch/internal/codec"
	"lanwatch/internal/config"
	"lanwatch/internal/logger"
)

type probeOptions struct {
	host    string
	port    int
	url     string
	output  string
	timeout time.Duration
}

func (o *probeOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.host, "host", config.DefaultHost, "scanner host")
	fs.IntVar(&o.port, "port", config.DefaultPort, "scanner port")
	fs.StringVar(&o.url, "url", "", "scanner base URL, overrides --host and --port")
	fs.StringVarP(&o.output, "output", "o", "", "also print the snapshot as json or yaml")
	fs.DurationVar(&o.timeout, "timeout", config.DefaultTimeout, "request timeout")
}

func newProbeCommand() *cobra.Command {
	opts := &probeOptions{}
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check a scanner is reachable and normalize one host list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, opts)
		},
	}
	opts.addFlags(cmd.Flags())
	cmd.MarkFlagsMutuallyExclusive("url", "host")
	cmd.MarkFlagsMutuallyExclusive("url", "port")
	return cmd
}

func runProbe(cmd *cobra.Command, opts *probeOptions) error {
	var exporter codec.Exporter
	if opts.output != "" {
		if exporter = codec.ExporterFor(opts.output); exporter == nil {
			return fmt.Errorf("unsupported output format %q", opts.output)
		}
	}

	baseURL := opts.url
	if baseURL == "" {
		baseURL = adapter.BaseURL(opts.host, opts.port)
	}

	log := logger.WithSource("probe", baseURL)
	client := adapter.NewClient("probe", baseURL, opts.timeout)

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*opts.timeout)
	defer cancel()

	if err := client.Probe(ctx); err != nil {
		return fmt.Errorf("cannot connect to %s: %w", baseURL, err)
	}

	raw, err := client.Fetch(ctx)
	if err != nil {
		return err
	}
	snap, report, err := codec.Normalize(raw, time.Now())
	if err != nil {
		return err
	}
	for _, msg := range report.Messages {
		log.Warn().Msg(msg)
	}

	var online, known int
	for _, h := range snap.Hosts() {
		if h.Online {
			online++
		}
		if h.Known {
			known++
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s reachable (%s payload)\n", baseURL, report.Shape)
	fmt.Fprintf(out, "hosts: %d online: %d known: %d skipped: %d duplicates: %d\n",
		snap.Len(), online, known, report.Skipped, report.Duplicates)

	if exporter != nil {
		return exporter.Export(snap, out)
	}
	return nil
}
