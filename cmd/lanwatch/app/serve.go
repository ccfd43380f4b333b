package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"lanwatch/internal/adapter"
	"lanwatch/internal/config"
	"lanwatch/internal/handler"
	"lanwatch/internal/hub"
	"lanwatch/internal/logger"
	"lanwatch/internal/service"
	"lanwatch/internal/watcher"
)

type serveOptions struct {
	configPath string
	listen     string
	debug      bool
	watch      bool
	persist    bool
}

func (o *serveOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", "", "config file (default: search standard locations)")
	fs.StringVar(&o.listen, "listen", "", "HTTP listen address, overrides server.listen")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&o.watch, "watch", true, "reload devices_to_track when the config file changes")
	fs.BoolVar(&o.persist, "persist-selection", true, "write selections changed through the API back to the config file")
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll the configured scanners and serve the consumer API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	opts.addFlags(cmd.Flags())
	return cmd
}

func runServe(ctx context.Context, opts *serveOptions) error {
	cfg, path, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.listen != "" {
		cfg.Server.Listen = opts.listen
	}
	if opts.debug {
		cfg.Log.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log := logger.GetLogger()
	serveLog := logger.WithComponent("serve")
	if path != "" {
		serveLog.Info().Str("path", path).Msg("Loaded config")
	} else {
		serveLog.Info().Msg("No config file found, using defaults")
	}
	serveLog.Debug().Msg(cfg.Summary())

	bus := service.NewEventBus()
	registry := adapter.NewRegistry(log)
	trackers := make(map[string]*service.Tracker, len(cfg.Sources))

	for _, src := range cfg.Sources {
		tracker := service.NewTracker(src.Name, src.Selection(), bus, log)
		client := adapter.NewClient(src.Name, src.URL(), src.Timeout.Duration())
		coordinator := adapter.NewCoordinator(client, tracker, adapter.Options{
			Interval: src.PollInterval.Duration(),
			Timeout:  src.Timeout.Duration(),
		}, log)

		if err := registry.Register(coordinator); err != nil {
			return err
		}
		trackers[src.Name] = tracker
	}

	// The first poll of every source must succeed before we serve anything
	if err := registry.Start(ctx); err != nil {
		return fmt.Errorf("start sources: %w", err)
	}
	defer registry.Stop()

	sseHub := hub.New(log)
	api := handler.New(registry, trackers, log)
	if opts.persist && path != "" {
		api.WithSelectionSaver(config.NewSelectionWriter(path))
	}
	server := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           handler.NewRouter(api, sseHub),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sseHub.Run(gctx, bus)
		return nil
	})

	g.Go(func() error {
		serveLog.Info().Str("addr", server.Addr).Msg("Server listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		serveLog.Info().Msg("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if opts.watch && path != "" {
		reloader := watcher.NewReloader(path, func(name string) (watcher.SelectionUpdater, error) {
			c, err := registry.Get(name)
			if err != nil {
				return nil, err
			}
			return c, nil
		}, log)
		w := watcher.New(path, reloader.OnChange(gctx), log)

		g.Go(func() error {
			if err := w.Watch(gctx); err != nil && !errors.Is(err, context.Canceled) {
				serveLog.Warn().Err(err).Msg("Config watcher stopped")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	serveLog.Info().Msg("Server stopped")
	return nil
}
