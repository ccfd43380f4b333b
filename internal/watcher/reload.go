package watcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"lanwatch/internal/config"
	"lanwatch/internal/domain"
)

// SelectionUpdater accepts a new selection for a running source
type SelectionUpdater interface {
	UpdateSelection(ctx context.Context, selection domain.SelectionSet) error
}

// LookupFunc finds the running source with the given name
type LookupFunc func(name string) (SelectionUpdater, error)

// Reloader re-reads the config file and pushes each source's
// devices_to_track to its coordinator. Other settings need a restart.
type Reloader struct {
	path   string
	lookup LookupFunc
	log    zerolog.Logger
}

// NewReloader creates a reloader for the config at path
func NewReloader(path string, lookup LookupFunc, log zerolog.Logger) *Reloader {
	return &Reloader{
		path:   path,
		lookup: lookup,
		log:    log.With().Str("component", "reloader").Logger(),
	}
}

// Reload applies the selections found in the config file. Sources that are
// not running are skipped with a warning.
func (r *Reloader) Reload(ctx context.Context) error {
	cfg, _, err := config.LoadFromPath(r.path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var errs []error
	for _, s := range cfg.Sources {
		updater, err := r.lookup(s.Name)
		if errors.Is(err, domain.ErrSourceNotFound) {
			r.log.Warn().Str("source", s.Name).Msg("Source not running, restart to add it")
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}

		selection := s.Selection()
		if err := updater.UpdateSelection(ctx, selection); err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", s.Name, err))
			continue
		}
		r.log.Info().Str("source", s.Name).Int("devices", len(selection)).Msg("Selection reloaded")
	}

	return errors.Join(errs...)
}

// OnChange returns a callback for Watcher that reloads and logs failures
func (r *Reloader) OnChange(ctx context.Context) func() {
	return func() {
		if err := r.Reload(ctx); err != nil {
			r.log.Error().Err(err).Msg("Config reload failed")
		}
	}
}
