package adapter

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"lanwatch/internal/domain"
	"lanwatch/internal/metrics"
)

// Registry manages the coordinators of all configured sources. Sources are
// independent: they share no state and no locks beyond this index.
type Registry struct {
	mu           sync.RWMutex
	coordinators map[string]*Coordinator
	log          zerolog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		coordinators: make(map[string]*Coordinator),
		log:          log.With().Str("component", "registry").Logger(),
	}
}

// Register adds a coordinator to the registry
func (r *Registry) Register(c *Coordinator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.coordinators[name]; exists {
		return fmt.Errorf("source %s already registered", name)
	}

	r.coordinators[name] = c
	r.log.Info().
		Str("source", name).
		Str("endpoint", c.source.Endpoint()).
		Dur("interval", c.opts.Interval).
		Msg("Registered source")
	return nil
}

// Start starts every source concurrently. If any first poll fails, the
// sources that did start are stopped again and the error is returned.
func (r *Registry) Start(ctx context.Context) error {
	coordinators := r.List()

	var g errgroup.Group
	for _, c := range coordinators {
		c := c
		g.Go(func() error {
			return c.Start(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		r.Stop()
		return err
	}

	r.log.Info().Int("sources", len(coordinators)).Msg("All sources started")
	return nil
}

// Stop stops every source and waits for their poll loops to exit
func (r *Registry) Stop() {
	var wg sync.WaitGroup
	for _, c := range r.List() {
		wg.Add(1)
		go func(c *Coordinator) {
			defer wg.Done()
			c.Stop()
		}(c)
	}
	wg.Wait()
}

// Remove stops a source and drops it with its metrics
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	c, exists := r.coordinators[name]
	delete(r.coordinators, name)
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrSourceNotFound, name)
	}

	c.Stop()
	metrics.ForgetSource(name)
	r.log.Info().Str("source", name).Msg("Removed source")
	return nil
}

// Get returns the coordinator of a source
func (r *Registry) Get(name string) (*Coordinator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.coordinators[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, name)
	}
	return c, nil
}

// List returns all coordinators sorted by source name
func (r *Registry) List() []*Coordinator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Coordinator, 0, len(r.coordinators))
	for _, c := range r.coordinators {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})
	return out
}

// Statuses returns the status of every source sorted by name
func (r *Registry) Statuses() []Status {
	coordinators := r.List()
	out := make([]Status, 0, len(coordinators))
	for _, c := range coordinators {
		out = append(out, c.Status())
	}
	return out
}
