package config

import (
	"fmt"
	"os"
	"sync"
)

// SelectionWriter persists selection changes made at runtime back to the
// devices_to_track of a config file.
type SelectionWriter struct {
	mu   sync.Mutex
	path string
}

// NewSelectionWriter creates a writer for the config file at path
func NewSelectionWriter(path string) *SelectionWriter {
	return &SelectionWriter{path: path}
}

// SaveSelection replaces devices_to_track of source. The rest of the file is
// written back as parsed, with defaults filled in.
func (w *SelectionWriter) SaveSelection(source string, devices []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return err
	}

	if _, ok := cfg.Source(source); !ok {
		return fmt.Errorf("source %s is not in %s", source, w.path)
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].Name == source {
			cfg.Sources[i].DevicesToTrack = devices
		}
	}

	return cfg.Save(w.path)
}
