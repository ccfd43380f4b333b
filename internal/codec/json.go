package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"lanwatch/internal/domain"
)

// JSONCodec exports snapshots as JSON
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

type jsonSnapshot struct {
	PolledAt string        `json:"polled_at"`
	Hosts    []domain.Host `json:"hosts"`
}

// Export writes the snapshot as an indented JSON document
func (c *JSONCodec) Export(snap *domain.Snapshot, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	doc := jsonSnapshot{
		PolledAt: snap.PolledAt().Format(timeLayout),
		Hosts:    snap.Hosts(),
	}
	if doc.Hosts == nil {
		doc.Hosts = []domain.Host{}
	}

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
