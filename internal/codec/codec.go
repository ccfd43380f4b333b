package codec

import (
	"io"

	"lanwatch/internal/domain"
)

// Exporter writes a snapshot in a given format
type Exporter interface {
	Export(snap *domain.Snapshot, w io.Writer) error
	Format() string
}

// ExporterFor returns the exporter for a format name, or nil if unsupported
func ExporterFor(format string) Exporter {
	switch format {
	case "json":
		return NewJSONCodec()
	case "yaml", "yml":
		return NewYAMLCodec()
	default:
		return nil
	}
}
