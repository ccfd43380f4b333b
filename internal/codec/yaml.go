package codec

import (
	"fmt"
	"io"

	"lanwatch/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec exports snapshots as YAML
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

type yamlSnapshot struct {
	PolledAt string     `yaml:"polled_at"`
	Hosts    []yamlHost `yaml:"hosts"`
}

type yamlHost struct {
	MAC      string `yaml:"mac"`
	ID       string `yaml:"id,omitempty"`
	Name     string `yaml:"name"`
	IP       string `yaml:"ip,omitempty"`
	Vendor   string `yaml:"vendor,omitempty"`
	Iface    string `yaml:"iface,omitempty"`
	DNS      string `yaml:"dns,omitempty"`
	LastSeen string `yaml:"last_seen,omitempty"`
	Online   bool   `yaml:"online"`
	Known    bool   `yaml:"known"`
}

// Export writes the snapshot as a YAML document
func (c *YAMLCodec) Export(snap *domain.Snapshot, w io.Writer) error {
	doc := yamlSnapshot{
		PolledAt: snap.PolledAt().Format(timeLayout),
		Hosts:    []yamlHost{},
	}

	for _, h := range snap.Hosts() {
		yh := yamlHost{
			MAC:    h.MAC,
			ID:     h.ID,
			Name:   h.Name,
			IP:     h.IP,
			Vendor: h.Vendor,
			Iface:  h.Iface,
			DNS:    h.DNS,
			Online: h.Online,
			Known:  h.Known,
		}
		if h.LastSeen != nil {
			yh.LastSeen = h.LastSeen.Format(timeLayout)
		}
		doc.Hosts = append(doc.Hosts, yh)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return encoder.Close()
}
