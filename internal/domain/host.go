package domain

import (
	"strings"
	"time"
)

// UnknownName is the placeholder some scanner versions report instead of an
// empty name. It is never used as a display name.
const UnknownName = "unknown"

// Host represents one network device as reported by the remote scanner
type Host struct {
	MAC      string     `json:"mac"`
	ID       string     `json:"id,omitempty"`
	Name     string     `json:"name"`
	IP       string     `json:"ip,omitempty"`
	Vendor   string     `json:"vendor,omitempty"`
	Iface    string     `json:"iface,omitempty"`
	DNS      string     `json:"dns,omitempty"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
	Online   bool       `json:"online"`
	Known    bool       `json:"known"`
}

// NormalizeMAC returns the canonical identity form of a MAC address:
// trimmed and upper-cased. Separators are kept as reported.
func NormalizeMAC(mac string) string {
	return strings.ToUpper(strings.TrimSpace(mac))
}

// DisplayName returns the name to show for a host, falling back to the MAC
// when the name is empty or the "unknown" placeholder.
func DisplayName(name, mac string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, UnknownName) {
		return mac
	}
	return name
}

// Manufacturer returns the vendor, or "Unknown" when the scanner has none
func (h Host) Manufacturer() string {
	if h.Vendor == "" {
		return "Unknown"
	}
	return h.Vendor
}

// Validate checks that the host can be identified and tracked
func (h Host) Validate() error {
	if NormalizeMAC(h.MAC) == "" {
		return ErrMissingMAC
	}
	return nil
}

// Equal reports whether two hosts carry identical fields
func (h Host) Equal(o Host) bool {
	if h.MAC != o.MAC || h.ID != o.ID || h.Name != o.Name || h.IP != o.IP ||
		h.Vendor != o.Vendor || h.Iface != o.Iface || h.DNS != o.DNS ||
		h.Online != o.Online || h.Known != o.Known {
		return false
	}
	switch {
	case h.LastSeen == nil && o.LastSeen == nil:
		return true
	case h.LastSeen == nil || o.LastSeen == nil:
		return false
	default:
		return h.LastSeen.Equal(*o.LastSeen)
	}
}
