package domain

import (
	"sort"
	"time"
)

// Presence is the derived reachability state of a tracked host
type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceOffline Presence = "offline"
)

// PresenceOf maps an upstream online flag to a presence state
func PresenceOf(online bool) Presence {
	if online {
		return PresenceOnline
	}
	return PresenceOffline
}

// TrackedEntity is the per-MAC state surfaced to consumers. It outlives
// individual polls: absence from a snapshot only flips presence to offline,
// and only deselection removes it.
type TrackedEntity struct {
	MAC       string     `json:"mac"`
	Name      string     `json:"name"`
	ID        string     `json:"id,omitempty"`
	IP        string     `json:"ip,omitempty"`
	Vendor    string     `json:"vendor,omitempty"`
	Iface     string     `json:"iface,omitempty"`
	DNS       string     `json:"dns,omitempty"`
	Known     bool       `json:"known"`
	Presence  Presence   `json:"presence"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
	FirstSeen time.Time  `json:"first_seen"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewTrackedEntity creates tracked state from a freshly observed host
func NewTrackedEntity(h Host, now time.Time) *TrackedEntity {
	return &TrackedEntity{
		MAC:       h.MAC,
		Name:      DisplayName(h.Name, h.MAC),
		ID:        h.ID,
		IP:        h.IP,
		Vendor:    h.Vendor,
		Iface:     h.Iface,
		DNS:       h.DNS,
		Known:     h.Known,
		Presence:  PresenceOf(h.Online),
		LastSeen:  h.LastSeen,
		FirstSeen: now,
		UpdatedAt: now,
	}
}

// TrackerID is the unique id of the host's device tracker
func (e *TrackedEntity) TrackerID() string {
	return "watchyourlan_tracker_" + e.MAC
}

// PresenceSensorID is the unique id of the host's connectivity sensor
func (e *TrackedEntity) PresenceSensorID() string {
	return "watchyourlan_device_" + e.MAC
}

// Manufacturer returns the vendor, or "Unknown" when empty
func (e *TrackedEntity) Manufacturer() string {
	if e.Vendor == "" {
		return "Unknown"
	}
	return e.Vendor
}

// Online reports whether the entity is currently present
func (e *TrackedEntity) Online() bool {
	return e.Presence == PresenceOnline
}

// Clone returns an independent copy
func (e *TrackedEntity) Clone() *TrackedEntity {
	c := *e
	return &c
}

// SelectionSet is the operator-chosen set of MACs that are surfaced
type SelectionSet map[string]struct{}

// NewSelectionSet builds a set from MACs, normalizing each and dropping blanks
func NewSelectionSet(macs ...string) SelectionSet {
	s := make(SelectionSet, len(macs))
	for _, mac := range macs {
		if mac = NormalizeMAC(mac); mac != "" {
			s[mac] = struct{}{}
		}
	}
	return s
}

// Has reports membership
func (s SelectionSet) Has(mac string) bool {
	_, ok := s[NormalizeMAC(mac)]
	return ok
}

// Sorted returns members in sorted order
func (s SelectionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for mac := range s {
		out = append(out, mac)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy
func (s SelectionSet) Clone() SelectionSet {
	c := make(SelectionSet, len(s))
	for mac := range s {
		c[mac] = struct{}{}
	}
	return c
}
