package domain

import (
	"sort"
	"time"
)

// Snapshot is the normalized result of one successful poll, keyed by MAC.
// It is immutable once built: accessors return copies and no method mutates it.
type Snapshot struct {
	polledAt time.Time
	hosts    map[string]Host
	macs     []string
}

// NewSnapshot builds a snapshot from hosts. MACs are normalized; when the
// same MAC appears more than once the later entry wins.
func NewSnapshot(polledAt time.Time, hosts []Host) *Snapshot {
	s := &Snapshot{
		polledAt: polledAt,
		hosts:    make(map[string]Host, len(hosts)),
	}
	for _, h := range hosts {
		h.MAC = NormalizeMAC(h.MAC)
		if h.MAC == "" {
			continue
		}
		s.hosts[h.MAC] = h
	}
	s.macs = make([]string, 0, len(s.hosts))
	for mac := range s.hosts {
		s.macs = append(s.macs, mac)
	}
	sort.Strings(s.macs)
	return s
}

// PolledAt returns when the snapshot was taken
func (s *Snapshot) PolledAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.polledAt
}

// Len returns the number of hosts
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.hosts)
}

// Get returns the host with the given MAC
func (s *Snapshot) Get(mac string) (Host, bool) {
	if s == nil {
		return Host{}, false
	}
	h, ok := s.hosts[NormalizeMAC(mac)]
	return h, ok
}

// MACs returns all MACs in sorted order
func (s *Snapshot) MACs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.macs))
	copy(out, s.macs)
	return out
}

// Hosts returns all hosts sorted by MAC
func (s *Snapshot) Hosts() []Host {
	if s == nil {
		return nil
	}
	out := make([]Host, 0, len(s.macs))
	for _, mac := range s.macs {
		out = append(out, s.hosts[mac])
	}
	return out
}

// Equal compares host content, ignoring the poll timestamp
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s.Len() != o.Len() {
		return false
	}
	if s == nil || o == nil {
		return true
	}
	for mac, h := range s.hosts {
		oh, ok := o.hosts[mac]
		if !ok || !h.Equal(oh) {
			return false
		}
	}
	return true
}
