package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"lanwatch/internal/domain"
)

const timeLayout = time.RFC3339

// lastSeenLayouts are tried in order when the scanner reports a date string
var lastSeenLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
}

// fieldAliases maps each canonical host field to the lower-cased keys the
// scanner may use for it, in priority order.
var fieldAliases = map[string][]string{
	"mac":      {"mac"},
	"id":       {"id"},
	"name":     {"name"},
	"ip":       {"ip"},
	"vendor":   {"vendor", "hw"},
	"iface":    {"iface", "interface"},
	"dns":      {"dns"},
	"lastSeen": {"date", "lastseen", "last_seen"},
	"online":   {"online", "now"},
	"known":    {"known"},
}

// payloadShape is the recognized top-level form of an /api/all response
type payloadShape int

const (
	shapeUnrecognized payloadShape = iota
	// shapeSequence is a bare array of host objects
	shapeSequence
	// shapeHostsMapping is an object with a "hosts" array
	shapeHostsMapping
	// shapeKeyedMapping is an object whose every value is a host object
	shapeKeyedMapping
)

func (s payloadShape) String() string {
	switch s {
	case shapeSequence:
		return "sequence"
	case shapeHostsMapping:
		return "hosts-mapping"
	case shapeKeyedMapping:
		return "keyed-mapping"
	default:
		return "unrecognized"
	}
}

// payload is the tagged result of the top-level decode step
type payload struct {
	shape   payloadShape
	entries []json.RawMessage
}

// Report describes what normalization did with individual entries
type Report struct {
	Shape      string   `json:"shape"`
	Entries    int      `json:"entries"`
	Accepted   int      `json:"accepted"`
	Skipped    int      `json:"skipped"`
	Duplicates int      `json:"duplicates"`
	Messages   []string `json:"messages,omitempty"`
}

// Warnings returns the number of entries that were dropped or overwritten
func (r Report) Warnings() int {
	return r.Skipped + r.Duplicates
}

func (r *Report) warn(format string, args ...any) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// Normalize converts a raw /api/all response into a Snapshot. Only an
// unrecognized top-level shape fails; malformed entries are skipped and
// counted in the report. Duplicate MACs resolve to the last occurrence.
func Normalize(raw []byte, polledAt time.Time) (*domain.Snapshot, Report, error) {
	var report Report

	p, err := decodePayload(raw)
	if err != nil {
		return nil, report, err
	}
	report.Shape = p.shape.String()
	report.Entries = len(p.entries)

	hosts := make([]domain.Host, 0, len(p.entries))
	seen := make(map[string]int, len(p.entries))

	for i, entry := range p.entries {
		host, err := decodeHost(entry)
		if err != nil {
			report.Skipped++
			report.warn("entry %d skipped: %v", i, err)
			continue
		}
		if prev, dup := seen[host.MAC]; dup {
			report.Duplicates++
			report.warn("entry %d duplicates mac %s from entry %d; keeping entry %d", i, host.MAC, prev, i)
		}
		seen[host.MAC] = i
		hosts = append(hosts, host)
	}

	snap := domain.NewSnapshot(polledAt, hosts)
	report.Accepted = snap.Len()

	return snap, report, nil
}

// decodePayload classifies the top-level JSON value
func decodePayload(raw []byte) (payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return payload{}, &domain.NormalizationError{Reason: "empty payload"}
	}

	switch trimmed[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return payload{}, &domain.NormalizationError{Reason: "invalid json sequence", Err: err}
		}
		return payload{shape: shapeSequence, entries: entries}, nil

	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return payload{}, &domain.NormalizationError{Reason: "invalid json mapping", Err: err}
		}
		return decodeMapping(obj)

	default:
		return payload{}, &domain.NormalizationError{Reason: "top-level value is neither a sequence nor a mapping"}
	}
}

func decodeMapping(obj map[string]json.RawMessage) (payload, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !strings.EqualFold(k, "hosts") {
			continue
		}
		var entries []json.RawMessage
		value := bytes.TrimSpace(obj[k])
		if len(value) == 0 || value[0] != '[' {
			return payload{}, &domain.NormalizationError{Reason: fmt.Sprintf("%q is not a sequence", k)}
		}
		if err := json.Unmarshal(value, &entries); err != nil {
			return payload{}, &domain.NormalizationError{Reason: fmt.Sprintf("invalid %q sequence", k), Err: err}
		}
		return payload{shape: shapeHostsMapping, entries: entries}, nil
	}

	if len(keys) == 0 {
		return payload{}, &domain.NormalizationError{Reason: "mapping has no hosts"}
	}

	entries := make([]json.RawMessage, 0, len(keys))
	hostLike := false
	for _, k := range keys {
		value := bytes.TrimSpace(obj[k])
		if len(value) == 0 || value[0] != '{' {
			return payload{}, &domain.NormalizationError{Reason: "mapping has no hosts key and no host-like content"}
		}
		if !hostLike {
			_, err := decodeHost(value)
			hostLike = err == nil
		}
		entries = append(entries, value)
	}
	// An error body such as {"error": {...}} is a mapping of objects too
	if !hostLike {
		return payload{}, &domain.NormalizationError{Reason: "mapping has no hosts key and no value with a mac"}
	}
	return payload{shape: shapeKeyedMapping, entries: entries}, nil
}

// decodeHost maps one host object onto the canonical Host
func decodeHost(raw json.RawMessage) (domain.Host, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var obj map[string]any
	if err := decoder.Decode(&obj); err != nil {
		return domain.Host{}, fmt.Errorf("not a host object: %w", err)
	}
	if obj == nil {
		return domain.Host{}, fmt.Errorf("not a host object: null")
	}

	fields := foldKeys(obj)

	host := domain.Host{
		MAC:    domain.NormalizeMAC(asString(lookup(fields, "mac"))),
		ID:     asString(lookup(fields, "id")),
		IP:     asString(lookup(fields, "ip")),
		Vendor: asString(lookup(fields, "vendor")),
		Iface:  asString(lookup(fields, "iface")),
		DNS:    asString(lookup(fields, "dns")),
		Online: asBool(lookup(fields, "online")),
		Known:  asBool(lookup(fields, "known")),
	}
	if err := host.Validate(); err != nil {
		return domain.Host{}, err
	}
	host.Name = domain.DisplayName(asString(lookup(fields, "name")), host.MAC)
	host.LastSeen = asTime(lookup(fields, "lastSeen"))

	return host, nil
}

// foldKeys lower-cases keys. Keys are visited in sorted order so that
// case-colliding keys resolve the same way every time.
func foldKeys(obj map[string]any) map[string]any {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(obj))
	for _, k := range keys {
		out[strings.ToLower(k)] = obj[k]
	}
	return out
}

func lookup(fields map[string]any, field string) any {
	for _, alias := range fieldAliases[field] {
		if v, ok := fields[alias]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asString(v any) string {
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func asBool(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on", "online":
			return true
		}
		return false
	default:
		return false
	}
}

func asTime(v any) *time.Time {
	switch v := v.(type) {
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range lastSeenLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return &t
			}
		}
	case json.Number:
		if secs, err := v.Int64(); err == nil && secs > 0 {
			t := time.Unix(secs, 0).UTC()
			return &t
		}
	}
	return nil
}
