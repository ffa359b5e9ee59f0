// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"fmt"
)

// CatalogueVersion is the format version reported on catalogues built
// by this package.
const CatalogueVersion = 1

// Kind identifies a capability record's feature set.
type Kind int

const (
	KindMonitoring Kind = iota
	KindCacheAllocation
)

func (k Kind) String() string {
	switch k {
	case KindMonitoring:
		return "monitoring"
	case KindCacheAllocation:
		return "cache_allocation"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalJSON emits the kind name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// MonitorEvent identifies one monitorable quantity.
type MonitorEvent int

const (
	// EventLLCOccupancy counts last-level-cache bytes occupied.
	EventLLCOccupancy MonitorEvent = iota
	// EventLocalMemoryBandwidth counts bandwidth to this socket's
	// memory.
	EventLocalMemoryBandwidth
	// EventTotalMemoryBandwidth counts bandwidth to all memory.
	EventTotalMemoryBandwidth
	// EventRemoteMemoryBandwidth is derived as total minus local; the
	// hardware never reports it directly.
	EventRemoteMemoryBandwidth
)

func (e MonitorEvent) String() string {
	switch e {
	case EventLLCOccupancy:
		return "llc_occupancy"
	case EventLocalMemoryBandwidth:
		return "local_memory_bandwidth"
	case EventTotalMemoryBandwidth:
		return "total_memory_bandwidth"
	case EventRemoteMemoryBandwidth:
		return "remote_memory_bandwidth"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// MarshalJSON emits the event name.
func (e MonitorEvent) MarshalJSON() ([]byte, error) {
	return []byte(`"` + e.String() + `"`), nil
}

// EventDescriptor describes one supported monitoring event.
type EventDescriptor struct {
	Event MonitorEvent `json:"event"`
	// MaxRMID is the number of resource-monitoring IDs the event's
	// counters support.
	MaxRMID uint32 `json:"max_rmid"`
	// ScaleFactor converts raw counter values to bytes. Zero for
	// derived events.
	ScaleFactor uint32 `json:"scale_factor"`
}

// Monitoring describes the cache-monitoring feature set.
type Monitoring struct {
	// MaxRMID is the socket-wide number of resource-monitoring IDs.
	MaxRMID uint32 `json:"max_rmid"`
	// CacheSizeBytes is the last-level cache size.
	CacheSizeBytes uint64 `json:"cache_size_bytes"`
	// Events lists the supported events: the enumerated ones in
	// hardware order, then any derived ones.
	Events []EventDescriptor `json:"events"`
}

// Event returns the descriptor for an event, or nil.
func (m *Monitoring) Event(e MonitorEvent) *EventDescriptor {
	for i := range m.Events {
		if m.Events[i].Event == e {
			return &m.Events[i]
		}
	}
	return nil
}

// CacheAllocation describes the cache-allocation feature set.
type CacheAllocation struct {
	// ClassCount is the number of usable classes of service. Halved
	// relative to the hardware count when CDP is enabled.
	ClassCount uint32 `json:"class_count"`
	// WayCount is the number of cache ways a capacity mask covers.
	WayCount uint32 `json:"way_count"`
	// WaySizeBytes is the cache capacity one way represents.
	WaySizeBytes uint64 `json:"way_size_bytes"`
	// WayContention is the bitmask of ways shared with other agents;
	// allocations overlapping it contend with them.
	WayContention uint64 `json:"way_contention"`
	CDPSupported  bool   `json:"cdp_supported"`
	CDPEnabled    bool   `json:"cdp_enabled"`
}

// Record is one catalogue entry. Exactly one payload pointer is set,
// matching Kind.
type Record struct {
	Kind            Kind             `json:"kind"`
	Monitoring      *Monitoring      `json:"monitoring,omitempty"`
	CacheAllocation *CacheAllocation `json:"cache_allocation,omitempty"`
}

// Catalogue is the discovered capability set. It is built once by
// [Discover] and never mutated; consumers get deep copies.
type Catalogue struct {
	Version int      `json:"version"`
	Records []Record `json:"records"`
}

// Monitoring returns the monitoring record's payload, or nil.
func (c *Catalogue) Monitoring() *Monitoring {
	for _, r := range c.Records {
		if r.Kind == KindMonitoring {
			return r.Monitoring
		}
	}
	return nil
}

// CacheAllocation returns the allocation record's payload, or nil.
func (c *Catalogue) CacheAllocation() *CacheAllocation {
	for _, r := range c.Records {
		if r.Kind == KindCacheAllocation {
			return r.CacheAllocation
		}
	}
	return nil
}

// Clone returns a deep copy.
func (c *Catalogue) Clone() *Catalogue {
	if c == nil {
		return nil
	}
	out := &Catalogue{Version: c.Version, Records: make([]Record, len(c.Records))}
	for i, r := range c.Records {
		out.Records[i].Kind = r.Kind
		if r.Monitoring != nil {
			m := *r.Monitoring
			m.Events = append([]EventDescriptor(nil), r.Monitoring.Events...)
			out.Records[i].Monitoring = &m
		}
		if r.CacheAllocation != nil {
			a := *r.CacheAllocation
			out.Records[i].CacheAllocation = &a
		}
	}
	return out
}

// CDPMode is the requested code/data-prioritization configuration.
type CDPMode int

const (
	// CDPAny leaves CDP as found and reports its state.
	CDPAny CDPMode = iota
	// CDPRequireOn enables CDP, reconfiguring the platform if needed.
	// Fails on platforms that cannot enable it.
	CDPRequireOn
	// CDPRequireOff disables CDP, reconfiguring the platform if
	// needed.
	CDPRequireOff
)

func (m CDPMode) String() string {
	switch m {
	case CDPAny:
		return "any"
	case CDPRequireOn:
		return "on"
	case CDPRequireOff:
		return "off"
	}
	return fmt.Sprintf("cdpmode(%d)", int(m))
}

// ParseCDPMode parses "any", "on" or "off".
func ParseCDPMode(s string) (CDPMode, error) {
	switch s {
	case "", "any":
		return CDPAny, nil
	case "on":
		return CDPRequireOn, nil
	case "off":
		return CDPRequireOff, nil
	}
	return CDPAny, fmt.Errorf("unknown CDP mode %q (want any, on or off)", s)
}
