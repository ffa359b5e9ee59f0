// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/cacheqos/lib/cpuid"
	"github.com/bureau-foundation/cacheqos/lib/machine"
)

// discoverMonitoring probes the CMT/MBM feature set.
func discoverMonitoring(p machine.Prober, logger *slog.Logger) (*Monitoring, error) {
	regs, err := p.Identify(cpuid.LeafExtendedFeatures, 0)
	if err != nil {
		return nil, fmt.Errorf("probe extended features: %w", err)
	}
	if !cpuid.DecodeExtendedFeatures(regs).Monitoring {
		return nil, fmt.Errorf("platform QoS monitoring: %w", ErrNotSupported)
	}

	regs, err = p.Identify(cpuid.LeafMonitoring, 0)
	if err != nil {
		return nil, fmt.Errorf("probe monitoring enumeration: %w", err)
	}
	enum := cpuid.DecodeMonitoringEnumeration(regs)
	if !enum.L3 {
		return nil, fmt.Errorf("L3 monitoring resource: %w", ErrNotSupported)
	}

	regs, err = p.Identify(cpuid.LeafMonitoring, 1)
	if err != nil {
		return nil, fmt.Errorf("probe L3 monitoring features: %w", err)
	}
	features := cpuid.DecodeL3MonitoringFeatures(regs)
	if features.EventCount() == 0 {
		return nil, ErrNoEvents
	}

	mon := &Monitoring{MaxRMID: enum.MaxRMID}
	appendEvent := func(e MonitorEvent) {
		mon.Events = append(mon.Events, EventDescriptor{
			Event:       e,
			MaxRMID:     features.MaxRMID,
			ScaleFactor: features.ScaleFactor,
		})
	}
	if features.Occupancy {
		appendEvent(EventLLCOccupancy)
	}
	if features.LocalBandwidth {
		appendEvent(EventLocalMemoryBandwidth)
	}
	if features.TotalBandwidth {
		appendEvent(EventTotalMemoryBandwidth)
	}
	// Remote bandwidth is total minus local, so it exists exactly when
	// both operands do. No hardware counter backs it.
	if features.LocalBandwidth && features.TotalBandwidth {
		mon.Events = append(mon.Events, EventDescriptor{
			Event:   EventRemoteMemoryBandwidth,
			MaxRMID: features.MaxRMID,
		})
	}

	geo, err := llcGeometry(p)
	if err != nil {
		return nil, err
	}
	mon.CacheSizeBytes = geo.TotalSize()

	logger.Debug("monitoring capability discovered",
		"max_rmid", mon.MaxRMID,
		"cache_size_bytes", mon.CacheSizeBytes,
		"events", len(mon.Events))
	return mon, nil
}
