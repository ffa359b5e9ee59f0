// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/cacheqos/lib/cpuid"
	"github.com/bureau-foundation/cacheqos/lib/machine"
	"github.com/bureau-foundation/cacheqos/lib/topology"
)

// discoverCacheAllocation probes the CAT/CDP feature set and applies
// the requested CDP mode.
func discoverCacheAllocation(p machine.Prober, topo *topology.Snapshot, mode CDPMode, logger *slog.Logger) (*CacheAllocation, error) {
	regs, err := p.Identify(cpuid.LeafExtendedFeatures, 0)
	if err != nil {
		return nil, fmt.Errorf("probe extended features: %w", err)
	}

	var alloc *CacheAllocation
	if cpuid.DecodeExtendedFeatures(regs).Allocation {
		alloc, err = discoverAllocationByCPUID(p, topo, mode, logger)
	} else {
		alloc, err = discoverAllocationByBrand(p, mode, logger)
	}
	if err != nil {
		return nil, err
	}

	// The capacity masks are dimensioned by the cache itself: way
	// count from geometry, per-way size from the total. A part
	// reporting zero ways yields a zero way size rather than a
	// division fault.
	geo, err := llcGeometry(p)
	if err != nil {
		return nil, err
	}
	alloc.WayCount = geo.Ways
	if geo.Ways > 0 {
		alloc.WaySizeBytes = geo.TotalSize() / uint64(geo.Ways)
	}
	if alloc.CDPEnabled {
		alloc.ClassCount /= 2
	}

	logger.Debug("allocation capability discovered",
		"classes", alloc.ClassCount,
		"ways", alloc.WayCount,
		"way_size_bytes", alloc.WaySizeBytes,
		"cdp_supported", alloc.CDPSupported,
		"cdp_enabled", alloc.CDPEnabled)
	return alloc, nil
}

// discoverAllocationByCPUID reads the allocation enumeration leaves
// and runs the CDP mode transition.
func discoverAllocationByCPUID(p machine.Prober, topo *topology.Snapshot, mode CDPMode, logger *slog.Logger) (*CacheAllocation, error) {
	regs, err := p.Identify(cpuid.LeafAllocation, 0)
	if err != nil {
		return nil, fmt.Errorf("probe allocation enumeration: %w", err)
	}
	if !cpuid.DecodeAllocationEnumeration(regs).L3 {
		return nil, fmt.Errorf("L3 allocation resource: %w", ErrNotSupported)
	}

	regs, err = p.Identify(cpuid.LeafAllocation, 1)
	if err != nil {
		return nil, fmt.Errorf("probe L3 allocation features: %w", err)
	}
	features := cpuid.DecodeL3AllocationFeatures(regs)

	enabled, err := applyCDPMode(p, topo, mode, features.CDP, features.ClassCount, features.WayCount, logger)
	if err != nil {
		return nil, err
	}

	return &CacheAllocation{
		ClassCount:    features.ClassCount,
		WayCount:      features.WayCount,
		WayContention: features.WayContention,
		CDPSupported:  features.CDP,
		CDPEnabled:    enabled,
	}, nil
}
