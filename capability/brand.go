// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/cacheqos/lib/cpuid"
	"github.com/bureau-foundation/cacheqos/lib/machine"
)

// Parts that implement cache allocation without enumerating it via
// CPUID. Their class count comes from the platform documentation; CDP
// is not available on any of them.
var brandAllocationModels = []string{
	"E5-2658 v3",
	"E5-2648L v3",
	"E5-2628L v3",
	"E5-2618L v3",
	"E5-2608L v3",
	"E5-2658A v3",
	"E3-1258L v4",
	"E3-1278L v4",
}

const brandAllocationClasses = 4

// discoverAllocationByBrand recognizes allocation support on parts
// missing the CPUID enumeration. CDP cannot be enabled on these, so a
// CDPRequireOn request fails before any probing or register traffic.
func discoverAllocationByBrand(p machine.Prober, mode CDPMode, logger *slog.Logger) (*CacheAllocation, error) {
	if mode == CDPRequireOn {
		return nil, fmt.Errorf("CDP requested but this platform cannot enable it: %w", ErrConfigurationConflict)
	}

	regs, err := p.Identify(cpuid.LeafExtendedMax, 0)
	if err != nil {
		return nil, fmt.Errorf("probe extended leaf range: %w", err)
	}
	if !cpuid.SupportsBrandString(regs) {
		return nil, fmt.Errorf("processor brand string not available: %w", ErrNotSupported)
	}

	var leaves []cpuid.Registers
	for leaf := uint32(cpuid.LeafBrandStringFirst); leaf <= cpuid.LeafBrandStringLast; leaf++ {
		regs, err := p.Identify(leaf, 0)
		if err != nil {
			return nil, fmt.Errorf("probe brand string leaf %#x: %w", leaf, err)
		}
		leaves = append(leaves, regs)
	}
	brand := cpuid.BrandString(leaves)

	for _, model := range brandAllocationModels {
		if strings.Contains(brand, model) {
			logger.Debug("allocation capability recognized by brand",
				"brand", brand, "model", model, "classes", brandAllocationClasses)
			return &CacheAllocation{ClassCount: brandAllocationClasses}, nil
		}
	}
	return nil, fmt.Errorf("brand %q does not implement cache allocation: %w", brand, ErrNotSupported)
}
