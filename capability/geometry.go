// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"fmt"

	"github.com/bureau-foundation/cacheqos/lib/cpuid"
	"github.com/bureau-foundation/cacheqos/lib/machine"
)

// llcGeometry probes the last-level cache's dimensions: way count and
// total size derive the per-way capacity the allocation masks control.
func llcGeometry(p machine.Prober) (cpuid.CacheParameters, error) {
	regs, err := p.Identify(cpuid.LeafCacheParameters, cpuid.SubleafL3Parameters)
	if err != nil {
		return cpuid.CacheParameters{}, fmt.Errorf("probe L3 geometry: %w", err)
	}
	return cpuid.DecodeCacheParameters(regs), nil
}
