// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"errors"
	"log/slog"

	"github.com/bureau-foundation/cacheqos/lib/machine"
	"github.com/bureau-foundation/cacheqos/lib/topology"
)

// Discover probes both feature sets and assembles the catalogue,
// applying the requested CDP mode along the way.
//
// A platform missing one feature set still yields a catalogue with the
// other; only a platform with neither fails ([ErrNoCapabilities]).
// Allocation errors other than absence — a CDP mode that cannot be
// satisfied, inconsistent socket state, failed register traffic —
// abort discovery, since the platform may be half-reconfigured.
func Discover(p machine.Prober, topo *topology.Snapshot, mode CDPMode, logger *slog.Logger) (*Catalogue, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cat := &Catalogue{Version: CatalogueVersion}

	mon, err := discoverMonitoring(p, logger)
	if err != nil {
		logger.Info("cache monitoring not detected", "error", err)
	} else {
		cat.Records = append(cat.Records, Record{Kind: KindMonitoring, Monitoring: mon})
	}

	alloc, err := discoverCacheAllocation(p, topo, mode, logger)
	switch {
	case err == nil:
		cat.Records = append(cat.Records, Record{Kind: KindCacheAllocation, CacheAllocation: alloc})
	case errors.Is(err, ErrNotSupported):
		logger.Info("cache allocation not detected", "error", err)
	default:
		return nil, err
	}

	if len(cat.Records) == 0 {
		return nil, ErrNoCapabilities
	}
	logger.Info("capability discovery complete", "records", len(cat.Records), "cdp_mode", mode.String())
	return cat, nil
}
