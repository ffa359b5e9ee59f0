// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/cacheqos/lib/machine"
	"github.com/bureau-foundation/cacheqos/lib/topology"
)

// cdpEnabled reads the CDP enable bit on each socket's representative
// core. Sockets must agree; a mixed result means earlier
// reconfiguration died partway and the platform needs manual repair.
func cdpEnabled(p machine.Prober, topo *topology.Snapshot) (bool, error) {
	var on, off int
	for _, socket := range topo.Sockets() {
		core, ok := topo.FirstCoreOf(socket)
		if !ok {
			return false, fmt.Errorf("socket %d has no cores", socket)
		}
		v, err := p.ReadRegister(core, MSRL3QOSConfig)
		if err != nil {
			return false, fmt.Errorf("read L3 QoS configuration on socket %d: %w", socket, err)
		}
		if v&L3QOSConfigCDPEnable != 0 {
			on++
		} else {
			off++
		}
	}
	if on > 0 && off > 0 {
		return false, fmt.Errorf("CDP enabled on %d of %d sockets: %w", on, on+off, ErrInconsistentPlatform)
	}
	return on > 0, nil
}

// catReset returns the allocation hardware to its power-on shape:
// every class's capacity mask opened to all ways on every socket, then
// every core's association cleared to class 0. classCount is the raw
// hardware class count; the reset must cover every register slot, not
// just the classes usable under CDP.
func catReset(p machine.Prober, topo *topology.Snapshot, classCount, wayCount uint32) error {
	mask := uint64(1)<<wayCount - 1
	for _, socket := range topo.Sockets() {
		core, ok := topo.FirstCoreOf(socket)
		if !ok {
			return fmt.Errorf("socket %d has no cores", socket)
		}
		for class := uint32(0); class < classCount; class++ {
			if err := p.WriteRegister(core, MSRL3MaskBase+class, mask); err != nil {
				return fmt.Errorf("reset class %d mask on socket %d: %w", class, socket, err)
			}
		}
	}
	for _, c := range topo.Cores {
		v, err := p.ReadRegister(c.ID, MSRAssociation)
		if err != nil {
			return fmt.Errorf("read association on core %d: %w", c.ID, err)
		}
		v &^= AssociationClassMask
		if err := p.WriteRegister(c.ID, MSRAssociation, v); err != nil {
			return fmt.Errorf("reset association on core %d: %w", c.ID, err)
		}
	}
	return nil
}

// cdpSetEnabled flips the CDP enable bit on each socket.
func cdpSetEnabled(p machine.Prober, topo *topology.Snapshot, enable bool) error {
	for _, socket := range topo.Sockets() {
		core, ok := topo.FirstCoreOf(socket)
		if !ok {
			return fmt.Errorf("socket %d has no cores", socket)
		}
		v, err := p.ReadRegister(core, MSRL3QOSConfig)
		if err != nil {
			return fmt.Errorf("read L3 QoS configuration on socket %d: %w", socket, err)
		}
		if enable {
			v |= L3QOSConfigCDPEnable
		} else {
			v &^= L3QOSConfigCDPEnable
		}
		if err := p.WriteRegister(core, MSRL3QOSConfig, v); err != nil {
			return fmt.Errorf("write L3 QoS configuration on socket %d: %w", socket, err)
		}
	}
	return nil
}

// applyCDPMode reads the current CDP state and applies the requested
// mode, resetting the allocation hardware before any toggle. It
// returns the resulting state. classCount and wayCount are the raw
// CPUID-reported values.
func applyCDPMode(p machine.Prober, topo *topology.Snapshot, mode CDPMode, supported bool, classCount, wayCount uint32, logger *slog.Logger) (bool, error) {
	if mode == CDPRequireOn && !supported {
		return false, fmt.Errorf("CDP requested but not supported by this platform: %w", ErrConfigurationConflict)
	}

	enabled := false
	if supported {
		var err error
		enabled, err = cdpEnabled(p, topo)
		if err != nil {
			return false, err
		}
	}

	switch mode {
	case CDPAny:
	case CDPRequireOn:
		if !enabled {
			logger.Info("enabling CDP", "sockets", len(topo.Sockets()))
			if err := catReset(p, topo, classCount, wayCount); err != nil {
				return false, err
			}
			if err := cdpSetEnabled(p, topo, true); err != nil {
				return false, err
			}
			enabled = true
		}
	case CDPRequireOff:
		if enabled {
			logger.Info("disabling CDP", "sockets", len(topo.Sockets()))
			if err := catReset(p, topo, classCount, wayCount); err != nil {
				return false, err
			}
			if err := cdpSetEnabled(p, topo, false); err != nil {
				return false, err
			}
			enabled = false
		}
	default:
		return false, fmt.Errorf("unknown CDP mode %d", mode)
	}
	return enabled, nil
}
