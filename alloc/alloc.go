// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package alloc implements the allocation subsystem: a read-only
// snapshot of the programmed classes of service, taken through the
// probe backend at initialization.
//
// Programming masks or moving cores between classes is out of scope;
// the snapshot serves capability reporting and inspection.
package alloc

import (
	"fmt"

	"github.com/bureau-foundation/cacheqos/capability"
	"github.com/bureau-foundation/cacheqos/lib/machine"
	"github.com/bureau-foundation/cacheqos/lib/topology"
)

// Subsystem holds the class-of-service state observed at Init.
type Subsystem struct {
	classCount uint32
	cdpEnabled bool
	masks      map[uint32][]uint64 // socket -> mask register values
	classes    map[uint32]uint32   // core -> associated class
}

// New returns an uninitialized subsystem for qos.Open.
func New() *Subsystem {
	return &Subsystem{}
}

func (s *Subsystem) Name() string { return "alloc" }

// Init snapshots each socket's capacity mask registers and each core's
// class association. With CDP enabled a class occupies two registers
// (data mask at 2n, code mask at 2n+1), so twice the usable class
// count is read.
func (s *Subsystem) Init(p machine.Prober, cat *capability.Catalogue, topo *topology.Snapshot) error {
	a := cat.CacheAllocation()
	if a == nil {
		return fmt.Errorf("allocation capability: %w", capability.ErrNotSupported)
	}
	s.classCount = a.ClassCount
	s.cdpEnabled = a.CDPEnabled

	registers := a.ClassCount
	if a.CDPEnabled {
		registers *= 2
	}

	s.masks = make(map[uint32][]uint64, len(topo.Sockets()))
	for _, socket := range topo.Sockets() {
		rep, ok := topo.FirstCoreOf(socket)
		if !ok {
			return fmt.Errorf("alloc: socket %d has no cores", socket)
		}
		masks := make([]uint64, registers)
		for i := range masks {
			v, err := p.ReadRegister(rep, capability.MSRL3MaskBase+uint32(i))
			if err != nil {
				return fmt.Errorf("read mask register %d on socket %d: %w", i, socket, err)
			}
			masks[i] = v
		}
		s.masks[socket] = masks
	}

	s.classes = make(map[uint32]uint32, len(topo.Cores))
	for _, c := range topo.Cores {
		v, err := p.ReadRegister(c.ID, capability.MSRAssociation)
		if err != nil {
			return fmt.Errorf("read association on core %d: %w", c.ID, err)
		}
		s.classes[c.ID] = uint32(v >> capability.AssociationClassShift)
	}
	return nil
}

// Fini drops the snapshot.
func (s *Subsystem) Fini() error {
	s.masks = nil
	s.classes = nil
	s.classCount = 0
	s.cdpEnabled = false
	return nil
}

// ClassCount returns the number of usable classes of service.
func (s *Subsystem) ClassCount() uint32 { return s.classCount }

// CDPEnabled reports whether the snapshot was taken with CDP on.
func (s *Subsystem) CDPEnabled() bool { return s.cdpEnabled }

// ClassMasks returns the mask register values snapshotted on a
// socket. With CDP enabled, even indexes hold data masks and odd
// indexes code masks.
func (s *Subsystem) ClassMasks(socket uint32) ([]uint64, error) {
	masks, ok := s.masks[socket]
	if !ok {
		return nil, fmt.Errorf("alloc: unknown socket %d", socket)
	}
	return append([]uint64(nil), masks...), nil
}

// AssociatedClass returns the class a core was associated with at
// snapshot time.
func (s *Subsystem) AssociatedClass(core uint32) (uint32, error) {
	class, ok := s.classes[core]
	if !ok {
		return 0, fmt.Errorf("alloc: unknown core %d", core)
	}
	return class, nil
}
