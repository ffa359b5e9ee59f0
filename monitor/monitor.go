// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package monitor implements the monitoring subsystem: it validates
// the discovered event table and accounts resource-monitoring IDs per
// cache cluster.
//
// RMIDs are a bookkeeping resource only — tagging cores or tasks with
// a reserved RMID and reading event counters belong to the platform's
// other consumers, not this library.
package monitor

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/cacheqos/capability"
	"github.com/bureau-foundation/cacheqos/lib/machine"
	"github.com/bureau-foundation/cacheqos/lib/topology"
)

// ErrRMIDExhausted is returned by Reserve when a cluster has no free
// RMIDs left.
var ErrRMIDExhausted = errors.New("monitor: no free RMIDs")

// Subsystem tracks monitoring events and per-cluster RMID usage.
type Subsystem struct {
	maxRMID uint32
	events  []capability.EventDescriptor
	pools   map[uint32][]bool // cluster -> used flags indexed by RMID
}

// New returns an uninitialized subsystem for qos.Open.
func New() *Subsystem {
	return &Subsystem{}
}

func (s *Subsystem) Name() string { return "monitor" }

// Init captures the event table and builds one RMID pool per cache
// cluster. RMID 0 is the platform default and never handed out.
func (s *Subsystem) Init(_ machine.Prober, cat *capability.Catalogue, topo *topology.Snapshot) error {
	mon := cat.Monitoring()
	if mon == nil {
		return fmt.Errorf("monitoring capability: %w", capability.ErrNotSupported)
	}
	s.maxRMID = mon.MaxRMID
	s.events = append([]capability.EventDescriptor(nil), mon.Events...)
	s.pools = make(map[uint32][]bool, len(topo.Clusters()))
	for _, cluster := range topo.Clusters() {
		used := make([]bool, mon.MaxRMID)
		used[0] = true
		s.pools[cluster] = used
	}
	return nil
}

// Fini drops all accounting state.
func (s *Subsystem) Fini() error {
	s.pools = nil
	s.events = nil
	s.maxRMID = 0
	return nil
}

// Events returns the supported event descriptors.
func (s *Subsystem) Events() []capability.EventDescriptor {
	return append([]capability.EventDescriptor(nil), s.events...)
}

// MaxRMID returns the socket-wide RMID count.
func (s *Subsystem) MaxRMID() uint32 { return s.maxRMID }

// Reserve hands out the lowest free RMID on a cluster.
func (s *Subsystem) Reserve(cluster uint32) (uint32, error) {
	pool, ok := s.pools[cluster]
	if !ok {
		return 0, fmt.Errorf("monitor: unknown cluster %d", cluster)
	}
	for rmid := uint32(1); rmid < uint32(len(pool)); rmid++ {
		if !pool[rmid] {
			pool[rmid] = true
			return rmid, nil
		}
	}
	return 0, fmt.Errorf("cluster %d: %w", cluster, ErrRMIDExhausted)
}

// Release returns a reserved RMID to its cluster's pool.
func (s *Subsystem) Release(cluster, rmid uint32) error {
	pool, ok := s.pools[cluster]
	if !ok {
		return fmt.Errorf("monitor: unknown cluster %d", cluster)
	}
	if rmid == 0 || rmid >= uint32(len(pool)) {
		return fmt.Errorf("monitor: RMID %d out of range on cluster %d", rmid, cluster)
	}
	if !pool[rmid] {
		return fmt.Errorf("monitor: RMID %d not reserved on cluster %d", rmid, cluster)
	}
	pool[rmid] = false
	return nil
}
