// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package topology models the logical CPU layout the cache-QoS
// machinery operates on: which cores exist, which physical socket each
// sits in, and which last-level-cache cluster it shares.
//
// A [Snapshot] normally comes from sysfs enumeration ([SysfsProvider])
// but can be supplied directly or loaded from a YAML file for
// platforms whose firmware misreports the layout.
package topology

import (
	"fmt"
)

// Core is one logical processor.
type Core struct {
	ID      uint32 `yaml:"id" json:"id"`
	Socket  uint32 `yaml:"socket" json:"socket"`
	Cluster uint32 `yaml:"cluster" json:"cluster"`
}

// Snapshot is an immutable view of the machine's logical processors.
// Per-socket operations pick the first core listed on each socket as
// that socket's representative.
type Snapshot struct {
	Cores []Core `yaml:"cores" json:"cores"`
}

// Validate checks the snapshot is usable: at least one core, no
// duplicate core IDs.
func (s *Snapshot) Validate() error {
	if s == nil || len(s.Cores) == 0 {
		return fmt.Errorf("topology: no cores")
	}
	seen := make(map[uint32]bool, len(s.Cores))
	for _, c := range s.Cores {
		if seen[c.ID] {
			return fmt.Errorf("topology: duplicate core %d", c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}

// Sockets returns the socket IDs in first-appearance order.
func (s *Snapshot) Sockets() []uint32 {
	var out []uint32
	seen := make(map[uint32]bool)
	for _, c := range s.Cores {
		if !seen[c.Socket] {
			seen[c.Socket] = true
			out = append(out, c.Socket)
		}
	}
	return out
}

// Clusters returns the cache-cluster IDs in first-appearance order.
func (s *Snapshot) Clusters() []uint32 {
	var out []uint32
	seen := make(map[uint32]bool)
	for _, c := range s.Cores {
		if !seen[c.Cluster] {
			seen[c.Cluster] = true
			out = append(out, c.Cluster)
		}
	}
	return out
}

// FirstCoreOf returns the representative core of a socket.
func (s *Snapshot) FirstCoreOf(socket uint32) (uint32, bool) {
	for _, c := range s.Cores {
		if c.Socket == socket {
			return c.ID, true
		}
	}
	return 0, false
}

// CoresOf returns the IDs of all cores on a socket, in listed order.
func (s *Snapshot) CoresOf(socket uint32) []uint32 {
	var out []uint32
	for _, c := range s.Cores {
		if c.Socket == socket {
			out = append(out, c.ID)
		}
	}
	return out
}

// MaxCoreID returns the highest core ID in the snapshot.
func (s *Snapshot) MaxCoreID() uint32 {
	var max uint32
	for _, c := range s.Cores {
		if c.ID > max {
			max = c.ID
		}
	}
	return max
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{Cores: make([]Core, len(s.Cores))}
	copy(out.Cores, s.Cores)
	return out
}

// Provider enumerates the machine's topology.
type Provider interface {
	Enumerate() (*Snapshot, error)
}
