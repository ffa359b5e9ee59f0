// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// SysfsProvider enumerates topology from the kernel's sysfs tree.
type SysfsProvider struct {
	root string
}

// NewSysfsProvider returns a provider reading from /sys.
func NewSysfsProvider() *SysfsProvider {
	return &SysfsProvider{root: "/sys"}
}

// Enumerate walks /sys/devices/system/cpu. The socket comes from
// topology/physical_package_id; the cache cluster from the L3's
// cache/index3/id, falling back to the socket on kernels or parts
// that do not expose it. Offline cores (no topology directory) are
// skipped.
func (p *SysfsProvider) Enumerate() (*Snapshot, error) {
	return enumerateFrom(p.root)
}

var cpuDirPattern = regexp.MustCompile(`^cpu([0-9]+)$`)

func enumerateFrom(root string) (*Snapshot, error) {
	cpuRoot := filepath.Join(root, "devices", "system", "cpu")
	entries, err := os.ReadDir(cpuRoot)
	if err != nil {
		return nil, fmt.Errorf("topology: read %s: %w", cpuRoot, err)
	}

	var cores []Core
	for _, e := range entries {
		m := cpuDirPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		id64, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			continue
		}
		id := uint32(id64)

		cpuDir := filepath.Join(cpuRoot, e.Name())
		socket, err := readSysfsUint32(filepath.Join(cpuDir, "topology", "physical_package_id"))
		if err != nil {
			if os.IsNotExist(err) {
				continue // offline
			}
			return nil, fmt.Errorf("topology: core %d: %w", id, err)
		}
		cluster, err := readSysfsUint32(filepath.Join(cpuDir, "cache", "index3", "id"))
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("topology: core %d: %w", id, err)
			}
			cluster = socket
		}
		cores = append(cores, Core{ID: id, Socket: socket, Cluster: cluster})
	}

	// ReadDir sorts lexically; order by core ID so socket
	// representatives are stable.
	sort.Slice(cores, func(i, j int) bool { return cores[i].ID < cores[j].ID })

	snap := &Snapshot{Cores: cores}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

func readSysfsUint32(path string) (uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return uint32(v), nil
}
