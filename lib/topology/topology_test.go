// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"
)

func twoSocketSnapshot() *Snapshot {
	return &Snapshot{Cores: []Core{
		{ID: 0, Socket: 0, Cluster: 0},
		{ID: 1, Socket: 0, Cluster: 0},
		{ID: 2, Socket: 1, Cluster: 1},
		{ID: 3, Socket: 1, Cluster: 1},
	}}
}

func TestSnapshotValidate(t *testing.T) {
	tests := []struct {
		name    string
		snap    *Snapshot
		wantErr bool
	}{
		{"ok", twoSocketSnapshot(), false},
		{"nil", nil, true},
		{"empty", &Snapshot{}, true},
		{"duplicate id", &Snapshot{Cores: []Core{{ID: 4}, {ID: 4, Socket: 1}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snap.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSnapshotHelpers(t *testing.T) {
	s := twoSocketSnapshot()

	if got, want := s.Sockets(), []uint32{0, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("Sockets = %v, want %v", got, want)
	}
	if got, want := s.Clusters(), []uint32{0, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("Clusters = %v, want %v", got, want)
	}
	if got, want := s.CoresOf(1), []uint32{2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("CoresOf(1) = %v, want %v", got, want)
	}
	if got := s.MaxCoreID(); got != 3 {
		t.Errorf("MaxCoreID = %d, want 3", got)
	}

	first, ok := s.FirstCoreOf(1)
	if !ok || first != 2 {
		t.Errorf("FirstCoreOf(1) = %d, %v, want 2, true", first, ok)
	}
	if _, ok := s.FirstCoreOf(7); ok {
		t.Errorf("FirstCoreOf(7) = true, want false")
	}
}

func TestSnapshotClone(t *testing.T) {
	s := twoSocketSnapshot()
	c := s.Clone()
	if !reflect.DeepEqual(s, c) {
		t.Fatalf("Clone = %+v, want %+v", c, s)
	}
	c.Cores[0].Socket = 9
	if s.Cores[0].Socket == 9 {
		t.Errorf("Clone shares backing array with original")
	}
}

// writeSysfs builds one core's slice of a synthetic sysfs tree.
func writeSysfs(t *testing.T, root string, cpu int, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, "devices", "system", "cpu", "cpu"+strconv.Itoa(cpu))
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestEnumerateFrom(t *testing.T) {
	root := t.TempDir()
	writeSysfs(t, root, 0, map[string]string{
		"topology/physical_package_id": "0\n",
		"cache/index3/id":              "0\n",
	})
	writeSysfs(t, root, 1, map[string]string{
		"topology/physical_package_id": "0\n",
		"cache/index3/id":              "0\n",
	})
	// Core 10 keeps numeric ordering honest (lexically "cpu10" sorts
	// before "cpu2") and exercises the cluster fallback.
	writeSysfs(t, root, 10, map[string]string{
		"topology/physical_package_id": "1\n",
	})
	writeSysfs(t, root, 2, map[string]string{
		"topology/physical_package_id": "1\n",
		"cache/index3/id":              "1\n",
	})
	// Offline core: directory present, topology absent.
	writeSysfs(t, root, 3, map[string]string{
		"online": "0\n",
	})

	snap, err := enumerateFrom(root)
	if err != nil {
		t.Fatalf("enumerateFrom: %v", err)
	}
	want := []Core{
		{ID: 0, Socket: 0, Cluster: 0},
		{ID: 1, Socket: 0, Cluster: 0},
		{ID: 2, Socket: 1, Cluster: 1},
		{ID: 10, Socket: 1, Cluster: 1},
	}
	if !reflect.DeepEqual(snap.Cores, want) {
		t.Errorf("Cores = %+v, want %+v", snap.Cores, want)
	}
}

func TestEnumerateFromEmpty(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "devices", "system", "cpu"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := enumerateFrom(root); err == nil {
		t.Errorf("enumerateFrom(no cores) = nil, want error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.yaml")
	content := `cores:
  - id: 0
    socket: 0
    cluster: 0
  - id: 1
    socket: 1
    cluster: 1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	snap, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	want := []Core{{ID: 0, Socket: 0, Cluster: 0}, {ID: 1, Socket: 1, Cluster: 1}}
	if !reflect.DeepEqual(snap.Cores, want) {
		t.Errorf("Cores = %+v, want %+v", snap.Cores, want)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed", "cores: ["},
		{"empty", "cores: []\n"},
		{"duplicate", "cores:\n  - id: 0\n  - id: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "topology.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFile(path); err == nil {
				t.Errorf("LoadFile = nil, want error")
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Errorf("LoadFile(missing) = nil, want error")
	}
}
