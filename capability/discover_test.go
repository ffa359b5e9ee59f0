// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/bureau-foundation/cacheqos/lib/cpuid"
	"github.com/bureau-foundation/cacheqos/lib/machine"
	"github.com/bureau-foundation/cacheqos/lib/topology"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testTopology is two sockets with two cores each.
func testTopology() *topology.Snapshot {
	return &topology.Snapshot{Cores: []topology.Core{
		{ID: 0, Socket: 0, Cluster: 0},
		{ID: 1, Socket: 0, Cluster: 0},
		{ID: 2, Socket: 1, Cluster: 1},
		{ID: 3, Socket: 1, Cluster: 1},
	}}
}

// Scripted platform dimensions used across the discovery tests.
const (
	testWays      = 20
	testCacheSize = 30 * 1024 * 1024
	testWaySize   = testCacheSize / testWays
	testFullMask  = uint64(1)<<testWays - 1
	testRawClass  = 16
)

// scriptGeometry scripts a 20-way, 30 MiB L3.
func scriptGeometry(f *machine.Fake) {
	f.SetLeaf(cpuid.LeafCacheParameters, cpuid.SubleafL3Parameters,
		cpuid.Registers{EBX: (testWays-1)<<22 | 63, ECX: 24575})
}

// scriptMonitoring scripts full CMT/MBM support: 256 socket RMIDs,
// all three events with 176 RMIDs and an upscale factor of 65536.
func scriptMonitoring(f *machine.Fake) {
	f.SetLeaf(cpuid.LeafMonitoring, 0, cpuid.Registers{EBX: 255, EDX: 1 << 1})
	f.SetLeaf(cpuid.LeafMonitoring, 1, cpuid.Registers{EBX: 65536, ECX: 175, EDX: 0x7})
}

// scriptAllocation scripts CPUID-enumerated CAT: 16 classes, 20 ways,
// CDP supported, two contended ways.
func scriptAllocation(f *machine.Fake) {
	f.SetLeaf(cpuid.LeafAllocation, 0, cpuid.Registers{EBX: 1 << 1})
	f.SetLeaf(cpuid.LeafAllocation, 1,
		cpuid.Registers{EAX: testRawClass + 3, EBX: 0xC0000, ECX: 1 << 2, EDX: testRawClass - 1})
}

// scriptAllocationNoCDP rescripts the feature leaf with the CDP
// support bit clear.
func scriptAllocationNoCDP(f *machine.Fake) {
	f.SetLeaf(cpuid.LeafAllocation, 1,
		cpuid.Registers{EAX: testRawClass + 3, EBX: 0xC0000, EDX: testRawClass - 1})
}

// scriptRegisters scripts the QoS MSRs: CDP state on each socket
// representative, associations on every core.
func scriptRegisters(f *machine.Fake, topo *topology.Snapshot, cdpOn bool) {
	var cfg uint64
	if cdpOn {
		cfg = L3QOSConfigCDPEnable
	}
	for _, socket := range topo.Sockets() {
		core, _ := topo.FirstCoreOf(socket)
		f.SetMSR(core, MSRL3QOSConfig, cfg)
	}
	for _, c := range topo.Cores {
		f.SetMSR(c.ID, MSRAssociation, 0)
	}
}

// fullPlatform scripts a machine with both feature sets and CDP off.
func fullPlatform(topo *topology.Snapshot) *machine.Fake {
	f := machine.NewFake()
	f.SetLeaf(cpuid.LeafExtendedFeatures, 0, cpuid.Registers{EBX: 1<<12 | 1<<15})
	scriptMonitoring(f)
	scriptAllocation(f)
	scriptGeometry(f)
	scriptRegisters(f, topo, false)
	return f
}

func TestDiscoverFullPlatform(t *testing.T) {
	topo := testTopology()
	f := fullPlatform(topo)

	cat, err := Discover(f, topo, CDPAny, testLogger())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cat.Version != CatalogueVersion {
		t.Errorf("Version = %d, want %d", cat.Version, CatalogueVersion)
	}
	if len(cat.Records) != 2 {
		t.Fatalf("Records = %d, want 2", len(cat.Records))
	}
	if cat.Records[0].Kind != KindMonitoring || cat.Records[1].Kind != KindCacheAllocation {
		t.Fatalf("record order = %v, %v", cat.Records[0].Kind, cat.Records[1].Kind)
	}

	mon := cat.Monitoring()
	if mon == nil {
		t.Fatal("Monitoring() = nil")
	}
	if mon.MaxRMID != 256 {
		t.Errorf("MaxRMID = %d, want 256", mon.MaxRMID)
	}
	if mon.CacheSizeBytes != testCacheSize {
		t.Errorf("CacheSizeBytes = %d, want %d", mon.CacheSizeBytes, testCacheSize)
	}
	wantEvents := []MonitorEvent{
		EventLLCOccupancy,
		EventLocalMemoryBandwidth,
		EventTotalMemoryBandwidth,
		EventRemoteMemoryBandwidth,
	}
	if len(mon.Events) != len(wantEvents) {
		t.Fatalf("Events = %d, want %d", len(mon.Events), len(wantEvents))
	}
	for i, want := range wantEvents {
		if mon.Events[i].Event != want {
			t.Errorf("Events[%d] = %v, want %v", i, mon.Events[i].Event, want)
		}
	}
	for _, e := range mon.Events[:3] {
		if e.MaxRMID != 176 {
			t.Errorf("%v MaxRMID = %d, want 176", e.Event, e.MaxRMID)
		}
		if e.ScaleFactor != 65536 {
			t.Errorf("%v ScaleFactor = %d, want 65536", e.Event, e.ScaleFactor)
		}
	}
	if remote := mon.Event(EventRemoteMemoryBandwidth); remote.ScaleFactor != 0 {
		t.Errorf("derived event ScaleFactor = %d, want 0", remote.ScaleFactor)
	}

	alloc := cat.CacheAllocation()
	if alloc == nil {
		t.Fatal("CacheAllocation() = nil")
	}
	want := CacheAllocation{
		ClassCount:    testRawClass,
		WayCount:      testWays,
		WaySizeBytes:  testWaySize,
		WayContention: 0xC0000,
		CDPSupported:  true,
		CDPEnabled:    false,
	}
	if *alloc != want {
		t.Errorf("CacheAllocation = %+v, want %+v", *alloc, want)
	}
	if uint64(alloc.WayCount)*alloc.WaySizeBytes != testCacheSize {
		t.Errorf("ways*waysize = %d, want %d",
			uint64(alloc.WayCount)*alloc.WaySizeBytes, testCacheSize)
	}

	// CDPAny observes; it never writes.
	if len(f.Writes) != 0 {
		t.Errorf("Writes = %d, want 0 under CDPAny", len(f.Writes))
	}
}

func TestDiscoverEventCombinations(t *testing.T) {
	tests := []struct {
		name string
		edx  uint32
		want []MonitorEvent
	}{
		{"occupancy", 0x1, []MonitorEvent{EventLLCOccupancy}},
		{"local only", 0x2, []MonitorEvent{EventLocalMemoryBandwidth}},
		{"total only", 0x4, []MonitorEvent{EventTotalMemoryBandwidth}},
		{"occupancy and local", 0x3, []MonitorEvent{EventLLCOccupancy, EventLocalMemoryBandwidth}},
		{"occupancy and total", 0x5, []MonitorEvent{EventLLCOccupancy, EventTotalMemoryBandwidth}},
		{"bandwidth pair derives remote", 0x6, []MonitorEvent{
			EventLocalMemoryBandwidth, EventTotalMemoryBandwidth, EventRemoteMemoryBandwidth}},
		{"everything", 0x7, []MonitorEvent{
			EventLLCOccupancy, EventLocalMemoryBandwidth,
			EventTotalMemoryBandwidth, EventRemoteMemoryBandwidth}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := machine.NewFake()
			f.SetLeaf(cpuid.LeafExtendedFeatures, 0, cpuid.Registers{EBX: 1 << 12})
			f.SetLeaf(cpuid.LeafMonitoring, 0, cpuid.Registers{EBX: 255, EDX: 1 << 1})
			f.SetLeaf(cpuid.LeafMonitoring, 1, cpuid.Registers{ECX: 175, EDX: tt.edx})
			scriptGeometry(f)

			mon, err := discoverMonitoring(f, testLogger())
			if err != nil {
				t.Fatalf("discoverMonitoring: %v", err)
			}
			if len(mon.Events) != len(tt.want) {
				t.Fatalf("Events = %d, want %d", len(mon.Events), len(tt.want))
			}
			for i, want := range tt.want {
				if mon.Events[i].Event != want {
					t.Errorf("Events[%d] = %v, want %v", i, mon.Events[i].Event, want)
				}
			}
		})
	}
}

func TestDiscoverMonitoringUnsupported(t *testing.T) {
	tests := []struct {
		name    string
		script  func(f *machine.Fake)
		wantErr error
	}{
		{
			name: "feature bit clear",
			script: func(f *machine.Fake) {
				f.SetLeaf(cpuid.LeafExtendedFeatures, 0, cpuid.Registers{EBX: 1 << 15})
			},
			wantErr: ErrNotSupported,
		},
		{
			name: "no L3 resource",
			script: func(f *machine.Fake) {
				f.SetLeaf(cpuid.LeafExtendedFeatures, 0, cpuid.Registers{EBX: 1 << 12})
				f.SetLeaf(cpuid.LeafMonitoring, 0, cpuid.Registers{EBX: 255})
			},
			wantErr: ErrNotSupported,
		},
		{
			name: "no events",
			script: func(f *machine.Fake) {
				f.SetLeaf(cpuid.LeafExtendedFeatures, 0, cpuid.Registers{EBX: 1 << 12})
				f.SetLeaf(cpuid.LeafMonitoring, 0, cpuid.Registers{EBX: 255, EDX: 1 << 1})
				f.SetLeaf(cpuid.LeafMonitoring, 1, cpuid.Registers{ECX: 175})
			},
			wantErr: ErrNoEvents,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := machine.NewFake()
			tt.script(f)
			if _, err := discoverMonitoring(f, testLogger()); !errors.Is(err, tt.wantErr) {
				t.Errorf("discoverMonitoring = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDiscoverOneKindAbsent(t *testing.T) {
	topo := testTopology()

	t.Run("allocation only", func(t *testing.T) {
		f := fullPlatform(topo)
		// Monitoring feature bit clear, everything else intact.
		f.SetLeaf(cpuid.LeafExtendedFeatures, 0, cpuid.Registers{EBX: 1 << 15})

		cat, err := Discover(f, topo, CDPAny, testLogger())
		if err != nil {
			t.Fatalf("Discover: %v", err)
		}
		if len(cat.Records) != 1 || cat.Records[0].Kind != KindCacheAllocation {
			t.Fatalf("Records = %+v, want one allocation record", cat.Records)
		}
		if cat.Monitoring() != nil {
			t.Errorf("Monitoring() != nil")
		}
	})

	t.Run("monitoring only", func(t *testing.T) {
		f := fullPlatform(topo)
		// Allocation enumerable but the L3 resource bit is clear.
		f.SetLeaf(cpuid.LeafAllocation, 0, cpuid.Registers{})

		cat, err := Discover(f, topo, CDPAny, testLogger())
		if err != nil {
			t.Fatalf("Discover: %v", err)
		}
		if len(cat.Records) != 1 || cat.Records[0].Kind != KindMonitoring {
			t.Fatalf("Records = %+v, want one monitoring record", cat.Records)
		}
	})

	t.Run("monitoring probe failure recovered", func(t *testing.T) {
		f := fullPlatform(topo)
		f.FailLeaf(cpuid.LeafMonitoring, 0, errors.New("probe wedged"))

		cat, err := Discover(f, topo, CDPAny, testLogger())
		if err != nil {
			t.Fatalf("Discover: %v", err)
		}
		if len(cat.Records) != 1 || cat.Records[0].Kind != KindCacheAllocation {
			t.Fatalf("Records = %+v, want one allocation record", cat.Records)
		}
	})
}

func TestDiscoverNoCapabilities(t *testing.T) {
	topo := testTopology()
	f := machine.NewFake()
	// Neither feature bit; no brand leaves either.
	f.SetLeaf(cpuid.LeafExtendedFeatures, 0, cpuid.Registers{})
	f.SetLeaf(cpuid.LeafExtendedMax, 0, cpuid.Registers{EAX: 0x80000001})

	if _, err := Discover(f, topo, CDPAny, testLogger()); !errors.Is(err, ErrNoCapabilities) {
		t.Errorf("Discover = %v, want ErrNoCapabilities", err)
	}
}

func TestDiscoverAllocationProbeFailureEscalates(t *testing.T) {
	topo := testTopology()
	f := fullPlatform(topo)
	probeErr := errors.New("register probe wedged")
	f.FailLeaf(cpuid.LeafAllocation, 1, probeErr)

	if _, err := Discover(f, topo, CDPAny, testLogger()); !errors.Is(err, probeErr) {
		t.Errorf("Discover = %v, want escalated probe error", err)
	}
}

func TestDiscoverHalvedClassesReportedWhenCDPOn(t *testing.T) {
	topo := testTopology()
	f := fullPlatform(topo)
	scriptRegisters(f, topo, true)

	cat, err := Discover(f, topo, CDPAny, testLogger())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	alloc := cat.CacheAllocation()
	if !alloc.CDPEnabled {
		t.Fatal("CDPEnabled = false, want true")
	}
	if alloc.ClassCount != testRawClass/2 {
		t.Errorf("ClassCount = %d, want %d", alloc.ClassCount, testRawClass/2)
	}
}
