// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseCDPMode(t *testing.T) {
	tests := []struct {
		in      string
		want    CDPMode
		wantErr bool
	}{
		{"", CDPAny, false},
		{"any", CDPAny, false},
		{"on", CDPRequireOn, false},
		{"off", CDPRequireOff, false},
		{"enabled", CDPAny, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCDPMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCDPMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCDPMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEnumStrings(t *testing.T) {
	if got := KindCacheAllocation.String(); got != "cache_allocation" {
		t.Errorf("Kind.String = %q", got)
	}
	if got := EventRemoteMemoryBandwidth.String(); got != "remote_memory_bandwidth" {
		t.Errorf("MonitorEvent.String = %q", got)
	}
	if got := CDPRequireOff.String(); got != "off" {
		t.Errorf("CDPMode.String = %q", got)
	}
}

func TestCatalogueJSON(t *testing.T) {
	cat := &Catalogue{
		Version: CatalogueVersion,
		Records: []Record{
			{Kind: KindMonitoring, Monitoring: &Monitoring{
				MaxRMID:        256,
				CacheSizeBytes: 31457280,
				Events: []EventDescriptor{
					{Event: EventLLCOccupancy, MaxRMID: 176, ScaleFactor: 65536},
				},
			}},
			{Kind: KindCacheAllocation, CacheAllocation: &CacheAllocation{
				ClassCount: 16, WayCount: 20, WaySizeBytes: 1572864,
			}},
		},
	}

	data, err := json.Marshal(cat)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`"kind":"monitoring"`,
		`"kind":"cache_allocation"`,
		`"event":"llc_occupancy"`,
		`"max_rmid":256`,
		`"class_count":16`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON missing %s:\n%s", want, out)
		}
	}
	// A record carries only its own payload.
	if strings.Contains(out, `"cache_allocation":null`) || strings.Contains(out, `"monitoring":null`) {
		t.Errorf("JSON carries null payloads:\n%s", out)
	}
}

func TestCatalogueClone(t *testing.T) {
	cat := &Catalogue{
		Version: CatalogueVersion,
		Records: []Record{
			{Kind: KindMonitoring, Monitoring: &Monitoring{
				MaxRMID: 256,
				Events:  []EventDescriptor{{Event: EventLLCOccupancy, MaxRMID: 176}},
			}},
			{Kind: KindCacheAllocation, CacheAllocation: &CacheAllocation{ClassCount: 16}},
		},
	}

	clone := cat.Clone()
	clone.Records[0].Monitoring.MaxRMID = 1
	clone.Records[0].Monitoring.Events[0].MaxRMID = 1
	clone.Records[1].CacheAllocation.ClassCount = 1

	if cat.Monitoring().MaxRMID != 256 {
		t.Errorf("clone shares Monitoring payload")
	}
	if cat.Monitoring().Events[0].MaxRMID != 176 {
		t.Errorf("clone shares Events backing array")
	}
	if cat.CacheAllocation().ClassCount != 16 {
		t.Errorf("clone shares CacheAllocation payload")
	}

	var nilCat *Catalogue
	if nilCat.Clone() != nil {
		t.Errorf("Clone of nil = non-nil")
	}
}

func TestMonitoringEventLookup(t *testing.T) {
	mon := &Monitoring{Events: []EventDescriptor{
		{Event: EventLLCOccupancy, MaxRMID: 176},
		{Event: EventTotalMemoryBandwidth, MaxRMID: 176},
	}}
	if d := mon.Event(EventTotalMemoryBandwidth); d == nil || d.MaxRMID != 176 {
		t.Errorf("Event(total) = %+v", d)
	}
	if d := mon.Event(EventRemoteMemoryBandwidth); d != nil {
		t.Errorf("Event(remote) = %+v, want nil", d)
	}
}

func TestCatalogueAccessorsEmpty(t *testing.T) {
	cat := &Catalogue{Version: CatalogueVersion}
	if cat.Monitoring() != nil {
		t.Errorf("Monitoring() on empty catalogue != nil")
	}
	if cat.CacheAllocation() != nil {
		t.Errorf("CacheAllocation() on empty catalogue != nil")
	}
}
