// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cpuid decodes raw CPUID leaf output into named feature and
// geometry values.
//
// The processor reports cache-QoS enumeration through a handful of
// leaves. Each decoder takes the four-register result of one
// leaf/sub-leaf query and names the fields this module cares about, so
// callers never pick bits out of registers at the call site.
package cpuid

import (
	"encoding/binary"
	"strings"
)

// Registers holds the output of a single CPUID query.
type Registers struct {
	EAX uint32
	EBX uint32
	ECX uint32
	EDX uint32
}

// Leaf and sub-leaf numbers for cache-QoS enumeration.
const (
	LeafCacheParameters  = 0x4        // deterministic cache parameters (sub-leaf selects index)
	LeafExtendedFeatures = 0x7        // structured extended feature flags
	LeafMonitoring       = 0xF        // platform QoS monitoring enumeration
	LeafAllocation       = 0x10       // platform QoS allocation enumeration
	LeafExtendedMax      = 0x80000000 // EAX reports the highest extended leaf
	LeafBrandStringFirst = 0x80000002 // brand string, 16 bytes per leaf
	LeafBrandStringLast  = 0x80000004

	SubleafL3Parameters = 3 // LeafCacheParameters sub-leaf describing the L3
)

// ExtendedFeatures names the QoS bits of leaf 0x7 sub-leaf 0.
type ExtendedFeatures struct {
	Monitoring bool // EBX bit 12: QoS monitoring (CMT/MBM) present
	Allocation bool // EBX bit 15: QoS enforcement (CAT) enumerable via leaf 0x10
}

// DecodeExtendedFeatures decodes leaf 0x7 sub-leaf 0 output.
func DecodeExtendedFeatures(r Registers) ExtendedFeatures {
	return ExtendedFeatures{
		Monitoring: r.EBX&(1<<12) != 0,
		Allocation: r.EBX&(1<<15) != 0,
	}
}

// MonitoringEnumeration names leaf 0xF sub-leaf 0 output: the
// socket-wide RMID range and which resources support monitoring.
type MonitoringEnumeration struct {
	MaxRMID uint32 // EBX+1: number of RMIDs per socket
	L3      bool   // EDX bit 1: L3 cache monitoring resource present
}

// DecodeMonitoringEnumeration decodes leaf 0xF sub-leaf 0 output.
func DecodeMonitoringEnumeration(r Registers) MonitoringEnumeration {
	return MonitoringEnumeration{
		MaxRMID: r.EBX + 1,
		L3:      r.EDX&(1<<1) != 0,
	}
}

// L3MonitoringFeatures names leaf 0xF sub-leaf 1 output: which L3
// monitoring events exist and how their counters are dimensioned.
type L3MonitoringFeatures struct {
	Occupancy      bool   // EDX bit 0: LLC occupancy event
	LocalBandwidth bool   // EDX bit 1: local memory bandwidth event
	TotalBandwidth bool   // EDX bit 2: total memory bandwidth event
	MaxRMID        uint32 // ECX+1: number of RMIDs these events support
	ScaleFactor    uint32 // EBX: multiplier converting counter values to bytes
}

// DecodeL3MonitoringFeatures decodes leaf 0xF sub-leaf 1 output.
func DecodeL3MonitoringFeatures(r Registers) L3MonitoringFeatures {
	return L3MonitoringFeatures{
		Occupancy:      r.EDX&(1<<0) != 0,
		LocalBandwidth: r.EDX&(1<<1) != 0,
		TotalBandwidth: r.EDX&(1<<2) != 0,
		MaxRMID:        r.ECX + 1,
		ScaleFactor:    r.EBX,
	}
}

// EventCount returns the number of enumerated events.
func (f L3MonitoringFeatures) EventCount() int {
	n := 0
	for _, set := range []bool{f.Occupancy, f.LocalBandwidth, f.TotalBandwidth} {
		if set {
			n++
		}
	}
	return n
}

// CacheParameters names one sub-leaf of the deterministic cache
// parameters leaf (0x4). All fields are reported by hardware as
// value-minus-one and decoded here with the increment applied.
type CacheParameters struct {
	Ways       uint32 // EBX bits 22-31, plus one
	Partitions uint32 // EBX bits 12-21, plus one
	LineSize   uint32 // EBX bits 0-11, plus one
	Sets       uint32 // ECX, plus one
}

// DecodeCacheParameters decodes a leaf 0x4 sub-leaf output.
func DecodeCacheParameters(r Registers) CacheParameters {
	return CacheParameters{
		Ways:       (r.EBX >> 22) + 1,
		Partitions: ((r.EBX >> 12) & 0x3ff) + 1,
		LineSize:   (r.EBX & 0xfff) + 1,
		Sets:       r.ECX + 1,
	}
}

// TotalSize returns the described cache's size in bytes.
func (p CacheParameters) TotalSize() uint64 {
	return uint64(p.Ways) * uint64(p.Partitions) * uint64(p.LineSize) * uint64(p.Sets)
}

// AllocationEnumeration names leaf 0x10 sub-leaf 0 output: which
// resources support allocation control.
type AllocationEnumeration struct {
	L3 bool // EBX bit 1: L3 cache allocation resource present
}

// DecodeAllocationEnumeration decodes leaf 0x10 sub-leaf 0 output.
func DecodeAllocationEnumeration(r Registers) AllocationEnumeration {
	return AllocationEnumeration{
		L3: r.EBX&(1<<1) != 0,
	}
}

// L3AllocationFeatures names leaf 0x10 sub-leaf 1 output: L3
// allocation geometry and CDP support.
type L3AllocationFeatures struct {
	ClassCount    uint32 // EDX+1: classes of service
	WayCount      uint32 // EAX+1: capacity mask length in ways
	CDP           bool   // ECX bit 2: code/data prioritization supported
	WayContention uint64 // EBX: bitmask of ways shared with other agents
}

// DecodeL3AllocationFeatures decodes leaf 0x10 sub-leaf 1 output.
func DecodeL3AllocationFeatures(r Registers) L3AllocationFeatures {
	return L3AllocationFeatures{
		ClassCount:    r.EDX + 1,
		WayCount:      r.EAX + 1,
		CDP:           r.ECX&(1<<2) != 0,
		WayContention: uint64(r.EBX),
	}
}

// SupportsBrandString reports whether leaf 0x80000000 output indicates
// the brand-string leaves are implemented.
func SupportsBrandString(r Registers) bool {
	return r.EAX >= LeafBrandStringLast
}

// BrandString assembles the processor brand string from the output of
// leaves 0x80000002 through 0x80000004, in order. Each leaf contributes
// EAX, EBX, ECX and EDX as sixteen bytes, low byte first. The string is
// cut at the first NUL and stripped of surrounding spaces.
func BrandString(leaves []Registers) string {
	buf := make([]byte, 0, 16*len(leaves))
	var word [4]byte
	for _, r := range leaves {
		for _, reg := range []uint32{r.EAX, r.EBX, r.ECX, r.EDX} {
			binary.LittleEndian.PutUint32(word[:], reg)
			buf = append(buf, word[:]...)
		}
	}
	s := string(buf)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
