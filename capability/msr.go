// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capability

// Model-specific registers for L3 cache QoS.
const (
	// MSRL3QOSConfig is the per-socket L3 QoS configuration register.
	MSRL3QOSConfig uint32 = 0xC81
	// MSRAssociation is the per-core class-of-service association
	// register.
	MSRAssociation uint32 = 0xC8F
	// MSRL3MaskBase is class 0's capacity mask register; class N is
	// at MSRL3MaskBase+N.
	MSRL3MaskBase uint32 = 0xC90

	// L3QOSConfigCDPEnable is the CDP enable bit in MSRL3QOSConfig.
	L3QOSConfigCDPEnable uint64 = 1 << 0

	// AssociationClassShift and AssociationClassMask locate the class
	// field (bits 32-63) in MSRAssociation.
	AssociationClassShift        = 32
	AssociationClassMask  uint64 = 0xffffffff_00000000
)
