// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package capability discovers the CPU's cache-QoS features and
// applies the requested code/data-prioritization mode.
//
// # Discovery
//
// [Discover] probes the monitoring (CMT/MBM) and cache-allocation
// (CAT/CDP) feature sets through CPUID and model-specific registers,
// reached only via [machine.Prober], and assembles an immutable
// [Catalogue]. The two feature sets are probed independently: a
// platform without monitoring can still report allocation and vice
// versa. Only when neither is present does discovery fail
// ([ErrNoCapabilities]).
//
// Parts that support allocation without enumerating it via CPUID are
// recognized by processor brand string (see brand.go) and reported
// with their documented fixed class count.
//
// # CDP mode control
//
// Discovery takes a [CDPMode]. [CDPRequireOn] and [CDPRequireOff]
// reconfigure the platform when its current state differs: every
// class-of-service capacity mask is reset to full ways, every core's
// association is returned to class 0, and the CDP enable bit is
// flipped on each socket. [CDPAny] reports the state as found. The
// current state is read per socket and must agree everywhere;
// disagreement is unrecoverable ([ErrInconsistentPlatform]).
package capability
