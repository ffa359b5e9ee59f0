// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package machine provides the hardware probe boundary: CPUID queries
// and per-core model-specific register access.
//
// All discovery and mode-control logic talks to hardware exclusively
// through the [Prober] interface. The production implementation
// ([Open]) uses the Linux /dev/cpu device nodes; tests script a [Fake].
package machine

import (
	"errors"

	"github.com/bureau-foundation/cacheqos/lib/cpuid"
)

// Prober executes CPUID queries and reads and writes model-specific
// registers on individual logical cores.
//
// Implementations are used under the library's global lock and need not
// be safe for concurrent use.
type Prober interface {
	// Identify executes a CPUID query for the given leaf and sub-leaf.
	Identify(leaf, subleaf uint32) (cpuid.Registers, error)

	// ReadRegister reads a model-specific register on one core.
	ReadRegister(core uint32, register uint32) (uint64, error)

	// WriteRegister writes a model-specific register on one core.
	WriteRegister(core uint32, register uint32, value uint64) error

	// Close releases the backend. The Prober is unusable afterwards.
	Close() error
}

// ErrClosed is returned by Prober calls made after Close.
var ErrClosed = errors.New("machine: prober is closed")

// ErrUnscripted is returned by [Fake] for any query or register the
// test did not script.
var ErrUnscripted = errors.New("machine: value not scripted")
