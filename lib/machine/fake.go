// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package machine

import (
	"fmt"

	"github.com/bureau-foundation/cacheqos/lib/cpuid"
)

// Query identifies one CPUID leaf/sub-leaf pair.
type Query struct {
	Leaf    uint32
	Subleaf uint32
}

// CoreRegister identifies one model-specific register on one core.
type CoreRegister struct {
	Core     uint32
	Register uint32
}

// WriteOp records one register write observed by a [Fake].
type WriteOp struct {
	Core     uint32
	Register uint32
	Value    uint64
}

// Fake is a scripted Prober for tests. Queries and registers must be
// scripted with SetLeaf and SetMSR before use; anything unscripted
// fails with [ErrUnscripted]. Writes are applied to the register map
// (so later reads observe them) and appended to Writes in order.
type Fake struct {
	leaves      map[Query]cpuid.Registers
	identifyErr map[Query]error
	msrs        map[CoreRegister]uint64
	readErr     map[CoreRegister]error
	writeErr    map[CoreRegister]error
	closed      bool

	// Writes is the ordered log of every WriteRegister call.
	Writes []WriteOp
}

// NewFake returns an empty scripted prober.
func NewFake() *Fake {
	return &Fake{
		leaves:      make(map[Query]cpuid.Registers),
		identifyErr: make(map[Query]error),
		msrs:        make(map[CoreRegister]uint64),
		readErr:     make(map[CoreRegister]error),
		writeErr:    make(map[CoreRegister]error),
	}
}

// SetLeaf scripts the result of a CPUID query.
func (f *Fake) SetLeaf(leaf, subleaf uint32, regs cpuid.Registers) {
	f.leaves[Query{leaf, subleaf}] = regs
}

// FailLeaf scripts a CPUID query to fail.
func (f *Fake) FailLeaf(leaf, subleaf uint32, err error) {
	f.identifyErr[Query{leaf, subleaf}] = err
}

// SetMSR scripts the current value of a register on a core.
func (f *Fake) SetMSR(core, register uint32, value uint64) {
	f.msrs[CoreRegister{core, register}] = value
}

// FailRead scripts reads of a register on a core to fail.
func (f *Fake) FailRead(core, register uint32, err error) {
	f.readErr[CoreRegister{core, register}] = err
}

// FailWrite scripts writes of a register on a core to fail.
func (f *Fake) FailWrite(core, register uint32, err error) {
	f.writeErr[CoreRegister{core, register}] = err
}

// MSR reports the current value of a register on a core and whether it
// was ever scripted or written.
func (f *Fake) MSR(core, register uint32) (uint64, bool) {
	v, ok := f.msrs[CoreRegister{core, register}]
	return v, ok
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool { return f.closed }

func (f *Fake) Identify(leaf, subleaf uint32) (cpuid.Registers, error) {
	if f.closed {
		return cpuid.Registers{}, ErrClosed
	}
	q := Query{leaf, subleaf}
	if err := f.identifyErr[q]; err != nil {
		return cpuid.Registers{}, err
	}
	regs, ok := f.leaves[q]
	if !ok {
		return cpuid.Registers{}, fmt.Errorf("cpuid leaf %#x sub-leaf %#x: %w", leaf, subleaf, ErrUnscripted)
	}
	return regs, nil
}

func (f *Fake) ReadRegister(core uint32, register uint32) (uint64, error) {
	if f.closed {
		return 0, ErrClosed
	}
	key := CoreRegister{core, register}
	if err := f.readErr[key]; err != nil {
		return 0, err
	}
	v, ok := f.msrs[key]
	if !ok {
		return 0, fmt.Errorf("register %#x on core %d: %w", register, core, ErrUnscripted)
	}
	return v, nil
}

func (f *Fake) WriteRegister(core uint32, register uint32, value uint64) error {
	if f.closed {
		return ErrClosed
	}
	key := CoreRegister{core, register}
	if err := f.writeErr[key]; err != nil {
		return err
	}
	f.msrs[key] = value
	f.Writes = append(f.Writes, WriteOp{Core: core, Register: register, Value: value})
	return nil
}

func (f *Fake) Close() error {
	f.closed = true
	return nil
}
