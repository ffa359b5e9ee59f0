// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package machine

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/cacheqos/lib/cpuid"
)

func TestFakeIdentify(t *testing.T) {
	f := NewFake()
	want := cpuid.Registers{EAX: 1, EBX: 2, ECX: 3, EDX: 4}
	f.SetLeaf(0x7, 0, want)

	got, err := f.Identify(0x7, 0)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if got != want {
		t.Errorf("Identify = %+v, want %+v", got, want)
	}

	if _, err := f.Identify(0x7, 1); !errors.Is(err, ErrUnscripted) {
		t.Errorf("Identify(unscripted) = %v, want ErrUnscripted", err)
	}

	scripted := errors.New("probe exploded")
	f.FailLeaf(0xF, 0, scripted)
	if _, err := f.Identify(0xF, 0); !errors.Is(err, scripted) {
		t.Errorf("Identify(failing) = %v, want scripted error", err)
	}
}

func TestFakeRegisters(t *testing.T) {
	f := NewFake()
	f.SetMSR(2, 0xC81, 0x1)

	v, err := f.ReadRegister(2, 0xC81)
	if err != nil {
		t.Fatalf("ReadRegister: %v", err)
	}
	if v != 0x1 {
		t.Errorf("ReadRegister = %#x, want 0x1", v)
	}

	if _, err := f.ReadRegister(3, 0xC81); !errors.Is(err, ErrUnscripted) {
		t.Errorf("ReadRegister(unscripted) = %v, want ErrUnscripted", err)
	}

	if err := f.WriteRegister(2, 0xC90, 0xFFFFF); err != nil {
		t.Fatalf("WriteRegister: %v", err)
	}
	v, err = f.ReadRegister(2, 0xC90)
	if err != nil {
		t.Fatalf("ReadRegister after write: %v", err)
	}
	if v != 0xFFFFF {
		t.Errorf("ReadRegister after write = %#x, want 0xFFFFF", v)
	}

	want := []WriteOp{{Core: 2, Register: 0xC90, Value: 0xFFFFF}}
	if len(f.Writes) != len(want) || f.Writes[0] != want[0] {
		t.Errorf("Writes = %+v, want %+v", f.Writes, want)
	}
}

func TestFakeScriptedFailures(t *testing.T) {
	f := NewFake()
	readErr := errors.New("read denied")
	writeErr := errors.New("write denied")
	f.SetMSR(0, 0xC8F, 0)
	f.FailRead(0, 0xC8F, readErr)
	f.FailWrite(0, 0xC8F, writeErr)

	if _, err := f.ReadRegister(0, 0xC8F); !errors.Is(err, readErr) {
		t.Errorf("ReadRegister = %v, want scripted read error", err)
	}
	if err := f.WriteRegister(0, 0xC8F, 1); !errors.Is(err, writeErr) {
		t.Errorf("WriteRegister = %v, want scripted write error", err)
	}
	if len(f.Writes) != 0 {
		t.Errorf("Writes = %+v, want empty after failed write", f.Writes)
	}
}

func TestFakeClose(t *testing.T) {
	f := NewFake()
	f.SetLeaf(0x7, 0, cpuid.Registers{})
	f.SetMSR(0, 0xC81, 0)

	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !f.Closed() {
		t.Errorf("Closed = false, want true")
	}
	if _, err := f.Identify(0x7, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Identify after close = %v, want ErrClosed", err)
	}
	if _, err := f.ReadRegister(0, 0xC81); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadRegister after close = %v, want ErrClosed", err)
	}
	if err := f.WriteRegister(0, 0xC81, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("WriteRegister after close = %v, want ErrClosed", err)
	}
}
