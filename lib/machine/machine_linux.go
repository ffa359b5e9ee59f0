// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package machine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/cacheqos/lib/cpuid"
)

// devices is the Linux Prober backed by the msr and cpuid device nodes.
// The kernel's msr driver maps the file offset to the register address;
// the cpuid driver maps the low 32 bits of the offset to the leaf and
// the high 32 bits to the sub-leaf. Device files are opened on first
// use and cached per core.
type devices struct {
	root    string // normally /dev/cpu
	maxCore uint32
	msr     []int // file descriptor per core, -1 until opened
	cpu     int   // cpuid device of core 0, -1 until opened
	closed  bool
}

// Open prepares register access for logical cores 0 through maxCore.
// It requires the msr and cpuid kernel modules (device nodes under
// /dev/cpu) and, for register writes, a process privileged to open
// them read-write.
func Open(maxCore uint32) (Prober, error) {
	return openFrom("/dev/cpu", maxCore)
}

func openFrom(root string, maxCore uint32) (*devices, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("machine: cpu device directory: %w", err)
	}
	d := &devices{
		root:    root,
		maxCore: maxCore,
		msr:     make([]int, maxCore+1),
		cpu:     -1,
	}
	for i := range d.msr {
		d.msr[i] = -1
	}
	return d, nil
}

func (d *devices) corePath(core uint32, node string) string {
	return filepath.Join(d.root, strconv.FormatUint(uint64(core), 10), node)
}

func (d *devices) msrFd(core uint32) (int, error) {
	if core > d.maxCore {
		return -1, fmt.Errorf("machine: core %d out of range (max %d)", core, d.maxCore)
	}
	if d.msr[core] >= 0 {
		return d.msr[core], nil
	}
	fd, err := unix.Open(d.corePath(core, "msr"), unix.O_RDWR, 0)
	if err != nil {
		return -1, fmt.Errorf("machine: open msr device for core %d: %w", core, err)
	}
	d.msr[core] = fd
	return fd, nil
}

func (d *devices) cpuidFd() (int, error) {
	if d.cpu >= 0 {
		return d.cpu, nil
	}
	// Feature leaves are uniform across the package, so core 0's
	// device answers for the machine.
	fd, err := unix.Open(d.corePath(0, "cpuid"), unix.O_RDONLY, 0)
	if err != nil {
		return -1, fmt.Errorf("machine: open cpuid device: %w", err)
	}
	d.cpu = fd
	return fd, nil
}

func (d *devices) Identify(leaf, subleaf uint32) (cpuid.Registers, error) {
	if d.closed {
		return cpuid.Registers{}, ErrClosed
	}
	fd, err := d.cpuidFd()
	if err != nil {
		return cpuid.Registers{}, err
	}
	var buf [16]byte
	offset := int64(leaf) | int64(subleaf)<<32
	n, err := unix.Pread(fd, buf[:], offset)
	if err != nil {
		return cpuid.Registers{}, fmt.Errorf("machine: cpuid leaf %#x sub-leaf %#x: %w", leaf, subleaf, err)
	}
	if n != len(buf) {
		return cpuid.Registers{}, fmt.Errorf("machine: cpuid leaf %#x sub-leaf %#x: short read of %d bytes", leaf, subleaf, n)
	}
	return cpuid.Registers{
		EAX: binary.LittleEndian.Uint32(buf[0:]),
		EBX: binary.LittleEndian.Uint32(buf[4:]),
		ECX: binary.LittleEndian.Uint32(buf[8:]),
		EDX: binary.LittleEndian.Uint32(buf[12:]),
	}, nil
}

func (d *devices) ReadRegister(core uint32, register uint32) (uint64, error) {
	if d.closed {
		return 0, ErrClosed
	}
	fd, err := d.msrFd(core)
	if err != nil {
		return 0, err
	}
	var buf [8]byte
	n, err := unix.Pread(fd, buf[:], int64(register))
	if err != nil {
		return 0, fmt.Errorf("machine: read register %#x on core %d: %w", register, core, err)
	}
	if n != len(buf) {
		return 0, fmt.Errorf("machine: read register %#x on core %d: short read of %d bytes", register, core, n)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (d *devices) WriteRegister(core uint32, register uint32, value uint64) error {
	if d.closed {
		return ErrClosed
	}
	fd, err := d.msrFd(core)
	if err != nil {
		return err
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	n, err := unix.Pwrite(fd, buf[:], int64(register))
	if err != nil {
		return fmt.Errorf("machine: write register %#x on core %d: %w", register, core, err)
	}
	if n != len(buf) {
		return fmt.Errorf("machine: write register %#x on core %d: short write of %d bytes", register, core, n)
	}
	return nil
}

func (d *devices) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	var errs []error
	for core, fd := range d.msr {
		if fd < 0 {
			continue
		}
		if err := unix.Close(fd); err != nil {
			errs = append(errs, fmt.Errorf("machine: close msr device for core %d: %w", core, err))
		}
		d.msr[core] = -1
	}
	if d.cpu >= 0 {
		if err := unix.Close(d.cpu); err != nil {
			errs = append(errs, fmt.Errorf("machine: close cpuid device: %w", err))
		}
		d.cpu = -1
	}
	return errors.Join(errs...)
}
