// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package qos owns the library lifecycle: opening a cache-QoS session
// against the platform, exposing the discovered capability catalogue,
// and tearing everything down.
//
// A process holds at most one open [Library]. One package-level mutex
// serializes Open, Close and Capabilities; nothing in this package or
// below it takes another lock. Open acquires its resources as a flat
// sequence of fallible steps, each pushing a release onto a stack that
// unwinds in reverse order on failure or Close.
package qos

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/cacheqos/alloc"
	"github.com/bureau-foundation/cacheqos/capability"
	"github.com/bureau-foundation/cacheqos/lib/logging"
	"github.com/bureau-foundation/cacheqos/lib/machine"
	"github.com/bureau-foundation/cacheqos/lib/topology"
	"github.com/bureau-foundation/cacheqos/monitor"
)

var (
	// ErrAlreadyInitialized is returned by Open while a Library is
	// open in this process.
	ErrAlreadyInitialized = errors.New("qos: library already initialized in this process")

	// ErrNotInitialized is returned by Library methods after Close.
	ErrNotInitialized = errors.New("qos: library not initialized")

	// ErrInvalidConfig is returned by Open for unusable configuration.
	ErrInvalidConfig = errors.New("qos: invalid configuration")
)

// Subsystem is a feature-set initializer run at the end of Open, after
// discovery. An initializer that finds its capability absent fails
// with an error wrapping [capability.ErrNotSupported]; Open tolerates
// that as long as at least one subsystem comes up.
type Subsystem interface {
	Name() string
	Init(p machine.Prober, cat *capability.Catalogue, topo *topology.Snapshot) error
	Fini() error
}

// Config configures Open. The zero value discovers topology from
// sysfs, opens the platform register devices, leaves CDP as found and
// logs to standard error.
type Config struct {
	// CDP is the requested code/data-prioritization mode.
	CDP capability.CDPMode

	// Topology supplies the core layout directly, skipping detection.
	Topology *topology.Snapshot

	// Provider enumerates topology when none is supplied. Defaults to
	// sysfs detection.
	Provider topology.Provider

	// OpenProber opens the register backend for cores 0..maxCore.
	// Defaults to machine.Open.
	OpenProber func(maxCore uint32) (machine.Prober, error)

	// Logger, when set, is used as-is. Otherwise a logger is built
	// from the fields below.
	Logger    *slog.Logger
	LogWriter io.Writer
	LogPath   string
	LogFormat logging.Format
	Verbose   bool

	// Subsystems replaces the default monitor and alloc initializers.
	// nil means the defaults; an empty non-nil slice means none.
	Subsystems []Subsystem
}

// Library is an open cache-QoS session.
type Library struct {
	logger     *slog.Logger
	topo       *topology.Snapshot
	cat        *capability.Catalogue
	prober     machine.Prober
	subsystems []Subsystem
	releases   []release
}

type release struct {
	name string
	fn   func() error
}

var (
	mu     sync.Mutex
	active *Library
)

// Open initializes the library: logging, topology, the probe backend,
// capability discovery under the requested CDP mode, and the
// subsystems. On failure every completed step is rolled back in
// reverse order and the process returns to its pristine state.
func Open(cfg *Config) (*Library, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}

	mu.Lock()
	defer mu.Unlock()
	if active != nil {
		return nil, ErrAlreadyInitialized
	}

	lib := &Library{}
	opened := false
	defer func() {
		if opened {
			return
		}
		if err := lib.unwind(); err != nil && lib.logger != nil {
			lib.logger.Error("rollback incomplete", "error", err)
		}
	}()

	logger := cfg.Logger
	if logger == nil {
		var closeLog func() error
		var err error
		logger, closeLog, err = logging.New(logging.Options{
			Writer:  cfg.LogWriter,
			Path:    cfg.LogPath,
			Format:  cfg.LogFormat,
			Verbose: cfg.Verbose,
		})
		if err != nil {
			return nil, err
		}
		lib.push("log target", closeLog)
	}
	lib.logger = logger

	topo := cfg.Topology
	if topo != nil {
		if err := topo.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		topo = topo.Clone()
	} else {
		provider := cfg.Provider
		if provider == nil {
			provider = topology.NewSysfsProvider()
		}
		var err error
		topo, err = provider.Enumerate()
		if err != nil {
			return nil, fmt.Errorf("enumerate topology: %w", err)
		}
	}
	lib.topo = topo
	logger.Debug("topology resolved",
		"cores", len(topo.Cores),
		"sockets", len(topo.Sockets()),
		"clusters", len(topo.Clusters()))

	open := cfg.OpenProber
	if open == nil {
		open = machine.Open
	}
	prober, err := open(topo.MaxCoreID())
	if err != nil {
		return nil, fmt.Errorf("open probe backend: %w", err)
	}
	lib.prober = prober
	lib.push("probe backend", prober.Close)

	cat, err := capability.Discover(prober, topo, cfg.CDP, logger)
	if err != nil {
		return nil, fmt.Errorf("discover capabilities: %w", err)
	}
	lib.cat = cat

	subsystems := cfg.Subsystems
	if subsystems == nil {
		subsystems = []Subsystem{monitor.New(), alloc.New()}
	}
	var initErrs []error
	for _, s := range subsystems {
		if err := s.Init(prober, cat, topo); err != nil {
			initErrs = append(initErrs, fmt.Errorf("%s: %w", s.Name(), err))
			logger.Info("subsystem unavailable", "subsystem", s.Name(), "error", err)
			continue
		}
		lib.subsystems = append(lib.subsystems, s)
		lib.push(s.Name()+" subsystem", s.Fini)
	}
	if len(subsystems) > 0 && len(initErrs) == len(subsystems) {
		return nil, fmt.Errorf("initialize subsystems: %w", errors.Join(initErrs...))
	}

	active = lib
	opened = true
	logger.Info("cache QoS library initialized",
		"records", len(cat.Records), "cdp_mode", cfg.CDP.String())
	return lib, nil
}

// Capabilities returns deep copies of the capability catalogue and the
// topology it was discovered against. Repeated calls return equal
// values without touching hardware.
func (l *Library) Capabilities() (*capability.Catalogue, *topology.Snapshot, error) {
	mu.Lock()
	defer mu.Unlock()
	if active != l {
		return nil, nil, ErrNotInitialized
	}
	return l.cat.Clone(), l.topo.Clone(), nil
}

// Subsystems returns the initialized subsystems.
func (l *Library) Subsystems() ([]Subsystem, error) {
	mu.Lock()
	defer mu.Unlock()
	if active != l {
		return nil, ErrNotInitialized
	}
	return append([]Subsystem(nil), l.subsystems...), nil
}

// Close tears the session down in reverse acquisition order:
// subsystems, the probe backend, then the log target. Teardown
// continues past individual failures; all errors are collected in the
// returned error. A closed Library cannot be reused, but a new Open
// may follow.
func (l *Library) Close() error {
	mu.Lock()
	defer mu.Unlock()
	if active != l {
		return ErrNotInitialized
	}
	l.logger.Info("closing cache QoS library")
	active = nil
	err := l.unwind()
	l.cat = nil
	l.topo = nil
	l.prober = nil
	l.subsystems = nil
	if err != nil {
		return fmt.Errorf("qos: close: %w", err)
	}
	return nil
}

func (l *Library) push(name string, fn func() error) {
	l.releases = append(l.releases, release{name: name, fn: fn})
}

// unwind runs the release stack in reverse order, draining it. Errors
// do not stop the unwind.
func (l *Library) unwind() error {
	var errs []error
	for i := len(l.releases) - 1; i >= 0; i-- {
		r := l.releases[i]
		if err := r.fn(); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", r.name, err))
		}
	}
	l.releases = nil
	return errors.Join(errs...)
}
