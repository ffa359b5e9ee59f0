// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/bureau-foundation/cacheqos/capability"
	"github.com/bureau-foundation/cacheqos/lib/logging"
	"github.com/bureau-foundation/cacheqos/lib/topology"
	"github.com/bureau-foundation/cacheqos/qos"
)

// sessionParams are the flags shared by every command that opens the
// library. Embed it in a command's params struct alongside
// [cli.JSONOutput].
type sessionParams struct {
	ConfigPath   string `flag:"config" desc:"YAML configuration file (default $CACHEQOS_CONFIG)"`
	TopologyFile string `flag:"topology-file" desc:"core layout from a YAML file instead of sysfs"`
	Verbose      bool   `flag:"verbose,v" desc:"enable debug logging"`
	LogFormat    string `flag:"log-format" desc:"log output format: auto, text or json"`
	LogPath      string `flag:"log-path" desc:"append logs to a file instead of stderr"`
}

// resolve loads the configuration file and folds the command-line
// overrides on top: flags win over file values, file values win over
// defaults.
func (p *sessionParams) resolve() (*fileConfig, error) {
	cfg, err := loadConfig(p.ConfigPath)
	if err != nil {
		return nil, err
	}
	if p.TopologyFile != "" {
		cfg.TopologyFile = p.TopologyFile
	}
	if p.Verbose {
		cfg.Log.Verbose = true
	}
	if p.LogFormat != "" {
		if _, err := logging.ParseFormat(p.LogFormat); err != nil {
			return nil, err
		}
		cfg.Log.Format = p.LogFormat
	}
	if p.LogPath != "" {
		cfg.Log.Path = p.LogPath
	}
	return cfg, nil
}

// openLibrary opens a QoS session under the given CDP mode, with
// topology and logging resolved from the configuration.
func openLibrary(cfg *fileConfig, mode capability.CDPMode) (*qos.Library, error) {
	qcfg := &qos.Config{
		CDP:       mode,
		LogPath:   cfg.Log.Path,
		LogFormat: cfg.logFormat(),
		Verbose:   cfg.Log.Verbose,
	}
	if cfg.TopologyFile != "" {
		topo, err := topology.LoadFile(cfg.TopologyFile)
		if err != nil {
			return nil, fmt.Errorf("load topology: %w", err)
		}
		qcfg.Topology = topo
	}
	return qos.Open(qcfg)
}
