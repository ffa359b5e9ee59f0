// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/cacheqos/capability"
	"github.com/bureau-foundation/cacheqos/lib/logging"
)

// fileConfig is the optional YAML configuration file. It supplies
// defaults for the session flags; command-line flags override it.
//
//	cdp: any | on | off
//	log:
//	  verbose: false
//	  format: auto | text | json
//	  path: /var/log/cacheqos.log
//	topology_file: /etc/cacheqos/topology.yaml
type fileConfig struct {
	// CDP is the mode `cacheqos show` opens the library under. The cdp
	// subcommands ignore it; their mode is the subcommand itself.
	CDP string `yaml:"cdp"`

	// Log configures the session log output.
	Log logConfig `yaml:"log"`

	// TopologyFile, when set, loads the core layout from a YAML file
	// instead of detecting it from sysfs.
	TopologyFile string `yaml:"topology_file"`
}

type logConfig struct {
	Verbose bool   `yaml:"verbose"`
	Format  string `yaml:"format"`
	Path    string `yaml:"path"`
}

// defaultConfig returns the built-in defaults used when no file is
// given.
func defaultConfig() *fileConfig {
	return &fileConfig{
		CDP: "any",
		Log: logConfig{Format: "auto"},
	}
}

// loadConfig resolves the configuration: the --config flag wins, then
// $CACHEQOS_CONFIG, then built-in defaults with no file read at all.
func loadConfig(flagPath string) (*fileConfig, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv("CACHEQOS_CONFIG")
	}

	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.validate(); err != nil {
		if path == "" {
			return nil, err
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// validate checks every enumerated field, collecting all problems into
// one error.
func (c *fileConfig) validate() error {
	var errs []error
	if _, err := capability.ParseCDPMode(c.CDP); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// cdpMode returns the parsed CDP field. Call only after validate.
func (c *fileConfig) cdpMode() capability.CDPMode {
	mode, _ := capability.ParseCDPMode(c.CDP)
	return mode
}

// logFormat returns the parsed log format field. Call only after
// validate.
func (c *fileConfig) logFormat() logging.Format {
	format, _ := logging.ParseFormat(c.Log.Format)
	return format
}
