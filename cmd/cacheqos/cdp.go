// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cacheqos/capability"
	"github.com/bureau-foundation/cacheqos/cmd/cacheqos/cli"
)

// cdpStatus is the JSON payload of the cdp subcommands.
type cdpStatus struct {
	Supported bool `json:"supported"`
	Enabled   bool `json:"enabled"`
}

func cdpCommand() *cli.Command {
	return &cli.Command{
		Name:    "cdp",
		Summary: "Inspect or switch code/data prioritization",
		Description: `Report or change the L3 code/data prioritization mode.

With CDP enabled each class of service splits into separate code and
data capacity masks, halving the number of usable classes. Switching
the mode resets all class masks to full-cache and detaches every core
from its class, on every socket, before flipping the configuration
register.`,
		Subcommands: []*cli.Command{
			cdpSubcommand("status", "Report the current CDP state", capability.CDPAny),
			cdpSubcommand("on", "Enable CDP on every socket", capability.CDPRequireOn),
			cdpSubcommand("off", "Disable CDP on every socket", capability.CDPRequireOff),
		},
		Examples: []cli.Example{
			{
				Description: "Check whether CDP is active",
				Command:     "cacheqos cdp status",
			},
			{
				Description: "Enable CDP, resetting allocation state",
				Command:     "cacheqos cdp on",
			},
		},
	}
}

// cdpSubcommand builds one of status/on/off; they differ only in the
// mode the library opens under and share their output format.
func cdpSubcommand(name, summary string, mode capability.CDPMode) *cli.Command {
	var params struct {
		cli.JSONOutput
		sessionParams
	}

	return &cli.Command{
		Name:    name,
		Summary: summary,
		Usage:   "cacheqos cdp " + name + " [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams(name, &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}

			cfg, err := params.resolve()
			if err != nil {
				return err
			}
			lib, err := openLibrary(cfg, mode)
			if err != nil {
				return err
			}
			defer lib.Close()

			cat, _, err := lib.Capabilities()
			if err != nil {
				return err
			}

			var status cdpStatus
			a := cat.CacheAllocation()
			if a != nil {
				status.Supported = a.CDPSupported
				status.Enabled = a.CDPEnabled
			}
			if done, err := params.EmitJSON(status); done {
				return err
			}
			if a == nil {
				fmt.Println("cache allocation not supported on this platform")
				return nil
			}
			fmt.Printf("CDP supported: %t\n", status.Supported)
			fmt.Printf("CDP enabled:   %t\n", status.Enabled)
			return nil
		},
	}
}
