// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// cacheqos inspects and controls the CPU's cache quality-of-service
// features.
//
// Usage:
//
//	cacheqos show [flags]
//	cacheqos cdp status|on|off [flags]
//	cacheqos topology [flags]
//	cacheqos version
package main

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/cacheqos/cmd/cacheqos/cli"
	"github.com/bureau-foundation/cacheqos/lib/version"
)

func main() {
	if err := rootCommand().Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "cacheqos: %v\n", err)
		// Usage errors carry exit code 2; everything else is 1.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

// rootCommand builds the complete cacheqos command tree.
func rootCommand() *cli.Command {
	return &cli.Command{
		Name: "cacheqos",
		Description: `cacheqos: CPU cache quality-of-service inspection and control.

Discovers the platform's cache monitoring features (occupancy and
memory bandwidth events) and cache allocation features (classes of
service, way geometry, code/data prioritization), and switches CDP
mode across all sockets.

Reads CPUID through /dev/cpu/0/cpuid and the QoS model-specific
registers through /dev/cpu/*/msr, so most commands need root or the
corresponding capabilities.`,
		Subcommands: []*cli.Command{
			showCommand(),
			cdpCommand(),
			topologyCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("cacheqos %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Print everything the platform supports",
				Command:     "cacheqos show",
			},
			{
				Description: "Report whether code/data prioritization is active",
				Command:     "cacheqos cdp status",
			},
			{
				Description: "Enable CDP on every socket (resets allocation state)",
				Command:     "cacheqos cdp on",
			},
			{
				Description: "Dump the core/socket/cluster layout as JSON",
				Command:     "cacheqos topology --json",
			},
		},
	}
}
