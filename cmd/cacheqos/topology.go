// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cacheqos/cmd/cacheqos/cli"
	"github.com/bureau-foundation/cacheqos/lib/topology"
)

// topologyParams holds the parameters for the topology command.
type topologyParams struct {
	cli.JSONOutput
	ConfigPath   string `flag:"config" desc:"YAML configuration file (default $CACHEQOS_CONFIG)"`
	TopologyFile string `flag:"topology-file" desc:"core layout from a YAML file instead of sysfs"`
}

func topologyCommand() *cli.Command {
	var params topologyParams

	return &cli.Command{
		Name:    "topology",
		Summary: "Print the core/socket/cluster layout",
		Description: `Print the core topology the library would operate on: each logical
core with its socket and L3 cache cluster. The layout comes from
sysfs, or from a YAML file given with --topology-file (or the
config's topology_file). No privileged device access is needed.`,
		Usage: "cacheqos topology [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("topology", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Table of cores with socket and cluster IDs",
				Command:     "cacheqos topology",
			},
			{
				Description: "Same as JSON, for scripting",
				Command:     "cacheqos topology --json",
			},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}

			cfg, err := loadConfig(params.ConfigPath)
			if err != nil {
				return err
			}
			file := params.TopologyFile
			if file == "" {
				file = cfg.TopologyFile
			}

			var snap *topology.Snapshot
			if file != "" {
				snap, err = topology.LoadFile(file)
			} else {
				snap, err = topology.NewSysfsProvider().Enumerate()
			}
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(snap.Cores); done {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(tw, "CORE\tSOCKET\tCLUSTER\n")
			for _, core := range snap.Cores {
				fmt.Fprintf(tw, "%d\t%d\t%d\n", core.ID, core.Socket, core.Cluster)
			}
			return tw.Flush()
		},
	}
}
