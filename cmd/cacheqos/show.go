// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cacheqos/capability"
	"github.com/bureau-foundation/cacheqos/cmd/cacheqos/cli"
	"github.com/bureau-foundation/cacheqos/lib/topology"
)

// showParams holds the parameters for the show command.
type showParams struct {
	cli.JSONOutput
	sessionParams
}

// showReport is the JSON payload of `cacheqos show`.
type showReport struct {
	Catalogue *capability.Catalogue `json:"catalogue"`
	Topology  *topology.Snapshot    `json:"topology"`
}

func showCommand() *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Print the platform capability catalogue",
		Description: `Open the library, discover what the platform supports and print the
capability catalogue: monitoring events with their RMID limits and
scale factors, allocation geometry (classes, ways, way size,
contention mask, CDP state) and a topology summary.

The platform is only observed; CDP is left in whatever state it is
in. Use "cacheqos cdp on" or "cacheqos cdp off" to change it. The
configuration file's cdp setting selects the mode the library opens
under, so a config with "cdp: on" makes show fail on platforms that
cannot enable CDP.`,
		Usage: "cacheqos show [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Human-readable capability listing",
				Command:     "cacheqos show",
			},
			{
				Description: "Catalogue and topology as JSON",
				Command:     "cacheqos show --json",
			},
			{
				Description: "Use a recorded topology instead of sysfs",
				Command:     "cacheqos show --topology-file ./topology.yaml",
			},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}

			cfg, err := params.resolve()
			if err != nil {
				return err
			}
			lib, err := openLibrary(cfg, cfg.cdpMode())
			if err != nil {
				return err
			}
			defer lib.Close()

			cat, topo, err := lib.Capabilities()
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(showReport{Catalogue: cat, Topology: topo}); done {
				return err
			}
			printCatalogue(os.Stdout, cat, topo)
			return nil
		},
	}
}

// printCatalogue renders the catalogue and topology summary as text.
func printCatalogue(w io.Writer, cat *capability.Catalogue, topo *topology.Snapshot) {
	fmt.Fprintf(w, "Capability catalogue v%d, %d record(s)\n", cat.Version, len(cat.Records))

	if m := cat.Monitoring(); m != nil {
		fmt.Fprintf(w, "\nMonitoring\n")
		fmt.Fprintf(w, "  Max RMID:   %d\n", m.MaxRMID)
		fmt.Fprintf(w, "  Cache size: %s\n", formatBytes(m.CacheSizeBytes))
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		fmt.Fprintf(tw, "  EVENT\tMAX RMID\tSCALE FACTOR\n")
		for _, e := range m.Events {
			fmt.Fprintf(tw, "  %s\t%d\t%d\n", e.Event, e.MaxRMID, e.ScaleFactor)
		}
		tw.Flush()
	}

	if a := cat.CacheAllocation(); a != nil {
		fmt.Fprintf(w, "\nCache allocation\n")
		fmt.Fprintf(w, "  Classes:       %d\n", a.ClassCount)
		fmt.Fprintf(w, "  Ways:          %d\n", a.WayCount)
		if a.WaySizeBytes > 0 {
			fmt.Fprintf(w, "  Way size:      %s\n", formatBytes(a.WaySizeBytes))
		}
		fmt.Fprintf(w, "  Contention:    %#x\n", a.WayContention)
		fmt.Fprintf(w, "  CDP supported: %t\n", a.CDPSupported)
		fmt.Fprintf(w, "  CDP enabled:   %t\n", a.CDPEnabled)
	}

	fmt.Fprintf(w, "\nTopology: %d cores, %d sockets, %d cache clusters\n",
		len(topo.Cores), len(topo.Sockets()), len(topo.Clusters()))
}

// formatBytes renders a byte count, using a binary-unit suffix when
// the count is an exact multiple.
func formatBytes(n uint64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MiB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KiB", n>>10)
	}
	return fmt.Sprintf("%d B", n)
}
