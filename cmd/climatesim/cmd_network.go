package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/talgya/climate-net/internal/engine"
)

func newNetworkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Build the initial population and network without running rounds",
		Long: `Build the initial population and network and print a summary.

Examples:
  climatesim network            # Degree summary per agent type
  climatesim network --json     # Full node and edge list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			sim, err := engine.NewSimulation(cfg)
			if err != nil {
				return err
			}
			if err := sim.Setup(); err != nil {
				return err
			}
			summary := sim.NetworkSummary()

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}

			st := summary.Stats
			fmt.Fprintf(out, "Network (%s): %d nodes, %d edges\n", summary.Strategy, st.Nodes, st.Edges)
			fmt.Fprintf(out, "  mean out-degree %.2f, max degree %d, density %.4f\n", st.MeanOutDegree, st.MaxDegree, st.Density)

			type typeDegree struct{ nodes, degree int }
			byType := make(map[string]*typeDegree)
			for _, n := range summary.Nodes {
				td := byType[n.Type]
				if td == nil {
					td = &typeDegree{}
					byType[n.Type] = td
				}
				td.nodes++
				td.degree += n.Degree
			}
			names := make([]string, 0, len(byType))
			for name := range byType {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				td := byType[name]
				fmt.Fprintf(out, "  %-24s %4d agents, mean degree %.2f\n", name, td.nodes, float64(td.degree)/float64(td.nodes))
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Output the full summary as JSON")
	return cmd
}
