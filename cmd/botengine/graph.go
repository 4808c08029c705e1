package main

import (
	"fmt"

	"github.com/malcolmmathew-zz/bot-engine/internal/presentation/graph"
	"github.com/malcolmmathew-zz/bot-engine/pkg/flow"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [flow-file]",
	Short: "Export the flow graph visualization",
	Long:  `Loads the flow and outputs a Mermaid diagram (graph TD) of its menus, prompt lists and transitions.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := flowPath(cmd, args)
		if err != nil {
			return err
		}
		g, err := flow.LoadFile(path)
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if current, _ := cmd.Flags().GetString("current"); current != "" {
			overlay = &graph.GraphOverlay{CurrentNode: current}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("current", "", "Highlight a node")
}
