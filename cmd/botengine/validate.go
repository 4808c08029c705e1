package main

import (
	"fmt"

	"github.com/malcolmmathew-zz/bot-engine/pkg/flow"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [flow-file]",
	Short: "Check the flow description for consistency",
	Long:  `Loads the flow and reports every validation problem at once: unknown node types, dangling targets, bad storage paths and colliding payloads.
Nodes that cannot be reached from the entry node are reported as warnings.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := flowPath(cmd, args)
		if err != nil {
			return err
		}

		graph, err := flow.LoadFile(path)
		if err != nil {
			if problems := flow.ValidationErrors(err); len(problems) > 0 {
				for _, p := range problems {
					fmt.Fprintf(cmd.ErrOrStderr(), "  - %v\n", p)
				}
				return fmt.Errorf("validation failed: %d problem(s) in %s", len(problems), path)
			}
			return err
		}

		for _, id := range flow.Unreachable(graph) {
			fmt.Fprintf(cmd.ErrOrStderr(), "  warning: node %q is not reachable from %q\n", id, graph.Entry)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Flow is valid: %d nodes, entry %q, collections %v\n",
			len(graph.Nodes()), graph.Entry, graph.Collections)
		return nil
	},
}

// flowPath prefers a positional argument over --flow and the environment.
func flowPath(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	return cfg.FlowPath, nil
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
