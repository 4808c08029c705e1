package main

import (
	"fmt"

	botengine "github.com/malcolmmathew-zz/bot-engine"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of botengine",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "botengine version %s\n", botengine.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
