package main

import (
	"encoding/json"
	"fmt"

	botengine "github.com/malcolmmathew-zz/bot-engine"
	"github.com/spf13/cobra"
)

var recordsCmd = &cobra.Command{
	Use:   "records <collection>",
	Short: "Print the committed records of a collection",
	Long:  `Reads the ledger of the configured store and prints one JSON document per record, in commit order.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, closeFn, err := offlineEngine(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		records, err := engine.Records(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, rec := range records {
			doc := rec.Document()
			doc["id"] = rec.ID
			if err := enc.Encode(doc); err != nil {
				return err
			}
		}
		if len(records) == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "No records in %q.\n", args[0])
		}
		return nil
	},
}

// offlineEngine builds an engine without a deliverer for inspection commands.
func offlineEngine(cmd *cobra.Command) (*botengine.Engine, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	deps, err := setup(cfg)
	if err != nil {
		return nil, nil, err
	}
	engine, err := deps.engine(nil)
	if err != nil {
		deps.Close()
		return nil, nil, err
	}
	return engine, deps.Close, nil
}

func init() {
	rootCmd.AddCommand(recordsCmd)
}
