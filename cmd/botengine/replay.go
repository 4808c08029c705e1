package main

import (
	"fmt"
	"io"
	"os"

	botengine "github.com/malcolmmathew-zz/bot-engine"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay [events.jsonl]",
	Short: "Feed recorded raw events through the engine",
	Long: `Reads one raw event per line (JSON with sender_id, kind, payload_or_text,
event_id) from the file or stdin and writes one JSON result per event.
Events go through the configured store, so replaying against a durable store
commits records exactly like live traffic.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if len(args) > 0 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		engine, closeFn, err := offlineEngine(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		stats, err := botengine.Replay(cmd.Context(), engine, in, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Replayed %d event(s), %d failed.\n", stats.Events, stats.Failed)
		if stats.Failed > 0 {
			return fmt.Errorf("%d event(s) failed", stats.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
