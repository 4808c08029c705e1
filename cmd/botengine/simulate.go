package main

import (
	"os"

	botengine "github.com/malcolmmathew-zz/bot-engine"
	"github.com/malcolmmathew-zz/bot-engine/internal/presentation/tui"
	"github.com/malcolmmathew-zz/bot-engine/pkg/adapters/console"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [flow-file]",
	Short: "Chat with the flow in the terminal",
	Long: `Runs the engine against the configured store and plays the messaging platform:
type "/select NAME" to pick a menu option, "/state" to inspect the session,
anything else to answer the current prompt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			cfg.FlowPath = args[0]
		}
		if !cmd.Flags().Changed("log-level") && os.Getenv("BOTENGINE_LOG_LEVEL") == "" {
			cfg.LogLevel = "warn"
		}
		if !cmd.Flags().Changed("log-format") && os.Getenv("BOTENGINE_LOG_FORMAT") == "" {
			cfg.LogFormat = "text"
		}

		deps, err := setup(cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		headless, _ := cmd.Flags().GetBool("headless")
		interactive := !headless && tui.IsInteractive(os.Stdout)
		out := cmd.OutOrStdout()

		engine, err := deps.engine(console.New(out, deps.resolver, tui.NewRenderer(interactive)))
		if err != nil {
			return err
		}

		if interactive {
			tui.PrintBanner(out)
		}

		sim := botengine.NewSimulator(cmd.InOrStdin(), out)
		sim.Headless = headless
		if user, _ := cmd.Flags().GetString("user"); user != "" {
			sim.UserID = user
		}
		return sim.Run(cmd.Context(), engine)
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().String("user", botengine.DefaultSimulatorUser, "Sender id to simulate")
	simulateCmd.Flags().Bool("headless", false, "Plain output without prompts or styling")
}
