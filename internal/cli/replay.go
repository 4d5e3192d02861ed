package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trip-guardian/internal/app"
)

var (
	replayLegsPath string
	replayLogPath  string
	replayInterval time.Duration
	replayDryRun   bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded position log through the guardian",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayLegsPath == "" || replayLogPath == "" {
			return fmt.Errorf("--legs and --log must be provided")
		}

		opts := app.ReplayOptions{
			LegsPath: replayLegsPath,
			LogPath:  replayLogPath,
			Interval: replayInterval,
			DryRun:   replayDryRun,
		}

		return getApp().Replay(cmd.Context(), opts)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayLegsPath, "legs", "", "Path to the guarded legs JSON file")
	replayCmd.Flags().StringVar(&replayLogPath, "log", "", "Path to the JSONL position log")
	replayCmd.Flags().DurationVar(&replayInterval, "interval", 0, "Pace between samples (0 replays as fast as possible)")
	replayCmd.Flags().BoolVar(&replayDryRun, "dry-run", false, "Run without notifications or persistence")
}
