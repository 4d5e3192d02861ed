package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trip-guardian/internal/app"
)

var runLegsPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the guardian service against the live position stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runLegsPath == "" {
			return fmt.Errorf("--legs must be provided")
		}

		return getApp().Run(cmd.Context(), app.RunOptions{LegsPath: runLegsPath})
	},
}

func init() {
	runCmd.Flags().StringVar(&runLegsPath, "legs", "", "Path to the guarded legs JSON file")
}
