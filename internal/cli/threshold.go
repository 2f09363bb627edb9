package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var thresholdCmd = &cobra.Command{
	Use:   "threshold",
	Short: "Manage the manual crossing threshold",
}

var thresholdShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the armed threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ShowThreshold(cmd.Context())
	},
}

var thresholdSetCmd = &cobra.Command{
	Use:   "set <value>",
	Short: "Arm a crossing threshold",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := decimal.NewFromString(args[0])
		if err != nil {
			return fmt.Errorf("invalid threshold value: %w", err)
		}
		return getApp().SetThreshold(cmd.Context(), value)
	},
}

var thresholdClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Disarm the crossing threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ClearThreshold(cmd.Context())
	},
}

func init() {
	thresholdCmd.AddCommand(thresholdShowCmd)
	thresholdCmd.AddCommand(thresholdSetCmd)
	thresholdCmd.AddCommand(thresholdClearCmd)
}
