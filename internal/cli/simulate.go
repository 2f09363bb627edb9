package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateBaseline float64
	simulateLatest   float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次价格波动并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateBaseline <= 0 || simulateLatest <= 0 {
			return errors.New("--baseline 与 --latest 必须大于 0")
		}

		baseline := decimal.NewFromFloat(simulateBaseline)
		latest := decimal.NewFromFloat(simulateLatest)
		return getApp().SimulateAlert(cmd.Context(), baseline, latest)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateBaseline, "baseline", 0, "基准金价 (元/克)")
	simulateCmd.Flags().Float64Var(&simulateLatest, "latest", 0, "最新金价 (元/克)")
}
