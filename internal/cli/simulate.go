package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/supperr-coder/dexscreener-monitor-bot/internal/app"
)

var (
	simulateSymbol    string
	simulatePrev      float64
	simulatePrice     float64
	simulateThreshold float64
	simulateChatID    int64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次价格变动并渲染告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrev <= 0 || simulatePrice <= 0 {
			return errors.New("--prev 与 --price 必须大于 0")
		}

		opts := app.SimulateOptions{
			Symbol:       simulateSymbol,
			PrevPrice:    decimal.NewFromFloat(simulatePrev),
			Price:        decimal.NewFromFloat(simulatePrice),
			ThresholdPct: simulateThreshold,
			ChatID:       simulateChatID,
		}

		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateSymbol, "symbol", "TOKEN", "展示用的代币符号")
	simulateCmd.Flags().Float64Var(&simulatePrev, "prev", 0, "前一次价格 (USD)")
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0, "当前价格 (USD)")
	simulateCmd.Flags().Float64Var(&simulateThreshold, "threshold", 3, "触发阈值 (%)")
	simulateCmd.Flags().Int64Var(&simulateChatID, "chat-id", 0, "发送目标 chat, 0 表示仅打印")
}
