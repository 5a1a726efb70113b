package cli

import (
	"github.com/spf13/cobra"
)

var subsCmd = &cobra.Command{
	Use:   "subs",
	Short: "Display active monitor subscriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Subs(cmd.Context())
	},
}
