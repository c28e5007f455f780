package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// applyCmd represents the apply command
var applyCmd = &cobra.Command{
	Use:   "apply <id>...",
	Short: "Run every addon on the given notes",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		host := openHost(ctx)

		for _, id := range args {
			applied, err := host.Apply(ctx, id)
			if err != nil {
				fatal("Failed to apply addons to "+id, err)
			}
			if len(applied) == 0 {
				fmt.Printf("%s: unchanged\n", id)
				continue
			}
			fmt.Printf("%s: filled by %s\n", id, strings.Join(applied, ", "))
		}
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
}
