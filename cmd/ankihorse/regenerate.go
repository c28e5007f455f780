package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/ankihorse/pkg/updater"
)

var regenerateYes bool

// regenerateCmd represents the regenerate command
var regenerateCmd = &cobra.Command{
	Use:   "regenerate <addon>",
	Short: "Run an addon over every eligible note",
	Long: `Run an addon over every note whose template it applies to, overwriting its
target fields. The vault is locked for the duration of the run and, when git
is enabled, the result is committed.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		host := openHost(ctx)

		confirm := updater.Confirm(ask)
		if regenerateYes {
			confirm = updater.AlwaysConfirm
		}
		if _, err := host.Regenerate(ctx, args[0], confirm); err != nil {
			fatal("Failed to regenerate", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(regenerateCmd)
	regenerateCmd.Flags().BoolVarP(&regenerateYes, "yes", "y", false, "Do not ask for confirmation")
}
