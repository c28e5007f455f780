package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/ankihorse/pkg/adapters/fs"
)

var watchDebounce = fs.DefaultDebounce

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Fill notes as they are edited",
	Long: `Watch the vault and run the addons on every field edited in a note file,
as a flashcard editor does when a field loses focus. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		host := openHost(ctx)
		ready := func() { fmt.Println("Watching", host.Vault.Path) }

		if err := host.Watch(ctx, fs.WithDebounce(watchDebounce), fs.WithReady(ready)); err != nil {
			fatal("Watch failed", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", fs.DefaultDebounce, "Quiet period before an edited note is processed")
}
