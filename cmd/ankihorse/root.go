package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/ankihorse"
)

var (
	verbose  bool
	vaultDir string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ankihorse",
	Short: "Fill flashcard fields with pictures, speech and example sentences",
	Long: `ankihorse watches a vault of flashcard notes and fills their fields from
image search, text-to-speech services and example sentence corpora.
Addons are declared in ankihorse.yaml at the root of the vault.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&vaultDir, "vault", "C", "", "Vault directory (default: the enclosing vault or the current directory)")
}

// vaultRoot resolves the vault the command works on.
func vaultRoot() string {
	if vaultDir != "" {
		return vaultDir
	}
	cwd, err := os.Getwd()
	if err != nil {
		fatal("Failed to get CWD", err)
	}
	root, err := ankihorse.FindVaultRoot(cwd)
	if err != nil {
		return cwd
	}
	return root
}

// openHost opens the vault with its addons installed.
func openHost(ctx context.Context, opts ...ankihorse.Option) *ankihorse.Host {
	base := []ankihorse.Option{
		ankihorse.WithMustExist(true),
		ankihorse.WithLogger(slog.Default()),
		ankihorse.WithNotifier(func(msg string) { fmt.Println(msg) }),
	}
	host, err := ankihorse.Open(ctx, vaultRoot(), append(base, opts...)...)
	if err != nil {
		fatal("Failed to open vault", err)
	}
	for name, reason := range host.Disabled {
		slog.Warn("addon disabled", "addon", name, "reason", reason)
	}
	return host
}

// ask prompts on stdin and reads a yes/no answer. Anything but yes is no.
func ask(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
