package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/ankihorse"
	"github.com/aretw0/ankihorse/pkg/config"
	"github.com/aretw0/ankihorse/pkg/core"
)

var initGit bool

// starterTemplates are written to a vault without templates.
var starterTemplates = []core.Template{
	{Name: "Japanese (recognition)", Fields: []string{"Expression", "Kanji", "Kana", "Pronunciation", "Meaning", "Picture", "Voice"}},
	{Name: "Basic", Fields: []string{"Front", "Back"}},
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize an ankihorse vault",
	Long: `Initialize a new vault in the current directory (or --vault).
It creates the system and media directories, a starter templates file and an
ankihorse.yaml declaring the Japanese picture and voice addons. Existing files
are left untouched.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		dir := vaultDir
		if dir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				fatal("Failed to get CWD", err)
			}
			dir = cwd
		}
		ctx := context.Background()

		cfg, err := config.Load(dir)
		if err != nil {
			fatal("Failed to load config", err)
		}
		if _, err := os.Stat(cfg.Path()); errors.Is(err, os.ErrNotExist) {
			cfg = config.Default()
			cfg.Vault.Git = initGit
			cfg.SetPath(filepath.Join(dir, config.FileName))
			if err := cfg.Save(); err != nil {
				fatal("Failed to write config", err)
			}
		}

		vault, err := ankihorse.Init(ctx, dir,
			ankihorse.WithAutoInit(true),
			ankihorse.WithConfig(cfg),
			ankihorse.WithLogger(slog.Default()),
		)
		if err != nil {
			fatal("Failed to initialize vault", err)
		}

		templates, err := vault.Templates(ctx)
		if err != nil {
			fatal("Failed to read templates", err)
		}
		if len(templates) == 0 {
			if err := vault.SaveTemplates(ctx, starterTemplates); err != nil {
				fatal("Failed to write templates", err)
			}
		}

		fmt.Println("Initialized ankihorse vault in", vault.Path)
		fmt.Printf("Set your API keys with `ankihorse config set` or in %s.\n", filepath.Join(vault.Path, config.EnvFile))
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initGit, "git", false, "Record batch runs as git commits")
}
