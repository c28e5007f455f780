package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	addTemplate string
	addFields   []string
	addNoApply  bool
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Create a note and fill it",
	Long: `Create a note bound to a template, then run every addon on it as if its
fields had just been typed in.

  ankihorse add neko --template "Japanese (recognition)" --field Expression=猫`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fields := make(map[string]string, len(addFields))
		for _, kv := range addFields {
			name, value, ok := strings.Cut(kv, "=")
			if !ok {
				fatal("Invalid field", fmt.Errorf("%q is not NAME=VALUE", kv))
			}
			fields[name] = value
		}

		ctx := context.Background()
		host := openHost(ctx)

		note, err := host.Vault.Create(ctx, args[0], addTemplate, fields)
		if err != nil {
			fatal("Failed to create note", err)
		}
		fmt.Println("Created", note.ID())

		if addNoApply {
			return
		}
		applied, err := host.Apply(ctx, note.ID())
		if len(applied) > 0 {
			fmt.Println("Filled by", strings.Join(applied, ", "))
		}
		if err != nil {
			fatal("Failed to fill note", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addTemplate, "template", "t", "", "Template of the note")
	addCmd.Flags().StringArrayVarP(&addFields, "field", "f", nil, "Field value as NAME=VALUE (repeatable)")
	addCmd.Flags().BoolVar(&addNoApply, "no-apply", false, "Do not run the addons")
	_ = addCmd.MarkFlagRequired("template")
}
