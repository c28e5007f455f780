package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/ankihorse/pkg/updater"
)

var addonsJSON bool

// addonsCmd represents the addons command
var addonsCmd = &cobra.Command{
	Use:   "addons",
	Short: "List the addons of the vault",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		host := openHost(context.Background())

		if addonsJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(host.State()); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		for _, c := range host.Registry.Coordinators() {
			fmt.Println(describe(c))
		}

		names := make([]string, 0, len(host.Disabled))
		for name := range host.Disabled {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s (disabled: %v)\n", name, host.Disabled[name])
		}
	},
}

func describe(c *updater.Coordinator) string {
	var b strings.Builder
	s := c.Strategy()
	fmt.Fprintf(&b, "%s: %s -> %s", c.Name(),
		strings.Join(s.SourceFields(), ", "),
		strings.Join(s.TargetFields(), ", "))
	if f := c.NameFilter(); f != "" {
		fmt.Fprintf(&b, " [templates containing %q]", f)
	}
	if !c.FieldBlurEnabled() {
		b.WriteString(" [regenerate only]")
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(addonsCmd)
	addonsCmd.Flags().BoolVar(&addonsJSON, "json", false, "Output in JSON format")
}
