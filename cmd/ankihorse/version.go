package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/ankihorse"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ankihorse",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ankihorse version %s\n", strings.TrimSpace(ankihorse.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
