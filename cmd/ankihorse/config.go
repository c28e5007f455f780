package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/ankihorse/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write provider options",
	Long: `Read and write provider options such as API keys. Options are grouped by
section, e.g.:

  ankihorse config set google "api key" KEY
  ankihorse config set "cognitive services" "bing speech api key" KEY

Environment variables named ANKIHORSE_<SECTION>_<OPTION> override the file.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <section> <option>",
	Short: "Print a provider option",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		v, ok := cfg.Get(args[0], args[1])
		if !ok {
			fatal("Option not set", fmt.Errorf("%s %q (or %s)", args[0], args[1], config.EnvKey(args[0], args[1])))
		}
		fmt.Println(v)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <section> <option> <value>",
	Short: "Store a provider option in ankihorse.yaml",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		cfg.Set(args[0], args[1], args[2])
		if err := cfg.Save(); err != nil {
			fatal("Failed to write config", err)
		}
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the path of the configuration file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(loadConfig().Path())
	},
}

func loadConfig() *config.Config {
	cfg, err := config.Load(vaultRoot())
	if err != nil {
		fatal("Failed to load config", err)
	}
	return cfg
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd, configSetCmd, configPathCmd)
}
