package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/dimiscan/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage dimiscan configuration",
	Long: `Manage dimiscan configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (DIMISCAN_*, e.g. DIMISCAN_SCAN_CONTEXT_WINDOW)
3. Config file (~/.dimiscan/config.yaml or --config)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configFileUsed != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFileUsed)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		shown := *cfg
		if shown.Classification.APIKey != "" {
			shown.Classification.APIKey = "********"
		}

		yamlData, err := yaml.Marshal(&shown)
		if err != nil {
			return eris.Wrap(err, "error marshaling config")
		}
		_, err = cmd.OutOrStdout().Write(yamlData)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration file",
	Long:  `Create a configuration file with all defaults, at ~/.dimiscan/config.yaml unless a path is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := ""
		if len(args) == 1 {
			configPath = args[0]
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return eris.Wrap(err, "error finding home directory")
			}
			configPath = filepath.Join(home, ".dimiscan", "config.yaml")
		}

		if _, err := os.Stat(configPath); err == nil {
			return eris.Errorf("config file already exists: %s\nUse 'dimiscan config show' to view it, or delete it first to recreate", configPath)
		}
		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created default configuration: %s\n", configPath)
		return nil
	},
}

const configHeader = `# dimiscan configuration file
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (DIMISCAN_*)
#   3. This config file
#   4. Built-in defaults
#
# API keys are better kept in the environment:
#   export DIMISCAN_CLASSIFICATION_API_KEY=sk-...

`

func writeDefaultConfig(path string) error {
	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return eris.Wrap(err, "error marshaling config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return eris.Wrap(err, "error creating config directory")
	}
	if err := os.WriteFile(path, append([]byte(configHeader), yamlData...), 0600); err != nil {
		return eris.Wrap(err, "error writing config")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
