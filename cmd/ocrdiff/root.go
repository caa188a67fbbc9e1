package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/parserlab/ocrdiff/internal/api"
	"github.com/parserlab/ocrdiff/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	envFile      string
)

var rootCmd = &cobra.Command{
	Use:   "ocrdiff",
	Short: "Compare OCR parser results with and without extra accuracy",
	Long: `ocrdiff submits documents to an OCR parsing API twice, once with extra
accuracy and once without, and compares the two JSON results field by field.

It includes:
  - A parser catalog stored locally, on GitHub or on Google Drive
  - Dual runs with retries and a recorded run history
  - Flattened comparison tables, mismatch views and exports
  - An offline compare command for any two JSON documents`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.ocrdiff/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "ocrdiff home directory (default: ~/.ocrdiff)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&envFile, "env-file", ".env", "dotenv file loaded before the config",
	)

	// Load .env and set output format before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(envFile); err != nil {
			return err
		}
		api.SetOutputFormat(outputFormat)
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}

// loadEnv loads a dotenv file without overriding variables already set.
// A missing default file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !rootCmd.PersistentFlags().Changed("env-file") {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}
