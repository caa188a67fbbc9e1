package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parserlab/ocrdiff/internal/config"
	"github.com/parserlab/ocrdiff/internal/home"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the ocrdiff configuration",
}

var configForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config to the home directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		path := h.ConfigPath()
		if h.ConfigExists() && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration as YAML after merging defaults, the config
file and OCRDIFF_* environment variables. Secret references are shown
unresolved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			h, err := home.New(homeDir)
			if err != nil {
				return err
			}
			if h.ConfigExists() {
				path = h.ConfigPath()
			}
		}
		cfgMgr, err := config.NewManager(path)
		if err != nil {
			return err
		}
		cfg := cfgMgr.Get()
		if err := cfg.Validate(); err != nil {
			return err
		}
		data, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
