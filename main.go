package main

import (
	"os"

	"art-marketplace/utils"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "artmarket",
	Short:         "Art marketplace auction and gallery service",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), false)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML or YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		utils.Error("artmarket: command failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
