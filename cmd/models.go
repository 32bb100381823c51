package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evzone/chargeml/config"
	"github.com/evzone/chargeml/core/predictor"
	"github.com/evzone/chargeml/infra/logger"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List predictors and their loaded artifact versions",
	RunE:  listModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func listModels(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	registry := predictor.NewRegistry(cfg.Models, logger.NopLogger{})
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(registry.List())
}
