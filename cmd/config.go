package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arin/webviber/internal/config"
)

var providerBaseURL string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage webviber configuration",
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key <api-key>",
	Short: "Set the API key for the current provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetAPIKey(args[0]); err != nil {
			return fmt.Errorf("failed to save API key: %w", err)
		}
		fmt.Println("API key saved successfully.")
		return nil
	},
}

var setModelCmd = &cobra.Command{
	Use:   "set-model <model-name>",
	Short: "Set the model (default depends on the provider)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetModel(args[0]); err != nil {
			return fmt.Errorf("failed to save model: %w", err)
		}
		fmt.Printf("Model set to %s.\n", args[0])
		return nil
	},
}

var setProviderCmd = &cobra.Command{
	Use:   "set-provider <gemini|openai|ollama>",
	Short: "Choose the model provider",
	Long: `Choose the model provider. --base-url points openai at any
compatible endpoint, or ollama at a non-default host.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetProvider(args[0], providerBaseURL); err != nil {
			return fmt.Errorf("failed to save provider: %w", err)
		}
		fmt.Printf("Provider set to %s (model %s).\n", args[0], config.DefaultModel(args[0]))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		fmt.Printf("Provider:    %s\n", cfg.Provider)
		fmt.Printf("Model:       %s\n", cfg.Model)
		fmt.Printf("API Key:     %s\n", cfg.MaskedKey())
		if cfg.BaseURL != "" {
			fmt.Printf("Base URL:    %s\n", cfg.BaseURL)
		}
		fmt.Printf("Temperature: %.2f\n", cfg.Temperature)
		fmt.Printf("Config Dir:  %s\n", config.Dir())
		return nil
	},
}

func init() {
	setProviderCmd.Flags().StringVar(&providerBaseURL, "base-url", "", "Custom API endpoint")

	configCmd.AddCommand(setKeyCmd)
	configCmd.AddCommand(setModelCmd)
	configCmd.AddCommand(setProviderCmd)
	configCmd.AddCommand(configShowCmd)
}
