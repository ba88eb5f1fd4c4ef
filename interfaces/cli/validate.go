package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	infraconfig "github.com/felixgeelhaar/freight-agent/infrastructure/config"
	"github.com/felixgeelhaar/freight-agent/infrastructure/security/secrets"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	configPath string
	strict     bool
	showSchema bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a freight-agent configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Profile, backend and audit sink types
  - Weight thresholds and ranking weights
  - Static quote offers and provider settings
  - Environment variable references (in strict mode)

Examples:
  # Validate a configuration file
  freight-agent validate -c config.yaml

  # Strict validation (fail on missing env vars)
  freight-agent validate -c config.yaml --strict

  # Show the JSON schema for configuration
  freight-agent validate --schema`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showSchema {
				return a.showConfigSchema()
			}
			return a.validateConfig(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")
	cmd.Flags().BoolVar(&opts.showSchema, "schema", false, "Show JSON schema for configuration")

	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(cmd *cobra.Command, opts *validateOptions) error {
	if opts.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	loaderOpts := []infraconfig.LoaderOption{
		infraconfig.WithValidation(true),
	}
	if opts.strict {
		loaderOpts = append(loaderOpts, infraconfig.WithStrictEnv(true))
	}

	loader := infraconfig.NewLoaderWithOptions(loaderOpts...)
	config, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := secrets.Apply(cmd.Context(), secrets.NewEnvSource(), config); err != nil {
		return fmt.Errorf("credentials: %w", err)
	}

	settings, err := infraconfig.NewBuilder(config).Build()
	if err != nil {
		return fmt.Errorf("configuration build failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	fmt.Fprintf(a.stdout, "  Profile: %s\n", config.Profile)

	fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	backend := config.Backend.Type
	if backend == "" {
		backend = "memory"
	}
	fmt.Fprintf(a.stdout, "  Session backend: %s (ttl=%s)\n", backend, settings.SessionTTL)
	fmt.Fprintf(a.stdout, "  Thresholds: light<=%gkg heavy>%gkg\n", settings.Thresholds.Light, settings.Thresholds.Heavy)
	fmt.Fprintf(a.stdout, "  Weights: price=%g time=%g margin=%g\n",
		settings.Weights.Price, settings.Weights.Time, settings.Weights.Margin)
	fmt.Fprintf(a.stdout, "  Top options: %d\n", settings.TopN)
	fmt.Fprintf(a.stdout, "  Quote cache TTL: %s\n", settings.CacheTTL)

	if light := secrets.Redacted(config).Providers.Light; light.URL != "" {
		token := light.Token
		if token == "" {
			token = "none"
		}
		fmt.Fprintf(a.stdout, "  Light provider: %s (token: %s)\n", light.URL, token)
	}
	if config.Providers.HeavyTable.Path != "" {
		fmt.Fprintf(a.stdout, "  Heavy rate table: %s\n", config.Providers.HeavyTable.Path)
	}
	if len(settings.StaticQuotes) > 0 {
		fmt.Fprintf(a.stdout, "  Static offers: %d\n", len(settings.StaticQuotes))
		for _, q := range settings.StaticQuotes {
			fmt.Fprintf(a.stdout, "    - %s %s (%s)\n", q.CarrierName, q.ServiceName, q.Source)
		}
	}

	if settings.Economics != nil {
		fmt.Fprintf(a.stdout, "  Economics: enabled\n")
	}
	if config.Audit.Type != "" && config.Audit.Type != "none" {
		fmt.Fprintf(a.stdout, "  Audit sink: %s\n", config.Audit.Type)
	}
	if config.Telemetry.Enabled {
		fmt.Fprintf(a.stdout, "  Telemetry: enabled\n")
	}

	return nil
}

// showConfigSchema displays the JSON schema for configuration.
func (a *App) showConfigSchema() error {
	schemaJSON, err := infraconfig.SchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	fmt.Fprintln(a.stdout, schemaJSON)
	return nil
}
