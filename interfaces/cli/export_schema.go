package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	domainconfig "github.com/felixgeelhaar/freight-agent/domain/config"
	infraconfig "github.com/felixgeelhaar/freight-agent/infrastructure/config"
)

// newExportSchemaCmd creates the export-schema command.
func (a *App) newExportSchemaCmd() *cobra.Command {
	var (
		outputPath string
		defaults   bool
	)

	cmd := &cobra.Command{
		Use:   "export-schema",
		Short: "Export the configuration JSON schema",
		Long: `Export the JSON Schema for freight-agent configuration files, or with
--defaults a YAML file holding every default value as a starting point.

Examples:
  # Export schema to stdout
  freight-agent export-schema

  # Export schema to a file for editor validation
  freight-agent export-schema -o freight.schema.json

  # Write a starter configuration
  freight-agent export-schema --defaults -o freight.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := exportContent(defaults)
			if err != nil {
				return err
			}
			if outputPath == "" {
				_, err := fmt.Fprintln(a.stdout, content)
				return err
			}
			if err := os.WriteFile(outputPath, []byte(content), 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", outputPath, err)
			}
			_, _ = fmt.Fprintf(a.stdout, "Schema exported to %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Export the default configuration as YAML instead of the schema")

	return cmd
}

func exportContent(defaults bool) (string, error) {
	if !defaults {
		schemaJSON, err := infraconfig.SchemaJSON()
		if err != nil {
			return "", fmt.Errorf("failed to generate schema: %w", err)
		}
		return schemaJSON, nil
	}

	data, err := yaml.Marshal(domainconfig.DefaultAppConfig())
	if err != nil {
		return "", fmt.Errorf("failed to encode defaults: %w", err)
	}
	return string(data), nil
}
