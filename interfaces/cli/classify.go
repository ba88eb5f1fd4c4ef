package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/freight-agent/domain/intent"
)

// newClassifyCmd creates the classify command.
func (a *App) newClassifyCmd() *cobra.Command {
	var (
		jsonOutput  bool
		maxQuantity int
	)

	cmd := &cobra.Command{
		Use:   "classify <message>",
		Short: "Classify a chat message into an intent",
		Long: `Classify a chat message and print the detected intent, its confidence
and any destination or quantity extracted from the text.

Examples:
  freight-agent classify "quanto custa o frete?"
  freight-agent classify "01001-000" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classifier := intent.NewClassifier(intent.WithMaxQuantity(maxQuantity))
			text := strings.Join(args, " ")
			result := classifier.Classify(text)

			if jsonOutput {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Fprintf(a.stdout, "Intent: %s\n", result.Intent)
			fmt.Fprintf(a.stdout, "Confidence: %.2f\n", result.Confidence)
			if result.Extracted.Destination != "" {
				fmt.Fprintf(a.stdout, "Destination: %s\n", result.Extracted.Destination)
			}
			if result.Extracted.Quantity > 0 {
				fmt.Fprintf(a.stdout, "Quantity: %d\n", result.Extracted.Quantity)
			}
			if classifier.HasMultipleIntents(text) {
				fmt.Fprintf(a.stdout, "Signals:\n")
				for _, s := range classifier.Signals(text) {
					fmt.Fprintf(a.stdout, "  - %s (%.2f)\n", s.Intent, s.Confidence)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	cmd.Flags().IntVar(&maxQuantity, "max-quantity", 9999, "Largest quantity accepted as a bare number")

	return cmd
}
