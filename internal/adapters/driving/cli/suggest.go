package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Print suggested questions",
	Args:  cobra.NoArgs,
	RunE:  runSuggest,
}

func init() {
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	_ = loadServices(ctx)
	if suggestionService == nil {
		return notConfigured("suggestion")
	}

	prompts, err := suggestionService.Suggestions(ctx)
	if err != nil {
		return fmt.Errorf("failed to get suggestions: %w", err)
	}
	for _, p := range prompts {
		cmd.Println(p)
	}
	return nil
}
