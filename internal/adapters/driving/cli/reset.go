package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	resetSession string
	resetCorpus  bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset a conversation or the whole corpus",
	Long: `Reset discards state.

  --session ID  forgets one conversation; the next message starts fresh
  --corpus      removes every uploaded document and its embeddings`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().StringVar(&resetSession, "session", "", "session ID to reset")
	resetCmd.Flags().BoolVar(&resetCorpus, "corpus", false, "remove all documents")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	if resetSession == "" && !resetCorpus {
		return errors.New("specify --session ID or --corpus")
	}
	ctx := commandContext(cmd)

	if resetSession != "" {
		chat, err := requireChat(ctx)
		if err != nil {
			return err
		}
		if err := chat.Reset(ctx, resetSession); err != nil {
			return fmt.Errorf("failed to reset session: %w", err)
		}
		cmd.Printf("Session %s reset.\n", resetSession)
	}

	if resetCorpus {
		ingest, err := requireIngest(ctx)
		if err != nil {
			return err
		}
		if err := ingest.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset corpus: %w", err)
		}
		cmd.Println("Corpus cleared.")
	}
	return nil
}
