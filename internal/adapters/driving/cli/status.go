package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus and model status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

// statusOutput is the JSON shape of the status command.
type statusOutput struct {
	Documents        int      `json:"documents_count"`
	Chunks           int      `json:"chunks_count"`
	Dimensions       int      `json:"dimensions"`
	ChatReady        bool     `json:"chat_ready"`
	SupportedFormats []string `json:"supported_formats"`
	EmbeddingModel   string   `json:"embedding_model"`
	LLMModel         string   `json:"llm_model"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	ingest, err := requireIngest(ctx)
	if err != nil {
		return err
	}

	st, err := ingest.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	out := toStatusOutput(st)

	if statusJSON {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println("Corpus")
	cmd.Printf("  Documents:  %d\n", out.Documents)
	cmd.Printf("  Chunks:     %d\n", out.Chunks)
	if out.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", out.Dimensions)
	}
	cmd.Printf("  Formats:    %s\n", strings.Join(out.SupportedFormats, ", "))
	cmd.Println()
	cmd.Println("Models")
	cmd.Printf("  Embedding:  %s\n", valueOrUnset(out.EmbeddingModel))
	cmd.Printf("  LLM:        %s\n", valueOrUnset(out.LLMModel))
	cmd.Println()
	if out.ChatReady {
		cmd.Println("Ready to chat.")
	} else {
		cmd.Println("No documents yet. Run 'docchat ingest PATH' to add some.")
	}
	return nil
}

func toStatusOutput(st *driving.CorpusStatus) statusOutput {
	formats := make([]string, 0, len(st.SupportedFormats))
	for _, f := range st.SupportedFormats {
		formats = append(formats, f.String())
	}
	return statusOutput{
		Documents:        st.DocumentsCount,
		Chunks:           st.ChunksCount,
		Dimensions:       st.Dimensions,
		ChatReady:        st.ChatReady,
		SupportedFormats: formats,
		EmbeddingModel:   st.EmbeddingModel,
		LLMModel:         st.LLMModel,
	}
}

func valueOrUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
