package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

var (
	chatSession string
	chatMessage string
)

// isTerminal reports whether the TUI can run. Replaced in tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with your documents",
	Long: `Start a conversation about the uploaded documents.

In a terminal this opens the interactive chat UI. When input is piped, each
line is sent as a message and replies are printed. Use -m to send a single
message and exit.

Controls (interactive UI):
  enter   - Send message
  tab     - Fill in a suggested question
  ctrl+r  - Start a new conversation
  ctrl+d  - Show uploaded documents
  f1      - Toggle help
  esc     - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "resume an existing session")
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "send one message and print the reply")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	chat, err := requireChat(ctx)
	if err != nil {
		return err
	}

	if chatMessage != "" {
		result, err := sendAndPrint(ctx, cmd.OutOrStdout(), chat, chatSession, chatMessage)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", result.SessionID)
		return nil
	}
	if isTerminal() {
		return runChatTUI(ctx, chat)
	}
	return runChatLines(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), chat, chatSession)
}

func runChatTUI(ctx context.Context, chat driving.ChatService) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	app, err := tui.NewApp(&tui.Ports{
		Chat:        chat,
		Ingest:      ingestService,
		Suggestions: suggestionService,
		SessionID:   chatSession,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(ctx)

	restore := logger.Redirect(io.Discard)
	defer restore()
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runChatLines sends each input line as a message until input ends or the
// conversation ends.
func runChatLines(ctx context.Context, in io.Reader, out io.Writer, chat driving.ChatService, sessionID string) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		result, err := sendAndPrint(ctx, out, chat, sessionID, line)
		if err != nil {
			return err
		}
		sessionID = result.SessionID
		if result.ConversationEnded {
			return nil
		}
	}
	return scanner.Err()
}

func sendAndPrint(
	ctx context.Context, out io.Writer, chat driving.ChatService, sessionID, message string,
) (*driving.ChatResult, error) {
	result, err := chat.Send(ctx, sessionID, message)
	if err != nil {
		return nil, fmt.Errorf("chat failed: %w", err)
	}

	fmt.Fprintln(out, result.Reply.Content)
	if len(result.ToolsUsed) > 0 {
		fmt.Fprintf(out, "  [tools: %s]\n", strings.Join(result.ToolsUsed, ", "))
	}
	if result.ConversationEnded {
		fmt.Fprintf(out, "  [conversation ended, session %s]\n", result.SessionID)
	}
	fmt.Fprintln(out)
	return result, nil
}
