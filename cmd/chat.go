package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/Chative-Loan-Origination/agent/contract"
)

var chatSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the loan assistant from the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := Build(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		sessionID := strings.TrimSpace(chatSession)
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		return chatLoop(cmd.Context(), app.Orchestrator, sessionID, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "session id to resume (random when empty)")
}

type turnRunner interface {
	HandleMessage(ctx context.Context, sessionID string, text string) (contractx.TurnOutput, error)
}

// chatLoop reads one message per line until EOF or "exit".
func chatLoop(ctx context.Context, chat turnRunner, sessionID string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "session %s (type exit to quit)\n", sessionID)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}

		res, err := chat.HandleMessage(ctx, sessionID, line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "%s> %s\n", strings.ToLower(string(res.AgentName)), res.Message)
	}
}
