package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Hamhunter23/verifi-data-agent/internal/agent"
	apperrors "github.com/Hamhunter23/verifi-data-agent/internal/errors"
	"github.com/Hamhunter23/verifi-data-agent/internal/observability"
	"github.com/Hamhunter23/verifi-data-agent/internal/server/handlers"
	"github.com/Hamhunter23/verifi-data-agent/internal/server/middleware"
)

const chatPrompt = "> "

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Ask questions interactively. Type "exit" or "quit" (or send EOF) to leave.

Without --url the agent runs in-process; with --url each message is sent to a
running 'verifi serve' instance.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("url", "", "Base URL of a running verifi server (e.g. http://localhost:8080)")
	chatCmd.Flags().String("requester", "", "Requester identity sent to the server")
}

// chatClient answers one chat message.
type chatClient interface {
	Send(ctx context.Context, message string) (string, error)
}

type localChat struct {
	agent *agent.Agent
}

func (c localChat) Send(ctx context.Context, message string) (string, error) {
	return c.agent.HandleChat(ctx, message), nil
}

type remoteChat struct {
	baseURL   string
	requester string
	client    *http.Client
}

func (c remoteChat) Send(ctx context.Context, message string) (string, error) {
	body, err := json.Marshal(handlers.ChatRequest{Message: message})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.baseURL, "/")+"/v1/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.requester != "" {
		req.Header.Set(middleware.RequesterHeader, c.requester)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("contact server: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		var failure apperrors.HTTPErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil && failure.Error.Message != "" {
			return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, failure.Error.Message)
		}
		return "", fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var reply handlers.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("decode chat reply: %w", err)
	}
	return reply.Reply, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	baseURL, _ := cmd.Flags().GetString("url")
	requester, _ := cmd.Flags().GetString("requester")

	var client chatClient
	if strings.TrimSpace(baseURL) != "" {
		client = remoteChat{
			baseURL:   baseURL,
			requester: requester,
			client:    &http.Client{Timeout: 60 * time.Second},
		}
	} else {
		cfg := mustLoadConfig(ctx)
		rt, err := buildAgent(ctx, cfg, observability.CLILogger)
		if err != nil {
			return err
		}
		defer rt.Close() // nolint:errcheck // best-effort cleanup
		client = localChat{agent: rt.Agent}
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), `Ask about crypto prices, credentials, supply chains, carbon footprints or reputation. Type "exit" to quit.`)
	return chatLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), client)
}

// chatLoop reads one message per line until EOF or an exit command.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, client chatClient) error {
	scanner := bufio.NewScanner(in)
	for {
		if _, err := fmt.Fprint(out, chatPrompt); err != nil {
			return err
		}
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		reply, err := client.Send(ctx, line)
		if err != nil {
			reply = "Error: " + err.Error()
		}
		if _, err := fmt.Fprintln(out, reply); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
