package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// chatOptions holds options for the chat command.
type chatOptions struct {
	configPath string
	tenantID   string
	userID     string
	quiet      bool
}

// newChatCmd creates the chat command.
func (a *App) newChatCmd() *cobra.Command {
	opts := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal",
		Long: `Start an interactive conversation with the shipping-quote assistant.

Each input line is handled as one chat message for the given tenant and
user. Type /quit or send EOF to leave.

Examples:
  freight-agent chat --tenant acme --user 5511999990000
  printf 'frete\n01001000\n5\n' | freight-agent chat --tenant acme -q`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&opts.tenantID, "tenant", "", "Tenant identifier")
	cmd.Flags().StringVar(&opts.userID, "user", "terminal", "User identifier")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print the input prompt")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func (a *App) runChat(cmd *cobra.Command, opts *chatOptions) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	rt, err := a.buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(ctx) }()

	scanner := bufio.NewScanner(a.stdin)
	for {
		if !opts.quiet {
			fmt.Fprint(a.stdout, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "/quit" {
			return nil
		}

		reply, err := rt.assistant.HandleMessage(ctx, opts.tenantID, opts.userID, text)
		if reply.Text != "" {
			fmt.Fprintln(a.stdout, reply.Text)
		}
		if err != nil {
			fmt.Fprintf(a.stderr, "error: %v\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
