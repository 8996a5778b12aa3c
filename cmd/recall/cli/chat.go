package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/recall/internal/chat"
	"github.com/felixgeelhaar/recall/internal/ui"
	"github.com/felixgeelhaar/recall/internal/ui/tui"
)

var (
	chatID      string
	interactive bool
	attachFiles []string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Start a chat session. Type messages to talk to the model, or slash
commands such as /remember, /attach and /help. /quit leaves the session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.service()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		sess := &chat.Session{ChatID: chatID}
		if sess.ChatID != "" {
			if _, err := a.store.GetChat(sess.ChatID); err != nil {
				return err
			}
		}

		r := NewRunner(a.obs, svc, cmd.InOrStdin(), cmd.OutOrStdout())
		if interactive {
			return runTUI(ctx, r, sess)
		}

		svc.SetUI(ui.NewConsoleUI(cmd.OutOrStdout(), verbose))
		fmt.Fprintf(cmd.OutOrStdout(), "recall (%s). /help for commands, /quit to leave.\n", svc.Provider().Name())
		return r.Run(ctx, sess)
	},
}

func runTUI(ctx context.Context, r *Runner, sess *chat.Session) error {
	model := tui.NewModel("recall "+r.Service.Provider().Name(), func(line string) tea.Cmd {
		return func() tea.Msg {
			out, err := r.Handle(ctx, sess, line)
			return tui.DoneMsg{Output: out, Err: err}
		}
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	r.Service.SetUI(tui.NewTUI(program))

	_, err := program.Run()
	return err
}

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Send a single message and print the reply",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if text == "" && len(attachFiles) == 0 {
			return chat.ErrEmptyMessage
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.service()
		if err != nil {
			return err
		}
		svc.SetUI(ui.NewConsoleUI(cmd.OutOrStdout(), verbose))

		id := chatID
		if id == "" {
			c, err := svc.NewChat(cmd.Context())
			if err != nil {
				return err
			}
			id = c.ID
		}

		reply, err := svc.Send(cmd.Context(), id, text, attachFiles)
		if err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "chat %s, %d memories, %d tokens\n", id, len(reply.Memories), reply.Usage.TotalTokens)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(chatCmd)
	RootCmd.AddCommand(askCmd)

	chatCmd.Flags().StringVar(&chatID, "chat", "", "Resume an existing chat")
	chatCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Start interactive TUI")

	askCmd.Flags().StringVar(&chatID, "chat", "", "Continue an existing chat")
	askCmd.Flags().StringArrayVarP(&attachFiles, "file", "f", nil, "Attach a text file (repeatable)")
}
