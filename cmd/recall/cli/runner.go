package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/recall/internal/chat"
	"github.com/felixgeelhaar/recall/internal/observe"
)

const prompt = "> "

// Runner drives a chat session from line-oriented input.
type Runner struct {
	Observer *observe.Observer
	Service  *chat.Service
	Commands *chat.CommandRegistry
	In       io.Reader
	Out      io.Writer
}

func NewRunner(obs *observe.Observer, svc *chat.Service, in io.Reader, out io.Writer) *Runner {
	return &Runner{
		Observer: obs,
		Service:  svc,
		Commands: chat.BuiltinCommands(svc),
		In:       in,
		Out:      out,
	}
}

// Handle processes one line: a slash command or a chat message. Chat replies
// reach the user through the service UI, so only command output is returned.
func (r *Runner) Handle(ctx context.Context, sess *chat.Session, line string) (string, error) {
	if chat.IsCommand(line) {
		return r.Commands.Execute(ctx, sess, line)
	}

	if sess.ChatID == "" {
		c, err := r.Service.NewChat(ctx)
		if err != nil {
			return "", err
		}
		sess.ChatID = c.ID
	}

	if _, err := r.Service.Send(ctx, sess.ChatID, line, sess.Pending); err != nil {
		return "", err
	}
	sess.Pending = nil
	return "", nil
}

// Run reads lines until EOF or /quit.
func (r *Runner) Run(ctx context.Context, sess *chat.Session) error {
	scanner := bufio.NewScanner(r.In)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprint(r.Out, prompt)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			fmt.Fprint(r.Out, prompt)
			continue
		case "/quit", "/exit":
			return nil
		}

		out, err := r.Handle(ctx, sess, line)
		if err != nil {
			fmt.Fprintf(r.Out, "error: %v\n", err)
		} else if out != "" {
			fmt.Fprintln(r.Out, out)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(r.Out, prompt)
	}
	return scanner.Err()
}
