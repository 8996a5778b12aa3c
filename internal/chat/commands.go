package chat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Session is the REPL-side state of the chat being typed into.
type Session struct {
	ChatID string
	// Pending holds files to attach to the next message.
	Pending []string
}

// CommandHandler executes a slash command and returns text for the user.
type CommandHandler func(ctx context.Context, sess *Session, args string) (string, error)

// Command describes a slash command.
type Command struct {
	Name        string
	Usage       string
	Description string
}

// CommandRegistry manages the slash commands available in the REPL.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[string]Command
	handlers map[string]CommandHandler
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[string]Command),
		handlers: make(map[string]CommandHandler),
	}
}

// Register adds a command to the registry.
func (cr *CommandRegistry) Register(cmd Command, handler CommandHandler) error {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if _, exists := cr.commands[cmd.Name]; exists {
		return fmt.Errorf("command %q already registered", cmd.Name)
	}
	cr.commands[cmd.Name] = cmd
	cr.handlers[cmd.Name] = handler
	return nil
}

func (cr *CommandRegistry) Get(name string) (Command, bool) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	cmd, ok := cr.commands[name]
	return cmd, ok
}

// List returns all commands sorted by name.
func (cr *CommandRegistry) List() []Command {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	cmds := make([]Command, 0, len(cr.commands))
	for _, c := range cr.commands {
		cmds = append(cmds, c)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// IsCommand reports whether a REPL line is a slash command.
func IsCommand(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "/")
}

// Execute parses "/name args" and runs the matching handler.
func (cr *CommandRegistry) Execute(ctx context.Context, sess *Session, line string) (string, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", fmt.Errorf("not a command: %q", line)
	}

	name, args, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	cr.mu.RLock()
	handler, ok := cr.handlers[name]
	cr.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown command: /%s (try /help)", name)
	}

	return handler(ctx, sess, strings.TrimSpace(args))
}

// BuiltinCommands returns a registry wired to the service.
func BuiltinCommands(svc *Service) *CommandRegistry {
	cr := NewCommandRegistry()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}

	must(cr.Register(Command{Name: "help", Usage: "/help", Description: "List commands"},
		func(ctx context.Context, sess *Session, args string) (string, error) {
			var sb strings.Builder
			for _, c := range cr.List() {
				fmt.Fprintf(&sb, "  %-20s %s\n", c.Usage, c.Description)
			}
			return strings.TrimRight(sb.String(), "\n"), nil
		}))

	must(cr.Register(Command{Name: "new", Usage: "/new", Description: "Start a new chat"},
		func(ctx context.Context, sess *Session, args string) (string, error) {
			chat, err := svc.NewChat(ctx)
			if err != nil {
				return "", err
			}
			sess.ChatID = chat.ID
			sess.Pending = nil
			return "Started chat " + chat.ID, nil
		}))

	must(cr.Register(Command{Name: "remember", Usage: "/remember <fact>", Description: "Store a fact about you"},
		func(ctx context.Context, sess *Session, args string) (string, error) {
			item, err := svc.Remember(ctx, args)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Remembered [%s] %s", item.ID, item.Content), nil
		}))

	must(cr.Register(Command{Name: "forget", Usage: "/forget <id>", Description: "Delete a stored fact"},
		func(ctx context.Context, sess *Session, args string) (string, error) {
			if args == "" {
				return "", errors.New("usage: /forget <id>")
			}
			if err := svc.Forget(ctx, args); err != nil {
				return "", err
			}
			return "Forgot " + args, nil
		}))

	must(cr.Register(Command{Name: "memories", Usage: "/memories", Description: "List stored facts"},
		func(ctx context.Context, sess *Session, args string) (string, error) {
			items, err := svc.Memories(ctx)
			if err != nil {
				return "", err
			}
			if len(items) == 0 {
				return "No memories yet. Add one with /remember.", nil
			}
			var sb strings.Builder
			for _, it := range items {
				fmt.Fprintf(&sb, "[%s] %s\n", it.ID, it.Content)
			}
			return strings.TrimRight(sb.String(), "\n"), nil
		}))

	must(cr.Register(Command{Name: "attach", Usage: "/attach <path>", Description: "Attach a file to the next message"},
		func(ctx context.Context, sess *Session, args string) (string, error) {
			if args == "" {
				return "", errors.New("usage: /attach <path>")
			}
			if v := svc.guard.CheckFile(args); v != nil {
				return "", v
			}
			if _, err := os.Stat(args); err != nil {
				return "", err
			}
			if v := svc.guard.CheckAttachmentCount(len(sess.Pending) + 1); v != nil {
				return "", v
			}
			sess.Pending = append(sess.Pending, args)
			if limit := svc.guard.Policy().MaxAttachments; limit > 0 {
				return fmt.Sprintf("Attached %s (%d/%d pending)", args, len(sess.Pending), limit), nil
			}
			return fmt.Sprintf("Attached %s (%d pending)", args, len(sess.Pending)), nil
		}))

	must(cr.Register(Command{Name: "detach", Usage: "/detach", Description: "Drop pending attachments"},
		func(ctx context.Context, sess *Session, args string) (string, error) {
			n := len(sess.Pending)
			sess.Pending = nil
			return fmt.Sprintf("Dropped %d attachment(s)", n), nil
		}))

	must(cr.Register(Command{Name: "history", Usage: "/history", Description: "Show this chat's messages"},
		func(ctx context.Context, sess *Session, args string) (string, error) {
			if sess.ChatID == "" {
				return "No active chat.", nil
			}
			msgs, err := svc.History(sess.ChatID)
			if err != nil {
				return "", err
			}
			if len(msgs) == 0 {
				return "No messages yet.", nil
			}
			var sb strings.Builder
			for _, m := range msgs {
				fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
			}
			return strings.TrimRight(sb.String(), "\n"), nil
		}))

	return cr
}
