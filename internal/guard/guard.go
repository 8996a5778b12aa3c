package guard

import (
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
)

// Policy defines the limits applied to a chat turn.
type Policy struct {
	MaxHistoryMessages int      `json:"max_history_messages" yaml:"max_history_messages"`
	MaxMessageChars    int      `json:"max_message_chars" yaml:"max_message_chars"`
	MaxAttachments     int      `json:"max_attachments" yaml:"max_attachments"`
	MaxAttachmentBytes int64    `json:"max_attachment_bytes" yaml:"max_attachment_bytes"`
	AllowedFileGlobs   []string `json:"allowed_file_globs" yaml:"allowed_file_globs"`
	BlockedFileGlobs   []string `json:"blocked_file_globs" yaml:"blocked_file_globs"`
}

// DefaultPolicy provides safe defaults.
var DefaultPolicy = Policy{
	MaxHistoryMessages: 40,
	MaxMessageChars:    32000,
	MaxAttachments:     5,
	MaxAttachmentBytes: 512 * 1024,
	AllowedFileGlobs:   []string{"**"},
	BlockedFileGlobs:   []string{"**/.env", "**/*.pem", "**/id_rsa*"},
}

// Violation represents a specific breach of policy.
type Violation struct {
	Rule    string
	Message string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("guard violation (%s): %s", v.Rule, v.Message)
}

// Guard enforces the policy.
type Guard struct {
	policy Policy
}

func New(p Policy) *Guard {
	return &Guard{policy: p}
}

// Policy returns the guard's current policy configuration.
func (g *Guard) Policy() Policy {
	return g.policy
}

// CheckFile verifies that a path matches an allowed glob and no blocked one.
// Paths are matched in slash form so patterns behave the same on every OS.
func (g *Guard) CheckFile(path string) *Violation {
	p := filepath.ToSlash(filepath.Clean(path))

	for _, pattern := range g.policy.BlockedFileGlobs {
		if match(pattern, p) {
			return &Violation{Rule: "blocked_file_globs", Message: "File access blocked: " + path}
		}
	}

	if len(g.policy.AllowedFileGlobs) == 0 {
		return nil
	}
	for _, pattern := range g.policy.AllowedFileGlobs {
		if match(pattern, p) {
			return nil
		}
	}
	return &Violation{Rule: "allowed_file_globs", Message: "File access not allowed: " + path}
}

// match also tries the base name so "*.md" style patterns work for nested paths.
func match(pattern, path string) bool {
	if ok, err := doublestar.Match(pattern, path); err == nil && ok {
		return true
	}
	ok, err := doublestar.Match(pattern, filepath.Base(path))
	return err == nil && ok
}

// CheckAttachment verifies the file and its size.
func (g *Guard) CheckAttachment(path string, size int64) *Violation {
	if v := g.CheckFile(path); v != nil {
		return v
	}
	if g.policy.MaxAttachmentBytes > 0 && size > g.policy.MaxAttachmentBytes {
		return &Violation{
			Rule:    "max_attachment_bytes",
			Message: fmt.Sprintf("%s is %d bytes, limit is %d", path, size, g.policy.MaxAttachmentBytes),
		}
	}
	return nil
}

// CheckAttachmentCount verifies how many files a single turn carries.
func (g *Guard) CheckAttachmentCount(n int) *Violation {
	if g.policy.MaxAttachments > 0 && n > g.policy.MaxAttachments {
		return &Violation{
			Rule:    "max_attachments",
			Message: fmt.Sprintf("%d attachments, limit is %d", n, g.policy.MaxAttachments),
		}
	}
	return nil
}

// CheckMessage verifies the length of a user message in characters.
func (g *Guard) CheckMessage(text string) *Violation {
	if g.policy.MaxMessageChars <= 0 {
		return nil
	}
	if n := utf8.RuneCountInString(text); n > g.policy.MaxMessageChars {
		return &Violation{
			Rule:    "max_message_chars",
			Message: fmt.Sprintf("message is %d characters, limit is %d", n, g.policy.MaxMessageChars),
		}
	}
	return nil
}

// HistoryWindow returns the index of the first message to send when the
// history holds n messages.
func (g *Guard) HistoryWindow(n int) int {
	if g.policy.MaxHistoryMessages <= 0 || n <= g.policy.MaxHistoryMessages {
		return 0
	}
	return n - g.policy.MaxHistoryMessages
}
