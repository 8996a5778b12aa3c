package attach

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/recall/internal/guard"
	"github.com/felixgeelhaar/recall/internal/store"
)

// DefaultPreviewChars bounds how much of a file is placed in a prompt.
const DefaultPreviewChars = 8000

var ErrBinaryContent = errors.New("attachment is not text")

// Ingestor checks, stores and previews files attached to a chat turn.
type Ingestor struct {
	store        store.Storage
	guard        *guard.Guard
	PreviewChars int
}

func NewIngestor(s store.Storage, g *guard.Guard) *Ingestor {
	return &Ingestor{store: s, guard: g, PreviewChars: DefaultPreviewChars}
}

// Preview is the prompt-facing view of an ingested attachment.
type Preview struct {
	AttachmentID string
	Name         string
	MimeType     string
	Digest       string
	Size         int64
	Text         string
	Truncated    bool
}

// Context renders the block appended to the user message.
func (p Preview) Context() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- Attached file: %s (%s, %d bytes) ---\n", p.Name, p.MimeType, p.Size)
	sb.WriteString(p.Text)
	if !strings.HasSuffix(p.Text, "\n") {
		sb.WriteString("\n")
	}
	if p.Truncated {
		sb.WriteString("[... truncated ...]\n")
	}
	fmt.Fprintf(&sb, "--- End of %s ---", p.Name)
	return sb.String()
}

// Ingest processes every path in order and stops at the first failure.
// Files stored before the failure stay attached to the chat.
func (in *Ingestor) Ingest(ctx context.Context, chatID string, paths []string) ([]Preview, error) {
	if v := in.guard.CheckAttachmentCount(len(paths)); v != nil {
		return nil, v
	}

	previews := make([]Preview, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return previews, err
		}
		p, err := in.ingestOne(chatID, path)
		if err != nil {
			return previews, fmt.Errorf("failed to attach %s: %w", path, err)
		}
		previews = append(previews, p)
	}
	return previews, nil
}

func (in *Ingestor) ingestOne(chatID, path string) (Preview, error) {
	if v := in.guard.CheckFile(path); v != nil {
		return Preview{}, v
	}

	info, err := os.Stat(path)
	if err != nil {
		return Preview{}, err
	}
	if info.IsDir() {
		return Preview{}, fmt.Errorf("%s is a directory", path)
	}
	if v := in.guard.CheckAttachment(path, info.Size()); v != nil {
		return Preview{}, v
	}

	content, err := os.ReadFile(path) // #nosec G304 -- path checked by guard
	if err != nil {
		return Preview{}, err
	}

	detected := mimetype.Detect(content)
	if !isText(detected, content) {
		return Preview{}, ErrBinaryContent
	}

	sum := sha256.Sum256(content)
	id := uuid.NewString()
	name := filepath.Base(path)
	a := &store.Attachment{
		ID:        id,
		ChatID:    chatID,
		Name:      name,
		Path:      filepath.Join(chatID, id+"_"+name),
		MimeType:  detected.String(),
		Size:      int64(len(content)),
		Digest:    hex.EncodeToString(sum[:]),
		CreatedAt: time.Now(),
	}
	if err := in.store.SaveAttachment(a, content); err != nil {
		return Preview{}, fmt.Errorf("failed to save attachment: %w", err)
	}

	text, truncated := truncate(string(content), in.PreviewChars)
	return Preview{
		AttachmentID: a.ID,
		Name:         a.Name,
		MimeType:     a.MimeType,
		Digest:       a.Digest,
		Size:         a.Size,
		Text:         text,
		Truncated:    truncated,
	}, nil
}

// isText accepts UTF-8 content whose detected type descends from text/plain,
// which covers JSON, CSV, XML and HTML as well as plain text.
func isText(m *mimetype.MIME, content []byte) bool {
	if !utf8.Valid(content) {
		return false
	}
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:limit]), true
}
