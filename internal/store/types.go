package store

import (
	"errors"
	"time"

	"github.com/felixgeelhaar/recall/internal/memory"
)

var ErrNotFound = errors.New("not found")

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chat is one conversation thread.
type Chat struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Metadata  map[string]string
}

// Message is a single turn within a chat.
type Message struct {
	ID        int64
	ChatID    string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Attachment is a file the user attached to a chat turn.
type Attachment struct {
	ID        string
	ChatID    string
	Name      string // Original base name
	Path      string // Relative path in the attachment store
	MimeType  string
	Size      int64
	Digest    string // sha256 of the content
	CreatedAt time.Time
}

// Storage defines the interface for persistence
type Storage interface {
	CreateChat(chat *Chat) error
	GetChat(id string) (*Chat, error)
	UpdateChat(chat *Chat) error
	ListChats() ([]*Chat, error)
	DeleteChat(id string) error

	AppendMessage(msg *Message) error
	ListMessages(chatID string) ([]*Message, error)

	// SaveAttachment persists the metadata and the content
	SaveAttachment(a *Attachment, content []byte) error
	GetAttachment(id string) (*Attachment, []byte, error)
	ListAttachments(chatID string) ([]*Attachment, error)

	SetConfig(key, value string) error
	GetConfig(key string) (string, error)
	ListConfig() (map[string]string, error)
	DeleteConfig(key string) error

	memory.Source

	Close() error
}
