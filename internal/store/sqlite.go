package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db            *sql.DB
	attachmentDir string
}

func NewSQLiteStore(dbPath, attachmentDir string) (*SQLiteStore, error) {
	// Ensure directories exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}
	if err := os.MkdirAll(attachmentDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create attachment directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:            db,
		attachmentDir: attachmentDir,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS chats (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			created_at INTEGER,
			updated_at INTEGER,
			metadata TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER,
			FOREIGN KEY(chat_id) REFERENCES chats(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, id);`,
		`CREATE TABLE IF NOT EXISTS attachments (
			id TEXT PRIMARY KEY,
			chat_id TEXT,
			name TEXT,
			path TEXT,
			mime_type TEXT,
			size INTEGER,
			digest TEXT,
			created_at INTEGER,
			FOREIGN KEY(chat_id) REFERENCES chats(id)
		);`,
		`CREATE TABLE IF NOT EXISTS configuration (
			key TEXT PRIMARY KEY,
			value TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS memories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content TEXT NOT NULL,
			created_at INTEGER
		);`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Configuration Implementation

func (s *SQLiteStore) SetConfig(key, value string) error {
	query := `INSERT INTO configuration (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	_, err := s.db.Exec(query, key, value)
	return err
}

// GetConfig returns an empty string for unknown keys.
func (s *SQLiteStore) GetConfig(key string) (string, error) {
	query := `SELECT value FROM configuration WHERE key = ?`
	row := s.db.QueryRow(query, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

func (s *SQLiteStore) ListConfig() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM configuration ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cfg := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		cfg[k] = v
	}
	return cfg, rows.Err()
}

func (s *SQLiteStore) DeleteConfig(key string) error {
	_, err := s.db.Exec(`DELETE FROM configuration WHERE key = ?`, key)
	return err
}

// Chat Implementation

func (s *SQLiteStore) CreateChat(chat *Chat) error {
	metaJSON, err := json.Marshal(chat.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `INSERT INTO chats (id, title, created_at, updated_at, metadata) VALUES (?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, chat.ID, chat.Title, toMillis(chat.CreatedAt), toMillis(chat.UpdatedAt), string(metaJSON))
	return err
}

func (s *SQLiteStore) GetChat(id string) (*Chat, error) {
	query := `SELECT id, title, created_at, updated_at, metadata FROM chats WHERE id = ?`
	row := s.db.QueryRow(query, id)

	chat, err := scanChat(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("chat %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return chat, nil
}

func (s *SQLiteStore) UpdateChat(chat *Chat) error {
	metaJSON, err := json.Marshal(chat.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	chat.UpdatedAt = time.Now()
	query := `UPDATE chats SET title = ?, updated_at = ?, metadata = ? WHERE id = ?`
	res, err := s.db.Exec(query, chat.Title, toMillis(chat.UpdatedAt), string(metaJSON), chat.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("chat %s: %w", chat.ID, ErrNotFound)
	}
	return nil
}

// ListChats returns chats with the most recent activity first.
func (s *SQLiteStore) ListChats() ([]*Chat, error) {
	rows, err := s.db.Query(`SELECT id, title, created_at, updated_at, metadata FROM chats ORDER BY updated_at DESC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []*Chat
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// DeleteChat removes the chat, its messages and its attachments.
func (s *SQLiteStore) DeleteChat(id string) error {
	attachments, err := s.ListAttachments(id)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE chat_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM attachments WHERE chat_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete attachments: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	for _, a := range attachments {
		_ = os.Remove(filepath.Join(s.attachmentDir, a.Path))
	}
	// Remove refuses non-empty directories.
	_ = os.Remove(filepath.Join(s.attachmentDir, id))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(row rowScanner) (*Chat, error) {
	var chat Chat
	var created, updated int64
	var metaJSON sql.NullString
	if err := row.Scan(&chat.ID, &chat.Title, &created, &updated, &metaJSON); err != nil {
		return nil, err
	}
	chat.CreatedAt = fromMillis(created)
	chat.UpdatedAt = fromMillis(updated)

	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &chat.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &chat, nil
}

// Message Implementation

func (s *SQLiteStore) AppendMessage(msg *Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	query := `INSERT INTO messages (chat_id, role, content, created_at) VALUES (?, ?, ?, ?)`
	res, err := s.db.Exec(query, msg.ChatID, msg.Role, msg.Content, toMillis(msg.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	msg.ID = id

	_, err = s.db.Exec(`UPDATE chats SET updated_at = ? WHERE id = ?`, toMillis(msg.CreatedAt), msg.ChatID)
	return err
}

// ListMessages returns the chat's messages in the order they were appended.
func (s *SQLiteStore) ListMessages(chatID string) ([]*Message, error) {
	rows, err := s.db.Query(`SELECT id, chat_id, role, content, created_at FROM messages WHERE chat_id = ? ORDER BY id`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var m Message
		var created int64
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = fromMillis(created)
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

// Attachment Implementation

func (s *SQLiteStore) SaveAttachment(a *Attachment, content []byte) error {
	// 1. Save content to filesystem
	fullPath := filepath.Join(s.attachmentDir, a.Path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0750); err != nil {
		return fmt.Errorf("failed to create attachment dir: %w", err)
	}
	if err := os.WriteFile(fullPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write attachment content: %w", err)
	}

	// 2. Save metadata to DB
	query := `INSERT INTO attachments (id, chat_id, name, path, mime_type, size, digest, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.Exec(query, a.ID, a.ChatID, a.Name, a.Path, a.MimeType, a.Size, a.Digest, toMillis(a.CreatedAt)); err != nil {
		_ = os.Remove(fullPath)
		return fmt.Errorf("failed to save attachment metadata: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetAttachment(id string) (*Attachment, []byte, error) {
	query := `SELECT id, chat_id, name, path, mime_type, size, digest, created_at FROM attachments WHERE id = ?`
	a, err := scanAttachment(s.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("attachment %s: %w", id, ErrNotFound)
		}
		return nil, nil, err
	}

	fullPath := filepath.Join(s.attachmentDir, a.Path)
	content, err := os.ReadFile(fullPath) // #nosec G304
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read attachment content: %w", err)
	}

	return a, content, nil
}

func (s *SQLiteStore) ListAttachments(chatID string) ([]*Attachment, error) {
	query := `SELECT id, chat_id, name, path, mime_type, size, digest, created_at FROM attachments WHERE chat_id = ? ORDER BY created_at`
	rows, err := s.db.Query(query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []*Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

func scanAttachment(row rowScanner) (*Attachment, error) {
	var a Attachment
	var chatID, name, mime, digest sql.NullString
	var size, created sql.NullInt64
	if err := row.Scan(&a.ID, &chatID, &name, &a.Path, &mime, &size, &digest, &created); err != nil {
		return nil, err
	}
	a.ChatID = chatID.String
	a.Name = name.String
	a.MimeType = mime.String
	a.Size = size.Int64
	a.Digest = digest.String
	a.CreatedAt = fromMillis(created.Int64)
	return &a, nil
}
