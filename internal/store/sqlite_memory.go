package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/felixgeelhaar/recall/internal/memory"
)

func (s *SQLiteStore) AddMemory(ctx context.Context, content string) (memory.Item, error) {
	content, err := memory.Normalize(content)
	if err != nil {
		return memory.Item{}, err
	}

	now := time.Now()
	res, err := s.db.ExecContext(ctx, `INSERT INTO memories (content, created_at) VALUES (?, ?)`, content, toMillis(now))
	if err != nil {
		return memory.Item{}, fmt.Errorf("failed to store memory: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return memory.Item{}, err
	}

	return memory.Item{
		ID:        strconv.FormatInt(id, 10),
		Content:   content,
		CreatedAt: fromMillis(toMillis(now)),
	}, nil
}

// ListMemories returns memories in insertion order, which the ranker reads
// as recency.
func (s *SQLiteStore) ListMemories(ctx context.Context) ([]memory.Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, content, created_at FROM memories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []memory.Item
	for rows.Next() {
		var id, created int64
		var content string
		if err := rows.Scan(&id, &content, &created); err != nil {
			return nil, err
		}
		items = append(items, memory.Item{
			ID:        strconv.FormatInt(id, 10),
			Content:   content,
			CreatedAt: fromMillis(created),
		})
	}
	return items, rows.Err()
}

func (s *SQLiteStore) DeleteMemory(ctx context.Context, id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s", memory.ErrMemoryNotFound, id)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, n)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: %s", memory.ErrMemoryNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) ClearMemories(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memories`); err != nil {
		return fmt.Errorf("failed to clear memories: %w", err)
	}
	return nil
}
