package chat

import (
	"errors"
	"sync"
	"time"
)

var ErrTurnInProgress = errors.New("a turn is already in progress for this chat")

// TurnTracker allows at most one in-flight turn per chat.
type TurnTracker struct {
	mu     sync.Mutex
	active map[string]time.Time
}

func NewTurnTracker() *TurnTracker {
	return &TurnTracker{active: make(map[string]time.Time)}
}

// Begin claims the chat. The returned release func must be called once the
// turn ends; calling it more than once is harmless.
func (tt *TurnTracker) Begin(chatID string) (func(), error) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if _, busy := tt.active[chatID]; busy {
		return nil, ErrTurnInProgress
	}
	tt.active[chatID] = time.Now()

	var once sync.Once
	return func() {
		once.Do(func() {
			tt.mu.Lock()
			delete(tt.active, chatID)
			tt.mu.Unlock()
		})
	}, nil
}

// Active reports whether a turn is running for the chat.
func (tt *TurnTracker) Active(chatID string) bool {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	_, ok := tt.active[chatID]
	return ok
}

// Since returns when the running turn started, or the zero time.
func (tt *TurnTracker) Since(chatID string) time.Time {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	return tt.active[chatID]
}

// Count returns the number of running turns.
func (tt *TurnTracker) Count() int {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	return len(tt.active)
}
