package workspace

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is the user-visible outcome of an operation.
type Notification struct {
	ID          string    `json:"id"`
	Level       Level     `json:"level"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

const DefaultInboxSize = 50

// Inbox keeps the most recent notifications of one session until they are drained.
type Inbox struct {
	mu    sync.Mutex
	items []Notification
	size  int
	log   *zap.Logger
}

func NewInbox(size int, log *zap.Logger) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Inbox{size: size, log: log}
}

func (i *Inbox) Notify(_ context.Context, n Notification) {
	i.mu.Lock()
	i.items = append(i.items, n)
	if overflow := len(i.items) - i.size; overflow > 0 {
		i.items = append([]Notification(nil), i.items[overflow:]...)
	}
	i.mu.Unlock()

	fields := []zap.Field{
		zap.String("notification_id", n.ID),
		zap.String("title", n.Title),
		zap.String("description", n.Description),
	}
	if n.Level == LevelError {
		i.log.Warn("notification", fields...)
		return
	}
	i.log.Info("notification", fields...)
}

// Drain returns pending notifications oldest first and empties the inbox.
func (i *Inbox) Drain() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.items
	i.items = nil
	if out == nil {
		return []Notification{}
	}
	return out
}

func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.items)
}
