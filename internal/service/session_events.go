package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/etp-gateway/internal/models"
)

// SessionEvents fans session changes out to in-process subscribers.
type SessionEvents struct {
	mu     sync.RWMutex
	subs   map[uint64]chan models.SessionEvent
	next   uint64
	buffer int
	logger *zap.Logger
}

// NewSessionEvents constructs an event hub whose subscriber channels hold
// up to buffer pending events.
func NewSessionEvents(buffer int, logger *zap.Logger) *SessionEvents {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionEvents{subs: make(map[uint64]chan models.SessionEvent), buffer: buffer, logger: logger}
}

// Subscribe registers a listener. The returned function releases it and
// closes the channel; cancelling ctx does the same.
func (e *SessionEvents) Subscribe(ctx context.Context) (<-chan models.SessionEvent, func()) {
	ch := make(chan models.SessionEvent, e.buffer)

	e.mu.Lock()
	id := e.next
	e.next++
	e.subs[id] = ch
	e.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	return ch, unsubscribe
}

// Publish delivers evt to every subscriber without blocking. Subscribers
// whose buffer is full miss the event.
func (e *SessionEvents) Publish(evt models.SessionEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for id, ch := range e.subs {
		select {
		case ch <- evt:
		default:
			e.logger.Warn("session event dropped",
				zap.Uint64("subscriber", id),
				zap.String("type", string(evt.Type)),
				zap.String("identity", evt.Identity))
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (e *SessionEvents) Subscribers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}
