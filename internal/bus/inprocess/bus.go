package inprocess

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/reactsync/server/internal/bus"
	"github.com/reactsync/server/internal/domain"
)

// Bus delivers typed messages between registered contexts in one process.
// Delivery to an unregistered context fails observably so callers can
// deregister dead targets.
type Bus struct {
	logger   *slog.Logger
	mu       sync.RWMutex
	handlers map[string]bus.Handler
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger:   logger,
		handlers: make(map[string]bus.Handler),
	}
}

func (b *Bus) Register(contextID string, handler bus.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[contextID] = handler
}

func (b *Bus) Unregister(contextID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.handlers, contextID)
}

func (b *Bus) Send(ctx context.Context, sender, target string, msg domain.Message) (domain.Message, error) {
	b.mu.RLock()
	handler, ok := b.handlers[target]
	b.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", bus.ErrContextNotFound, target)
	}

	b.logger.DebugContext(ctx, "bus.Send", "sender", sender, "target", target, "type", msg.MessageType())

	return handler(ctx, sender, msg)
}
