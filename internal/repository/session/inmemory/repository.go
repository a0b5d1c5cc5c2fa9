package inmemory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/reactsync/server/internal/repository/session"
)

type repo struct {
	logger    *slog.Logger
	mu        sync.RWMutex
	values    map[string]string
	observers []session.ChangeFunc
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		logger: logger,
		values: make(map[string]string),
	}
}

// Get returns the requested keys. Absent keys are simply missing from the
// result, mirroring storage semantics, so callers never see ErrKeyNotFound
// from a bulk read.
func (r *repo) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	funcName := "session.inmemory.Get"
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.logger.DebugContext(ctx, funcName, "keys", keys)
	result := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := r.values[key]; ok {
			result[key] = value
		}
	}

	return result, nil
}

func (r *repo) Set(ctx context.Context, values map[string]string) error {
	funcName := "session.inmemory.Set"
	r.mu.Lock()

	r.logger.DebugContext(ctx, funcName, "values", values)
	changed := make(map[string]session.Diff, len(values))
	for key, value := range values {
		old := r.values[key]
		if old == value {
			continue
		}
		r.values[key] = value
		changed[key] = session.Diff{Old: old, New: value}
	}
	r.mu.Unlock()

	r.notify(changed)

	return nil
}

func (r *repo) Remove(ctx context.Context, keys ...string) error {
	funcName := "session.inmemory.Remove"
	r.mu.Lock()

	r.logger.DebugContext(ctx, funcName, "keys", keys)
	changed := make(map[string]session.Diff, len(keys))
	for _, key := range keys {
		old, ok := r.values[key]
		if !ok {
			continue
		}
		delete(r.values, key)
		changed[key] = session.Diff{Old: old}
	}
	r.mu.Unlock()

	r.notify(changed)

	return nil
}

// OnChange registers an observer for future mutations.
func (r *repo) OnChange(fn session.ChangeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.observers = append(r.observers, fn)
}

func (r *repo) notify(changed map[string]session.Diff) {
	if len(changed) == 0 {
		return
	}

	r.mu.RLock()
	observers := make([]session.ChangeFunc, len(r.observers))
	copy(observers, r.observers)
	r.mu.RUnlock()

	for _, fn := range observers {
		fn(changed)
	}
}
