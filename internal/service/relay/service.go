package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reactsync/server/internal/bus"
	"github.com/reactsync/server/internal/domain"
	"github.com/reactsync/server/internal/repository/room"
	"github.com/reactsync/server/internal/repository/session"
)

type iRoomRepo interface {
	GetRoom(ctx context.Context, roomID string) (room.Room, error)
	UpsertPlayback(ctx context.Context, params *room.UpsertPlaybackParams) error
	UpdateViewerCount(ctx context.Context, roomID string, count int) error
	Subscribe(ctx context.Context, roomID string, memberID string) (room.Subscription, error)
}

type iSessionRepo interface {
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, values map[string]string) error
	Remove(ctx context.Context, keys ...string) error
	OnChange(fn session.ChangeFunc)
}

type iBus interface {
	Register(contextID string, handler bus.Handler)
	Unregister(contextID string)
	Send(ctx context.Context, sender, target string, msg domain.Message) (domain.Message, error)
}

type Config struct {
	// PresenceThrottle is the minimum gap between viewer count writes.
	// Presence churn between writes is dropped, the next presence event
	// carries the up to date count anyway.
	PresenceThrottle time.Duration
	// Now overrides the wall clock in tests.
	Now func() time.Time
}

func (cfg *Config) withDefaults() Config {
	out := *cfg
	if out.PresenceThrottle == 0 {
		out.PresenceThrottle = 500 * time.Millisecond
	}
	if out.Now == nil {
		out.Now = time.Now
	}

	return out
}

// coordinator is the background context: it relays host playback into the
// room store, fans broadcasts out to registered page contexts and keeps
// the viewer count current.
type coordinator struct {
	roomRepo    iRoomRepo
	sessionRepo iSessionRepo
	bus         iBus
	logger      *slog.Logger
	cfg         Config

	mu        sync.Mutex
	contexts  map[string]struct{}
	roomID    string
	sub       room.Subscription
	lastCount int
	lastWrite time.Time
}

func NewCoordinator(roomRepo iRoomRepo, sessionRepo iSessionRepo, bus iBus, logger *slog.Logger, cfg *Config) *coordinator {
	return &coordinator{
		roomRepo:    roomRepo,
		sessionRepo: sessionRepo,
		bus:         bus,
		logger:      logger,
		cfg:         cfg.withDefaults(),
		contexts:    make(map[string]struct{}),
		lastCount:   -1,
	}
}
