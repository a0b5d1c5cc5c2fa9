package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reactsync/server/internal/bus"
	"github.com/reactsync/server/internal/domain"
	"github.com/reactsync/server/internal/provider"
)

type iSessionRepo interface {
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, values map[string]string) error
}

type iBus interface {
	Register(contextID string, handler bus.Handler)
	Unregister(contextID string)
	Send(ctx context.Context, sender, target string, msg domain.Message) (domain.Message, error)
}

type Config struct {
	// ContextID identifies this page context on the message bus.
	ContextID string
	// SearchInterval is the retry interval while no video element exists.
	SearchInterval time.Duration
	// NotReadyInterval is the shorter retry used when a video element
	// exists but is not yet decodable. Treating such an element as ready
	// would cause an immediate bogus seek or play.
	NotReadyInterval time.Duration
	// SuppressLimit caps outbound state emissions per rolling window;
	// events beyond it are dropped, never queued.
	SuppressLimit  int
	SuppressWindow time.Duration
	// SeekTolerance is the drift, in seconds, tolerated before an
	// audience member seeks.
	SeekTolerance float64
	// Now overrides the wall clock in tests.
	Now func() time.Time
}

func (cfg *Config) withDefaults() Config {
	out := *cfg
	if out.SearchInterval == 0 {
		out.SearchInterval = time.Second
	}
	if out.NotReadyInterval == 0 {
		out.NotReadyInterval = 200 * time.Millisecond
	}
	if out.SuppressLimit == 0 {
		out.SuppressLimit = 3
	}
	if out.SuppressWindow == 0 {
		out.SuppressWindow = time.Second
	}
	if out.SeekTolerance == 0 {
		out.SeekTolerance = 5
	}
	if out.Now == nil {
		out.Now = time.Now
	}

	return out
}

// controller owns one page context's video element and reconciles it
// against the shared room state. It is searching until a usable video is
// found, then bound; a reset returns it to searching.
type controller struct {
	adapter     provider.Adapter
	finder      provider.Finder
	sessionRepo iSessionRepo
	bus         iBus
	logger      *slog.Logger
	cfg         Config

	mu         sync.Mutex
	generation int
	runCtx     context.Context
	video      provider.Video
	role       domain.Role

	showTitle     string
	episodeTitle  string
	episodeNumber string

	suppressCount int
	suppressUntil time.Time
}

func NewController(adapter provider.Adapter, finder provider.Finder, sessionRepo iSessionRepo, bus iBus, logger *slog.Logger, cfg *Config) *controller {
	return &controller{
		adapter:     adapter,
		finder:      finder,
		sessionRepo: sessionRepo,
		bus:         bus,
		logger:      logger,
		cfg:         cfg.withDefaults(),
	}
}
