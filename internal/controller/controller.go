package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reactsync/server/internal/bus"
	"github.com/reactsync/server/internal/domain"
	"github.com/reactsync/server/internal/service/session"
	"github.com/reactsync/server/pkg/validator"
)

type iSessionService interface {
	EnsureUser(ctx context.Context) (string, error)
	CreateRoom(ctx context.Context, params *session.CreateRoomParams) (session.CreateRoomResponse, error)
	JoinRoom(ctx context.Context, params *session.JoinRoomParams) (session.JoinRoomResponse, error)
	ClaimHost(ctx context.Context) error
	ReleaseHost(ctx context.Context) error
	LeaveRoom(ctx context.Context) error
	CloseRoom(ctx context.Context) error
}

type iBus interface {
	Register(contextID string, handler bus.Handler)
	Unregister(contextID string)
	Send(ctx context.Context, sender, target string, msg domain.Message) (domain.Message, error)
}

// stateReplyTimeout bounds how long a state probe waits for the page
// context on the other end of the socket.
const stateReplyTimeout = 2 * time.Second

type controller struct {
	sessionService iSessionService
	bus            iBus
	upgrader       websocket.Upgrader
	validate       *validator.Validator
	logger         *slog.Logger
}

func NewController(sessionService iSessionService, b iBus, logger *slog.Logger) *controller {
	return &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		sessionService: sessionService,
		bus:            b,
		validate:       validator.NewValidator(),
		logger:         logger,
	}
}
