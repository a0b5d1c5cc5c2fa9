package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/reactsync/server/internal/domain"
	"github.com/reactsync/server/internal/repository/room"
)

var (
	ErrHostAlreadyExists = errors.New("room already has a host")
	ErrNotInRoom         = errors.New("not in a room")
)

const roomIDLength = 6

type iRoomRepo interface {
	CreateRoom(ctx context.Context, params *room.CreateRoomParams) error
	GetRoom(ctx context.Context, roomID string) (room.Room, error)
	SetHost(ctx context.Context, roomID string, hostID string) error
	DeleteRoom(ctx context.Context, roomID string) error
}

type iSessionRepo interface {
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, values map[string]string) error
	Remove(ctx context.Context, keys ...string) error
}

type iBus interface {
	Send(ctx context.Context, sender, target string, msg domain.Message) (domain.Message, error)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

// service drives the room lifecycle on behalf of the popup: creating,
// joining, leaving and closing rooms, plus host handover.
type service struct {
	roomRepo    iRoomRepo
	sessionRepo iSessionRepo
	bus         iBus
	generator   iGenerator
	logger      *slog.Logger
}

func NewService(roomRepo iRoomRepo, sessionRepo iSessionRepo, b iBus, generator iGenerator, logger *slog.Logger) *service {
	return &service{
		roomRepo:    roomRepo,
		sessionRepo: sessionRepo,
		bus:         b,
		generator:   generator,
		logger:      logger,
	}
}

type CreateRoomParams struct {
	// ContentID is the bus id of the active tab's page context, probed
	// for a playable video after the room is set up. Empty when no tab
	// is active.
	ContentID string
}

type CreateRoomResponse struct {
	RoomID     string
	VideoFound bool
}

type JoinRoomParams struct {
	RoomID    string
	ContentID string
}

type JoinRoomResponse struct {
	Role        domain.Role
	ViewerCount int
}
