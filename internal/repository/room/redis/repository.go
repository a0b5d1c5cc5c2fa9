package redis

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type repo struct {
	rc             *redis.Client
	logger         *slog.Logger
	expireDuration time.Duration
}

func NewRepo(rc *redis.Client, logger *slog.Logger, expireDuration time.Duration) *repo {
	return &repo{
		rc:             rc,
		logger:         logger,
		expireDuration: expireDuration,
	}
}

func (r repo) getRoomKey(roomID string) string {
	return "room:" + roomID
}

func (r repo) getEventsKey(roomID string) string {
	return "room:" + roomID + ":events"
}

func (r repo) getPresenceKey(roomID string) string {
	return "room:" + roomID + ":presence"
}
