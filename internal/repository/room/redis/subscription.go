package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/reactsync/server/internal/repository/room"
)

type subscription struct {
	repo      repo
	roomID    string
	memberID  string
	pubsub    *redis.PubSub
	events    chan room.Event
	closeOnce sync.Once
	closeErr  error
}

// Subscribe opens the change feed for one room and joins its presence set.
// Every member of the presence set, the subscriber included, is counted in
// the presence events the join and leave produce.
func (r repo) Subscribe(ctx context.Context, roomID string, memberID string) (room.Subscription, error) {
	funcName := "room.redis.Subscribe"
	r.logger.DebugContext(ctx, funcName, "roomID", roomID, "memberID", memberID)

	pubsub := r.rc.Subscribe(ctx, r.getEventsKey(roomID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to room events: %w", err)
	}

	sub := &subscription{
		repo:     r,
		roomID:   roomID,
		memberID: memberID,
		pubsub:   pubsub,
		events:   make(chan room.Event, 16),
	}

	go sub.pump()

	if err := r.announcePresence(ctx, roomID, memberID, true); err != nil {
		sub.Close()
		return nil, err
	}

	return sub, nil
}

func (r repo) announcePresence(ctx context.Context, roomID, memberID string, joined bool) error {
	presenceKey := r.getPresenceKey(roomID)

	var err error
	if joined {
		err = r.rc.SAdd(ctx, presenceKey, memberID).Err()
	} else {
		err = r.rc.SRem(ctx, presenceKey, memberID).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to update presence set: %w", err)
	}
	r.rc.Expire(ctx, presenceKey, r.expireDuration)

	count, err := r.rc.SCard(ctx, presenceKey).Result()
	if err != nil {
		return fmt.Errorf("failed to count presence set: %w", err)
	}

	return r.publishEvent(ctx, roomID, &room.Event{
		Kind:    room.EventPresence,
		RoomID:  roomID,
		Members: int(count),
	})
}

func (s *subscription) pump() {
	defer close(s.events)

	for msg := range s.pubsub.Channel() {
		var event room.Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			s.repo.logger.Warn("room.redis.subscription: dropping malformed event", "error", err)
			continue
		}

		s.events <- event
	}
}

func (s *subscription) Events() <-chan room.Event {
	return s.events
}

func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		ctx := context.Background()
		if err := s.repo.announcePresence(ctx, s.roomID, s.memberID, false); err != nil {
			s.closeErr = err
		}
		if err := s.pubsub.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})

	return s.closeErr
}
