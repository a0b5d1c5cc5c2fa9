package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/reactsync/server/internal/bus"
	"github.com/reactsync/server/internal/domain"
	"github.com/reactsync/server/internal/repository/room"
	"github.com/reactsync/server/internal/repository/session"
)

// Start registers the coordinator as the background bus context and, when
// a room id is already stored, resumes its subscription. Later room id
// changes are picked up through the session change feed.
func (c *coordinator) Start(ctx context.Context) error {
	values, err := c.sessionRepo.Get(ctx, session.KeyRoomID)
	if err != nil {
		return fmt.Errorf("failed to load room id: %w", err)
	}

	c.bus.Register(bus.BackgroundContext, c.HandleMessage)

	c.sessionRepo.OnChange(func(changed map[string]session.Diff) {
		diff, ok := changed[session.KeyRoomID]
		if !ok {
			return
		}
		if err := c.resubscribe(ctx, diff.New); err != nil {
			c.logger.InfoContext(ctx, "failed to resubscribe", "room_id", diff.New, "error", err)
		}
	})

	if roomID := values[session.KeyRoomID]; roomID != "" {
		if err := c.resubscribe(ctx, roomID); err != nil {
			return fmt.Errorf("failed to subscribe to room: %w", err)
		}
	}

	return nil
}

func (c *coordinator) Stop() {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.roomID = ""
	c.mu.Unlock()

	if sub != nil {
		if err := sub.Close(); err != nil {
			c.logger.Debug("failed to close subscription", "error", err)
		}
	}
	c.bus.Unregister(bus.BackgroundContext)
}

// resubscribe swaps the active room subscription. An empty room id leaves
// the coordinator unsubscribed.
func (c *coordinator) resubscribe(ctx context.Context, roomID string) error {
	c.mu.Lock()
	if c.roomID == roomID {
		c.mu.Unlock()
		return nil
	}
	old := c.sub
	c.sub = nil
	c.roomID = roomID
	c.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			c.logger.DebugContext(ctx, "failed to close subscription", "error", err)
		}
	}

	if roomID == "" {
		return nil
	}

	values, err := c.sessionRepo.Get(ctx, session.KeyUserID)
	if err != nil {
		return fmt.Errorf("failed to load user id: %w", err)
	}

	sub, err := c.roomRepo.Subscribe(ctx, roomID, values[session.KeyUserID])
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	c.mu.Lock()
	if c.roomID != roomID {
		// a concurrent room switch won the race
		c.mu.Unlock()
		return sub.Close()
	}
	c.sub = sub
	c.mu.Unlock()

	go c.pump(ctx, sub, roomID)

	return nil
}

func (c *coordinator) pump(ctx context.Context, sub room.Subscription, roomID string) {
	for event := range sub.Events() {
		switch event.Kind {
		case room.EventUpdate:
			c.handleUpdate(ctx, event)
		case room.EventDelete:
			c.handleDelete(ctx, event, roomID)
		case room.EventPresence:
			c.handlePresence(ctx, event, roomID)
		}
	}
}

func (c *coordinator) handleUpdate(ctx context.Context, event room.Event) {
	if event.New == nil {
		return
	}

	changed := room.ChangedFields(event.Old, event.New)
	if len(changed) == 1 && changed[0] == "viewer_count" {
		// a bare count change must not nudge anyone's playback
		c.logger.DebugContext(ctx, "suppressing viewer count update", "room_id", event.RoomID)
		return
	}

	c.broadcast(ctx, syncUpdateFromRoom(*event.New))
}

func (c *coordinator) handleDelete(ctx context.Context, event room.Event, roomID string) {
	c.logger.InfoContext(ctx, "room deleted", "room_id", roomID)

	// dropping the stored room id also tears this subscription down
	// through the session change feed
	if err := c.sessionRepo.Remove(ctx,
		session.KeyRoomID, session.KeyRole, session.KeyVideoID, session.KeyProvider,
	); err != nil {
		c.logger.InfoContext(ctx, "failed to clear session", "error", err)
	}

	c.broadcast(ctx, domain.RoomClosed{RoomID: roomID})
}

// handlePresence turns membership churn into viewer count writes. Only the
// host writes, and at most one write per throttle interval; a dropped
// event is made up for by the next one because counts are absolute.
func (c *coordinator) handlePresence(ctx context.Context, event room.Event, roomID string) {
	values, err := c.sessionRepo.Get(ctx, session.KeyRole)
	if err != nil {
		c.logger.InfoContext(ctx, "failed to load role", "error", err)
		return
	}
	if domain.ParseRole(values[session.KeyRole]) != domain.RoleHost {
		return
	}

	now := c.cfg.Now()

	c.mu.Lock()
	if event.Members == c.lastCount {
		c.mu.Unlock()
		return
	}
	if !c.lastWrite.IsZero() && now.Sub(c.lastWrite) < c.cfg.PresenceThrottle {
		c.mu.Unlock()
		c.logger.DebugContext(ctx, "throttling viewer count write", "room_id", roomID)
		return
	}
	c.lastCount = event.Members
	c.lastWrite = now
	c.mu.Unlock()

	if err := c.roomRepo.UpdateViewerCount(ctx, roomID, event.Members); err != nil {
		c.logger.InfoContext(ctx, "failed to update viewer count", "room_id", roomID, "error", err)
	}
}

// HandleMessage is the background context's bus handler.
func (c *coordinator) HandleMessage(ctx context.Context, sender string, msg domain.Message) (domain.Message, error) {
	switch m := msg.(type) {
	case domain.RegisterContent:
		return nil, c.registerContent(ctx, sender)
	case domain.UnregisterContent:
		c.mu.Lock()
		delete(c.contexts, sender)
		c.mu.Unlock()
		return nil, nil
	case domain.VideoUpdate:
		return nil, c.storePlayback(ctx, m)
	}

	c.logger.DebugContext(ctx, "ignoring message not addressed to background", "type", msg.MessageType(), "sender", sender)

	return nil, nil
}

// registerContent admits a page context to the broadcast set and replays
// the current room state to it, so a script injected mid-session syncs
// without waiting for the next broadcast.
func (c *coordinator) registerContent(ctx context.Context, sender string) error {
	c.mu.Lock()
	c.contexts[sender] = struct{}{}
	roomID := c.roomID
	c.mu.Unlock()

	values, err := c.sessionRepo.Get(ctx, session.KeyRole)
	if err != nil {
		return fmt.Errorf("failed to load role: %w", err)
	}
	role := domain.ParseRole(values[session.KeyRole])

	if _, err := c.bus.Send(ctx, bus.BackgroundContext, sender, domain.RoleUpdate{Role: role}); err != nil {
		c.logger.InfoContext(ctx, "failed to send role", "context_id", sender, "error", err)
	}

	if roomID == "" {
		return nil
	}

	rm, err := c.roomRepo.GetRoom(ctx, roomID)
	if errors.Is(err, room.ErrRoomNotFound) {
		// the room died while no coordinator was watching it
		c.logger.InfoContext(ctx, "stored room no longer exists", "room_id", roomID)
		return c.sessionRepo.Remove(ctx,
			session.KeyRoomID, session.KeyRole, session.KeyVideoID, session.KeyProvider,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to load room: %w", err)
	}

	if _, err := c.bus.Send(ctx, bus.BackgroundContext, sender, syncUpdateFromRoom(rm)); err != nil {
		c.logger.InfoContext(ctx, "failed to replay state", "context_id", sender, "error", err)
	}

	return nil
}

// storePlayback persists a host emission, stamping the write time so
// audience members can compensate for broadcast age.
func (c *coordinator) storePlayback(ctx context.Context, m domain.VideoUpdate) error {
	c.mu.Lock()
	roomID := c.roomID
	c.mu.Unlock()

	if roomID == "" {
		c.logger.DebugContext(ctx, "dropping video update without a room")
		return nil
	}

	err := c.roomRepo.UpsertPlayback(ctx, &room.UpsertPlaybackParams{
		RoomID:        roomID,
		PlayState:     string(m.PlayState),
		CurrentTime:   m.CurrentTime,
		VideoID:       m.VideoID,
		Provider:      string(m.Provider),
		ShowTitle:     m.ShowTitle,
		EpisodeTitle:  m.EpisodeTitle,
		EpisodeNumber: m.EpisodeNumber,
		UpdatedAt:     c.cfg.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to store playback: %w", err)
	}

	return nil
}

func (c *coordinator) broadcast(ctx context.Context, msg domain.Message) {
	c.mu.Lock()
	targets := make([]string, 0, len(c.contexts))
	for id := range c.contexts {
		targets = append(targets, id)
	}
	c.mu.Unlock()

	for _, id := range targets {
		if _, err := c.bus.Send(ctx, bus.BackgroundContext, id, msg); err != nil {
			if errors.Is(err, bus.ErrContextNotFound) {
				// the page context died without unregistering
				c.mu.Lock()
				delete(c.contexts, id)
				c.mu.Unlock()
				continue
			}
			c.logger.InfoContext(ctx, "failed to deliver broadcast", "context_id", id, "error", err)
		}
	}
}

func syncUpdateFromRoom(rm room.Room) domain.SyncUpdate {
	return domain.SyncUpdate{
		State:         domain.PlayState(rm.PlayState),
		Time:          rm.CurrentTime,
		VideoID:       rm.VideoID,
		Provider:      domain.Provider(rm.Provider),
		ShowTitle:     rm.ShowTitle,
		EpisodeTitle:  rm.EpisodeTitle,
		EpisodeNumber: rm.EpisodeNumber,
		UpdatedAt:     rm.UpdatedAt,
		ViewerCount:   rm.ViewerCount,
	}
}
