package playback

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/reactsync/server/internal/bus"
	"github.com/reactsync/server/internal/domain"
	"github.com/reactsync/server/internal/provider"
	"github.com/reactsync/server/internal/repository/session"
)

// Start loads the stored role, registers this context on the bus and
// begins searching for a video element.
func (c *controller) Start(ctx context.Context) error {
	values, err := c.sessionRepo.Get(ctx, session.KeyRole)
	if err != nil {
		return fmt.Errorf("failed to load role: %w", err)
	}

	c.mu.Lock()
	c.runCtx = ctx
	c.role = domain.ParseRole(values[session.KeyRole])
	gen := c.generation
	c.mu.Unlock()

	c.bus.Register(c.cfg.ContextID, c.HandleMessage)

	go c.searchLoop(ctx, gen)

	return nil
}

// Stop tears the controller down on page unload. The discovery loop and
// any in-flight metadata extraction are invalidated by the generation
// bump.
func (c *controller) Stop(ctx context.Context) {
	c.mu.Lock()
	c.generation++
	c.video = nil
	c.mu.Unlock()

	if _, err := c.bus.Send(ctx, c.cfg.ContextID, bus.BackgroundContext, domain.UnregisterContent{}); err != nil {
		c.logger.DebugContext(ctx, "failed to unregister content", "error", err)
	}
	c.bus.Unregister(c.cfg.ContextID)
}

// Reset is invoked on in-page navigation to a new video: the binding is
// torn down and discovery starts over against the new page state.
func (c *controller) Reset() {
	c.mu.Lock()
	c.generation++
	c.video = nil
	c.showTitle = ""
	c.episodeTitle = ""
	c.episodeNumber = ""
	gen := c.generation
	ctx := c.runCtx
	c.mu.Unlock()

	c.logger.Info("resetting playback controller")

	if ctx == nil {
		return
	}

	go c.searchLoop(ctx, gen)
}

// searchLoop polls for a usable video element. The loop dies silently when
// its generation is superseded by a reset or stop.
func (c *controller) searchLoop(ctx context.Context, gen int) {
	for {
		interval, done := c.tryBind(ctx, gen)
		if done {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (c *controller) tryBind(ctx context.Context, gen int) (time.Duration, bool) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return 0, true
	}
	c.mu.Unlock()

	video := c.finder.FindVideo()
	if video == nil {
		return c.cfg.SearchInterval, false
	}
	if video.ReadyState() < provider.HaveCurrentData {
		// found but not decodable yet: retry on the short interval
		return c.cfg.NotReadyInterval, false
	}

	metadata, err := c.adapter.Metadata(ctx)
	if err != nil {
		c.logger.InfoContext(ctx, "failed to extract metadata", "error", err)
	}

	c.mu.Lock()
	if gen != c.generation {
		// reset while extracting: discard the late result
		c.mu.Unlock()
		return 0, true
	}
	c.video = video
	c.showTitle = metadata.ShowTitle
	c.episodeTitle = metadata.EpisodeTitle
	c.episodeNumber = metadata.EpisodeNumber
	role := c.role
	c.mu.Unlock()

	video.OnPlaybackEvent(func() {
		c.sendState(ctx)
	})

	if _, err := c.bus.Send(ctx, c.cfg.ContextID, bus.BackgroundContext, domain.RegisterContent{}); err != nil {
		c.logger.InfoContext(ctx, "failed to register content", "error", err)
	}

	// seed a newly created room without waiting for a user action
	if role == domain.RoleHost {
		c.sendState(ctx)
	}

	return 0, true
}

// sendState packages the local playback state and forwards it to the
// relay. Only hosts emit; emissions beyond the suppression cap are
// dropped because the next broadcast carries an eventually consistent
// state anyway.
func (c *controller) sendState(ctx context.Context) {
	c.mu.Lock()
	if c.video == nil || c.role != domain.RoleHost {
		c.mu.Unlock()
		return
	}

	now := c.cfg.Now()
	if now.After(c.suppressUntil) {
		c.suppressCount = 0
		c.suppressUntil = now.Add(c.cfg.SuppressWindow)
	}
	if c.suppressCount >= c.cfg.SuppressLimit {
		c.mu.Unlock()
		c.logger.DebugContext(ctx, "too many playback events, throttling")
		return
	}
	c.suppressCount++

	playState := domain.PlayStatePlaying
	if c.video.Paused() {
		playState = domain.PlayStatePaused
	}
	msg := domain.VideoUpdate{
		PlayState:     playState,
		CurrentTime:   c.video.CurrentTime(),
		VideoID:       c.adapter.VideoID(),
		Provider:      c.adapter.ProviderID(),
		ShowTitle:     c.showTitle,
		EpisodeTitle:  c.episodeTitle,
		EpisodeNumber: c.episodeNumber,
	}
	c.mu.Unlock()

	if _, err := c.bus.Send(ctx, c.cfg.ContextID, bus.BackgroundContext, msg); err != nil {
		c.logger.InfoContext(ctx, "failed to send video update", "error", err)
	}
}

// HandleMessage is this context's bus handler.
func (c *controller) HandleMessage(ctx context.Context, sender string, msg domain.Message) (domain.Message, error) {
	c.mu.Lock()
	bound := c.video != nil
	c.mu.Unlock()

	switch m := msg.(type) {
	case domain.RequestState:
		if !bound {
			return domain.StateResponse{VideoFound: false}, nil
		}
		c.sendState(ctx)
		return domain.StateResponse{VideoFound: true}, nil
	case domain.RoleUpdate:
		c.mu.Lock()
		c.role = m.Role
		c.mu.Unlock()
		return nil, nil
	case domain.SyncUpdate:
		if !bound {
			return nil, nil
		}
		return nil, c.applySync(ctx, m)
	case domain.RoomClosed:
		c.adapter.OnRoomClosed()
		return nil, nil
	}

	c.logger.DebugContext(ctx, "ignoring message not addressed to content", "type", msg.MessageType(), "sender", sender)

	return nil, nil
}

func (c *controller) applySync(ctx context.Context, m domain.SyncUpdate) error {
	c.mu.Lock()
	role := c.role
	video := c.video
	c.mu.Unlock()

	if video == nil {
		return nil
	}

	localVideoID := c.adapter.VideoID()

	if role == domain.RoleHost {
		// hosts never let broadcasts override their playback; only the
		// stored video pointer is refreshed when a redirect moved the
		// room elsewhere
		if m.VideoID != "" && localVideoID != m.VideoID {
			if err := c.sessionRepo.Set(ctx, map[string]string{session.KeyVideoID: m.VideoID}); err != nil {
				return fmt.Errorf("failed to store video id: %w", err)
			}
		}
		return nil
	}

	if (localVideoID != m.VideoID || c.adapter.ProviderID() != m.Provider) &&
		m.VideoID != "" && m.VideoID != domain.DebugVideoID {
		// the room moved to different content: follow it instead of
		// seeking the wrong video
		if err := c.sessionRepo.Set(ctx, map[string]string{
			session.KeyVideoID:  m.VideoID,
			session.KeyProvider: string(m.Provider),
		}); err != nil {
			return fmt.Errorf("failed to store video pointer: %w", err)
		}

		target := domain.SyncTarget(m.State, m.Time, m.UpdatedAt, c.cfg.Now())
		c.adapter.OnSyncMismatch(m.Provider.WatchURL(m.VideoID, int(target)))

		return nil
	}

	target := domain.SyncTarget(m.State, m.Time, m.UpdatedAt, c.cfg.Now())
	// netflix's player handles forced seeks unreliably across reload
	// boundaries, so time correction is suppressed there entirely
	if math.Abs(video.CurrentTime()-target) > c.cfg.SeekTolerance && m.Provider != domain.ProviderNetflix {
		video.SeekTo(target)
	}

	switch m.State {
	case domain.PlayStatePlaying:
		video.Play()
	case domain.PlayStatePaused:
		video.Pause()
	case domain.PlayStateSkip:
		video.SeekTo(m.Time)
	}

	return nil
}
