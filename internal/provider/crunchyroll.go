package provider

import (
	"context"
	"sync"

	"github.com/reactsync/server/internal/domain"
)

// crunchyroll is the child-side adapter running inside the isolated player
// iframe. Content identity lives on the parent page, so metadata is fetched
// over the frame channel: the child posts request-video-id and the parent
// answers with video-id.
type crunchyroll struct {
	frame FrameMessenger

	mu       sync.Mutex
	meta     domain.Metadata
	received bool
	// pending holds callers that asked before the first answer arrived.
	// At most one metadata request is assumed to be outstanding; all
	// queued callers resolve from the same eventual answer, which holds
	// because metadata does not vary per caller.
	pending []chan domain.Metadata
	resetFn func()
}

func NewCrunchyroll(frame FrameMessenger) *crunchyroll {
	c := &crunchyroll{frame: frame}
	frame.OnMessage(c.handleFrameMessage)

	return c
}

// OnReset registers the hook invoked when the parent page detects an
// in-page navigation and tells this frame to rebind.
func (c *crunchyroll) OnReset(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetFn = fn
}

func (c *crunchyroll) handleFrameMessage(msg FrameMessage) {
	switch msg.Type {
	case frameVideoID:
		c.mu.Lock()
		c.meta = domain.Metadata{
			VideoID:       msg.VideoID,
			ShowTitle:     msg.ShowTitle,
			EpisodeTitle:  msg.EpisodeTitle,
			EpisodeNumber: msg.EpisodeNumber,
		}
		c.received = true
		pending := c.pending
		c.pending = nil
		meta := c.meta
		c.mu.Unlock()

		for _, ch := range pending {
			ch <- meta
		}
	case frameReset:
		c.mu.Lock()
		c.meta = domain.Metadata{}
		c.received = false
		fn := c.resetFn
		c.mu.Unlock()

		if fn != nil {
			fn()
		}
	}
}

func (c *crunchyroll) ProviderID() domain.Provider {
	return domain.ProviderCrunchyroll
}

func (c *crunchyroll) VideoID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.meta.VideoID
}

// Metadata resolves immediately from cache after the first answer;
// earlier callers queue until the parent responds.
func (c *crunchyroll) Metadata(ctx context.Context) (domain.Metadata, error) {
	c.mu.Lock()
	if c.received {
		meta := c.meta
		c.mu.Unlock()
		return meta, nil
	}

	ch := make(chan domain.Metadata, 1)
	c.pending = append(c.pending, ch)
	c.mu.Unlock()

	if err := c.frame.Post(FrameMessage{Type: frameRequestVideoID}); err != nil {
		return domain.Metadata{}, err
	}

	select {
	case meta := <-ch:
		return meta, nil
	case <-ctx.Done():
		return domain.Metadata{}, ctx.Err()
	}
}

func (c *crunchyroll) OnSyncMismatch(redirectURL string) {
	c.frame.Post(FrameMessage{
		Type:     frameNavigate,
		VideoURL: redirectURL,
		VideoID:  c.VideoID(),
	})
}

func (c *crunchyroll) OnRoomClosed() {
	c.frame.Post(FrameMessage{Type: frameRoomClosed})
}
