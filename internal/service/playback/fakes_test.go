package playback

import (
	"context"
	"sync"
	"time"

	"github.com/reactsync/server/internal/domain"
	"github.com/reactsync/server/internal/provider"
)

type fakeVideo struct {
	mu          sync.Mutex
	paused      bool
	currentTime float64
	readyState  int
	handlers    []func()
	plays       int
	pauses      int
	seeks       []float64
}

func (v *fakeVideo) Play() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused = false
	v.plays++
}

func (v *fakeVideo) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused = true
	v.pauses++
}

func (v *fakeVideo) Paused() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.paused
}

func (v *fakeVideo) CurrentTime() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentTime
}

func (v *fakeVideo) SeekTo(seconds float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.currentTime = seconds
	v.seeks = append(v.seeks, seconds)
}

func (v *fakeVideo) ReadyState() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.readyState
}

func (v *fakeVideo) OnPlaybackEvent(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.handlers = append(v.handlers, fn)
}

// firePlaybackEvent simulates a local user action on the element.
func (v *fakeVideo) firePlaybackEvent() {
	v.mu.Lock()
	handlers := make([]func(), len(v.handlers))
	copy(handlers, v.handlers)
	v.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}

func (v *fakeVideo) stats() (plays, pauses int, seeks []float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.plays, v.pauses, append([]float64(nil), v.seeks...)
}

type fakeFinder struct {
	mu    sync.Mutex
	video provider.Video
}

func (f *fakeFinder) FindVideo() provider.Video {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.video
}

func (f *fakeFinder) setVideo(v provider.Video) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.video = v
}

type fakeAdapter struct {
	mu         sync.Mutex
	providerID domain.Provider
	videoID    string
	meta       domain.Metadata
	mismatches []string
	roomClosed int
}

func (a *fakeAdapter) ProviderID() domain.Provider {
	return a.providerID
}

func (a *fakeAdapter) VideoID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.videoID
}

func (a *fakeAdapter) Metadata(ctx context.Context) (domain.Metadata, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.meta, nil
}

func (a *fakeAdapter) OnSyncMismatch(redirectURL string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mismatches = append(a.mismatches, redirectURL)
}

func (a *fakeAdapter) OnRoomClosed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.roomClosed++
}

func (a *fakeAdapter) recordedMismatches() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.mismatches...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
