package provider

import (
	"context"

	"github.com/reactsync/server/internal/domain"
)

// HaveCurrentData is the minimum media readyState at which play, pause and
// seek behave reliably. Anything lower is a half-initialized element.
const HaveCurrentData = 2

// Video is a bound media element. A video is exclusively owned by the sync
// controller holding it; nothing else may drive it.
type Video interface {
	Play()
	Pause()
	Paused() bool
	CurrentTime() float64
	SeekTo(seconds float64)
	ReadyState() int
	// OnPlaybackEvent attaches one callback fired on play, pause and
	// seeked events.
	OnPlaybackEvent(fn func())
}

// Finder locates the page's video element. It returns nil until one
// exists; the controller polls it while searching.
type Finder interface {
	FindVideo() Video
}

// Adapter is the per-site capability set the sync controller drives.
type Adapter interface {
	ProviderID() domain.Provider
	// VideoID returns the provider-specific locator of the currently
	// loaded content, empty while unknown.
	VideoID() string
	// Metadata extracts the identity of the playing content. It may
	// round-trip to another context and therefore takes a context.
	Metadata(ctx context.Context) (domain.Metadata, error)
	// OnSyncMismatch fires when the room points at different content than
	// the local page; redirectURL is where the member should go.
	OnSyncMismatch(redirectURL string)
	OnRoomClosed()
}

// Notifier renders user-facing notices. Rendering itself is out of the
// sync core's hands.
type Notifier interface {
	ShowRedirectCountdown(url string)
	ShowRoomClosed()
}
