package provider

import "sync"

// Frame message types of the cross-iframe metadata handshake. The strings
// are part of the window-messaging contract with the page scripts.
const (
	frameRequestVideoID = "request-video-id"
	frameVideoID        = "video-id"
	frameNavigate       = "reactsync:navigate"
	frameRoomClosed     = "parent:room-closed"
	frameReset          = "reset-crunchyroll-controller"
)

// FrameMessage is one message on the parent/child window channel.
type FrameMessage struct {
	Type          string `json:"type"`
	VideoID       string `json:"videoId,omitempty"`
	ShowTitle     string `json:"showTitle,omitempty"`
	EpisodeTitle  string `json:"episodeTitle,omitempty"`
	EpisodeNumber string `json:"episodeNumber,omitempty"`
	VideoURL      string `json:"videoUrl,omitempty"`
}

// FrameMessenger is one side of a parent/child window message channel.
type FrameMessenger interface {
	Post(msg FrameMessage) error
	OnMessage(fn func(FrameMessage))
}

type frameEnd struct {
	mu       sync.Mutex
	peer     *frameEnd
	handlers []func(FrameMessage)
}

func (f *frameEnd) Post(msg FrameMessage) error {
	f.peer.mu.Lock()
	handlers := make([]func(FrameMessage), len(f.peer.handlers))
	copy(handlers, f.peer.handlers)
	f.peer.mu.Unlock()

	for _, fn := range handlers {
		fn(msg)
	}

	return nil
}

func (f *frameEnd) OnMessage(fn func(FrameMessage)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handlers = append(f.handlers, fn)
}

// NewFramePair returns two linked in-process messengers, parent side first.
// Messages posted on one side are delivered synchronously to the other.
func NewFramePair() (FrameMessenger, FrameMessenger) {
	parent := &frameEnd{}
	child := &frameEnd{}
	parent.peer = child
	child.peer = parent

	return parent, child
}
