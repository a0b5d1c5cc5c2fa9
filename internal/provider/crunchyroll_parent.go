package provider

import (
	"regexp"
	"strings"
)

// ParentDocument is the state the top-level Crunchyroll page exposes to
// the parent-side script.
type ParentDocument interface {
	Path() string
	// OGTitle returns the og:title meta content, empty when absent.
	OGTitle() string
}

// crunchyrollParent answers the iframe's metadata handshake and renders
// the user-facing notices the iframe cannot.
type crunchyrollParent struct {
	frame    FrameMessenger
	doc      ParentDocument
	notifier Notifier
}

func NewCrunchyrollParent(frame FrameMessenger, doc ParentDocument, notifier Notifier) *crunchyrollParent {
	p := &crunchyrollParent{
		frame:    frame,
		doc:      doc,
		notifier: notifier,
	}
	frame.OnMessage(p.handleFrameMessage)

	return p
}

func (p *crunchyrollParent) handleFrameMessage(msg FrameMessage) {
	switch msg.Type {
	case frameRequestVideoID:
		showTitle, episodeTitle, episodeNumber := ParseOGTitle(p.doc.OGTitle())
		p.frame.Post(FrameMessage{
			Type:          frameVideoID,
			VideoID:       p.doc.Path(),
			ShowTitle:     showTitle,
			EpisodeTitle:  episodeTitle,
			EpisodeNumber: episodeNumber,
		})
	case frameNavigate:
		p.notifier.ShowRedirectCountdown(msg.VideoURL)
	case frameRoomClosed:
		p.notifier.ShowRoomClosed()
	}
}

// ResetChild tells the player iframe to tear down and rebind. Wired to the
// parent page's navigation watcher.
func (p *crunchyrollParent) ResetChild() {
	p.frame.Post(FrameMessage{Type: frameReset})
}

var episodePattern = regexp.MustCompile(`(?i)^E(\d+)\s*[-:]?\s*(.*)$`)

// ParseOGTitle splits a Crunchyroll og:title of the form
// "Show Title | E5 - Episode Title" into its parts. Episode fields stay
// empty when the title carries no episode segment.
func ParseOGTitle(content string) (showTitle, episodeTitle, episodeNumber string) {
	if content == "" {
		return "", "", ""
	}

	parts := strings.SplitN(content, " | ", 2)
	showTitle = strings.TrimSpace(parts[0])
	if len(parts) < 2 {
		return showTitle, "", ""
	}

	episodeTitle = strings.TrimSpace(parts[1])
	if match := episodePattern.FindStringSubmatch(episodeTitle); match != nil {
		episodeNumber = "E" + match[1]
		episodeTitle = strings.TrimSpace(match[2])
	}

	return showTitle, episodeTitle, episodeNumber
}
