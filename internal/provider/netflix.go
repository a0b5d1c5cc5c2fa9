package provider

import (
	"context"

	"github.com/reactsync/server/internal/domain"
)

// NetflixPage is the page state a Netflix content context can observe.
type NetflixPage interface {
	Path() string
	// TitleBlock returns the player's title block: the show heading and
	// the episode spans below it. ok is false while no title block is
	// rendered.
	TitleBlock() (heading string, spans []string, ok bool)
}

type netflix struct {
	page     NetflixPage
	notifier Notifier
}

func NewNetflix(page NetflixPage, notifier Notifier) *netflix {
	return &netflix{
		page:     page,
		notifier: notifier,
	}
}

func (n netflix) ProviderID() domain.Provider {
	return domain.ProviderNetflix
}

func (n netflix) VideoID() string {
	return n.page.Path()
}

func (n netflix) Metadata(ctx context.Context) (domain.Metadata, error) {
	heading, spans, ok := n.page.TitleBlock()
	if !ok {
		// transient absence, not an error: the block renders late
		return domain.Metadata{}, nil
	}

	metadata := domain.Metadata{VideoID: n.page.Path()}
	if heading != "" && len(spans) >= 2 {
		metadata.ShowTitle = heading
		metadata.EpisodeNumber = spans[0]
		metadata.EpisodeTitle = spans[1]
	} else {
		metadata.ShowTitle = heading
	}

	return metadata, nil
}

func (n netflix) OnSyncMismatch(redirectURL string) {
	n.notifier.ShowRedirectCountdown(redirectURL)
}

func (n netflix) OnRoomClosed() {
	n.notifier.ShowRoomClosed()
}
