package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactsync/server/internal/domain"
)

type fakeNetflixPage struct {
	path    string
	heading string
	spans   []string
	ok      bool
}

func (p fakeNetflixPage) Path() string { return p.path }

func (p fakeNetflixPage) TitleBlock() (string, []string, bool) {
	return p.heading, p.spans, p.ok
}

func TestNetflixMetadata(t *testing.T) {
	t.Run("episodic title block", func(t *testing.T) {
		adapter := NewNetflix(fakeNetflixPage{
			path:    "/watch/81040344",
			heading: "Dark",
			spans:   []string{"S1:E1", "Secrets"},
			ok:      true,
		}, &recordingNotifier{})

		meta, err := adapter.Metadata(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.Metadata{
			VideoID:       "/watch/81040344",
			ShowTitle:     "Dark",
			EpisodeNumber: "S1:E1",
			EpisodeTitle:  "Secrets",
		}, meta)
	})

	t.Run("film falls back to heading only", func(t *testing.T) {
		adapter := NewNetflix(fakeNetflixPage{
			path:    "/watch/60029591",
			heading: "The Matrix",
			ok:      true,
		}, &recordingNotifier{})

		meta, err := adapter.Metadata(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "The Matrix", meta.ShowTitle)
		assert.Empty(t, meta.EpisodeTitle)
	})

	t.Run("missing title block is not an error", func(t *testing.T) {
		adapter := NewNetflix(fakeNetflixPage{path: "/watch/1"}, &recordingNotifier{})

		meta, err := adapter.Metadata(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.Metadata{}, meta)
	})
}

func TestNetflixHooks(t *testing.T) {
	notifier := &recordingNotifier{}
	adapter := NewNetflix(fakeNetflixPage{path: "/watch/1"}, notifier)

	assert.Equal(t, domain.ProviderNetflix, adapter.ProviderID())
	assert.Equal(t, "/watch/1", adapter.VideoID())

	adapter.OnSyncMismatch("https://www.netflix.com/watch/2?t=90")
	adapter.OnRoomClosed()
	assert.Equal(t, []string{"https://www.netflix.com/watch/2?t=90"}, notifier.redirects)
	assert.Equal(t, 1, notifier.roomClosed)
}
