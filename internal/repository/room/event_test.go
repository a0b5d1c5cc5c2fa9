package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangedFields(t *testing.T) {
	base := Room{
		RoomID:      "r1",
		HostID:      "u1",
		Provider:    "netflix",
		VideoID:     "/watch/1",
		PlayState:   "playing",
		CurrentTime: 10,
		UpdatedAt:   1000,
		ViewerCount: 3,
	}

	t.Run("no changes", func(t *testing.T) {
		other := base
		assert.Empty(t, ChangedFields(&base, &other))
	})

	t.Run("viewer count only", func(t *testing.T) {
		other := base
		other.ViewerCount = 4
		assert.Equal(t, []string{"viewer_count"}, ChangedFields(&base, &other))
	})

	t.Run("playback change", func(t *testing.T) {
		other := base
		other.PlayState = "paused"
		other.CurrentTime = 120
		other.UpdatedAt = 2000
		assert.Equal(t, []string{"current_time", "play_state", "updated_at"}, ChangedFields(&base, &other))
	})

	t.Run("nil old counts everything", func(t *testing.T) {
		assert.Len(t, ChangedFields(nil, &base), 11)
	})
}
