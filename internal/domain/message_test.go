package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessage(t *testing.T) {
	t.Run("video-update", func(t *testing.T) {
		raw := []byte(`{"type":"video-update","play_state":"playing","current_time":12.5,"video_id":"/watch/1","provider":"netflix","show_title":"Dark","episode_title":"Secrets","episode_number":"E1"}`)
		msg, err := DecodeMessage(raw)
		require.NoError(t, err)

		update, ok := msg.(VideoUpdate)
		require.True(t, ok)
		assert.Equal(t, PlayStatePlaying, update.PlayState)
		assert.Equal(t, 12.5, update.CurrentTime)
		assert.Equal(t, ProviderNetflix, update.Provider)
		assert.Equal(t, "Dark", update.ShowTitle)
	})

	t.Run("sync-update", func(t *testing.T) {
		raw := []byte(`{"type":"sync-update","state":"paused","time":120,"video_id":"/watch/1","provider":"crunchyroll","updated_at":1700000000000,"viewer_count":4}`)
		msg, err := DecodeMessage(raw)
		require.NoError(t, err)

		update, ok := msg.(SyncUpdate)
		require.True(t, ok)
		assert.Equal(t, PlayStatePaused, update.State)
		assert.Equal(t, int64(1700000000000), update.UpdatedAt)
		assert.Equal(t, 4, update.ViewerCount)
	})

	t.Run("request-state response shape", func(t *testing.T) {
		raw, err := EncodeMessage(StateResponse{VideoFound: true})
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"state-response","videoFound":true}`, string(raw))
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		_, err := DecodeMessage([]byte(`{"type":"mystery"}`))
		assert.ErrorIs(t, err, ErrUnknownMessageType)
	})
}

func TestEncodeMessageInlinesType(t *testing.T) {
	raw, err := EncodeMessage(RoomClosed{RoomID: "abc123"})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "room-closed", fields["type"])
	assert.Equal(t, "abc123", fields["roomId"])

	decoded, err := DecodeMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, RoomClosed{RoomID: "abc123"}, decoded)
}
