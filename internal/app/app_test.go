package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactsync/server/internal/bus/inprocess"
	"github.com/reactsync/server/internal/controller"
	"github.com/reactsync/server/internal/repository/room"
	roomredis "github.com/reactsync/server/internal/repository/room/redis"
	sessioninmemory "github.com/reactsync/server/internal/repository/session/inmemory"
	"github.com/reactsync/server/internal/service/relay"
	"github.com/reactsync/server/internal/service/session"
	"github.com/reactsync/server/pkg/randstr"
)

type roomReader interface {
	GetRoom(ctx context.Context, roomID string) (room.Room, error)
}

// stack is one user's full server: repositories, coordinator, services
// and gateway, sharing a redis with every other stack in the test.
type stack struct {
	srv      *httptest.Server
	roomRepo roomReader
}

func newStack(t *testing.T, redisAddr string) *stack {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rc := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	roomRepo := roomredis.NewRepo(rc, logger, time.Hour)
	sessionRepo := sessioninmemory.NewRepo(logger)
	messageBus := inprocess.NewBus(logger)

	coordinator := relay.NewCoordinator(roomRepo, sessionRepo, messageBus, logger, &relay.Config{})
	require.NoError(t, coordinator.Start(context.Background()))
	t.Cleanup(coordinator.Stop)

	sessionService := session.NewService(roomRepo, sessionRepo, messageBus, randstr.New([]byte(roomIDLetters)), logger)
	srv := httptest.NewServer(controller.NewController(sessionService, messageBus, logger).GetMux())
	t.Cleanup(srv.Close)

	return &stack{srv: srv, roomRepo: roomRepo}
}

func (s *stack) post(t *testing.T, path string) *http.Response {
	t.Helper()

	resp, err := http.Post(s.srv.URL+"/api/v1"+path, "application/json", nil)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func (s *stack) dialContext(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/api/v1/ws/context"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))

	return msg
}

// readUntilType skips unrelated messages until one of the wanted type
// arrives.
func readUntilType(t *testing.T, conn *websocket.Conn, messageType string) map[string]any {
	t.Helper()

	for i := 0; i < 10; i++ {
		msg := readMessage(t, conn)
		if msg["type"] == messageType {
			return msg
		}
	}

	t.Fatalf("no %s message arrived", messageType)
	return nil
}

func TestWatchTogetherSession(t *testing.T) {
	s := miniredis.RunT(t)

	host := newStack(t, s.Addr())
	audience := newStack(t, s.Addr())
	ctx := context.Background()

	// the host opens a room from the popup
	resp := host.post(t, "/room/create")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created struct {
		RoomID string `json:"roomId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Len(t, created.RoomID, 6)

	// the host's watch page attaches and starts playing
	hostConn := host.dialContext(t)
	require.NoError(t, hostConn.WriteJSON(map[string]any{"type": "register-content"}))
	readUntilType(t, hostConn, "role-update")

	require.NoError(t, hostConn.WriteJSON(map[string]any{
		"type":         "video-update",
		"play_state":   "playing",
		"current_time": 10.0,
		"video_id":     "/watch/GR3VWXP96",
		"provider":     "crunchyroll",
		"show_title":   "Trigun",
	}))

	require.Eventually(t, func() bool {
		rm, err := host.roomRepo.GetRoom(ctx, created.RoomID)
		return err == nil && rm.CurrentTime == 10
	}, 5*time.Second, 10*time.Millisecond)

	// a friend joins with the room code
	resp = audience.post(t, "/room/"+created.RoomID+"/join")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var joined struct {
		Role string `json:"role"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&joined))
	assert.Equal(t, "audience", joined.Role)

	// their watch page attaches and is caught up immediately
	audienceConn := audience.dialContext(t)
	require.NoError(t, audienceConn.WriteJSON(map[string]any{"type": "register-content"}))

	role := readUntilType(t, audienceConn, "role-update")
	assert.Equal(t, "audience", role["role"])

	replay := readUntilType(t, audienceConn, "sync-update")
	assert.Equal(t, "/watch/GR3VWXP96", replay["video_id"])
	assert.Equal(t, "playing", replay["state"])
	assert.Equal(t, 10.0, replay["time"])

	// host playback changes reach the audience live
	require.NoError(t, hostConn.WriteJSON(map[string]any{
		"type":         "video-update",
		"play_state":   "paused",
		"current_time": 20.0,
		"video_id":     "/watch/GR3VWXP96",
		"provider":     "crunchyroll",
	}))

	update := readUntilType(t, audienceConn, "sync-update")
	assert.Equal(t, "paused", update["state"])
	assert.Equal(t, 20.0, update["time"])

	// closing the room tells everyone
	resp = host.post(t, "/room/close")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	closed := readUntilType(t, audienceConn, "room-closed")
	assert.Equal(t, created.RoomID, closed["roomId"])
}

func TestAppConfigValidate(t *testing.T) {
	cfg := &AppConfig{Host: "0.0.0.0", Port: 8080, RoomExpireHours: 336, PresenceThrottleMs: 500}
	require.NoError(t, cfg.Validate())

	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.Port = 8080
	cfg.RoomExpireHours = 0
	assert.Error(t, cfg.Validate())
}
