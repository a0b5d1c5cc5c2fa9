package controller

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactsync/server/internal/bus"
	"github.com/reactsync/server/internal/bus/inprocess"
	"github.com/reactsync/server/internal/domain"
	"github.com/reactsync/server/internal/service/session"
)

type fakeSessionService struct {
	mu         sync.Mutex
	createResp session.CreateRoomResponse
	createErr  error
	joinResp   session.JoinRoomResponse
	joinErr    error
	claimErr   error
	left       int
	closed     int
}

func (s *fakeSessionService) EnsureUser(ctx context.Context) (string, error) { return "u1", nil }

func (s *fakeSessionService) CreateRoom(ctx context.Context, params *session.CreateRoomParams) (session.CreateRoomResponse, error) {
	return s.createResp, s.createErr
}

func (s *fakeSessionService) JoinRoom(ctx context.Context, params *session.JoinRoomParams) (session.JoinRoomResponse, error) {
	return s.joinResp, s.joinErr
}

func (s *fakeSessionService) ClaimHost(ctx context.Context) error   { return s.claimErr }
func (s *fakeSessionService) ReleaseHost(ctx context.Context) error { return nil }

func (s *fakeSessionService) LeaveRoom(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.left++
	return nil
}

func (s *fakeSessionService) CloseRoom(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type backgroundRecorder struct {
	mu      sync.Mutex
	senders []string
	msgs    []domain.Message
}

func (r *backgroundRecorder) handle(ctx context.Context, sender string, msg domain.Message) (domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders = append(r.senders, sender)
	r.msgs = append(r.msgs, msg)
	return nil, nil
}

func (r *backgroundRecorder) received() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Message(nil), r.msgs...)
}

func (r *backgroundRecorder) lastSender() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.senders) == 0 {
		return ""
	}
	return r.senders[len(r.senders)-1]
}

func newGatewayRig(t *testing.T) (*httptest.Server, *fakeSessionService, *inprocess.Bus, *backgroundRecorder) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := inprocess.NewBus(logger)
	recorder := &backgroundRecorder{}
	b.Register(bus.BackgroundContext, recorder.handle)

	svc := &fakeSessionService{}
	srv := httptest.NewServer(NewController(svc, b, logger).GetMux())
	t.Cleanup(srv.Close)

	return srv, svc, b, recorder
}

func dialContext(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/context"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestGateway_Healthz(t *testing.T) {
	srv, _, _, _ := newGatewayRig(t)

	resp, err := http.Get(srv.URL + "/api/v1/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGateway_CreateRoom(t *testing.T) {
	srv, svc, _, _ := newGatewayRig(t)
	svc.createResp = session.CreateRoomResponse{RoomID: "abc123", VideoFound: true}

	resp, err := http.Post(srv.URL+"/api/v1/room/create", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out createRoomOutput
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "abc123", out.RoomID)
	assert.True(t, out.VideoFound)
}

func TestGateway_ClaimHostConflict(t *testing.T) {
	srv, svc, _, _ := newGatewayRig(t)
	svc.claimErr = session.ErrHostAlreadyExists

	resp, err := http.Post(srv.URL+"/api/v1/room/claim-host", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGateway_ForwardsContentMessages(t *testing.T) {
	srv, _, _, recorder := newGatewayRig(t)
	conn := dialContext(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "register-content"}))

	require.Eventually(t, func() bool {
		msgs := recorder.received()
		return len(msgs) == 1 && msgs[0].MessageType() == domain.MessageRegisterContent
	}, time.Second, time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":         "video-update",
		"play_state":   "playing",
		"current_time": 12.5,
		"video_id":     "/watch/1",
		"provider":     "crunchyroll",
	}))

	require.Eventually(t, func() bool {
		msgs := recorder.received()
		if len(msgs) != 2 {
			return false
		}
		update, ok := msgs[1].(domain.VideoUpdate)
		return ok && update.VideoID == "/watch/1" && update.CurrentTime == 12.5
	}, time.Second, time.Millisecond)
}

func TestGateway_RejectsInvalidVideoUpdate(t *testing.T) {
	srv, _, _, recorder := newGatewayRig(t)
	conn := dialContext(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":       "video-update",
		"play_state": "flying",
		"video_id":   "/watch/1",
		"provider":   "crunchyroll",
	}))

	var reply map[string]any
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "validation failed", reply["error"])
	assert.Empty(t, recorder.received())
}

func TestGateway_DeliversBusMessagesToSocket(t *testing.T) {
	srv, _, b, recorder := newGatewayRig(t)
	conn := dialContext(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "register-content"}))
	require.Eventually(t, func() bool {
		return len(recorder.received()) == 1
	}, time.Second, time.Millisecond)

	contextID := recorder.lastSender()
	_, err := b.Send(context.Background(), bus.BackgroundContext, contextID, domain.SyncUpdate{
		State:    domain.PlayStatePlaying,
		Time:     30,
		VideoID:  "/watch/1",
		Provider: domain.ProviderCrunchyroll,
	})
	require.NoError(t, err)

	var reply map[string]any
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "sync-update", reply["type"])
	assert.Equal(t, "/watch/1", reply["video_id"])
}

func TestGateway_StateProbeRoundTrip(t *testing.T) {
	srv, _, b, recorder := newGatewayRig(t)
	conn := dialContext(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "register-content"}))
	require.Eventually(t, func() bool {
		return len(recorder.received()) == 1
	}, time.Second, time.Millisecond)
	contextID := recorder.lastSender()

	// answer the probe like a content script would
	go func() {
		var probe map[string]any
		if err := conn.ReadJSON(&probe); err != nil {
			return
		}
		if probe["type"] == "request-state" {
			conn.WriteJSON(map[string]any{"type": "state-response", "videoFound": true})
		}
	}()

	reply, err := b.Send(context.Background(), bus.BackgroundContext, contextID, domain.RequestState{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateResponse{VideoFound: true}, reply)
}

func TestGateway_DroppedSocketUnregisters(t *testing.T) {
	srv, _, b, recorder := newGatewayRig(t)
	conn := dialContext(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "register-content"}))
	require.Eventually(t, func() bool {
		return len(recorder.received()) == 1
	}, time.Second, time.Millisecond)
	contextID := recorder.lastSender()

	conn.Close()

	require.Eventually(t, func() bool {
		msgs := recorder.received()
		return len(msgs) == 2 && msgs[1].MessageType() == domain.MessageUnregisterContent
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		_, err := b.Send(context.Background(), bus.BackgroundContext, contextID, domain.RoomClosed{})
		return err != nil
	}, time.Second, time.Millisecond)
}
