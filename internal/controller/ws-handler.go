package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/reactsync/server/internal/bus"
	"github.com/reactsync/server/internal/domain"
	"github.com/reactsync/server/pkg/wsrouter"
)

// contextConn is one attached page context. Gorilla connections allow a
// single concurrent writer, so every write goes through the mutex.
type contextConn struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	stateMu    sync.Mutex
	stateReply chan domain.StateResponse
}

func (cc *contextConn) write(msg domain.Message) error {
	data, err := domain.EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	cc.writeMu.Lock()
	defer cc.writeMu.Unlock()

	return cc.conn.WriteMessage(websocket.TextMessage, data)
}

func (cc *contextConn) writeJSON(body any) error {
	cc.writeMu.Lock()
	defer cc.writeMu.Unlock()

	return cc.conn.WriteJSON(body)
}

// attachContext upgrades the request and attaches the socket to the bus
// under a fresh context id. Messages from the socket flow to the bus;
// bus messages addressed to this context flow back down the socket.
func (c controller) attachContext(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}

	contextID := uuid.NewString()
	cc := &contextConn{conn: conn}

	c.logger.InfoContext(r.Context(), "context attached", "context_id", contextID)

	c.bus.Register(contextID, func(ctx context.Context, sender string, msg domain.Message) (domain.Message, error) {
		return c.deliverToConn(ctx, cc, msg)
	})

	router := wsrouter.New()
	router.Use(c.wsRequestIdMw())
	router.Use(c.wsLoggerMw())
	router.Handle(string(domain.MessageRegisterContent), c.forwardToBackground(contextID, cc))
	router.Handle(string(domain.MessageUnregisterContent), c.forwardToBackground(contextID, cc))
	router.Handle(string(domain.MessageVideoUpdate), c.forwardToBackground(contextID, cc))
	router.Handle(string(domain.MessageStateResponse), c.resolveStateReply(cc))
	router.HandleUnknown(func(ctx context.Context, conn *websocket.Conn, raw json.RawMessage) error {
		c.logger.DebugContext(ctx, "unknown message type", "type", wsrouter.GetMessageTypeFromCtx(ctx))
		return cc.writeJSON(map[string]string{"error": "unknown message type"})
	})

	err = router.ServeConn(r.Context(), conn)
	c.logger.InfoContext(r.Context(), "context detached", "context_id", contextID, "error", err)

	// a dropped socket never sent its unregister; synthesize one so the
	// coordinator forgets the context
	if _, err := c.bus.Send(context.Background(), contextID, bus.BackgroundContext, domain.UnregisterContent{}); err != nil {
		c.logger.Debug("failed to unregister detached context", "context_id", contextID, "error", err)
	}
	c.bus.Unregister(contextID)
	conn.Close()
}

// deliverToConn pushes a bus message down the socket. A state request is
// the one request/response exchange: the reply comes back as a separate
// socket message and is matched up here.
func (c *controller) deliverToConn(ctx context.Context, cc *contextConn, msg domain.Message) (domain.Message, error) {
	if _, ok := msg.(domain.RequestState); ok {
		cc.stateMu.Lock()
		reply := make(chan domain.StateResponse, 1)
		cc.stateReply = reply
		cc.stateMu.Unlock()

		if err := cc.write(msg); err != nil {
			return nil, fmt.Errorf("failed to deliver message: %w", err)
		}

		select {
		case resp := <-reply:
			return resp, nil
		case <-time.After(stateReplyTimeout):
			return nil, fmt.Errorf("state reply timed out")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := cc.write(msg); err != nil {
		return nil, fmt.Errorf("failed to deliver message: %w", err)
	}

	return nil, nil
}

// forwardToBackground decodes an inbound socket message and relays it to
// the background context on behalf of this socket's context id.
func (c *controller) forwardToBackground(contextID string, cc *contextConn) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, raw json.RawMessage) error {
		msg, err := domain.DecodeMessage(raw)
		if err != nil {
			cc.writeJSON(map[string]string{"error": "malformed message"})
			return nil
		}

		if m, ok := msg.(domain.VideoUpdate); ok {
			if validationErrors, ok := c.validate.Validate(m); !ok {
				cc.writeJSON(map[string]any{"error": "validation failed", "details": validationErrors})
				return nil
			}
		}

		if _, err := c.bus.Send(ctx, contextID, bus.BackgroundContext, msg); err != nil {
			return fmt.Errorf("failed to forward message: %w", err)
		}

		return nil
	}
}

func (c *controller) resolveStateReply(cc *contextConn) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, raw json.RawMessage) error {
		var resp domain.StateResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil
		}

		cc.stateMu.Lock()
		reply := cc.stateReply
		cc.stateReply = nil
		cc.stateMu.Unlock()

		if reply != nil {
			reply <- resp
		}

		return nil
	}
}
