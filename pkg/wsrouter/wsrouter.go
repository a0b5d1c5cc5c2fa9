package wsrouter

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Type string `json:"type"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, raw json.RawMessage) error

type Middleware func(next HandlerFunc) HandlerFunc

// WSRouter dispatches flat JSON messages by their "type" field.
type WSRouter struct {
	routes      map[string]HandlerFunc
	middlewares []Middleware
	unknown     HandlerFunc
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

func (r *WSRouter) Use(mw Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// HandleUnknown sets the handler invoked for message types with no route.
func (r *WSRouter) HandleUnknown(handler HandlerFunc) {
	r.unknown = handler
}

func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			conn.WriteJSON(map[string]string{"error": "malformed message"})
			continue
		}

		handler, exists := r.routes[env.Type]
		if !exists {
			if r.unknown != nil {
				r.unknown(setMessageTypeCtx(ctx, env.Type), conn, raw)
			} else {
				conn.WriteJSON(map[string]string{"error": "unknown message type"})
			}
			continue
		}

		for i := len(r.middlewares) - 1; i >= 0; i-- {
			handler = r.middlewares[i](handler)
		}

		if err := handler(setMessageTypeCtx(ctx, env.Type), conn, raw); err != nil {
			return err
		}
	}
}
