package server

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/hearth-dev/hearth/pkg/event"
)

// WebSocket frame types, re-exported so callers of Send need not import
// gorilla directly.
const (
	textMessage   = websocket.TextMessage
	binaryMessage = websocket.BinaryMessage
)

// handleWSOpen registers a freshly upgraded connection under the client's
// id and starts its read loop. A new connection for an existing id
// replaces the old registry entry; the old connection is not torn down.
func (s *Server) handleWSOpen(conn *websocket.Conn, r *http.Request) {
	id := s.ClientID(r)
	s.session.put(id, conn)
	s.metrics.activeSockets.Set(float64(s.session.count()))
	s.logger.Info("websocket opened", "client", id)

	go s.readLoop(id, conn, r)
}

// readLoop reads frames until the connection dies. Reading happens on this
// goroutine, but handler dispatch goes through the transport, so blocking
// mode still funnels all pipeline work into the cycle loop.
func (s *Server) readLoop(id string, conn *websocket.Conn, r *http.Request) {
	ctx := dispatchContext()

	defer func() {
		conn.Close()
		s.transport.Do(ctx, func() { s.handleSocketClose(id, conn, r) })
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("websocket read error", "client", id, "error", err)
			}
			return
		}

		binary := messageType == websocket.BinaryMessage
		var msg any
		if binary {
			msg = data
		} else {
			msg = string(data)
		}
		s.transport.Do(ctx, func() { s.handleSocketMessage(ctx, id, r, binary, msg) })
	}
}

// handleSocketMessage runs the message pipeline: before-message patches
// merge onto the raw {binary, message} payload, the message event is
// dispatched with the merged payload, and after-message sees the final
// binary/message values.
func (s *Server) handleSocketMessage(ctx context.Context, id string, r *http.Request, binary bool, msg any) {
	payload := event.Args{
		KeyBinary:  binary,
		KeyMessage: msg,
		KeyRequest: r,
		KeyClient:  id,
	}

	for _, res := range s.dispatch(ctx, event.BeforeMessage, payload) {
		if res.Err != nil {
			continue
		}
		if patch := asArgs(res.Value); patch != nil {
			payload = event.Merge(payload, patch)
		}
	}

	s.dispatch(ctx, event.Message, payload)

	s.dispatch(ctx, event.AfterMessage, event.Args{
		KeyBinary:  payload[KeyBinary],
		KeyMessage: payload[KeyMessage],
		KeyClient:  id,
	})
}

// handleSocketClose fires websocket-closed and drops the session entry,
// unless a newer connection for the same client already replaced it.
func (s *Server) handleSocketClose(id string, conn SocketConn, r *http.Request) {
	s.dispatch(dispatchContext(), event.WebsocketClosed, event.Args{
		KeyRequest: r,
		KeyClient:  id,
	})
	if s.session.drop(id, conn) {
		s.logger.Info("websocket closed", "client", id)
	}
	s.metrics.activeSockets.Set(float64(s.session.count()))
}
