package server

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/hearth-dev/hearth/pkg/event"
)

// Payload keys the pipelines populate for handlers.
const (
	// KeyRequest holds the *http.Request for the current event.
	KeyRequest = "request"

	// KeyClient holds the derived client id.
	KeyClient = "client"

	// KeyResponse holds the chosen response on after-request.
	KeyResponse = "response"

	// KeyBinary and KeyMessage carry WebSocket message payloads.
	KeyBinary  = "binary"
	KeyMessage = "message"
)

// routes adapts the server's pipelines to the Transport boundary without
// exposing them on the public API.
type serverRoutes struct{ s *Server }

func (s *Server) routes() Routes { return serverRoutes{s} }

func (sr serverRoutes) Call(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, sr.s.handleRequest(r))
}

func (sr serverRoutes) OnHeaders(r *http.Request) (any, bool) {
	return sr.s.handleHeaders(r)
}

func (sr serverRoutes) OnWSOpen(conn *websocket.Conn, r *http.Request) {
	sr.s.handleWSOpen(conn, r)
}

// handleHeaders runs the header hooks before the body pipeline. The last
// handler (in stack order) that produced a non-nil value short-circuits
// the request with that value as the response.
func (s *Server) handleHeaders(r *http.Request) (any, bool) {
	if !s.events.Handles(event.Header) {
		return nil, false
	}
	args := event.Args{
		KeyRequest: r,
		KeyClient:  s.ClientID(r),
	}
	results := s.dispatch(r.Context(), event.Header, args)
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].Err == nil && results[i].Value != nil {
			return results[i].Value, true
		}
	}
	return nil, false
}

// handleRequest runs the full request pipeline: before-request patches are
// merged left-to-right onto the working arguments, the request event is
// dispatched with the merged set, and the response is the last successful
// handler's value in stack order. after-request sees the chosen response.
// The response is returned to the transport unmodified.
func (s *Server) handleRequest(r *http.Request) any {
	ctx := r.Context()
	args := event.Args{
		KeyRequest: r,
		KeyClient:  s.ClientID(r),
	}

	for _, res := range s.dispatch(ctx, event.BeforeRequest, args) {
		if res.Err != nil {
			continue
		}
		if patch := asArgs(res.Value); patch != nil {
			args = event.Merge(args, patch)
		}
	}

	var resp any
	for _, res := range s.dispatch(ctx, event.Request, args) {
		if res.Err == nil {
			resp = res.Value
		}
	}

	after := args.Clone()
	after[KeyResponse] = resp
	s.dispatch(ctx, event.AfterRequest, after)

	return resp
}

// asArgs normalizes the patch types a pre-hook may return.
func asArgs(v any) event.Args {
	switch patch := v.(type) {
	case event.Args:
		return patch
	case map[string]any:
		return event.Args(patch)
	default:
		return nil
	}
}

// dispatchContext returns the context pipeline work runs under. WebSocket
// loops outlive their originating request context, so they use the
// background context.
func dispatchContext() context.Context {
	return context.Background()
}
