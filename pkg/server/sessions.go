package server

import "sync"

// SocketConn is the slice of a WebSocket connection the session registry
// needs. *websocket.Conn satisfies it; tests substitute fakes.
type SocketConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// sessionRegistry maps client ids to their open WebSocket connections.
// The registry only ever holds currently-open connections: an entry is
// inserted on open and dropped on close, except when a newer connection
// for the same client id has already replaced it.
type sessionRegistry struct {
	mu    sync.RWMutex
	conns map[string]SocketConn
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{conns: make(map[string]SocketConn)}
}

// put registers conn under id. A new connection for an existing id
// replaces the old entry; the old connection is not torn down here, so
// callers must not rely on old-connection cleanup.
func (r *sessionRegistry) put(id string, conn SocketConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = conn
}

// get returns the connection registered under id.
func (r *sessionRegistry) get(id string) (SocketConn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// drop removes the entry for id, but only while it still points at conn.
// A close racing a replacement connection must not evict the replacement.
func (r *sessionRegistry) drop(id string, conn SocketConn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.conns[id]; ok && current == conn {
		delete(r.conns, id)
		return true
	}
	return false
}

// count returns the number of open connections.
func (r *sessionRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// ids returns the registered client ids in unspecified order.
func (r *sessionRegistry) ids() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	return out
}
