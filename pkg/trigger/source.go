// Package trigger implements inbound event injection for a running server.
// A Source yields pending event firings each time it is polled; the server
// polls its sources once per blocking-loop cycle and dispatches every
// firing through the internal (unfiltered) dispatch path.
//
// Three backends are provided: a filesystem directory poller (DirSource),
// an fsnotify-driven variant that only scans after filesystem activity
// (WatchSource), and an S3 bucket poller (S3Source).
package trigger

import "context"

// Firing is one injected event: a name plus its decoded arguments.
type Firing struct {
	Event string
	Args  map[string]any
}

// Source produces pending event firings. Poll drains everything currently
// pending, in arrival order, consuming each item exactly once; an empty
// backlog returns (nil, nil). Close releases any resources held by the
// source.
type Source interface {
	Poll(ctx context.Context) ([]Firing, error)
	Close() error
}
