package server

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hearth-dev/hearth/pkg/event"
)

// fakeTransport stands in for the HTTP transport in lifecycle tests. Its
// job queue mirrors httpTransport so run-mode behavior is faithful.
type fakeTransport struct {
	mu        sync.Mutex
	started   bool
	addr      string
	routes    Routes
	shutdowns int
	startErr  error

	jobs   chan job
	inline atomic.Bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{jobs: make(chan job, 256)}
}

func (t *fakeTransport) Start(addr string, routes Routes) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startErr != nil {
		return t.startErr
	}
	t.started = true
	t.addr = addr
	t.routes = routes
	return nil
}

func (t *fakeTransport) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = false
	t.shutdowns++
	return nil
}

func (t *fakeTransport) Service() int {
	n := 0
	for {
		select {
		case j := <-t.jobs:
			j.run()
			close(j.done)
			n++
		default:
			return n
		}
	}
}

func (t *fakeTransport) SetInline(inline bool) {
	t.inline.Store(inline)
}

func (t *fakeTransport) Do(ctx context.Context, fn func()) {
	if t.inline.Load() {
		fn()
		return
	}
	j := job{run: fn, done: make(chan struct{})}
	select {
	case t.jobs <- j:
	case <-ctx.Done():
		return
	}
	select {
	case <-j.done:
	case <-ctx.Done():
	}
}

func (t *fakeTransport) shutdownCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shutdowns
}

func newLoopServer(t *testing.T) (*Server, *fakeTransport) {
	t.Helper()
	cfg := DefaultConfig()
	if err := cfg.SetRefreshInterval(time.Millisecond); err != nil {
		t.Fatal(err)
	}
	s := New(cfg)
	ft := newFakeTransport()
	s.SetTransport(ft)
	return s, ft
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestBlockingIgniteAndExtinguish(t *testing.T) {
	s, ft := newLoopServer(t)

	var starts, ends, cycles atomic.Int64
	s.On(event.Start, func(ctx context.Context, args event.Args) (any, error) {
		if args["server"] != s {
			t.Error("start payload should carry the server")
		}
		starts.Add(1)
		return nil, nil
	})
	s.On(event.End, func(ctx context.Context, args event.Args) (any, error) {
		ends.Add(1)
		return nil, nil
	})
	s.On(event.CycleStart, func(ctx context.Context, args event.Args) (any, error) {
		cycles.Add(1)
		return nil, nil
	})

	done := make(chan error, 1)
	go func() { done <- s.Ignite(IgniteOptions{Block: true}) }()

	waitFor(t, "server running", s.Running)
	waitFor(t, "a few cycles", func() bool { return cycles.Load() >= 3 })

	if starts.Load() != 1 {
		t.Errorf("start fired %d times, want 1", starts.Load())
	}

	// A second ignition while the loop runs must be refused untouched.
	if err := s.Ignite(IgniteOptions{Block: true}); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("concurrent Ignite = %v, want ErrAlreadyRunning", err)
	}

	if err := s.Extinguish(); err != nil {
		t.Fatalf("Extinguish: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Ignite returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocking Ignite did not return after Extinguish")
	}

	if s.Running() {
		t.Error("server still running after the loop exited")
	}
	if ends.Load() != 1 {
		t.Errorf("end fired %d times, want exactly 1", ends.Load())
	}
	if ft.shutdownCount() != 1 {
		t.Errorf("transport shut down %d times, want 1", ft.shutdownCount())
	}
}

func TestExtinguishIdle(t *testing.T) {
	s, _ := newLoopServer(t)
	if err := s.Extinguish(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Extinguish on idle server = %v, want ErrNotRunning", err)
	}
}

func TestDaemonIgniteAndExtinguish(t *testing.T) {
	s, ft := newLoopServer(t)

	var ends atomic.Int64
	s.On(event.End, func(ctx context.Context, args event.Args) (any, error) {
		ends.Add(1)
		return nil, nil
	})

	if err := s.Ignite(IgniteOptions{Block: false}); err != nil {
		t.Fatalf("Ignite: %v", err)
	}
	if !s.Running() {
		t.Fatal("daemon should report running after Ignite returns")
	}
	if err := s.Ignite(IgniteOptions{Block: false}); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Ignite = %v, want ErrAlreadyRunning", err)
	}

	if err := s.Extinguish(); err != nil {
		t.Fatalf("Extinguish: %v", err)
	}
	if s.Running() {
		t.Error("daemon still running after Extinguish")
	}
	if ends.Load() != 1 {
		t.Errorf("end fired %d times, want exactly 1", ends.Load())
	}
	if ft.shutdownCount() != 1 {
		t.Errorf("transport shut down %d times, want 1", ft.shutdownCount())
	}

	if err := s.Extinguish(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("repeated Extinguish = %v, want ErrNotRunning", err)
	}
}

func TestReigniteFiresResume(t *testing.T) {
	s, _ := newLoopServer(t)

	var resumes atomic.Int64
	s.On(event.Resume, func(ctx context.Context, args event.Args) (any, error) {
		resumes.Add(1)
		return nil, nil
	})

	if err := s.Ignite(IgniteOptions{}); err != nil {
		t.Fatalf("Ignite: %v", err)
	}
	if resumes.Load() != 0 {
		t.Error("plain Ignite must not fire resume")
	}
	if err := s.Extinguish(); err != nil {
		t.Fatalf("Extinguish: %v", err)
	}

	if err := s.Reignite(IgniteOptions{}); err != nil {
		t.Fatalf("Reignite: %v", err)
	}
	if resumes.Load() != 1 {
		t.Errorf("resume fired %d times after Reignite, want 1", resumes.Load())
	}
	s.Extinguish()
}

func TestIgniteTransportStartFailure(t *testing.T) {
	s, ft := newLoopServer(t)
	ft.startErr = errors.New("address in use")

	if err := s.Ignite(IgniteOptions{Block: true}); err == nil {
		t.Fatal("Ignite should surface the transport start error")
	}
	if s.Running() {
		t.Error("a failed ignition must leave the server idle")
	}
}

func TestIgniteArgsReachStartHandlers(t *testing.T) {
	s, _ := newLoopServer(t)

	var mode any
	s.On(event.Start, func(ctx context.Context, args event.Args) (any, error) {
		mode = args["mode"]
		return nil, nil
	})

	if err := s.Ignite(IgniteOptions{Args: event.Args{"mode": "test"}}); err != nil {
		t.Fatalf("Ignite: %v", err)
	}
	defer s.Extinguish()

	if mode != "test" {
		t.Errorf("start args mode = %v, want test", mode)
	}
}

func TestBlockingLoopConsumesTriggerFiles(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.SetRefreshInterval(time.Millisecond)
	if err := cfg.SetTriggerDir(dir); err != nil {
		t.Fatal(err)
	}
	s := New(cfg)
	s.SetTransport(newFakeTransport())

	var mu sync.Mutex
	var got []string
	record := func(label string) event.Handler {
		return func(ctx context.Context, args event.Args) (any, error) {
			mu.Lock()
			got = append(got, label+":"+argString(args, "who"))
			mu.Unlock()
			return nil, nil
		}
	}
	s.On("first-event", record("first"))
	s.On("second-event", record("second"))

	older := filepath.Join(dir, "first-event.json")
	newer := filepath.Join(dir, "second-event.json")
	if err := os.WriteFile(older, []byte(`{"who":"a"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newer, []byte(`{"who":"b"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	base := time.Now().Add(-time.Minute)
	os.Chtimes(older, base, base)
	os.Chtimes(newer, base.Add(time.Second), base.Add(time.Second))

	done := make(chan error, 1)
	go func() { done <- s.Ignite(IgniteOptions{Block: true}) }()

	waitFor(t, "trigger files consumed", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})

	if err := s.Extinguish(); err != nil {
		t.Fatalf("Extinguish: %v", err)
	}
	<-done

	mu.Lock()
	defer mu.Unlock()
	if got[0] != "first:a" || got[1] != "second:b" {
		t.Errorf("trigger order = %v, want oldest file first", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%d trigger files remain, want the directory drained", len(entries))
	}
}

func argString(args event.Args, key string) string {
	v, _ := args[key].(string)
	return v
}

func TestSocketCloseAfterLoopExit(t *testing.T) {
	s, _ := newLoopServer(t)

	conn := &fakeConn{}
	s.session.put("alice", conn)

	var closes atomic.Int64
	s.On(event.WebsocketClosed, func(ctx context.Context, args event.Args) (any, error) {
		closes.Add(1)
		return nil, nil
	})

	done := make(chan error, 1)
	go func() { done <- s.Ignite(IgniteOptions{Block: true}) }()
	waitFor(t, "server running", s.Running)

	if err := s.Extinguish(); err != nil {
		t.Fatalf("Extinguish: %v", err)
	}
	<-done

	// A hijacked connection outlives the transport shutdown; its read
	// loop reports the close only after the cycle loop is gone. The job
	// must run instead of parking on a queue nobody services.
	r := httptest.NewRequest("GET", "/ws", nil)
	finished := make(chan struct{})
	go func() {
		s.transport.Do(context.Background(), func() { s.handleSocketClose("alice", conn, r) })
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("close handling parked after the loop exited")
	}
	if closes.Load() != 1 {
		t.Errorf("websocket-closed fired %d times after loop exit, want 1", closes.Load())
	}
	if s.SessionCount() != 0 {
		t.Errorf("session count after late close = %d, want 0", s.SessionCount())
	}
}

func TestLoopExitSwitchesTransportInline(t *testing.T) {
	s, ft := newLoopServer(t)

	done := make(chan error, 1)
	go func() { done <- s.Ignite(IgniteOptions{Block: true}) }()
	waitFor(t, "server running", s.Running)

	if err := s.Extinguish(); err != nil {
		t.Fatalf("Extinguish: %v", err)
	}
	<-done

	// The shutdown guard switches the transport to inline execution, so
	// jobs arriving after the loop exited run immediately.
	ran := false
	ft.Do(context.Background(), func() { ran = true })
	if !ran {
		t.Error("post-exit job did not run inline")
	}
}
