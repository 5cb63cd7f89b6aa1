package server

import (
	"sort"
	"testing"
)

type frame struct {
	messageType int
	data        []byte
}

type fakeConn struct {
	frames []frame
	closed bool
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.frames = append(c.frames, frame{messageType, data})
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestSessionRegistryPutGet(t *testing.T) {
	reg := newSessionRegistry()
	if _, ok := reg.get("alice"); ok {
		t.Error("empty registry should miss")
	}

	a := &fakeConn{}
	reg.put("alice", a)
	got, ok := reg.get("alice")
	if !ok || got != SocketConn(a) {
		t.Error("get should return the registered connection")
	}
	if reg.count() != 1 {
		t.Errorf("count = %d, want 1", reg.count())
	}
}

func TestSessionRegistryReplacement(t *testing.T) {
	reg := newSessionRegistry()
	old := &fakeConn{}
	reg.put("alice", old)

	replacement := &fakeConn{}
	reg.put("alice", replacement)
	if reg.count() != 1 {
		t.Errorf("count after replacement = %d, want 1", reg.count())
	}
	got, _ := reg.get("alice")
	if got != SocketConn(replacement) {
		t.Error("registry should hold the newest connection")
	}

	// The late close of the replaced connection must not evict the
	// replacement.
	if reg.drop("alice", old) {
		t.Error("drop of a stale connection should report false")
	}
	if _, ok := reg.get("alice"); !ok {
		t.Error("replacement must survive the stale drop")
	}

	if !reg.drop("alice", replacement) {
		t.Error("drop of the current connection should report true")
	}
	if reg.count() != 0 {
		t.Errorf("count after drop = %d, want 0", reg.count())
	}
}

func TestSessionRegistryIDs(t *testing.T) {
	reg := newSessionRegistry()
	reg.put("alice", &fakeConn{})
	reg.put("bob", &fakeConn{})

	ids := reg.ids()
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "alice" || ids[1] != "bob" {
		t.Errorf("ids = %v, want [alice bob]", ids)
	}
}
