package hearth

import (
	"context"
	"testing"
)

func TestFacade(t *testing.T) {
	srv := New()
	if srv == nil {
		t.Fatal("New returned nil")
	}
	if srv.Config().Port() != 80 {
		t.Errorf("default port = %d, want 80", srv.Config().Port())
	}

	cfg := DefaultConfig()
	if err := cfg.SetPort(8080); err != nil {
		t.Fatal(err)
	}
	if NewWithConfig(cfg).Config().Port() != 8080 {
		t.Error("NewWithConfig should adopt the given config")
	}
}

func TestFacadeEvents(t *testing.T) {
	srv := New()
	ran := false
	id, err := srv.On("custom", func(ctx context.Context, args Args) (any, error) {
		ran = true
		return nil, nil
	})
	if err != nil {
		t.Fatalf("On: %v", err)
	}
	if id == "" {
		t.Error("On should return a handler id")
	}
	if _, err := srv.Trigger("custom", Args{"k": "v"}); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if !ran {
		t.Error("handler never ran")
	}
}

func TestProtectedConstants(t *testing.T) {
	names := []string{
		EventStart, EventResume, EventEnd,
		EventCycleStart, EventCycleEnd,
		EventHeader, EventBeforeRequest, EventRequest, EventAfterRequest,
		EventBeforeMessage, EventMessage, EventAfterMessage,
		EventWebsocketClosed,
	}
	if len(names) != 13 {
		t.Fatalf("expected 13 reserved names, have %d", len(names))
	}
	for _, name := range names {
		if !Protected(name) {
			t.Errorf("Protected(%q) = false, want true", name)
		}
	}
	if Protected("custom") {
		t.Error("custom names must not be protected")
	}
}

func TestMergeLaterKeysWin(t *testing.T) {
	out := Merge(Args{"a": 1, "keep": true}, Args{"a": 2}, Args{"a": 3, "b": 4})
	if out["a"] != 3 || out["b"] != 4 || out["keep"] != true {
		t.Errorf("Merge = %v, want a=3 b=4 keep=true", out)
	}
}
