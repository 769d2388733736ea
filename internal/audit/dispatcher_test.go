package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcherStampsAndDrains(t *testing.T) {
	fixed := time.Unix(1_700_000_000, 0).UTC()
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink, func() time.Time { return fixed })

	d.Emit(context.Background(), Event{EventType: "login_success", Username: "alice"})
	d.Close()

	select {
	case ev := <-sink.Events():
		if ev.ID == "" {
			t.Fatalf("expected event id to be stamped")
		}
		if !ev.Timestamp.Equal(fixed) {
			t.Fatalf("unexpected timestamp %v", ev.Timestamp)
		}
		if ev.Username != "alice" {
			t.Fatalf("unexpected username %q", ev.Username)
		}
	default:
		t.Fatalf("expected drained event")
	}

	// Emit after close is a no-op.
	d.Emit(context.Background(), Event{EventType: "late"})
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{}, NoOpSink{}, nil)
	if d != nil {
		t.Fatalf("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatalf("expected zero drops on nil dispatcher")
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(context.Context, Event) { <-s.release }

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink, nil)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "login_failure"})
	}
	if d.Dropped() == 0 {
		t.Fatalf("expected drops with a stalled sink")
	}
	close(sink.release)
	d.Close()
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	NewJSONWriterSink(&buf).Emit(context.Background(), Event{ID: "x", EventType: "logout", Realm: "SWAD"})

	line := strings.TrimSpace(buf.String())
	var ev Event
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.EventType != "logout" || ev.Realm != "SWAD" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestZapSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	NewZapSink(zap.New(core)).Emit(context.Background(), Event{
		ID:        "id-1",
		EventType: "login_blocked",
		Realm:     "admin",
		Username:  "bob",
	})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if entries[0].Message != "login_blocked" || fields["realm"] != "admin" || fields["username"] != "bob" {
		t.Fatalf("unexpected entry %q %v", entries[0].Message, fields)
	}
	if _, ok := fields["checker"]; ok {
		t.Fatalf("empty fields must be omitted")
	}
}
