package goSession

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/store/memory"
)

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	return &captureSink{events: make(chan AuditEvent, buffer)}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *captureSink) next(t *testing.T) AuditEvent {
	t.Helper()
	select {
	case event := <-s.events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
		return AuditEvent{}
	}
}

func newAuditTestEngine(t *testing.T) (*testEnv, *captureSink) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	cfg := testConfig(t)
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64

	st := memory.New()
	provider := newTestIdentityProvider()
	sink := newCaptureSink(64)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithStore(st).
		WithIdentityProvider(provider).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, store: st, provider: provider, redis: mr}, sink
}

func TestAuditSessionIssued(t *testing.T) {
	env, sink := newAuditTestEngine(t)
	ctx := WithClientIP(context.Background(), "203.0.113.7")

	session, err := env.engine.IssueSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	event := sink.next(t)
	if event.EventType != "session_issued" {
		t.Fatalf("EventType = %q, want session_issued", event.EventType)
	}
	if !event.Success {
		t.Fatal("expected success event")
	}
	if event.UserID != "user-1" || event.TokenID != session.TokenID {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.IP != "203.0.113.7" {
		t.Fatalf("IP = %q, want 203.0.113.7", event.IP)
	}
	if event.Metadata["family_id"] != session.FamilyID {
		t.Fatalf("family_id = %q, want %q", event.Metadata["family_id"], session.FamilyID)
	}
}

func TestAuditReuseEmitsCascadePair(t *testing.T) {
	env, sink := newAuditTestEngine(t)
	ctx := context.Background()

	session, err := env.engine.IssueSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	sink.next(t) // session_issued

	if _, err := env.engine.Rotate(ctx, session.RefreshToken); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	sink.next(t) // rotation_success

	if _, err := env.engine.Rotate(ctx, session.RefreshToken); !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("err = %v, want ErrTokenUsed", err)
	}

	reuse := sink.next(t)
	if reuse.EventType != "reuse_detected" {
		t.Fatalf("EventType = %q, want reuse_detected", reuse.EventType)
	}
	if reuse.Error != "token_used" {
		t.Fatalf("Error = %q, want token_used", reuse.Error)
	}

	cascade := sink.next(t)
	if cascade.EventType != "family_revoked" {
		t.Fatalf("EventType = %q, want family_revoked", cascade.EventType)
	}
	if cascade.Metadata["reason"] != "reuse detected" {
		t.Fatalf("reason = %q, want %q", cascade.Metadata["reason"], "reuse detected")
	}
}

func TestAuditDisabledEmitsNothing(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := env.engine.IssueSession(ctx, "user-1"); err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	if dropped := env.engine.AuditDropped(); dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
}
