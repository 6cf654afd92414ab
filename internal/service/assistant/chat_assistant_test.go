package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"aminestudio/internal/gemini"
	"aminestudio/internal/models"
)

func TestChatPersistsExchange(t *testing.T) {
	gen := &fakeGenerator{respond: func(p gemini.Payload) (*gemini.Reply, error) {
		return &gemini.Reply{Text: "consider a cantilevered slab"}, nil
	}}
	svc := newTestService(t, gen)
	ctx := context.Background()

	se, _ := svc.CreateSession(ctx, "chat")
	userMsg, aiMsg, err := svc.Chat(ctx, se.ID, "what about the roof?", "")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if userMsg.Role != models.RoleUser || aiMsg.Role != models.RoleAssistant {
		t.Fatalf("unexpected roles: %s / %s", userMsg.Role, aiMsg.Role)
	}
	if aiMsg.Content != "consider a cantilevered slab" {
		t.Fatalf("assistant content = %q", aiMsg.Content)
	}
	if got := countMessages(t, svc, se.ID); got != 3 {
		t.Fatalf("message count = %d, want seed+user+assistant", got)
	}

	// The seed was the only prior message; it is the whole window.
	p := gen.lastPayload(t)
	if len(p.History) != 1 || p.History[0].Role != "model" {
		t.Fatalf("unexpected history: %+v", p.History)
	}
	if p.System == "" || p.ThinkingBudget != 4000 {
		t.Fatalf("payload not fully populated: %+v", p)
	}
}

func TestChatHistoryWindow(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newTestService(t, gen)
	ctx := context.Background()

	se, _ := svc.CreateSession(ctx, "window")
	for i := 0; i < 5; i++ {
		if _, _, err := svc.Chat(ctx, se.ID, fmt.Sprintf("turn %d", i), ""); err != nil {
			t.Fatalf("chat %d: %v", i, err)
		}
	}

	p := gen.lastPayload(t)
	if len(p.History) != 6 {
		t.Fatalf("history length = %d, want 6", len(p.History))
	}
	// Window is the most recent turns, chronological, ending with the
	// assistant reply to turn 3.
	if p.History[5].Text != "ok" || p.History[4].Text != "turn 3" {
		t.Fatalf("unexpected window tail: %+v", p.History[4:])
	}
	for i, turn := range p.History {
		want := "user"
		if i%2 == 1 {
			want = "model"
		}
		if turn.Role != want {
			t.Fatalf("turn %d role = %s, want %s", i, turn.Role, want)
		}
	}
}

func TestChatRejectsEmpty(t *testing.T) {
	svc := newTestService(t, &fakeGenerator{})
	se, _ := svc.CreateSession(context.Background(), "empty")
	if _, _, err := svc.Chat(context.Background(), se.ID, "   ", ""); err == nil {
		t.Fatal("empty message should be rejected")
	}
	if got := countMessages(t, svc, se.ID); got != 1 {
		t.Fatalf("rejected message should store nothing, count = %d", got)
	}
}

func TestChatBusySessionDropsRequest(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var enteredOnce sync.Once
	gen := &fakeGenerator{respond: func(p gemini.Payload) (*gemini.Reply, error) {
		enteredOnce.Do(func() { close(entered) })
		<-release
		return &gemini.Reply{Text: "slow"}, nil
	}}
	svc := newTestService(t, gen)
	ctx := context.Background()

	se, _ := svc.CreateSession(ctx, "busy")
	done := make(chan error, 1)
	go func() {
		_, _, err := svc.Chat(ctx, se.ID, "first", "")
		done <- err
	}()
	<-entered

	if _, _, err := svc.Chat(ctx, se.ID, "second", ""); !errors.Is(err, ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first chat: %v", err)
	}
	// Only the first exchange landed: seed + user + assistant.
	if got := countMessages(t, svc, se.ID); got != 3 {
		t.Fatalf("message count = %d, want 3", got)
	}
	// The session is usable again.
	if _, _, err := svc.Chat(ctx, se.ID, "third", ""); err != nil {
		t.Fatalf("chat after release: %v", err)
	}
}

func TestChatQuotaRetriedThenMaterialized(t *testing.T) {
	gen := &fakeGenerator{respond: func(p gemini.Payload) (*gemini.Reply, error) {
		return nil, &gemini.Error{Kind: gemini.KindQuota, Message: "rate limited"}
	}}
	svc := newTestService(t, gen)
	ctx := context.Background()

	se, _ := svc.CreateSession(ctx, "quota")
	userMsg, aiMsg, err := svc.Chat(ctx, se.ID, "hello", "")
	if err != nil {
		t.Fatalf("chat should not fail outward: %v", err)
	}
	if gen.callCount() != 3 {
		t.Fatalf("backend calls = %d, want 3 attempts", gen.callCount())
	}
	if userMsg == nil || aiMsg == nil {
		t.Fatal("both sides of the exchange should be stored")
	}
	if aiMsg.Content != failureText(&gemini.Error{Kind: gemini.KindQuota}) {
		t.Fatalf("failure reply = %q", aiMsg.Content)
	}
}

func TestChatAuthFailureNotRetried(t *testing.T) {
	gen := &fakeGenerator{respond: func(p gemini.Payload) (*gemini.Reply, error) {
		return nil, &gemini.Error{Kind: gemini.KindAuth, Message: "API key not configured"}
	}}
	svc := newTestService(t, gen)
	ctx := context.Background()

	se, _ := svc.CreateSession(ctx, "auth")
	_, aiMsg, err := svc.Chat(ctx, se.ID, "hello", "")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if gen.callCount() != 1 {
		t.Fatalf("auth failure retried: %d calls", gen.callCount())
	}
	if aiMsg.Content != failureText(&gemini.Error{Kind: gemini.KindAuth}) {
		t.Fatalf("failure reply = %q", aiMsg.Content)
	}
}

func TestChatWithSketchAttachment(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newTestService(t, gen)
	ctx := context.Background()

	se, _ := svc.CreateSession(ctx, "sketch")
	sketch := (&gemini.DataURI{MIME: "image/png", Data: []byte{1, 2, 3}}).String()
	if _, _, err := svc.Chat(ctx, se.ID, "", sketch); err != nil {
		t.Fatalf("chat with image: %v", err)
	}
	p := gen.lastPayload(t)
	if p.Image == nil || p.Image.MIME != "image/png" {
		t.Fatalf("image not forwarded: %+v", p.Image)
	}
	if p.Text != defaultAnalyzeText {
		t.Fatalf("analyze placeholder missing, text = %q", p.Text)
	}

	if _, _, err := svc.Chat(ctx, se.ID, "x", "not-a-data-uri"); !gemini.IsKind(err, gemini.KindMalformedInput) {
		t.Fatalf("bad data uri should be malformed input, got %v", err)
	}
}

func TestChatCancelledContext(t *testing.T) {
	gen := &fakeGenerator{respond: func(p gemini.Payload) (*gemini.Reply, error) {
		return nil, &gemini.Error{Kind: gemini.KindQuota, Message: "rate limited"}
	}}
	svc := newTestService(t, gen)
	ctx, cancel := context.WithCancel(context.Background())

	se, _ := svc.CreateSession(context.Background(), "cancel")
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	svc.policy = gemini.RetryPolicy{MaxAttempts: 3, InitialDelay: time.Minute, Multiplier: 1.5}
	_, _, err := svc.Chat(ctx, se.ID, "hello", "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
