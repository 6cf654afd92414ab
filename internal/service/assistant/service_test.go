package assistant

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"aminestudio/internal/gemini"
	"aminestudio/internal/storage"
	"aminestudio/internal/worker"

	_ "github.com/mattn/go-sqlite3"
)

// fakeGenerator scripts backend replies and records payloads.
type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	payloads []gemini.Payload
	respond  func(p gemini.Payload) (*gemini.Reply, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, p gemini.Payload) (*gemini.Reply, error) {
	f.mu.Lock()
	f.calls++
	f.payloads = append(f.payloads, p)
	respond := f.respond
	f.mu.Unlock()
	if respond == nil {
		return &gemini.Reply{Text: "ok"}, nil
	}
	return respond(p)
}

func (f *fakeGenerator) Configured() bool { return true }

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeGenerator) lastPayload(t *testing.T) gemini.Payload {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		t.Fatal("no backend calls recorded")
	}
	return f.payloads[len(f.payloads)-1]
}

func newTestService(t *testing.T, gen Generator) *Service {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "studio.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	runtime := worker.NewManager(worker.Config{MinWorkers: 1, MaxWorkers: 2, QueueSize: 8}, nil)
	t.Cleanup(runtime.Stop)

	svc, err := NewService(db, gen, nil, runtime, Options{
		HistoryWindow: 6,
		RetryPolicy:   gemini.RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 1.5},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func countMessages(t *testing.T, svc *Service, sessionID int64) int {
	t.Helper()
	_, msgs, err := svc.GetSessionWithMessages(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return len(msgs)
}
