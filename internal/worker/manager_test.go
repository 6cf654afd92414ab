package worker

import (
	"sync"
	"testing"
	"time"
)

func testManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	m := NewManager(cfg, nil)
	t.Cleanup(m.Stop)
	return m
}

func TestTryAcquireIsExclusive(t *testing.T) {
	m := testManager(t, Config{MinWorkers: 1, MaxWorkers: 1})

	if !m.TryAcquire(7) {
		t.Fatal("first acquire should succeed")
	}
	if m.TryAcquire(7) {
		t.Fatal("second acquire for same session should fail")
	}
	if !m.TryAcquire(8) {
		t.Fatal("other sessions should be unaffected")
	}
	m.Release(7)
	if !m.TryAcquire(7) {
		t.Fatal("acquire after release should succeed")
	}
}

func TestSubmitRunsJob(t *testing.T) {
	m := testManager(t, Config{MinWorkers: 1, MaxWorkers: 2})

	done := make(chan struct{})
	if err := m.Submit(Job{ID: "j1", Run: func() { close(done) }}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestSubmitRunsJobsConcurrently(t *testing.T) {
	m := testManager(t, Config{MinWorkers: 1, MaxWorkers: 4, QueueSize: 8})

	const n = 4
	var wg sync.WaitGroup
	wg.Add(n)
	gate := make(chan struct{})
	for i := 0; i < n; i++ {
		if err := m.Submit(Job{Run: func() {
			<-gate
			wg.Done()
		}}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	close(gate)
	waitDone := make(chan struct{})
	go func() { wg.Wait(); close(waitDone) }()
	select {
	case <-waitDone:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not all complete")
	}
}

func TestSubmitReportsSaturation(t *testing.T) {
	m := testManager(t, Config{MinWorkers: 1, MaxWorkers: 1, QueueSize: 1})

	gate := make(chan struct{})
	blocker := Job{Run: func() { <-gate }}
	// One job on the worker, one held by the dispatcher, one queued.
	for i := 0; i < 3; i++ {
		if err := m.Submit(blocker); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err := m.Submit(blocker); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	close(gate)
}

func TestSubmitDuringStopDoesNotPanic(t *testing.T) {
	m := NewManager(Config{MinWorkers: 1, MaxWorkers: 2, QueueSize: 4}, nil)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			// Errors are fine here; a send on the closed queue would panic.
			m.Submit(Job{Run: func() {}})
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		m.Stop()
	}()
	close(start)
	wg.Wait()

	if err := m.Submit(Job{Run: func() {}}); err == nil {
		t.Fatal("submit after stop should fail")
	}
}
