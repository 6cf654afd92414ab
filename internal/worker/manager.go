package worker

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned when the job queue cannot take more work.
var ErrQueueFull = errors.New("worker: job queue full")

// Config sizes the background pool.
type Config struct {
	MinWorkers  int
	MaxWorkers  int
	QueueSize   int
	IdleTimeout time.Duration
}

// Manager owns the background trace pool and the per-session in-flight
// flags that keep each consultation to one generation at a time.
type Manager struct {
	logger *zap.Logger
	pool   *jobChannelPool
	queue  chan Job

	mu     sync.Mutex
	busy   map[int64]struct{}
	closed bool
}

func NewManager(cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 16
	}
	m := &Manager{
		logger: logger,
		pool:   newJobChannelPool(cfg.MinWorkers, cfg.MaxWorkers, cfg.IdleTimeout, logger),
		queue:  make(chan Job, queueSize),
		busy:   make(map[int64]struct{}),
	}
	go m.dispatch()
	return m
}

func (m *Manager) dispatch() {
	for job := range m.queue {
		ch := m.pool.acquire()
		ch <- job
	}
}

// TryAcquire marks a session as having a generation in flight. It
// returns false when one is already running; the caller must then
// drop the request rather than queue it.
func (m *Manager) TryAcquire(sessionID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, inFlight := m.busy[sessionID]; inFlight {
		return false
	}
	m.busy[sessionID] = struct{}{}
	return true
}

// Release clears the in-flight flag for a session.
func (m *Manager) Release(sessionID int64) {
	m.mu.Lock()
	delete(m.busy, sessionID)
	m.mu.Unlock()
}

// Submit queues a background job for the pool. The send happens under
// the mutex so Stop cannot close the queue between the closed check and
// the send.
func (m *Manager) Submit(job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("worker: manager stopped")
	}

	select {
	case m.queue <- job:
		return nil
	default:
		m.logger.Warn("job queue saturated", zap.String("job", job.ID))
		return ErrQueueFull
	}
}

// Stop shuts down job intake and the idle purger. Workers finish
// whatever they already pulled.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()
	m.pool.stop()
}
