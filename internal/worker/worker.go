package worker

import "go.uber.org/zap"

// Job is one unit of background work, typically a raster trace.
type Job struct {
	ID  string
	Run func()

	stop bool // internal retirement signal
}

type Worker struct {
	pool       *jobChannelPool
	jobChannel chan Job
	logger     *zap.Logger
}

func NewWorker(pool *jobChannelPool, logger *zap.Logger) *Worker {
	return &Worker{
		pool:       pool,
		jobChannel: make(chan Job),
		logger:     logger,
	}
}

func (w *Worker) Start() {
	go func() {
		// Announce availability before the first receive so acquire can
		// find this worker in the idle queue.
		w.pool.release(w.jobChannel)
		for job := range w.jobChannel {
			if job.stop {
				w.pool.retire(w.jobChannel)
				return
			}
			w.runSafe(job)
			w.pool.release(w.jobChannel)
		}
	}()
}

// runSafe keeps a panicking job from taking the worker down with it.
func (w *Worker) runSafe(job Job) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("job panicked", zap.String("job", job.ID), zap.Any("panic", r))
		}
	}()
	if job.Run != nil {
		job.Run()
	}
}
