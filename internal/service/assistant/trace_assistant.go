package assistant

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aminestudio/internal/gemini"
	"aminestudio/internal/models"
	"aminestudio/internal/tracer"
	"aminestudio/internal/worker"
)

// DefaultTraceJobTTL bounds how long finished trace jobs stay around
// for polling before the cleaner removes them.
const DefaultTraceJobTTL = 30 * time.Minute

// DefaultTraceCleanupInterval is how often expired jobs are purged.
const DefaultTraceCleanupInterval = 10 * time.Minute

// StartTrace validates the raster, records a pending job and hands the
// vectorization to the worker pool. The returned id is polled via
// GetTraceJob.
func (s *Service) StartTrace(ctx context.Context, img *gemini.DataURI, opts tracer.Options) (string, error) {
	decoded, err := tracer.Decode(img.Data)
	if err != nil {
		return "", &gemini.Error{Kind: gemini.KindMalformedInput, Message: "undecodable raster: " + err.Error()}
	}

	jobID := uuid.NewString()
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO trace_jobs (id, status, svg, error, created_at, updated_at) VALUES (?, ?, '', '', ?, ?)`,
		jobID, models.TraceStatusPending, now, now,
	); err != nil {
		return "", fmt.Errorf("record trace job: %w", err)
	}

	err = s.runtime.Submit(worker.Job{
		ID: jobID,
		Run: func() {
			svg, traceErr := tracer.Trace(decoded, opts)
			if traceErr != nil {
				s.failTraceJob(jobID, traceErr.Error())
				return
			}
			s.completeTraceJob(jobID, svg)
		},
	})
	if err != nil {
		s.failTraceJob(jobID, "trace queue full")
		return "", err
	}
	return jobID, nil
}

// GetTraceJob returns the job's current state, sql.ErrNoRows when the
// id is unknown or already purged.
func (s *Service) GetTraceJob(ctx context.Context, jobID string) (*models.TraceJob, error) {
	job := new(models.TraceJob)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, svg, error, created_at, updated_at FROM trace_jobs WHERE id = ?`,
		jobID,
	).Scan(&job.ID, &job.Status, &job.SVG, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get trace job: %w", err)
	}
	return job, nil
}

func (s *Service) completeTraceJob(jobID, svg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE trace_jobs SET status = ?, svg = ?, updated_at = ? WHERE id = ?`,
		models.TraceStatusDone, svg, time.Now().UTC(), jobID,
	); err != nil {
		s.logger.Error("store trace result", zap.String("job", jobID), zap.Error(err))
	}
}

func (s *Service) failTraceJob(jobID, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE trace_jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		models.TraceStatusFailed, reason, time.Now().UTC(), jobID,
	); err != nil {
		s.logger.Error("store trace failure", zap.String("job", jobID), zap.Error(err))
	}
}

// CleanupExpiredTraceJobs deletes finished jobs older than ttl.
func (s *Service) CleanupExpiredTraceJobs(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		ttl = DefaultTraceJobTTL
	}
	cutoff := time.Now().UTC().Add(-ttl)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM trace_jobs WHERE updated_at < ? AND status != ?`,
		cutoff, models.TraceStatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup trace jobs: %w", err)
	}
	return res.RowsAffected()
}

// StartTraceJobCleaner runs the purge loop until ctx is cancelled.
func (s *Service) StartTraceJobCleaner(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 {
		interval = DefaultTraceCleanupInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.CleanupExpiredTraceJobs(ctx, ttl)
				if err != nil {
					s.logger.Warn("trace job cleanup failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					s.logger.Info("purged expired trace jobs", zap.Int64("count", removed))
				}
			}
		}
	}()
}
