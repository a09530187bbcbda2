package jobs

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/relaychat/relay-backend/internal/jobs/runtime"
	"github.com/relaychat/relay-backend/internal/logger"
	"github.com/relaychat/relay-backend/internal/repos"
	"github.com/relaychat/relay-backend/internal/utils"
)

// Worker polls job_run for due work and dispatches claimed rows to registered
// handlers. Claiming uses FOR UPDATE SKIP LOCKED, so several workers (or
// several processes) can poll the same table safely.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry

	concurrency  int
	pollInterval time.Duration
	maxAttempts  int
	retryDelay   time.Duration
	staleRunning time.Duration
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry) *Worker {
	log := baseLog.With("component", "JobWorker")
	return &Worker{
		db:           db,
		log:          log,
		repo:         repo,
		registry:     registry,
		concurrency:  utils.GetEnvAsInt("WORKER_CONCURRENCY", 2, log),
		pollInterval: utils.GetEnvAsDuration("WORKER_POLL_INTERVAL", time.Second, log),
		maxAttempts:  utils.GetEnvAsInt("WORKER_MAX_ATTEMPTS", 5, log),
		retryDelay:   utils.GetEnvAsDuration("WORKER_RETRY_DELAY", 30*time.Second, log),
		staleRunning: utils.GetEnvAsDuration("WORKER_STALE_RUNNING", 2*time.Minute, log),
	}
}

func (w *Worker) Start(ctx context.Context) {
	n := w.concurrency
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		go w.loop(ctx)
	}
	w.log.Info("Job worker started", "concurrency", n, "poll_interval", w.pollInterval.String())
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	job, err := w.repo.ClaimNextRunnable(ctx, nil, w.maxAttempts, w.retryDelay, w.staleRunning)
	if err != nil {
		w.log.Warn("ClaimNextRunnable failed", "error", err)
		return
	}
	if job == nil {
		return
	}

	jc := runtime.NewContext(ctx, w.db, job, w.repo)

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("No handler registered for job_type", "job_type", job.JobType, "job_id", job.ID)
		jc.Fail("dispatch", fmt.Errorf("no handler registered for job_type=%s", job.JobType))
		return
	}

	// A panicking handler must not take the loop down with it.
	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Job handler panic", "job_id", job.ID, "job_type", job.JobType, "panic", r)
				jc.Fail("panic", fmt.Errorf("panic: %v", r))
			}
		}()
		if err := h.Run(jc); err != nil {
			w.log.Warn("Job handler failed", "job_id", job.ID, "job_type", job.JobType, "error", err)
		}
	}()
}
