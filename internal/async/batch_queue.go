package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/photomapper/internal/pipeline"
)

// ReportFunc observes every finished job.
type ReportFunc func(job Job, report *pipeline.BatchReport, err error)

// BatchQueue feeds selections to a processor. One worker by default, so
// batches run one after another and peak memory stays at one bitmap.
type BatchQueue struct {
	proc     BatchProcessor
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onReport ReportFunc

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*BatchQueue)

func WithWorkers(n int) Option {
	return func(q *BatchQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *BatchQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *BatchQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func WithOnReport(fn ReportFunc) Option {
	return func(q *BatchQueue) { q.onReport = fn }
}

func NewBatchQueue(proc BatchProcessor, logger *slog.Logger, opts ...Option) *BatchQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &BatchQueue{
		proc:    proc,
		logger:  logger,
		workers: 1,
		timeout: 5 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *BatchQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *BatchQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	report, err := q.proc.ProcessBatch(ctx, job.Selection)
	if err != nil {
		q.logger.Error("batch failed", "worker_id", workerID, "job_id", job.ID, "source", job.Source, "error", err)
	} else {
		q.logger.Info("batch processed", "worker_id", workerID, "job_id", job.ID, "batch_id", report.BatchID,
			"wait_ms", time.Since(job.SubmittedAt).Milliseconds())
	}
	if q.onReport != nil {
		q.onReport(job, report, err)
	}
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *BatchQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "job_id", job.ID)
		return ErrQueueClosed
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued batch", "job_id", job.ID, "files", len(job.Selection.Files), "source", job.Source)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "job_id", job.ID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for queued jobs to drain or ctx to end.
func (q *BatchQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
