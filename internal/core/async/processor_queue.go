package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-digitizer/constants"
	jobs "github.com/joseph-ayodele/po-digitizer/internal/async"
	"github.com/joseph-ayodele/po-digitizer/internal/common"
	"github.com/joseph-ayodele/po-digitizer/internal/core"
)

// FileProcessor structures one document from disk.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string, langs []string) (*core.Outcome, error)
}

type ProcessorQueue struct {
	proc    FileProcessor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan jobs.Job
	wg   sync.WaitGroup
	once sync.Once

	sendMu sync.RWMutex
	mu     sync.Mutex
	closed bool
	states map[uuid.UUID]*jobs.JobState
}

var _ jobs.Queue = (*ProcessorQueue)(nil)

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan jobs.Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(proc FileProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 2 * time.Minute,
		ch:      make(chan jobs.Job, 256),
		states:  make(map[uuid.UUID]*jobs.JobState),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
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

func (q *ProcessorQueue) run(workerID int, job jobs.Job) {
	q.update(job.ID, func(s *jobs.JobState) { s.Status = constants.JobStatusRunning })

	ctx := common.WithRequestID(context.Background(), job.TraceID)
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	out, err := q.proc.ProcessFile(ctx, job.Path, job.Languages)
	cancel()

	finished := time.Now().UTC()
	if err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "job_id", job.ID, "path", job.Path, "error", err)
		q.update(job.ID, func(s *jobs.JobState) {
			s.Status = constants.JobStatusFailed
			s.Error = common.Message(err)
			s.FinishedAt = &finished
		})
		return
	}

	q.update(job.ID, func(s *jobs.JobState) {
		s.Status = constants.JobStatusStructured
		s.FinishedAt = &finished
		if out != nil && out.Stored != nil {
			id := out.Stored.ID
			s.ResultID = &id
		}
	})
	q.logger.Info("processed file successfully", "worker_id", workerID, "job_id", job.ID, "path", job.Path)
}

func (q *ProcessorQueue) update(id uuid.UUID, fn func(*jobs.JobState)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s, ok := q.states[id]; ok {
		fn(s)
	}
}

// Enqueue registers the job and hands it to the workers. When the buffer is
// full it blocks until space frees up or ctx ends.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job jobs.Job) (uuid.UUID, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}

	// sendMu keeps Shutdown from closing ch under a blocked sender.
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return uuid.Nil, common.UnavailableError("queue is shutting down")
	}
	q.states[job.ID] = &jobs.JobState{
		ID:          job.ID,
		Path:        job.Path,
		Status:      constants.JobStatusQueued,
		SubmittedAt: job.SubmittedAt,
	}
	q.mu.Unlock()

	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue full, applying backpressure", "job_id", job.ID, "path", job.Path)
		select {
		case q.ch <- job:
		case <-ctx.Done():
			q.mu.Lock()
			delete(q.states, job.ID)
			q.mu.Unlock()
			return uuid.Nil, errors.Join(common.ErrQueueFull, ctx.Err())
		}
	}
	q.logger.Info("queued file for processing", "job_id", job.ID, "path", job.Path)
	return job.ID, nil
}

// Status reports the state of a job submitted to this process.
func (q *ProcessorQueue) Status(id uuid.UUID) (jobs.JobState, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.states[id]
	if !ok {
		return jobs.JobState{}, false
	}
	return *s, true
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.sendMu.Lock()
	close(q.ch)
	q.sendMu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
