package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/po-digitizer/constants"
	jobs "github.com/joseph-ayodele/po-digitizer/internal/async"
	"github.com/joseph-ayodele/po-digitizer/internal/common"
	"github.com/joseph-ayodele/po-digitizer/internal/core"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
)

type fakeProcessor struct {
	mu      sync.Mutex
	paths   []string
	langs   [][]string
	release chan struct{}
	fail    map[string]error
}

func (f *fakeProcessor) ProcessFile(ctx context.Context, path string, langs []string) (*core.Outcome, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.langs = append(f.langs, langs)
	f.mu.Unlock()
	if err := f.fail[path]; err != nil {
		return nil, err
	}
	return &core.Outcome{Stored: &entity.StoredResult{ID: uuid.NewSHA1(uuid.NameSpaceURL, []byte(path))}}, nil
}

func waitFor(t *testing.T, q *ProcessorQueue, id uuid.UUID, want constants.JobStatus) jobs.JobState {
	t.Helper()
	var state jobs.JobState
	require.Eventually(t, func() bool {
		var ok bool
		state, ok = q.Status(id)
		return ok && state.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return state
}

func TestQueueProcessesJobs(t *testing.T) {
	proc := &fakeProcessor{fail: map[string]error{
		"broken.pdf": common.NewAppError("LOAD_FAILED", "could not read document lines", errors.New("boom")),
	}}
	q := NewProcessorQueue(proc, nil, WithWorkers(2), WithQueueSize(4))

	okID, err := q.Enqueue(context.Background(), jobs.Job{Path: "po-1.json", Languages: []string{"hin"}})
	require.NoError(t, err)
	badID, err := q.Enqueue(context.Background(), jobs.Job{Path: "broken.pdf"})
	require.NoError(t, err)

	done := waitFor(t, q, okID, constants.JobStatusStructured)
	require.NotNil(t, done.ResultID)
	assert.Equal(t, uuid.NewSHA1(uuid.NameSpaceURL, []byte("po-1.json")), *done.ResultID)
	assert.NotNil(t, done.FinishedAt)
	assert.False(t, done.SubmittedAt.IsZero())

	failed := waitFor(t, q, badID, constants.JobStatusFailed)
	assert.Equal(t, "could not read document lines", failed.Error)
	assert.Nil(t, failed.ResultID)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)

	_, err = q.Enqueue(context.Background(), jobs.Job{Path: "late.json"})
	require.Error(t, err)
	proc.mu.Lock()
	defer proc.mu.Unlock()
	assert.ElementsMatch(t, []string{"po-1.json", "broken.pdf"}, proc.paths)
}

func TestQueueBackpressureHonorsContext(t *testing.T) {
	proc := &fakeProcessor{release: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1))

	first, err := q.Enqueue(context.Background(), jobs.Job{Path: "a.json"})
	require.NoError(t, err)
	waitFor(t, q, first, constants.JobStatusRunning)

	_, err = q.Enqueue(context.Background(), jobs.Job{Path: "b.json"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	id, err := q.Enqueue(ctx, jobs.Job{Path: "c.json"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrQueueFull)
	assert.Equal(t, uuid.Nil, id)

	close(proc.release)
	shutdownCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	q.Shutdown(shutdownCtx)

	proc.mu.Lock()
	defer proc.mu.Unlock()
	assert.Equal(t, []string{"a.json", "b.json"}, proc.paths)
}

func TestStatusUnknownJob(t *testing.T) {
	q := NewProcessorQueue(&fakeProcessor{}, nil, WithWorkers(1))
	defer q.Shutdown(context.Background())
	_, ok := q.Status(uuid.New())
	assert.False(t, ok)
}
