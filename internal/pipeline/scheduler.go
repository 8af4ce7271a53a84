package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/wildvox/wildvox/internal/domain/analysis"
	"github.com/wildvox/wildvox/internal/domain/artifacts"
	"github.com/wildvox/wildvox/internal/logger"
)

// Handle is the caller-facing reference to an in-flight (or just-created)
// analysis job. Concurrent Submit calls for the same artifact observe the
// same handle while the job is non-terminal.
type Handle struct {
	JobID      analysis.JobID
	ArtifactID artifacts.ArtifactID

	token  atomic.Int64 // bumped on cancel; compared at commit time
	mu     sync.Mutex   // serializes commits for this job only
	cancel context.CancelFunc
	done   chan struct{}
}

// Token returns the current attempt token. A worker captures it before
// dispatching and the commit path rejects results carrying a stale token.
func (h *Handle) Token() int64 { return h.token.Load() }

// Invalidate bumps the token so any in-flight worker result becomes stale.
func (h *Handle) Invalidate() { h.token.Add(1) }

// Done closes when the worker finishes (terminal state committed and the
// artifact lease released).
func (h *Handle) Done() <-chan struct{} { return h.done }

type dispatch struct {
	job *analysis.Job
	h   *Handle
	ctx context.Context
}

// Scheduler performs admission control and dispatch: it deduplicates
// concurrent requests per artifact via a lease table, and feeds a fixed
// worker pool that runs the orchestrator.
type Scheduler struct {
	orch *Orchestrator
	log  *logger.Logger

	workers int
	queue   chan dispatch

	mu     sync.Mutex
	leases map[artifacts.ArtifactID]*Handle

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

func NewScheduler(orch *Orchestrator, workers int, log *logger.Logger) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		orch:    orch,
		log:     log,
		workers: workers,
		queue:   make(chan dispatch, 256),
		leases:  make(map[artifacts.ArtifactID]*Handle),
		baseCtx: ctx,
		stop:    cancel,
	}
}

// Start launches the worker pool.
func (s *Scheduler) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// ErrSchedulerStopped is returned by Submit after Stop.
var ErrSchedulerStopped = errors.New("scheduler stopped")

// Stop cancels all in-flight work and waits for the workers to exit. Jobs
// still queued are abandoned in a non-terminal state; the startup sweep
// fails them on the next run.
func (s *Scheduler) Stop() {
	s.stop()
	s.wg.Wait()
}

// Submit admits an analysis request for the artifact. If a non-terminal job
// already holds the artifact lease the existing handle is returned
// (idempotent dedup); otherwise a new job is created and enqueued. The
// second return reports whether a new job was created.
func (s *Scheduler) Submit(ctx context.Context, artifactID artifacts.ArtifactID) (*Handle, bool, error) {
	if s.baseCtx.Err() != nil {
		return nil, false, ErrSchedulerStopped
	}

	s.mu.Lock()
	if h, ok := s.leases[artifactID]; ok {
		s.mu.Unlock()
		return h, false, nil
	}

	job, err := s.orch.CreateJob(ctx, artifactID)
	if err != nil {
		s.mu.Unlock()
		return nil, false, err
	}

	runCtx, cancel := context.WithCancel(s.baseCtx)
	h := &Handle{
		JobID:      job.ID,
		ArtifactID: artifactID,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	s.leases[artifactID] = h
	s.mu.Unlock()

	// Never send on a queue the workers stopped reading: Stop must not be
	// able to race this into a stuck Submit or a panic.
	select {
	case s.queue <- dispatch{job: job, h: h, ctx: runCtx}:
	case <-s.baseCtx.Done():
		s.release(h)
		return nil, false, ErrSchedulerStopped
	}
	return h, true, nil
}

// Cancel requests cancellation of the artifact's non-terminal job. The job
// transitions to failed (cancelled) immediately; the in-flight worker is
// signalled and its eventual result is discarded via the stale token.
func (s *Scheduler) Cancel(ctx context.Context, artifactID artifacts.ArtifactID) bool {
	s.mu.Lock()
	h, ok := s.leases[artifactID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	h.Invalidate()
	if err := s.orch.CancelJob(ctx, h); err != nil {
		s.log.WithError(err).WithField("job_id", string(h.JobID)).Warn("cancel commit failed")
	}
	h.cancel()
	return true
}

// Active returns the handle currently holding the artifact lease, if any.
func (s *Scheduler) Active(artifactID artifacts.ArtifactID) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.leases[artifactID]
	return h, ok
}

func (s *Scheduler) worker(n int) {
	defer s.wg.Done()
	log := s.log.WithField("worker", n)
	for {
		select {
		case <-s.baseCtx.Done():
			return
		case d := <-s.queue:
			log.WithField("job_id", string(d.job.ID)).Debug("job picked up")
			s.orch.Run(d.ctx, d.job, d.h)
			s.release(d.h)
		}
	}
}

// release drops the artifact lease once its job is terminal.
func (s *Scheduler) release(h *Handle) {
	s.mu.Lock()
	delete(s.leases, h.ArtifactID)
	s.mu.Unlock()
	close(h.done)
}
