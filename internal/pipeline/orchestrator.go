package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wildvox/wildvox/internal/application"
	"github.com/wildvox/wildvox/internal/audiocodec"
	"github.com/wildvox/wildvox/internal/domain/analysis"
	"github.com/wildvox/wildvox/internal/domain/artifacts"
	"github.com/wildvox/wildvox/internal/domain/inference"
	"github.com/wildvox/wildvox/internal/logger"
	"github.com/wildvox/wildvox/internal/quality"
)

// ErrStaleCommit is returned when a worker tries to commit against a job
// that already reached a terminal state (typically after cancellation).
var ErrStaleCommit = errors.New("stale commit discarded")

// Orchestrator is the per-artifact state machine. It exclusively owns job
// transitions: the aggregator only returns an outcome, repositories only
// persist what they are handed.
type Orchestrator struct {
	Jobs      analysis.JobRepository
	Results   analysis.ResultRepository
	JobErrors analysis.JobErrorRepository
	Artifacts artifacts.Repository
	Blobs     artifacts.BlobStore
	Cipher    artifacts.Cipher
	QC        *quality.Engine
	Engine    inference.Engine
	Agg       Aggregator
	Clock     application.Clock
	Log       *logger.Logger

	MaxAttempts    int
	JobTimeout     time.Duration
	InitialBackoff time.Duration
}

// CreateJob persists a fresh job in the uploaded state.
func (o *Orchestrator) CreateJob(ctx context.Context, artifactID artifacts.ArtifactID) (*analysis.Job, error) {
	now := o.Clock.Now()
	job := &analysis.Job{
		ID:         analysis.JobID(uuid.New().String()),
		ArtifactID: artifactID,
		Status:     analysis.StatusUploaded,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := o.Jobs.Save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Run drives one job from uploaded to a terminal state. Called on a worker
// goroutine; ctx is cancelled on Stop or Cancel.
func (o *Orchestrator) Run(ctx context.Context, job *analysis.Job, h *Handle) {
	log := o.Log.WithField("job_id", string(job.ID)).WithField("artifact_id", string(job.ArtifactID))

	art, err := o.Artifacts.Get(ctx, job.ArtifactID)
	if err != nil {
		o.fail(ctx, h, job, "fetch", fmt.Sprintf("load artifact: %v", err))
		return
	}

	sig, raw, err := o.loadSignal(ctx, art)
	if err != nil {
		phase := "fetch"
		if errors.Is(err, audiocodec.ErrDecode) {
			phase = "decode"
		}
		log.WithError(err).Warn("audio unavailable or undecodable")
		o.fail(ctx, h, job, phase, err.Error())
		return
	}

	// Quality gate precedes any inference.
	verdict := o.QC.Evaluate(art.ID, sig)
	job.Verdict = &verdict
	if err := o.commit(ctx, h, h.Token(), job, analysis.StatusQualityChecked, nil, ""); err != nil {
		return
	}
	log.WithField("score", verdict.Score).WithField("usable", verdict.Usable).Info("quality check done")

	if !verdict.Usable {
		_ = o.commit(ctx, h, h.Token(), job, analysis.StatusRejected, nil, "")
		return
	}

	if err := o.commit(ctx, h, h.Token(), job, analysis.StatusDispatched, nil, ""); err != nil {
		return
	}

	tok := h.Token()
	out, inferErr := o.infer(ctx, h, tok, job, art, sig, raw)

	now := o.Clock.Now()
	if inferErr != nil {
		o.failStale(ctx, h, tok, job, "inference", failureReason(inferErr, job.Attempts))
		return
	}

	state, res := o.Agg.Reconcile(job, verdict, out, nil, now)
	if err := o.commit(ctx, h, tok, job, state, res, ""); err != nil {
		log.Info("late result discarded")
		return
	}
	log.WithField("state", string(state)).Info("job finalized")
}

// CancelJob transitions the handle's job to failed (cancelled). The caller
// must have invalidated the handle token first.
func (o *Orchestrator) CancelJob(ctx context.Context, h *Handle) error {
	job, err := o.Jobs.Get(ctx, h.JobID)
	if err != nil {
		return err
	}
	return o.commit(ctx, h, h.Token(), job, analysis.StatusFailed, nil, "cancelled")
}

func (o *Orchestrator) loadSignal(ctx context.Context, art *artifacts.AudioArtifact) (audiocodec.Signal, []byte, error) {
	ciphertext, err := o.Blobs.Get(ctx, art.StorageKey)
	if err != nil {
		return audiocodec.Signal{}, nil, err
	}
	plain, err := o.Cipher.Decrypt(ciphertext)
	if err != nil {
		return audiocodec.Signal{}, nil, fmt.Errorf("decrypt: %w", err)
	}
	sig, err := audiocodec.Decode(art.Format, plain)
	if err != nil {
		return audiocodec.Signal{}, nil, err
	}
	return sig, plain, nil
}

// infer runs the backend under the job's wall-clock budget, retrying
// transient failures with exponential backoff. Model rejections are never
// retried.
func (o *Orchestrator) infer(ctx context.Context, h *Handle, tok int64, job *analysis.Job, art *artifacts.AudioArtifact, sig audiocodec.Signal, raw []byte) (inference.Output, error) {
	infCtx, cancel := context.WithTimeout(ctx, o.JobTimeout)
	defer cancel()

	req := inference.Request{
		ArtifactID: art.ID,
		Species:    art.Species,
		Format:     art.Format,
		Audio:      raw,
		Duration:   sig.Duration(),
	}

	var out inference.Output
	var err error
	for attempt := 1; attempt <= o.MaxAttempts; attempt++ {
		if serr := o.recordAttempt(ctx, h, tok, job, attempt); serr != nil {
			return inference.Output{}, serr
		}
		out, err = o.Engine.Infer(infCtx, req)
		if err == nil || !errors.Is(err, inference.ErrUnavailable) {
			return out, err
		}
		if attempt == o.MaxAttempts {
			break
		}
		select {
		case <-infCtx.Done():
			return inference.Output{}, infCtx.Err()
		case <-time.After(NextDelay(o.InitialBackoff, attempt)):
		}
	}
	return inference.Output{}, err
}

// recordAttempt persists the attempt counter under the handle's commit lock
// so it cannot race a concurrent cancellation.
func (o *Orchestrator) recordAttempt(ctx context.Context, h *Handle, tok int64, job *analysis.Job, attempt int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.Token() != tok {
		return ErrStaleCommit
	}
	cur, err := o.Jobs.Get(ctx, job.ID)
	if err != nil {
		return err
	}
	if cur.Status.Terminal() {
		return ErrStaleCommit
	}
	job.Attempts = attempt
	job.UpdatedAt = o.Clock.Now()
	return o.Jobs.Save(ctx, job)
}

// commit applies one state transition, writing the result (if any) before
// the terminal status becomes visible. The lock lives on the handle, so only
// the worker-vs-cancel race for the same job serializes; jobs on distinct
// artifacts commit in parallel. Stale tokens and already-terminal jobs are
// discarded, which is what protects a cancelled job from a late-arriving
// inference result.
func (o *Orchestrator) commit(ctx context.Context, h *Handle, tok int64, job *analysis.Job, to analysis.Status, res *analysis.Result, lastErr string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.Token() != tok {
		return ErrStaleCommit
	}
	cur, err := o.Jobs.Get(ctx, job.ID)
	if err != nil {
		return err
	}
	if cur.Status.Terminal() {
		return ErrStaleCommit
	}
	if !analysis.CanTransition(cur.Status, to) {
		return fmt.Errorf("invalid transition %s -> %s", cur.Status, to)
	}

	if res != nil {
		if err := o.Results.Save(ctx, res); err != nil {
			return err
		}
	}

	job.Status = to
	job.LastError = lastErr
	job.UpdatedAt = o.Clock.Now()
	return o.Jobs.Save(ctx, job)
}

// fail commits a failure using the handle's current token.
func (o *Orchestrator) fail(ctx context.Context, h *Handle, job *analysis.Job, phase, msg string) {
	o.failStale(ctx, h, h.Token(), job, phase, msg)
}

func (o *Orchestrator) failStale(ctx context.Context, h *Handle, tok int64, job *analysis.Job, phase, msg string) {
	if err := o.commit(ctx, h, tok, job, analysis.StatusFailed, nil, msg); err != nil {
		return // stale: cancellation already terminalized the job
	}
	if o.JobErrors != nil {
		_ = o.JobErrors.Save(ctx, &analysis.JobError{
			ArtifactID: job.ArtifactID,
			JobID:      job.ID,
			Phase:      phase,
			Message:    msg,
			CreatedAt:  o.Clock.Now(),
		})
	}
}

func failureReason(err error, attempts int) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, inference.ErrModel):
		return fmt.Sprintf("model rejected input: %v", err)
	case errors.Is(err, inference.ErrUnavailable):
		return fmt.Sprintf("inference unavailable after %d attempts: %v", attempts, err)
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	return err.Error()
}
