package pipeline

import (
	"context"

	"github.com/wildvox/wildvox/internal/domain/analysis"
	"github.com/wildvox/wildvox/internal/domain/artifacts"
)

// ResultView is what get-result callers see. Rejected and failed jobs still
// produce a structured view carrying the verdict and/or failure reason,
// never a bare error for an artifact that was successfully uploaded.
type ResultView struct {
	ArtifactID artifacts.ArtifactID     `json:"artifact_id"`
	JobID      analysis.JobID           `json:"job_id"`
	Status     analysis.Status          `json:"status"`
	Attempts   int                      `json:"attempts"`
	Result     *analysis.Result         `json:"result,omitempty"`
	Verdict    *analysis.QualityVerdict `json:"verdict,omitempty"`
	LastError  string                   `json:"last_error,omitempty"`
}

// Ready reports whether the underlying job reached a terminal state.
func (v ResultView) Ready() bool { return v.Status.Terminal() }

// GetResult returns the latest analysis outcome for the artifact.
// artifacts.ErrNotFound propagates when the artifact does not exist; a nil
// view with nil error means no job has been triggered yet.
func (o *Orchestrator) GetResult(ctx context.Context, artifactID artifacts.ArtifactID) (*ResultView, error) {
	if _, err := o.Artifacts.Get(ctx, artifactID); err != nil {
		return nil, err
	}

	job, err := o.Jobs.LatestByArtifact(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	view := &ResultView{
		ArtifactID: artifactID,
		JobID:      job.ID,
		Status:     job.Status,
		Attempts:   job.Attempts,
		Verdict:    job.Verdict,
		LastError:  job.LastError,
	}

	switch job.Status {
	case analysis.StatusSucceeded, analysis.StatusPartial:
		res, err := o.Results.LatestByArtifact(ctx, artifactID)
		if err != nil {
			return nil, err
		}
		view.Result = res
		if res != nil {
			view.Verdict = &res.Verdict
		}
	}
	return view, nil
}
