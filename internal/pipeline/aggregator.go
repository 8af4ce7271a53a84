package pipeline

import (
	"time"

	"github.com/wildvox/wildvox/internal/domain/analysis"
	"github.com/wildvox/wildvox/internal/domain/inference"
)

// Aggregator encodes the accuracy-floor and partial-result policy. It is a
// pure reconciliation step: it persists nothing and never touches job state;
// the orchestrator commits whatever comes back.
type Aggregator struct {
	AccuracyFloor float64
}

// Reconcile merges the quality verdict with the inference outcome into the
// terminal state and, for succeeded/partial, the result to persist.
func (a Aggregator) Reconcile(job *analysis.Job, verdict analysis.QualityVerdict, out inference.Output, inferErr error, now time.Time) (analysis.Status, *analysis.Result) {
	if inferErr != nil {
		return analysis.StatusFailed, nil
	}

	// Out-of-range confidence from a backend is clamped here so stored
	// results always honor the [0,1] contract.
	conf := out.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	partial := conf < a.AccuracyFloor || verdict.Degraded()

	translation := out.Translation
	res := &analysis.Result{
		JobID:       job.ID,
		ArtifactID:  job.ArtifactID,
		Translation: &translation,
		Tags:        out.Tags,
		Confidence:  conf,
		Verdict:     verdict,
		Partial:     partial,
		FinalizedAt: now,
	}
	if partial {
		return analysis.StatusPartial, res
	}
	return analysis.StatusSucceeded, res
}
