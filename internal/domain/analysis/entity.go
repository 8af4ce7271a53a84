package analysis

import (
	"time"

	"github.com/wildvox/wildvox/internal/domain/artifacts"
)

// ID tipe untuk Job
type JobID string

// Status enum. A job only ever moves forward:
//
//	uploaded -> quality_checked -> {rejected | dispatched} -> {succeeded | partial | failed}
type Status string

const (
	StatusUploaded       Status = "uploaded"
	StatusQualityChecked Status = "quality_checked"
	StatusRejected       Status = "rejected"
	StatusDispatched     Status = "dispatched"
	StatusSucceeded      Status = "succeeded"
	StatusPartial        Status = "partial"
	StatusFailed         Status = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusSucceeded, StatusPartial, StatusFailed:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusUploaded:       {StatusQualityChecked, StatusFailed},
	StatusQualityChecked: {StatusRejected, StatusDispatched, StatusFailed},
	StatusDispatched:     {StatusSucceeded, StatusPartial, StatusFailed},
}

// CanTransition validates a single forward step of the state machine.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Aggregate Root: AnalysisJob
// At most one job per artifact is non-terminal at any instant; admission
// control in the scheduler enforces that.
type Job struct {
	ID         JobID                `json:"id"`
	ArtifactID artifacts.ArtifactID `json:"artifact_id"`
	Status     Status               `json:"status"`
	Attempts   int                  `json:"attempts"`
	LastError  string               `json:"last_error,omitempty"`
	Verdict    *QualityVerdict      `json:"verdict,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}
