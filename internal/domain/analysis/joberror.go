package analysis

import (
	"time"

	"github.com/wildvox/wildvox/internal/domain/artifacts"
)

// JobError represents a persisted pipeline failure entry
type JobError struct {
	ID         int64                `json:"id"`
	ArtifactID artifacts.ArtifactID `json:"artifact_id"`
	JobID      JobID                `json:"job_id"`
	Phase      string               `json:"phase,omitempty"` // fetch | decode | inference | commit
	Message    string               `json:"message"`
	CreatedAt  time.Time            `json:"created_at"`
}
