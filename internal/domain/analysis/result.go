package analysis

import (
	"time"

	"github.com/wildvox/wildvox/internal/domain/artifacts"
)

// AnalysisResult merges the quality verdict with inference output. A row
// exists only for jobs that terminated succeeded or partial; rejected and
// failed jobs carry their verdict / last error on the job record instead.
type Result struct {
	JobID       JobID                `json:"job_id"`
	ArtifactID  artifacts.ArtifactID `json:"artifact_id"`
	Translation *string              `json:"translation"`
	Tags        []string             `json:"tags"`
	Confidence  float64              `json:"confidence"` // [0,1]
	Verdict     QualityVerdict       `json:"verdict"`
	Partial     bool                 `json:"partial"`
	FinalizedAt time.Time            `json:"finalized_at"`
}
