package analysis

import (
	"context"

	"github.com/wildvox/wildvox/internal/domain/artifacts"
)

// JobRepository port (interface untuk persistence job)
type JobRepository interface {
	Save(ctx context.Context, j *Job) error
	Get(ctx context.Context, id JobID) (*Job, error)
	LatestByArtifact(ctx context.Context, artifactID artifacts.ArtifactID) (*Job, error)
	// FailNonTerminal marks every non-terminal job failed with the given
	// reason; called once at startup to clean up after a crash.
	FailNonTerminal(ctx context.Context, reason string) error
}

// ResultRepository port for final analysis results
type ResultRepository interface {
	Save(ctx context.Context, r *Result) error
	LatestByArtifact(ctx context.Context, artifactID artifacts.ArtifactID) (*Result, error)
}

// JobErrorRepository persists failure entries for postmortem listing
type JobErrorRepository interface {
	Save(ctx context.Context, e *JobError) error
	ListByArtifact(ctx context.Context, artifactID artifacts.ArtifactID, limit int) ([]*JobError, error)
}
