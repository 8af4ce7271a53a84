package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/wildvox/wildvox/internal/domain/analysis"
	"github.com/wildvox/wildvox/internal/domain/artifacts"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Save insert/update AnalysisJob record
func (r *JobRepository) Save(ctx context.Context, j *analysis.Job) error {
	const q = `
INSERT INTO analysis_jobs
(id, artifact_id, status, attempts, last_error, verdict_json, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 status=VALUES(status), attempts=VALUES(attempts), last_error=VALUES(last_error),
 verdict_json=VALUES(verdict_json), updated_at=VALUES(updated_at);
`
	verdict, err := toJSON(j.Verdict)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q,
		j.ID, j.ArtifactID, j.Status, j.Attempts,
		nullString(j.LastError), verdict, j.CreatedAt, j.UpdatedAt,
	)
	return err
}

func (r *JobRepository) Get(ctx context.Context, id analysis.JobID) (*analysis.Job, error) {
	const q = `
SELECT id, artifact_id, status, attempts, last_error, verdict_json, created_at, updated_at
FROM analysis_jobs
WHERE id=? LIMIT 1;
`
	j, err := scanJob(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, analysis.ErrJobNotFound
		}
		return nil, err
	}
	return j, nil
}

// LatestByArtifact returns the most recently created job for the artifact.
func (r *JobRepository) LatestByArtifact(ctx context.Context, artifactID artifacts.ArtifactID) (*analysis.Job, error) {
	const q = `
SELECT id, artifact_id, status, attempts, last_error, verdict_json, created_at, updated_at
FROM analysis_jobs
WHERE artifact_id=? ORDER BY created_at DESC, id DESC LIMIT 1;
`
	j, err := scanJob(r.db.QueryRowContext(ctx, q, artifactID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return j, nil
}

// FailNonTerminal sweeps jobs orphaned by a crash into failed.
func (r *JobRepository) FailNonTerminal(ctx context.Context, reason string) error {
	const q = `
UPDATE analysis_jobs
SET status = ?, last_error = ?, updated_at = NOW()
WHERE status IN (?,?,?);
`
	_, err := r.db.ExecContext(ctx, q,
		analysis.StatusFailed, reason,
		analysis.StatusUploaded, analysis.StatusQualityChecked, analysis.StatusDispatched,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*analysis.Job, error) {
	var j analysis.Job
	var lastErr, verdict sql.NullString
	if err := row.Scan(
		&j.ID, &j.ArtifactID, &j.Status, &j.Attempts,
		&lastErr, &verdict, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return nil, err
	}
	j.LastError = lastErr.String
	if verdict.Valid {
		var v analysis.QualityVerdict
		if err := fromJSON(verdict, &v); err != nil {
			return nil, err
		}
		j.Verdict = &v
	}
	return &j, nil
}
