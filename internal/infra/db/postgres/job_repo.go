package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
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

func (r *JobRepository) Save(ctx context.Context, j *analysis.Job) error {
	const q = `
INSERT INTO analysis_jobs
(id, artifact_id, status, attempts, last_error, verdict_json, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
 status=EXCLUDED.status, attempts=EXCLUDED.attempts, last_error=EXCLUDED.last_error,
 verdict_json=EXCLUDED.verdict_json, updated_at=EXCLUDED.updated_at;
`
	var verdict sql.NullString
	if j.Verdict != nil {
		b, err := json.Marshal(j.Verdict)
		if err != nil {
			return err
		}
		verdict = sql.NullString{String: string(b), Valid: true}
	}
	var lastErr sql.NullString
	if j.LastError != "" {
		lastErr = sql.NullString{String: j.LastError, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		j.ID, j.ArtifactID, j.Status, j.Attempts, lastErr, verdict, j.CreatedAt, j.UpdatedAt,
	)
	return err
}

func (r *JobRepository) Get(ctx context.Context, id analysis.JobID) (*analysis.Job, error) {
	const q = `
SELECT id, artifact_id, status, attempts, last_error, verdict_json, created_at, updated_at
FROM analysis_jobs
WHERE id=$1 LIMIT 1;
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

func (r *JobRepository) LatestByArtifact(ctx context.Context, artifactID artifacts.ArtifactID) (*analysis.Job, error) {
	const q = `
SELECT id, artifact_id, status, attempts, last_error, verdict_json, created_at, updated_at
FROM analysis_jobs
WHERE artifact_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1;
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

func (r *JobRepository) FailNonTerminal(ctx context.Context, reason string) error {
	const q = `
UPDATE analysis_jobs
SET status = $1, last_error = $2, updated_at = NOW()
WHERE status IN ($3,$4,$5);
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
		if err := json.Unmarshal([]byte(verdict.String), &v); err != nil {
			return nil, err
		}
		j.Verdict = &v
	}
	return &j, nil
}
