package mysql

import (
	"context"
	"database/sql"

	"github.com/wildvox/wildvox/internal/domain/analysis"
	"github.com/wildvox/wildvox/internal/domain/artifacts"
)

type JobErrorRepository struct {
	db *sql.DB
}

func NewJobErrorRepository(db *sql.DB) *JobErrorRepository {
	return &JobErrorRepository{db: db}
}

func (r *JobErrorRepository) Save(ctx context.Context, e *analysis.JobError) error {
	const q = `
INSERT INTO job_errors (artifact_id, job_id, phase, message, created_at)
VALUES (?,?,?,?,?);
`
	_, err := r.db.ExecContext(ctx, q, e.ArtifactID, e.JobID, nullString(e.Phase), e.Message, e.CreatedAt)
	return err
}

func (r *JobErrorRepository) ListByArtifact(ctx context.Context, artifactID artifacts.ArtifactID, limit int) ([]*analysis.JobError, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, artifact_id, job_id, phase, message, created_at
FROM job_errors
WHERE artifact_id=? ORDER BY created_at DESC LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, artifactID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*analysis.JobError
	for rows.Next() {
		var e analysis.JobError
		var phase sql.NullString
		if err := rows.Scan(&e.ID, &e.ArtifactID, &e.JobID, &phase, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Phase = phase.String
		out = append(out, &e)
	}
	return out, rows.Err()
}
