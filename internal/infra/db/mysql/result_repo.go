package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/wildvox/wildvox/internal/domain/analysis"
	"github.com/wildvox/wildvox/internal/domain/artifacts"
)

type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Save insert AnalysisResult (one row per job; written exactly once at commit)
func (r *ResultRepository) Save(ctx context.Context, res *analysis.Result) error {
	const q = `
INSERT INTO analysis_results
(job_id, artifact_id, translation, tags_json, confidence, verdict_json, partial, finalized_at)
VALUES (?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 translation=VALUES(translation), tags_json=VALUES(tags_json), confidence=VALUES(confidence),
 verdict_json=VALUES(verdict_json), partial=VALUES(partial), finalized_at=VALUES(finalized_at);
`
	tags, err := toJSON(res.Tags)
	if err != nil {
		return err
	}
	verdict, err := toJSON(res.Verdict)
	if err != nil {
		return err
	}
	var translation sql.NullString
	if res.Translation != nil {
		translation = sql.NullString{String: *res.Translation, Valid: true}
	}
	_, err = r.db.ExecContext(ctx, q,
		res.JobID, res.ArtifactID, translation, tags,
		res.Confidence, verdict, res.Partial, res.FinalizedAt,
	)
	return err
}

// LatestByArtifact returns the most recently finalized result.
func (r *ResultRepository) LatestByArtifact(ctx context.Context, artifactID artifacts.ArtifactID) (*analysis.Result, error) {
	const q = `
SELECT job_id, artifact_id, translation, tags_json, confidence, verdict_json, partial, finalized_at
FROM analysis_results
WHERE artifact_id=? ORDER BY finalized_at DESC, job_id DESC LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, artifactID)

	var res analysis.Result
	var translation, tags, verdict sql.NullString
	if err := row.Scan(
		&res.JobID, &res.ArtifactID, &translation, &tags,
		&res.Confidence, &verdict, &res.Partial, &res.FinalizedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if translation.Valid {
		s := translation.String
		res.Translation = &s
	}
	if err := fromJSON(tags, &res.Tags); err != nil {
		return nil, err
	}
	if err := fromJSON(verdict, &res.Verdict); err != nil {
		return nil, err
	}
	return &res, nil
}
