package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
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

func (r *ResultRepository) Save(ctx context.Context, res *analysis.Result) error {
	const q = `
INSERT INTO analysis_results
(job_id, artifact_id, translation, tags_json, confidence, verdict_json, partial, finalized_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (job_id) DO UPDATE SET
 translation=EXCLUDED.translation, tags_json=EXCLUDED.tags_json, confidence=EXCLUDED.confidence,
 verdict_json=EXCLUDED.verdict_json, partial=EXCLUDED.partial, finalized_at=EXCLUDED.finalized_at;
`
	tags, err := json.Marshal(res.Tags)
	if err != nil {
		return err
	}
	verdict, err := json.Marshal(res.Verdict)
	if err != nil {
		return err
	}
	var translation sql.NullString
	if res.Translation != nil {
		translation = sql.NullString{String: *res.Translation, Valid: true}
	}
	_, err = r.db.ExecContext(ctx, q,
		res.JobID, res.ArtifactID, translation, string(tags),
		res.Confidence, string(verdict), res.Partial, res.FinalizedAt,
	)
	return err
}

func (r *ResultRepository) LatestByArtifact(ctx context.Context, artifactID artifacts.ArtifactID) (*analysis.Result, error) {
	const q = `
SELECT job_id, artifact_id, translation, tags_json, confidence, verdict_json, partial, finalized_at
FROM analysis_results
WHERE artifact_id=$1 ORDER BY finalized_at DESC, job_id DESC LIMIT 1;
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
	if tags.Valid {
		if err := json.Unmarshal([]byte(tags.String), &res.Tags); err != nil {
			return nil, err
		}
	}
	if verdict.Valid {
		if err := json.Unmarshal([]byte(verdict.String), &res.Verdict); err != nil {
			return nil, err
		}
	}
	return &res, nil
}
