package postgres

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/wildvox/wildvox/internal/domain/artifacts"
)

type ArtifactRepository struct {
	db *sql.DB
}

func NewArtifactRepository(db *sql.DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Save insert AudioArtifact record (artifacts are immutable; no upsert)
func (r *ArtifactRepository) Save(ctx context.Context, a *domain.AudioArtifact) error {
	const q = `
INSERT INTO audio_artifacts
(id, owner_id, species, format, size_bytes, storage_key, filename, location, recorded_at, uploaded_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);
`
	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.OwnerID, a.Species, a.Format, a.SizeBytes,
		a.StorageKey, a.Filename, nullString(a.Location), a.RecordedAt, a.UploadedAt,
	)
	return err
}

func (r *ArtifactRepository) Get(ctx context.Context, id domain.ArtifactID) (*domain.AudioArtifact, error) {
	const q = `
SELECT id, owner_id, species, format, size_bytes, storage_key, filename, location, recorded_at, uploaded_at
FROM audio_artifacts
WHERE id=$1 LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, id)

	var a domain.AudioArtifact
	var location sql.NullString
	if err := row.Scan(
		&a.ID, &a.OwnerID, &a.Species, &a.Format, &a.SizeBytes,
		&a.StorageKey, &a.Filename, &location, &a.RecordedAt, &a.UploadedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	a.Location = location.String
	return &a, nil
}

func (r *ArtifactRepository) Latest(ctx context.Context, owner string, limit int) ([]*domain.AudioArtifact, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, owner_id, species, format, size_bytes, storage_key, filename, location, recorded_at, uploaded_at
FROM audio_artifacts
WHERE owner_id=$1 ORDER BY uploaded_at DESC LIMIT $2;
`
	rows, err := r.db.QueryContext(ctx, q, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AudioArtifact
	for rows.Next() {
		var a domain.AudioArtifact
		var location sql.NullString
		if err := rows.Scan(
			&a.ID, &a.OwnerID, &a.Species, &a.Format, &a.SizeBytes,
			&a.StorageKey, &a.Filename, &location, &a.RecordedAt, &a.UploadedAt,
		); err != nil {
			return nil, err
		}
		a.Location = location.String
		out = append(out, &a)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
