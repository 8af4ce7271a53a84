package audio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wildvox/wildvox/internal/application"
	domain "github.com/wildvox/wildvox/internal/domain/artifacts"
)

// Service implements use-cases untuk upload audio
// Service is designed to be used concurrently and is thread-safe
type Service struct {
	Repo         domain.Repository
	Blobs        domain.BlobStore
	Cipher       domain.Cipher
	Clock        application.Clock
	MaxSizeBytes int64
	Species      []string
}

//
// ==== USE CASES ====
//

// Command untuk upload rekaman
type UploadCommand struct {
	OwnerID    string
	Species    string
	Format     string
	Filename   string
	Location   string
	RecordedAt time.Time
	Payload    []byte
}

type UploadResult struct {
	ArtifactID string `json:"artifact_id"`
	StorageKey string `json:"storage_key"`
	SizeBytes  int64  `json:"size_bytes"`
}

// Upload validasi → enkripsi → simpan blob → simpan record.
// Failed repo writes roll the blob back so storage never leaks orphans.
func (s *Service) Upload(ctx context.Context, cmd UploadCommand) (UploadResult, error) {
	format, ok := domain.ParseFormat(strings.ToLower(cmd.Format))
	if !ok {
		return UploadResult{}, domain.ErrUnsupportedFormat
	}
	if !s.SpeciesSupported(cmd.Species) {
		return UploadResult{}, domain.ErrUnsupportedSpecies
	}
	if int64(len(cmd.Payload)) > s.MaxSizeBytes {
		return UploadResult{}, domain.ErrFileTooLarge
	}
	if len(cmd.Payload) == 0 {
		return UploadResult{}, domain.ErrUnsupportedFormat
	}

	now := s.Clock.Now()
	id := domain.ArtifactID(uuid.New().String())
	filename := cmd.Filename
	if filename == "" {
		filename = fmt.Sprintf("recording.%s", format)
	}
	key := fmt.Sprintf("audio/%s/%s_%s", cmd.Species, id, filename)

	ciphertext, err := s.Cipher.Encrypt(cmd.Payload)
	if err != nil {
		return UploadResult{}, err
	}
	if err := s.Blobs.Put(ctx, key, ciphertext, contentType(format)); err != nil {
		return UploadResult{}, err
	}

	recordedAt := cmd.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = now
	}
	artifact := &domain.AudioArtifact{
		ID:         id,
		OwnerID:    cmd.OwnerID,
		Species:    cmd.Species,
		Format:     format,
		SizeBytes:  int64(len(cmd.Payload)),
		StorageKey: key,
		Filename:   filename,
		Location:   cmd.Location,
		RecordedAt: recordedAt,
		UploadedAt: now,
	}
	if err := s.Repo.Save(ctx, artifact); err != nil {
		// rollback blob biar gak ada orphan
		_ = s.Blobs.Delete(ctx, key)
		return UploadResult{}, err
	}

	return UploadResult{
		ArtifactID: string(id),
		StorageKey: key,
		SizeBytes:  artifact.SizeBytes,
	}, nil
}

// Get returns an artifact scoped to its owner; other owners see not-found.
func (s *Service) Get(ctx context.Context, owner string, id domain.ArtifactID) (*domain.AudioArtifact, error) {
	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.OwnerID != owner {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

// Latest recent uploads per owner
func (s *Service) Latest(ctx context.Context, owner string, limit int) ([]*domain.AudioArtifact, error) {
	return s.Repo.Latest(ctx, owner, limit)
}

func (s *Service) SpeciesSupported(species string) bool {
	for _, sp := range s.Species {
		if sp == species {
			return true
		}
	}
	return false
}

func (s *Service) SupportedSpecies() []string {
	return append([]string(nil), s.Species...)
}

func (s *Service) SupportedFormats() []string {
	out := make([]string, 0, len(domain.SupportedFormats))
	for _, f := range domain.SupportedFormats {
		out = append(out, string(f))
	}
	return out
}

func contentType(f domain.Format) string {
	switch f {
	case domain.FormatWAV:
		return "audio/wav"
	case domain.FormatMP3:
		return "audio/mpeg"
	case domain.FormatFLAC:
		return "audio/flac"
	}
	return "application/octet-stream"
}
