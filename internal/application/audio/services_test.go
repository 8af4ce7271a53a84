package audio

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wildvox/wildvox/internal/application"
	domain "github.com/wildvox/wildvox/internal/domain/artifacts"
	"github.com/wildvox/wildvox/internal/infra/crypto"
	"github.com/wildvox/wildvox/internal/infra/db/memory"
)

var testSpecies = []string{"canis_lupus", "corvus_brachyrhynchos"}

func newService(t *testing.T) (*Service, *memory.ArtifactRepository, *memory.BlobStore) {
	t.Helper()
	cipher, err := crypto.NewAESCipher([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	repo := memory.NewArtifactRepository()
	blobs := memory.NewBlobStore()
	svc := &Service{
		Repo:         repo,
		Blobs:        blobs,
		Cipher:       cipher,
		Clock:        application.SystemClock{},
		MaxSizeBytes: 1 << 20,
		Species:      testSpecies,
	}
	return svc, repo, blobs
}

func TestUploadStoresEncrypted(t *testing.T) {
	svc, repo, blobs := newService(t)
	ctx := context.Background()
	payload := []byte("RIFF fake wav payload")

	res, err := svc.Upload(ctx, UploadCommand{
		OwnerID:  "owner-1",
		Species:  "canis_lupus",
		Format:   "wav",
		Filename: "howl.wav",
		Location: "yellowstone",
		Payload:  payload,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(res.StorageKey, "audio/canis_lupus/") {
		t.Errorf("storage key = %q, want audio/{species}/ prefix", res.StorageKey)
	}
	if !strings.HasSuffix(res.StorageKey, "_howl.wav") {
		t.Errorf("storage key = %q, want filename suffix", res.StorageKey)
	}
	if res.SizeBytes != int64(len(payload)) {
		t.Errorf("size = %d, want %d", res.SizeBytes, len(payload))
	}

	// blob holds ciphertext, not the raw audio
	stored, err := blobs.Get(ctx, res.StorageKey)
	if err != nil {
		t.Fatalf("blob get: %v", err)
	}
	if bytes.Contains(stored, payload) {
		t.Error("stored blob contains plaintext audio")
	}

	a, err := repo.Get(ctx, domain.ArtifactID(res.ArtifactID))
	if err != nil {
		t.Fatalf("repo get: %v", err)
	}
	if a.OwnerID != "owner-1" || a.Species != "canis_lupus" || a.Format != domain.FormatWAV {
		t.Errorf("artifact row mismatch: %+v", a)
	}
	if a.Location != "yellowstone" {
		t.Errorf("location = %q", a.Location)
	}
	if a.RecordedAt.IsZero() {
		t.Error("recorded_at should default to upload time")
	}
}

func TestUploadValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  UploadCommand
		want error
	}{
		{
			"unsupported format",
			UploadCommand{OwnerID: "o", Species: "canis_lupus", Format: "ogg", Payload: []byte("x")},
			domain.ErrUnsupportedFormat,
		},
		{
			"unsupported species",
			UploadCommand{OwnerID: "o", Species: "felis_catus", Format: "wav", Payload: []byte("x")},
			domain.ErrUnsupportedSpecies,
		},
		{
			"too large",
			UploadCommand{OwnerID: "o", Species: "canis_lupus", Format: "wav", Payload: make([]byte, 2<<20)},
			domain.ErrFileTooLarge,
		},
		{
			"empty payload",
			UploadCommand{OwnerID: "o", Species: "canis_lupus", Format: "wav"},
			domain.ErrUnsupportedFormat,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := svc.Upload(ctx, c.cmd); !errors.Is(err, c.want) {
				t.Errorf("err = %v, want %v", err, c.want)
			}
		})
	}
}

func TestUploadRecordedAtPreserved(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	rec := time.Date(2026, 3, 14, 5, 0, 0, 0, time.UTC)
	res, err := svc.Upload(ctx, UploadCommand{
		OwnerID: "o", Species: "canis_lupus", Format: "wav",
		RecordedAt: rec, Payload: []byte("x"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	a, _ := repo.Get(ctx, domain.ArtifactID(res.ArtifactID))
	if !a.RecordedAt.Equal(rec) {
		t.Errorf("recorded_at = %v, want %v", a.RecordedAt, rec)
	}
}

type failingRepo struct{ *memory.ArtifactRepository }

func (failingRepo) Save(context.Context, *domain.AudioArtifact) error {
	return errors.New("db down")
}

type recordingBlobs struct {
	*memory.BlobStore
	keys []string
}

func (r *recordingBlobs) Put(ctx context.Context, key string, ciphertext []byte, contentType string) error {
	r.keys = append(r.keys, key)
	return r.BlobStore.Put(ctx, key, ciphertext, contentType)
}

func TestUploadRollsBackBlobOnRepoFailure(t *testing.T) {
	svc, _, _ := newService(t)
	blobs := &recordingBlobs{BlobStore: memory.NewBlobStore()}
	svc.Repo = failingRepo{memory.NewArtifactRepository()}
	svc.Blobs = blobs
	ctx := context.Background()

	if _, err := svc.Upload(ctx, UploadCommand{
		OwnerID: "o", Species: "canis_lupus", Format: "wav", Payload: []byte("x"),
	}); err == nil {
		t.Fatal("expected repo failure to propagate")
	}

	if len(blobs.keys) != 1 {
		t.Fatalf("expected one blob write, got %d", len(blobs.keys))
	}
	// the orphaned blob must have been rolled back
	if _, err := blobs.Get(ctx, blobs.keys[0]); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("blob still present after rollback: %v", err)
	}
}

func TestGetScopedByOwner(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	res, err := svc.Upload(ctx, UploadCommand{
		OwnerID: "owner-1", Species: "canis_lupus", Format: "wav", Payload: []byte("x"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	id := domain.ArtifactID(res.ArtifactID)

	if _, err := svc.Get(ctx, "owner-1", id); err != nil {
		t.Errorf("owner lookup failed: %v", err)
	}
	if _, err := svc.Get(ctx, "owner-2", id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("foreign owner should see not-found, got %v", err)
	}
}

func TestSupportedLists(t *testing.T) {
	svc, _, _ := newService(t)

	formats := svc.SupportedFormats()
	if len(formats) != 3 || formats[0] != "wav" {
		t.Errorf("formats = %v", formats)
	}

	species := svc.SupportedSpecies()
	if len(species) != len(testSpecies) {
		t.Errorf("species = %v", species)
	}
	// returned slice is a copy
	species[0] = "mutated"
	if svc.Species[0] == "mutated" {
		t.Error("SupportedSpecies must not expose internal slice")
	}
}
