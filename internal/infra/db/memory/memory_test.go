package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wildvox/wildvox/internal/domain/analysis"
	"github.com/wildvox/wildvox/internal/domain/artifacts"
)

func TestJobRepositoryLatestByArtifact(t *testing.T) {
	repo := NewJobRepository()
	ctx := context.Background()

	j, err := repo.LatestByArtifact(ctx, "art-1")
	if err != nil || j != nil {
		t.Fatalf("empty repo: got %v, %v", j, err)
	}

	first := &analysis.Job{ID: "job-1", ArtifactID: "art-1", Status: analysis.StatusFailed}
	second := &analysis.Job{ID: "job-2", ArtifactID: "art-1", Status: analysis.StatusUploaded}
	if err := repo.Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	j, err = repo.LatestByArtifact(ctx, "art-1")
	if err != nil {
		t.Fatal(err)
	}
	if j.ID != "job-2" {
		t.Errorf("latest = %s, want job-2", j.ID)
	}
}

func TestJobRepositoryGetNotFound(t *testing.T) {
	repo := NewJobRepository()
	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, analysis.ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestJobRepositorySaveCopies(t *testing.T) {
	repo := NewJobRepository()
	ctx := context.Background()

	v := analysis.QualityVerdict{Score: 0.9, Usable: true}
	job := &analysis.Job{ID: "job-1", ArtifactID: "art-1", Status: analysis.StatusUploaded, Verdict: &v}
	repo.Save(ctx, job)

	// mutate the caller's copy; the stored row must not change
	job.Status = analysis.StatusFailed
	v.Score = 0

	got, err := repo.Get(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != analysis.StatusUploaded {
		t.Errorf("status = %s, stored row was mutated", got.Status)
	}
	if got.Verdict.Score != 0.9 {
		t.Errorf("verdict score = %v, stored verdict was mutated", got.Verdict.Score)
	}
}

func TestFailNonTerminal(t *testing.T) {
	repo := NewJobRepository()
	ctx := context.Background()

	repo.Save(ctx, &analysis.Job{ID: "j1", ArtifactID: "a1", Status: analysis.StatusDispatched})
	repo.Save(ctx, &analysis.Job{ID: "j2", ArtifactID: "a2", Status: analysis.StatusSucceeded})
	repo.Save(ctx, &analysis.Job{ID: "j3", ArtifactID: "a3", Status: analysis.StatusUploaded})

	if err := repo.FailNonTerminal(ctx, "interrupted by restart"); err != nil {
		t.Fatal(err)
	}

	for _, c := range []struct {
		id     analysis.JobID
		status analysis.Status
		reason string
	}{
		{"j1", analysis.StatusFailed, "interrupted by restart"},
		{"j2", analysis.StatusSucceeded, ""},
		{"j3", analysis.StatusFailed, "interrupted by restart"},
	} {
		j, err := repo.Get(ctx, c.id)
		if err != nil {
			t.Fatal(err)
		}
		if j.Status != c.status || j.LastError != c.reason {
			t.Errorf("%s: status=%s lastErr=%q, want %s %q", c.id, j.Status, j.LastError, c.status, c.reason)
		}
	}
}

func TestResultRepositoryLatest(t *testing.T) {
	repo := NewResultRepository()
	ctx := context.Background()

	if r, err := repo.LatestByArtifact(ctx, "art-1"); err != nil || r != nil {
		t.Fatalf("empty repo: %v, %v", r, err)
	}

	tr := "call"
	repo.Save(ctx, &analysis.Result{JobID: "j1", ArtifactID: "art-1", Translation: &tr, Confidence: 0.9, FinalizedAt: time.Now()})
	repo.Save(ctx, &analysis.Result{JobID: "j2", ArtifactID: "art-1", Translation: &tr, Confidence: 0.8, FinalizedAt: time.Now()})

	r, err := repo.LatestByArtifact(ctx, "art-1")
	if err != nil {
		t.Fatal(err)
	}
	if r.JobID != "j2" {
		t.Errorf("latest result job = %s, want j2", r.JobID)
	}
}

func TestArtifactRepositoryOwnerScoping(t *testing.T) {
	repo := NewArtifactRepository()
	ctx := context.Background()

	now := time.Now()
	repo.Save(ctx, &artifacts.AudioArtifact{ID: "a1", OwnerID: "o1", UploadedAt: now})
	repo.Save(ctx, &artifacts.AudioArtifact{ID: "a2", OwnerID: "o1", UploadedAt: now.Add(time.Second)})
	repo.Save(ctx, &artifacts.AudioArtifact{ID: "a3", OwnerID: "o2", UploadedAt: now})

	list, err := repo.Latest(ctx, "o1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d artifacts, want 2", len(list))
	}
	if list[0].ID != "a2" {
		t.Errorf("newest first: got %s", list[0].ID)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, artifacts.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestBlobStoreRoundtrip(t *testing.T) {
	store := NewBlobStore()
	ctx := context.Background()

	if err := store.Put(ctx, "k", []byte{1, 2, 3}, "audio/wav"); err != nil {
		t.Fatal(err)
	}
	b, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 3 {
		t.Errorf("blob = %v", b)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, artifacts.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after delete", err)
	}
}
