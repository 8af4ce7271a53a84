// Package memory provides map-backed repositories. Used by the test suite
// and by database.driver "memory" for local development without a DB server.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wildvox/wildvox/internal/domain/analysis"
	"github.com/wildvox/wildvox/internal/domain/artifacts"
)

type ArtifactRepository struct {
	mu   sync.RWMutex
	byID map[artifacts.ArtifactID]artifacts.AudioArtifact
}

func NewArtifactRepository() *ArtifactRepository {
	return &ArtifactRepository{byID: make(map[artifacts.ArtifactID]artifacts.AudioArtifact)}
}

func (r *ArtifactRepository) Save(_ context.Context, a *artifacts.AudioArtifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[a.ID] = *a
	return nil
}

func (r *ArtifactRepository) Get(_ context.Context, id artifacts.ArtifactID) (*artifacts.AudioArtifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, artifacts.ErrNotFound
	}
	out := a
	return &out, nil
}

func (r *ArtifactRepository) Latest(_ context.Context, owner string, limit int) ([]*artifacts.AudioArtifact, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*artifacts.AudioArtifact
	for _, a := range r.byID {
		if a.OwnerID != owner {
			continue
		}
		c := a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type JobRepository struct {
	mu   sync.RWMutex
	byID map[analysis.JobID]analysis.Job
	// insertion order per artifact, newest last
	byArtifact map[artifacts.ArtifactID][]analysis.JobID
}

func NewJobRepository() *JobRepository {
	return &JobRepository{
		byID:       make(map[analysis.JobID]analysis.Job),
		byArtifact: make(map[artifacts.ArtifactID][]analysis.JobID),
	}
}

func (r *JobRepository) Save(_ context.Context, j *analysis.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *j
	if j.Verdict != nil {
		v := *j.Verdict
		c.Verdict = &v
	}
	if _, exists := r.byID[j.ID]; !exists {
		r.byArtifact[j.ArtifactID] = append(r.byArtifact[j.ArtifactID], j.ID)
	}
	r.byID[j.ID] = c
	return nil
}

func (r *JobRepository) Get(_ context.Context, id analysis.JobID) (*analysis.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.byID[id]
	if !ok {
		return nil, analysis.ErrJobNotFound
	}
	return cloneJob(j), nil
}

func (r *JobRepository) LatestByArtifact(_ context.Context, artifactID artifacts.ArtifactID) (*analysis.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byArtifact[artifactID]
	if len(ids) == 0 {
		return nil, nil
	}
	j := r.byID[ids[len(ids)-1]]
	return cloneJob(j), nil
}

func (r *JobRepository) FailNonTerminal(_ context.Context, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, j := range r.byID {
		if j.Status.Terminal() {
			continue
		}
		j.Status = analysis.StatusFailed
		j.LastError = reason
		r.byID[id] = j
	}
	return nil
}

func cloneJob(j analysis.Job) *analysis.Job {
	c := j
	if j.Verdict != nil {
		v := *j.Verdict
		c.Verdict = &v
	}
	return &c
}

type ResultRepository struct {
	mu    sync.RWMutex
	byJob map[analysis.JobID]analysis.Result
	// newest result per artifact wins
	order map[artifacts.ArtifactID][]analysis.JobID
}

func NewResultRepository() *ResultRepository {
	return &ResultRepository{
		byJob: make(map[analysis.JobID]analysis.Result),
		order: make(map[artifacts.ArtifactID][]analysis.JobID),
	}
}

func (r *ResultRepository) Save(_ context.Context, res *analysis.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byJob[res.JobID]; !exists {
		r.order[res.ArtifactID] = append(r.order[res.ArtifactID], res.JobID)
	}
	r.byJob[res.JobID] = cloneResult(*res)
	return nil
}

func (r *ResultRepository) LatestByArtifact(_ context.Context, artifactID artifacts.ArtifactID) (*analysis.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.order[artifactID]
	if len(ids) == 0 {
		return nil, nil
	}
	res := r.byJob[ids[len(ids)-1]]
	out := cloneResult(res)
	return &out, nil
}

func cloneResult(res analysis.Result) analysis.Result {
	c := res
	if res.Translation != nil {
		t := *res.Translation
		c.Translation = &t
	}
	c.Tags = append([]string(nil), res.Tags...)
	return c
}

type JobErrorRepository struct {
	mu     sync.Mutex
	nextID int64
	byArt  map[artifacts.ArtifactID][]analysis.JobError
}

func NewJobErrorRepository() *JobErrorRepository {
	return &JobErrorRepository{byArt: make(map[artifacts.ArtifactID][]analysis.JobError)}
}

func (r *JobErrorRepository) Save(_ context.Context, e *analysis.JobError) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c := *e
	c.ID = r.nextID
	r.byArt[e.ArtifactID] = append(r.byArt[e.ArtifactID], c)
	return nil
}

func (r *JobErrorRepository) ListByArtifact(_ context.Context, artifactID artifacts.ArtifactID, limit int) ([]*analysis.JobError, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.byArt[artifactID]
	var out []*analysis.JobError
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		c := entries[i]
		out = append(out, &c)
	}
	return out, nil
}

// BlobStore keeps ciphertext in a map. Handy for tests and dev mode; the
// orchestrator never learns whether bytes live here or in MinIO.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

func (s *BlobStore) Put(_ context.Context, key string, ciphertext []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), ciphertext...)
	return nil
}

func (s *BlobStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, artifacts.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (s *BlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}
