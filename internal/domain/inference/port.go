package inference

import (
	"context"

	"github.com/wildvox/wildvox/internal/domain/artifacts"
)

// Request carries the decrypted audio plus its metadata to a backend.
type Request struct {
	ArtifactID artifacts.ArtifactID
	Species    string
	Format     artifacts.Format
	Audio      []byte
	Duration   float64 // seconds, from the decoded signal
}

// Output is the black-box translate-and-tag capability's answer.
type Output struct {
	Translation string   `json:"translation"`
	Tags        []string `json:"tags"`
	Confidence  float64  `json:"confidence"` // [0,1]
}

// Engine port. Concrete backends are selected by configuration; they may be
// partial and fallible, and must distinguish transient failures
// (ErrUnavailable) from deterministic rejections (ErrModel).
type Engine interface {
	Infer(ctx context.Context, req Request) (Output, error)
}
