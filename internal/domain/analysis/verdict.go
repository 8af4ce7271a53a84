package analysis

import "github.com/wildvox/wildvox/internal/domain/artifacts"

// Flag enum for quality findings.
type Flag string

const (
	FlagNoisy       Flag = "noisy"
	FlagOverlapping Flag = "overlapping"
	FlagClipped     Flag = "clipped"
	FlagTooShort    Flag = "too_short"
	FlagTooLong     Flag = "too_long"
)

// QualityVerdict is the structured output of signal-quality checks,
// independent of ML inference.
type QualityVerdict struct {
	ArtifactID artifacts.ArtifactID `json:"artifact_id"`
	Flags      []Flag               `json:"flags"`
	Score      float64              `json:"score"` // [0,1]
	Usable     bool                 `json:"usable"`
}

// HasFlag reports whether the verdict carries the given flag.
func (v QualityVerdict) HasFlag(f Flag) bool {
	for _, have := range v.Flags {
		if have == f {
			return true
		}
	}
	return false
}

// Degraded reports whether any flag is present. Degraded-but-usable input
// propagates into the final result as partial.
func (v QualityVerdict) Degraded() bool {
	return len(v.Flags) > 0
}
