package quality

import (
	"math"
	"sort"

	"github.com/wildvox/wildvox/internal/audiocodec"
	"github.com/wildvox/wildvox/internal/domain/analysis"
	"github.com/wildvox/wildvox/internal/domain/artifacts"
)

// Config holds the QC policy thresholds. Defaults match the platform policy:
// only clipping and out-of-bounds duration make input unusable; noise and
// overlap are recorded and degrade the final result to partial.
type Config struct {
	MinDuration float64 // seconds
	MaxDuration float64 // seconds, consistent with the upload size cap

	ClipLevel     float64 // |sample| at or above this counts as saturated
	ClipRatio     float64 // saturated fraction above this flags clipping
	NoisySNRdB    float64 // SNR estimate below this flags noisy
	OverlapBands  int     // coarse spectrum bands
	OverlapFactor float64 // band counts as a peak above factor*mean energy
	OverlapRun    int     // consecutive multi-peak windows to flag overlap
}

func DefaultConfig() Config {
	return Config{
		MinDuration:   0.5,
		MaxDuration:   3600,
		ClipLevel:     0.985,
		ClipRatio:     0.01,
		NoisySNRdB:    15,
		OverlapBands:  12,
		OverlapFactor: 4,
		OverlapRun:    4,
	}
}

// Engine is deterministic and side-effect free: purely a function of the
// decoded signal, so it unit-tests in isolation.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate inspects the decoded signal and emits a QualityVerdict.
func (e *Engine) Evaluate(artifactID artifacts.ArtifactID, sig audiocodec.Signal) analysis.QualityVerdict {
	v := analysis.QualityVerdict{ArtifactID: artifactID, Score: 1, Usable: true}

	dur := sig.Duration()
	if dur < e.cfg.MinDuration {
		v.Flags = append(v.Flags, analysis.FlagTooShort)
	}
	if dur > e.cfg.MaxDuration {
		v.Flags = append(v.Flags, analysis.FlagTooLong)
	}

	if len(sig.Samples) == 0 || sig.SampleRate <= 0 {
		v.Score = 0
		v.Usable = false
		return v
	}

	if e.clipRatio(sig.Samples) > e.cfg.ClipRatio {
		v.Flags = append(v.Flags, analysis.FlagClipped)
	}

	snr := e.estimateSNR(sig)
	if snr < e.cfg.NoisySNRdB {
		v.Flags = append(v.Flags, analysis.FlagNoisy)
	}

	if e.detectOverlap(sig) {
		v.Flags = append(v.Flags, analysis.FlagOverlapping)
	}

	v.Score = e.score(v, snr)
	// Noisy/overlapping do not block analysis; they only degrade the result.
	v.Usable = !v.HasFlag(analysis.FlagClipped) &&
		!v.HasFlag(analysis.FlagTooShort) &&
		!v.HasFlag(analysis.FlagTooLong)
	return v
}

func (e *Engine) clipRatio(samples []float64) float64 {
	saturated := 0
	for _, s := range samples {
		if math.Abs(s) >= e.cfg.ClipLevel {
			saturated++
		}
	}
	return float64(saturated) / float64(len(samples))
}

// estimateSNR splits the signal into 20ms energy windows and compares the
// loudest decile (assumed vocalization) against the quietest decile
// (assumed inter-call silence). Returns dB; signals with a near-zero noise
// floor report a very high SNR.
func (e *Engine) estimateSNR(sig audiocodec.Signal) float64 {
	win := sig.SampleRate / 50
	if win < 1 {
		win = 1
	}
	var energies []float64
	for start := 0; start+win <= len(sig.Samples); start += win {
		var sum float64
		for _, s := range sig.Samples[start : start+win] {
			sum += s * s
		}
		energies = append(energies, sum/float64(win))
	}
	if len(energies) < 2 {
		return 0
	}
	sort.Float64s(energies)

	decile := len(energies) / 10
	if decile < 1 {
		decile = 1
	}
	noise := mean(energies[:decile])
	signal := mean(energies[len(energies)-decile:])

	const floor = 1e-12
	if noise < floor {
		if signal < floor {
			return 0 // digital silence throughout
		}
		return 120
	}
	return 10 * math.Log10(signal/noise)
}

// detectOverlap runs a coarse DFT over 64ms windows and counts simultaneous
// energy peaks across frequency bands. More than one sustained peak suggests
// multiple vocalizing sources.
func (e *Engine) detectOverlap(sig audiocodec.Signal) bool {
	win := sig.SampleRate * 64 / 1000
	if win < 16 {
		return false
	}
	bands := e.cfg.OverlapBands
	run := 0
	for start := 0; start+win <= len(sig.Samples); start += win / 2 {
		window := sig.Samples[start : start+win]
		energy := bandEnergies(window, sig.SampleRate, bands)

		total := mean(energy)
		if total < 1e-10 {
			run = 0
			continue
		}
		peaks := 0
		for _, bw := range energy {
			if bw > e.cfg.OverlapFactor*total {
				peaks++
			}
		}
		if peaks > 1 {
			run++
			if run >= e.cfg.OverlapRun {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// bandEnergies computes magnitude energy at log-spaced center frequencies
// between 100Hz and Nyquist using the Goertzel recurrence.
func bandEnergies(window []float64, sampleRate, bands int) []float64 {
	out := make([]float64, bands)
	nyquist := float64(sampleRate) / 2
	lo := 100.0
	if nyquist <= lo*2 {
		lo = nyquist / 8
	}
	ratio := math.Pow(nyquist*0.9/lo, 1/float64(bands-1))
	freq := lo
	for b := 0; b < bands; b++ {
		out[b] = goertzel(window, freq, sampleRate)
		freq *= ratio
	}
	return out
}

func goertzel(window []float64, freq float64, sampleRate int) float64 {
	omega := 2 * math.Pi * freq / float64(sampleRate)
	coeff := 2 * math.Cos(omega)
	var s0, s1, s2 float64
	for _, x := range window {
		s0 = x + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	power := s1*s1 + s2*s2 - coeff*s1*s2
	return power / float64(len(window)*len(window))
}

// score folds findings into a continuous [0,1] quality score.
func (e *Engine) score(v analysis.QualityVerdict, snr float64) float64 {
	score := 1.0
	if v.HasFlag(analysis.FlagTooShort) {
		score -= 0.5
	}
	if v.HasFlag(analysis.FlagTooLong) {
		score -= 0.5
	}
	if v.HasFlag(analysis.FlagClipped) {
		score -= 0.4
	}
	if v.HasFlag(analysis.FlagNoisy) {
		// scale penalty by how far below the threshold the SNR sits
		deficit := (e.cfg.NoisySNRdB - snr) / e.cfg.NoisySNRdB
		score -= 0.1 + 0.2*clamp01(deficit)
	}
	if v.HasFlag(analysis.FlagOverlapping) {
		score -= 0.15
	}
	return clamp01(score)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
