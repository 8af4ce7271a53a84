package quality

import (
	"math"
	"math/rand"
	"testing"

	"github.com/wildvox/wildvox/internal/audiocodec"
	"github.com/wildvox/wildvox/internal/domain/analysis"
)

const testRate = 44100

// burstSignal builds a recording-like signal: short vocalization bursts
// separated by near-silence, so the SNR estimator sees both deciles.
func burstSignal(seconds, callAmp, noiseAmp float64) audiocodec.Signal {
	rng := rand.New(rand.NewSource(42))
	n := int(seconds * testRate)
	samples := make([]float64, n)
	for i := range samples {
		// 200ms on, 300ms off
		pos := float64(i%int(0.5*testRate)) / testRate
		noise := noiseAmp * (2*rng.Float64() - 1)
		if pos < 0.2 {
			samples[i] = callAmp*math.Sin(2*math.Pi*800*float64(i)/testRate) + noise
		} else {
			samples[i] = noise
		}
	}
	return audiocodec.Signal{Samples: samples, SampleRate: testRate}
}

func toneSignal(seconds float64, freqs []float64, amp float64) audiocodec.Signal {
	n := int(seconds * testRate)
	samples := make([]float64, n)
	for i := range samples {
		var s float64
		for _, f := range freqs {
			s += amp * math.Sin(2*math.Pi*f*float64(i)/testRate)
		}
		samples[i] = s
	}
	return audiocodec.Signal{Samples: samples, SampleRate: testRate}
}

func TestEvaluateCleanSignal(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	v := eng.Evaluate("art-1", burstSignal(2.0, 0.5, 0.0005))

	if !v.Usable {
		t.Fatalf("clean signal should be usable, flags=%v", v.Flags)
	}
	if len(v.Flags) != 0 {
		t.Errorf("clean signal should carry no flags, got %v", v.Flags)
	}
	if v.Score != 1 {
		t.Errorf("clean signal score = %v, want 1", v.Score)
	}
	if v.ArtifactID != "art-1" {
		t.Errorf("verdict artifact id = %q", v.ArtifactID)
	}
}

func TestEvaluateTooShort(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	v := eng.Evaluate("art-1", burstSignal(0.2, 0.5, 0.0005))

	if !v.HasFlag(analysis.FlagTooShort) {
		t.Fatalf("0.2s signal should flag too_short, flags=%v", v.Flags)
	}
	if v.Usable {
		t.Error("too-short signal must not be usable")
	}
	if v.Score > 0.5 {
		t.Errorf("score = %v, want <= 0.5 after too_short penalty", v.Score)
	}
}

func TestEvaluateTooLong(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDuration = 1
	eng := NewEngine(cfg)
	v := eng.Evaluate("art-1", burstSignal(2.0, 0.5, 0.0005))

	if !v.HasFlag(analysis.FlagTooLong) {
		t.Fatalf("2s signal over a 1s cap should flag too_long, flags=%v", v.Flags)
	}
	if v.Usable {
		t.Error("too-long signal must not be usable")
	}
	if v.Score > 0.5 {
		t.Errorf("score = %v, want <= 0.5 after too_long penalty", v.Score)
	}
}

func TestEvaluateClipped(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	v := eng.Evaluate("art-1", toneSignal(2.0, []float64{800}, 1.0))

	if !v.HasFlag(analysis.FlagClipped) {
		t.Fatalf("full-scale signal should flag clipped, flags=%v", v.Flags)
	}
	if v.Usable {
		t.Error("clipped signal must not be usable")
	}
}

func TestEvaluateNoisy(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	v := eng.Evaluate("art-1", burstSignal(2.0, 0.2, 0.1))

	if !v.HasFlag(analysis.FlagNoisy) {
		t.Fatalf("low-SNR signal should flag noisy, flags=%v", v.Flags)
	}
	if !v.Usable {
		t.Error("noisy signal stays usable; it only degrades the result")
	}
	if v.Score >= 1 {
		t.Errorf("score = %v, want < 1 for noisy signal", v.Score)
	}
}

func TestEvaluateOverlap(t *testing.T) {
	cfg := DefaultConfig()
	eng := NewEngine(cfg)

	// Two sustained tones placed exactly on detector band centers.
	nyquist := float64(testRate) / 2
	lo := 100.0
	ratio := math.Pow(nyquist*0.9/lo, 1/float64(cfg.OverlapBands-1))
	f1 := lo * math.Pow(ratio, 4)
	f2 := lo * math.Pow(ratio, 7)

	v := eng.Evaluate("art-1", toneSignal(2.0, []float64{f1, f2}, 0.3))
	if !v.HasFlag(analysis.FlagOverlapping) {
		t.Fatalf("two sustained sources should flag overlapping, flags=%v", v.Flags)
	}
	if !v.Usable {
		t.Error("overlapping signal stays usable; it only degrades the result")
	}
}

func TestEvaluateSingleSourceNoOverlap(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	v := eng.Evaluate("art-1", burstSignal(2.0, 0.5, 0.0005))
	if v.HasFlag(analysis.FlagOverlapping) {
		t.Error("single source must not flag overlapping")
	}
}

func TestEvaluateEmptySignal(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	v := eng.Evaluate("art-1", audiocodec.Signal{SampleRate: testRate})

	if v.Usable {
		t.Error("empty signal must not be usable")
	}
	if v.Score != 0 {
		t.Errorf("empty signal score = %v, want 0", v.Score)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine(DefaultConfig())
	sig := burstSignal(1.0, 0.4, 0.01)

	a := eng.Evaluate("art-1", sig)
	b := eng.Evaluate("art-1", sig)
	if a.Score != b.Score || a.Usable != b.Usable || len(a.Flags) != len(b.Flags) {
		t.Errorf("verdicts differ across runs: %+v vs %+v", a, b)
	}
}
