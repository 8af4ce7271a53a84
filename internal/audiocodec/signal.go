package audiocodec

// Signal is decoded PCM audio, downmixed to mono, samples normalized
// to [-1,1]. This is the only representation the quality engine sees.
type Signal struct {
	Samples    []float64
	SampleRate int
}

// Duration in seconds.
func (s Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}
