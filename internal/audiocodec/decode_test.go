package audiocodec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/wildvox/wildvox/internal/domain/artifacts"
)

const testRate = 8000

func wavBytes(sampleRate int, samples []float64) []byte {
	var buf bytes.Buffer
	dataLen := len(samples) * 2

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	for _, s := range samples {
		binary.Write(&buf, binary.LittleEndian, int16(s*32767))
	}
	return buf.Bytes()
}

func TestDecodeWAV(t *testing.T) {
	samples := make([]float64, testRate) // 1 second
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/testRate)
	}

	sig, err := Decode(artifacts.FormatWAV, wavBytes(testRate, samples))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if sig.SampleRate != testRate {
		t.Errorf("sample rate = %d, want %d", sig.SampleRate, testRate)
	}
	if len(sig.Samples) != len(samples) {
		t.Errorf("sample count = %d, want %d", len(sig.Samples), len(samples))
	}
	if d := sig.Duration(); math.Abs(d-1.0) > 0.001 {
		t.Errorf("duration = %v, want ~1s", d)
	}

	// amplitude preserved within quantization error
	var peak float64
	for _, s := range sig.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if math.Abs(peak-0.5) > 0.01 {
		t.Errorf("peak = %v, want ~0.5", peak)
	}
}

func TestDecodeWAVInvalid(t *testing.T) {
	_, err := Decode(artifacts.FormatWAV, []byte("definitely not audio"))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestDecodeWAVEmpty(t *testing.T) {
	_, err := Decode(artifacts.FormatWAV, wavBytes(testRate, nil))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode for empty data chunk", err)
	}
}

func TestDecodeMP3Invalid(t *testing.T) {
	_, err := Decode(artifacts.FormatMP3, []byte("not an mpeg frame"))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestDecodeFLACInvalid(t *testing.T) {
	_, err := Decode(artifacts.FormatFLAC, []byte("fLaC but broken"))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestDecodeUnknownFormat(t *testing.T) {
	_, err := Decode(artifacts.Format("ogg"), []byte{})
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestSignalDuration(t *testing.T) {
	sig := Signal{Samples: make([]float64, 4000), SampleRate: testRate}
	if d := sig.Duration(); d != 0.5 {
		t.Errorf("duration = %v, want 0.5", d)
	}
	if d := (Signal{}).Duration(); d != 0 {
		t.Errorf("zero signal duration = %v", d)
	}
}
