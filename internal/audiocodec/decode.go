package audiocodec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"

	"github.com/wildvox/wildvox/internal/domain/artifacts"
)

// ErrDecode wraps container/codec parse failures.
var ErrDecode = errors.New("audio decode failed")

// Decode turns raw container bytes into a normalized mono Signal.
func Decode(format artifacts.Format, data []byte) (Signal, error) {
	switch format {
	case artifacts.FormatWAV:
		return decodeWAV(data)
	case artifacts.FormatMP3:
		return decodeMP3(data)
	case artifacts.FormatFLAC:
		return decodeFLAC(data)
	default:
		return Signal{}, fmt.Errorf("%w: unknown format %q", ErrDecode, format)
	}
}

func decodeWAV(data []byte) (Signal, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return Signal{}, fmt.Errorf("%w: not a valid wav file", ErrDecode)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Signal{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return Signal{}, fmt.Errorf("%w: empty wav data", ErrDecode)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << uint(bitDepth-1))

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch])
		}
		samples[i] = sum / float64(channels) / scale
	}
	return Signal{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

// go-mp3 always yields 16-bit little-endian stereo frames.
func decodeMP3(data []byte) (Signal, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return Signal{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return Signal{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	const bytesPerFrame = 4 // 2 bytes x 2 channels
	frames := len(raw) / bytesPerFrame
	if frames == 0 {
		return Signal{}, fmt.Errorf("%w: empty mp3 stream", ErrDecode)
	}
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		l := int16(uint16(raw[i*4]) | uint16(raw[i*4+1])<<8)
		r := int16(uint16(raw[i*4+2]) | uint16(raw[i*4+3])<<8)
		samples[i] = (float64(l) + float64(r)) / 2 / 32768
	}
	return Signal{Samples: samples, SampleRate: dec.SampleRate()}, nil
}

func decodeFLAC(data []byte) (Signal, error) {
	stream, err := flac.Parse(bytes.NewReader(data))
	if err != nil {
		return Signal{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	info := stream.Info
	channels := int(info.NChannels)
	if channels <= 0 {
		channels = 1
	}
	scale := float64(int64(1) << uint(info.BitsPerSample-1))

	var samples []float64
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Signal{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			var sum float64
			for ch := 0; ch < channels && ch < len(frame.Subframes); ch++ {
				sum += float64(frame.Subframes[ch].Samples[i])
			}
			samples = append(samples, sum/float64(channels)/scale)
		}
	}
	if len(samples) == 0 {
		return Signal{}, fmt.Errorf("%w: empty flac stream", ErrDecode)
	}
	return Signal{Samples: samples, SampleRate: int(info.SampleRate)}, nil
}
