package artifacts

import (
	"time"
)

// ID tipe untuk Artifact
type ArtifactID string

// Format enum
type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatFLAC Format = "flac"
)

// SupportedFormats in upload order of preference.
var SupportedFormats = []Format{FormatWAV, FormatMP3, FormatFLAC}

// ParseFormat normalizes a file extension or declared format.
func ParseFormat(s string) (Format, bool) {
	switch Format(s) {
	case FormatWAV, FormatMP3, FormatFLAC:
		return Format(s), true
	}
	return "", false
}

// Aggregate Root: AudioArtifact
// Immutable once created; only lifecycle status lives on the job, not here.
type AudioArtifact struct {
	ID         ArtifactID `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Species    string     `json:"species"`
	Format     Format     `json:"format"`
	SizeBytes  int64      `json:"size_bytes"`
	StorageKey string     `json:"storage_key"`
	Filename   string     `json:"filename,omitempty"`
	Location   string     `json:"location,omitempty"`
	RecordedAt time.Time  `json:"recorded_at"`
	UploadedAt time.Time  `json:"uploaded_at"`
}
