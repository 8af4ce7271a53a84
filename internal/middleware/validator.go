package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

var artifactIDPattern = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)

// ValidateArtifactID validates artifact ID format (UUID)
func ValidateArtifactID(id string) error {
	if id == "" {
		return fmt.Errorf("artifact ID cannot be empty")
	}
	if !artifactIDPattern.MatchString(strings.ToLower(id)) {
		return fmt.Errorf("invalid artifact ID format")
	}
	return nil
}

// ValidateSpecies checks the species against the configured allow-list
func ValidateSpecies(species string, allowed []string) error {
	if species == "" {
		return fmt.Errorf("species cannot be empty")
	}
	for _, s := range allowed {
		if s == species {
			return nil
		}
	}
	return fmt.Errorf("invalid species: %s (allowed: %s)", species, strings.Join(allowed, ", "))
}

// ValidateFormat checks the declared audio format
func ValidateFormat(format string) error {
	allowed := map[string]bool{
		"wav":  true,
		"mp3":  true,
		"flac": true,
	}
	if !allowed[strings.ToLower(format)] {
		return fmt.Errorf("invalid format: %s (allowed: wav, mp3, flac)", format)
	}
	return nil
}

// ValidateFilename rejects path traversal and shell metacharacters
func ValidateFilename(name string) error {
	if name == "" {
		return nil // Optional field
	}
	dangerous := []string{"../", "..", "/", "\\", "$(", "`", "&", "|", ";", "\n", "\r", "\x00"}
	for _, d := range dangerous {
		if strings.Contains(name, d) {
			return fmt.Errorf("invalid characters in filename")
		}
	}
	if len(name) > 255 {
		return fmt.Errorf("filename too long")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
