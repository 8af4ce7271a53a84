package prompt

import "fmt"

// System prompt for the bioacoustic interpretation model. The response MUST
// be a single JSON object so the engine can parse it without cleanup.
const systemPrompt = `You are a bioacoustics analyst. Given metadata about an
animal vocalization recording, produce a structured interpretation.

Respond with a single JSON object, no prose, with exactly these fields:
{
  "translation": "<plain-language interpretation of the vocalization>",
  "tags": ["<behavioral tag>", ...],
  "confidence": <float between 0.0 and 1.0>
}

Behavioral tags must come from: alarm_call, mating_call, territorial,
aggression, contact_call, distress, foraging, social_bonding.
If the recording cannot plausibly be interpreted for the given species,
use an empty tags list and confidence 0.0.`

func GetSystemPrompt() string {
	return systemPrompt
}

func GetUserPrompt(species string, durationSec float64, format string, sizeBytes int) string {
	return fmt.Sprintf(
		"Interpret this vocalization recording.\nspecies: %s\nduration_seconds: %.2f\ncontainer: %s\nsize_bytes: %d",
		species, durationSec, format, sizeBytes,
	)
}
