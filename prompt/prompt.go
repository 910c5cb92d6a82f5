// Package prompt builds the natural-language instruction sent to the generation service.
package prompt

import (
	"fmt"
	"strings"

	"github.com/1broseidon/blogsmith/models"
)

// Compose returns the instruction for a blog in the given tone and length.
// The topic and transcript sentences are appended only when non-empty.
func Compose(tone models.Tone, wordLimit int, topic, transcript string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write a %s blog in %d words.", strings.ToLower(string(tone)), wordLimit))
	if topic = strings.TrimSpace(topic); topic != "" {
		sb.WriteString(fmt.Sprintf(" The topic is '%s'.", topic))
	}
	if transcript = strings.TrimSpace(transcript); transcript != "" {
		sb.WriteString(" The following text was transcribed from an audio file: ")
		sb.WriteString(transcript)
	}
	return sb.String()
}

// ForRequest composes the instruction for req.
func ForRequest(req models.GenerationRequest) string {
	return Compose(req.Tone, req.WordLimit, req.Topic(), req.Transcript())
}
