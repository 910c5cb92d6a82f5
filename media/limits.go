// Package media validates and normalizes uploaded files before they reach an external service.
package media

import (
	"fmt"

	"github.com/1broseidon/blogsmith/models"
)

const mb = 1024 * 1024

// Limit is the maximum reported upload size for one kind of media.
type Limit struct {
	Kind     string
	Noun     string
	MaxBytes int64
}

var (
	ImageLimit = Limit{Kind: "Image", Noun: "image", MaxBytes: 20 * mb}
	AudioLimit = Limit{Kind: "Audio", Noun: "audio file", MaxBytes: 10 * mb}
	VideoLimit = Limit{Kind: "Video", Noun: "video file", MaxBytes: 50 * mb}
)

// MaxUploadBytes is the largest of the limits; anything bigger is never read into memory.
const MaxUploadBytes = 50 * mb

// Check returns a ValidationError when size exceeds the limit.
func (l Limit) Check(size int64) error {
	if size <= l.MaxBytes {
		return nil
	}
	return models.NewValidationError("media", fmt.Sprintf(
		"%s size exceeds the %d MB limit. Please upload a smaller %s.", l.Kind, l.MaxBytes/mb, l.Noun))
}

// LimitFor returns the upload limit of mode. Text has no upload.
func LimitFor(mode models.InputMode) (Limit, bool) {
	switch mode {
	case models.ModeImage:
		return ImageLimit, true
	case models.ModeAudio:
		return AudioLimit, true
	case models.ModeVideo:
		return VideoLimit, true
	default:
		return Limit{}, false
	}
}
