package googlespeech

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/1broseidon/blogsmith/models"
	"google.golang.org/api/option"
	speech "google.golang.org/api/speech/v1"
)

// GoogleSpeechProvider transcribes WAV audio with Google Cloud Speech-to-Text
type GoogleSpeechProvider struct {
	service      *speech.Service
	languageCode string
}

// NewGoogleSpeechProvider creates a new Speech-to-Text provider.
// Extra options are appended after the API key, so tests can point it at a fake endpoint.
func NewGoogleSpeechProvider(ctx context.Context, apiKey, languageCode string, opts ...option.ClientOption) (*GoogleSpeechProvider, error) {
	if apiKey == "" {
		return nil, errors.New("speech API key is not set")
	}
	if languageCode == "" {
		languageCode = "en-US"
	}

	service, err := speech.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating speech service: %w", err)
	}

	return &GoogleSpeechProvider{
		service:      service,
		languageCode: languageCode,
	}, nil
}

// Name is the service name shown in transcription errors.
func (p *GoogleSpeechProvider) Name() string { return "Google Speech-to-Text" }

// Transcribe returns the transcript of a LINEAR16 WAV clip
func (p *GoogleSpeechProvider) Transcribe(ctx context.Context, wav []byte) (string, error) {
	req := &speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			Encoding:                   "LINEAR16",
			LanguageCode:               p.languageCode,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(wav),
		},
	}

	resp, err := p.service.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		return "", &models.RequestError{Err: err}
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(result.Alternatives[0].Transcript); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", models.ErrUnintelligible
	}

	return strings.Join(parts, " "), nil
}
