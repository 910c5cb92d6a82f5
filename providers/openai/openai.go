package openai

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/1broseidon/blogsmith/models"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider transcribes audio with OpenAI Whisper
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new Whisper provider. baseURL may be empty for the public API.
func NewOpenAIProvider(apiKey, baseURL string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.Whisper1,
	}, nil
}

// Name is the service name shown in transcription errors.
func (p *OpenAIProvider) Name() string { return "OpenAI Whisper" }

// Transcribe returns the transcript of a WAV clip
func (p *OpenAIProvider) Transcribe(ctx context.Context, wav []byte) (string, error) {
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.model,
		FilePath: "clip.wav",
		Reader:   bytes.NewReader(wav),
	})
	if err != nil {
		return "", &models.RequestError{Err: err}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", models.ErrUnintelligible
	}
	return text, nil
}
