package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/1broseidon/blogsmith/internal/logging"
	"github.com/1broseidon/blogsmith/internal/metrics"
	"github.com/1broseidon/blogsmith/media"
	"github.com/1broseidon/blogsmith/models"
	"github.com/1broseidon/blogsmith/prompt"
	"github.com/hashicorp/go-multierror"
)

// Generator is a generation backend
type Generator interface {
	Name() string
	Generate(ctx context.Context, input models.GenerationInput) (string, error)
	Close() error
}

// Transcriber is a speech-to-text backend. It receives WAV audio.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// AudioConverter normalizes an audio clip to WAV
type AudioConverter interface {
	ToWAV(ctx context.Context, clip *models.Media) ([]byte, error)
}

const (
	// DefaultProvider serves model names without a provider prefix.
	DefaultProvider = "googlegemini"

	DefaultGenerationTimeout    = 60 * time.Second
	DefaultTranscriptionTimeout = 30 * time.Second
)

// Client validates requests, routes them to a generation backend and
// runs the audio transcription flow. It is safe for concurrent use.
type Client struct {
	providers            map[string]Generator
	defaultProvider      string
	transcriber          Transcriber
	converter            AudioConverter
	logger               logging.Logger
	metrics              *metrics.Recorder
	generationTimeout    time.Duration
	transcriptionTimeout time.Duration
	mu                   sync.RWMutex
}

// NewClient creates a new client
func NewClient(options ...ClientOption) (*Client, error) {
	c := &Client{
		providers:            make(map[string]Generator),
		defaultProvider:      DefaultProvider,
		converter:            &media.FFmpegConverter{},
		logger:               logging.NewDefaultLogger(),
		generationTimeout:    DefaultGenerationTimeout,
		transcriptionTimeout: DefaultTranscriptionTimeout,
	}

	// Apply options
	for _, option := range options {
		option(c)
	}

	if c.generationTimeout <= 0 || c.transcriptionTimeout <= 0 {
		return nil, errors.New("timeouts must be positive")
	}

	c.logger.Info("Initializing blogsmith client", "providers", c.Providers(), "default_provider", c.defaultProvider)

	return c, nil
}

// RegisterProvider registers a new provider with the client
func (c *Client) RegisterProvider(provider Generator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[provider.Name()] = provider
}

// Providers returns the registered provider names, sorted.
func (c *Client) Providers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes all provider clients
func (c *Client) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var wg sync.WaitGroup
	errChan := make(chan error, len(c.providers))

	for name, provider := range c.providers {
		wg.Add(1)
		go func(name string, p Generator) {
			defer wg.Done()
			if err := p.Close(); err != nil {
				errChan <- fmt.Errorf("%s: %w", name, err)
			}
		}(name, provider)
	}

	wg.Wait()
	close(errChan)

	var result error
	for err := range errChan {
		c.logger.Error("Error closing provider", "error", err)
		result = multierror.Append(result, err)
	}
	return result
}

// Generate validates req, composes the instruction and calls the backend
// selected by req.Model. Every failure is returned inside the result.
func (c *Client) Generate(ctx context.Context, req models.GenerationRequest) models.GenerationResult {
	mode := string(req.Mode())
	logger := c.logger.WithContext(ctx).With("mode", mode, "model", req.Model)

	input, err := prepare(req)
	if err != nil {
		logger.Info("Generation request rejected", "reason", err.Error())
		c.metrics.ObserveGeneration(mode, models.Outcome(err), 0)
		return models.GenerationResult{Err: err}
	}

	provider, modelName, err := c.resolve(req.Model)
	if err != nil {
		err = &models.GenerationError{Err: err}
		logger.Error("Failed to resolve model", "error", err)
		c.metrics.ObserveGeneration(mode, models.Outcome(err), 0)
		return models.GenerationResult{Err: err}
	}
	input.Model = modelName

	ctx, cancel := context.WithTimeout(ctx, c.generationTimeout)
	defer cancel()

	logger.Debug("Generating blog", "provider", provider.Name(), "instruction", input.Instruction)
	start := time.Now()
	text, err := provider.Generate(ctx, input)
	elapsed := time.Since(start)

	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("no content generated")
	}
	if err != nil {
		err = &models.GenerationError{Err: err}
		logger.Error("Failed to generate blog", "error", err, "duration", elapsed)
		c.metrics.ObserveGeneration(mode, models.Outcome(err), elapsed)
		return models.GenerationResult{Err: err}
	}

	logger.Info("Generated blog", "provider", provider.Name(), "duration", elapsed, "chars", len(text))
	c.metrics.ObserveGeneration(mode, models.Outcome(nil), elapsed)
	return models.GenerationResult{Text: text}
}

// prepare runs the per-mode validation and builds the backend input.
func prepare(req models.GenerationRequest) (models.GenerationInput, error) {
	input := models.GenerationInput{Instruction: prompt.ForRequest(req)}

	switch src := req.Source.(type) {
	case models.TextSource:
		if strings.TrimSpace(src.Topic) == "" {
			return input, models.NewValidationError("topic", models.MsgEmptyTopic)
		}
	case models.ImageSource:
		if src.Image.Empty() {
			return input, models.ErrMissingMedia
		}
		if err := media.ImageLimit.Check(src.Image.Size); err != nil {
			return input, err
		}
		img, err := media.DecodeImage(src.Image.Data)
		if err != nil {
			return input, err
		}
		input.Attachment = &models.Attachment{MIMEType: img.MIMEType(), Data: img.Data}
	case models.AudioSource:
		if strings.TrimSpace(src.Transcript) == "" {
			return input, models.ErrMissingMedia
		}
	case models.VideoSource:
		if src.Video.Empty() {
			return input, models.ErrMissingMedia
		}
		if err := media.VideoLimit.Check(src.Video.Size); err != nil {
			return input, err
		}
		mimeType, err := media.VideoMIMEType(src.Video)
		if err != nil {
			return input, models.NewValidationError("media", "Please upload an MP4 or MOV video file.")
		}
		input.Attachment = &models.Attachment{MIMEType: mimeType, Data: src.Video.Data}
	default:
		return input, models.ErrMissingMedia
	}

	return input, validateOptions(req)
}

func validateOptions(req models.GenerationRequest) error {
	if _, err := models.ParseTone(string(req.Tone)); err != nil {
		return models.NewValidationError("tone", fmt.Sprintf("Unknown tone %q.", req.Tone))
	}
	if req.WordLimit < models.MinWordLimit || req.WordLimit > models.MaxWordLimit {
		return models.NewValidationError("word_limit", fmt.Sprintf(
			"Word limit must be between %d and %d.", models.MinWordLimit, models.MaxWordLimit))
	}
	if strings.TrimSpace(req.Model) == "" {
		return models.NewValidationError("model", "Please select a model.")
	}
	return nil
}

// resolve maps "provider/model" to a registered provider. Names whose prefix is
// not a registered provider go to the default provider unchanged.
func (c *Client) resolve(model string) (Generator, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if prefix, rest, ok := strings.Cut(model, "/"); ok {
		if p, found := c.providers[prefix]; found {
			return p, rest, nil
		}
	}

	p, ok := c.providers[c.defaultProvider]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedProvider, c.defaultProvider)
	}
	return p, model, nil
}

// Transcribe converts clip to WAV and returns its transcript. Clips over the
// audio limit are rejected before any conversion or service call.
func (c *Client) Transcribe(ctx context.Context, clip *models.Media) models.TranscriptionResult {
	logger := c.logger.WithContext(ctx)

	if clip.Empty() {
		c.metrics.ObserveTranscription(models.Outcome(models.ErrMissingMedia), 0)
		return models.TranscriptionResult{Err: models.ErrMissingMedia}
	}
	if err := media.AudioLimit.Check(clip.Size); err != nil {
		logger.Info("Audio clip rejected", "size", clip.Size, "reason", err.Error())
		c.metrics.ObserveTranscription(models.Outcome(err), 0)
		return models.TranscriptionResult{Err: err}
	}
	if c.transcriber == nil {
		err := &models.TranscriptionError{Err: errors.New("no transcriber configured")}
		c.metrics.ObserveTranscription(models.Outcome(err), 0)
		return models.TranscriptionResult{Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.transcriptionTimeout)
	defer cancel()

	start := time.Now()
	text, err := c.transcribe(ctx, clip)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("Failed to transcribe audio", "file", clip.Filename, "error", err, "duration", elapsed)
		c.metrics.ObserveTranscription(models.Outcome(err), elapsed)
		return models.TranscriptionResult{Err: err}
	}

	logger.Info("Transcribed audio", "file", clip.Filename, "duration", elapsed, "chars", len(text))
	c.metrics.ObserveTranscription(models.Outcome(nil), elapsed)
	return models.TranscriptionResult{Transcript: text}
}

func (c *Client) transcribe(ctx context.Context, clip *models.Media) (string, error) {
	wav, err := c.converter.ToWAV(ctx, clip)
	if err != nil {
		return "", &models.TranscriptionError{Kind: models.FailureProcessing, Service: c.transcriber.Name(), Err: err}
	}

	text, err := c.transcriber.Transcribe(ctx, wav)
	if err != nil {
		te := &models.TranscriptionError{Kind: models.FailureProcessing, Service: c.transcriber.Name(), Err: err}
		var reqErr *models.RequestError
		switch {
		case errors.Is(err, models.ErrUnintelligible):
			te.Kind = models.FailureUnintelligible
		case errors.As(err, &reqErr), errors.Is(err, context.DeadlineExceeded):
			te.Kind = models.FailureRequest
		}
		return "", te
	}

	return text, nil
}
