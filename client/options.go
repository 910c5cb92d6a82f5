package client

import (
	"errors"
	"time"

	"github.com/1broseidon/blogsmith/common"
	"github.com/1broseidon/blogsmith/internal/logging"
	"github.com/1broseidon/blogsmith/internal/metrics"
)

// ErrUnsupportedProvider is returned when an unsupported provider is specified
var ErrUnsupportedProvider = errors.New("unsupported provider")

// ClientOption is a function type for configuring the Client.
// It allows for flexible and extensible client configuration.
type ClientOption func(*Client)

// WithDefaultProvider sets the provider used for bare model names such as "gemini-2.0-flash".
// If not set, DefaultProvider is used.
func WithDefaultProvider(provider string) ClientOption {
	return func(c *Client) {
		c.defaultProvider = provider
	}
}

// WithProvider registers a generation backend under its Name.
func WithProvider(p Generator) ClientOption {
	return func(c *Client) {
		c.providers[p.Name()] = p
	}
}

// WithTranscriber sets the speech-to-text backend used by Transcribe.
func WithTranscriber(t Transcriber) ClientOption {
	return func(c *Client) {
		c.transcriber = t
	}
}

// WithAudioConverter replaces the ffmpeg-based WAV converter.
func WithAudioConverter(conv AudioConverter) ClientOption {
	return func(c *Client) {
		c.converter = conv
	}
}

// WithGenerationTimeout bounds each call to the generation service.
func WithGenerationTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.generationTimeout = d
	}
}

// WithTranscriptionTimeout bounds conversion plus the speech-to-text call.
func WithTranscriptionTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.transcriptionTimeout = d
	}
}

// WithMetrics records outcomes and latencies on r.
func WithMetrics(r *metrics.Recorder) ClientOption {
	return func(c *Client) {
		c.metrics = r
	}
}

// WithLogger sets the logger for the client.
// The provided logger will be used for all logging operations within the client.
func WithLogger(logger logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithLogLevel sets the log level for the client's logger.
func WithLogLevel(level common.LogLevel) ClientOption {
	return func(c *Client) {
		c.logger.SetLevel(level)
	}
}
