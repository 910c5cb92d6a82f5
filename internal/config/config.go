// Package config loads blogsmith settings from the environment, an optional
// .env file and an optional YAML secrets file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/1broseidon/blogsmith/common"
	"github.com/1broseidon/blogsmith/internal/logging"
	"github.com/caarlos0/env/v9"
	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

// Transcription backends selectable with TRANSCRIBER.
const (
	TranscriberGoogle  = "google"
	TranscriberWhisper = "whisper"
)

// ErrMissingAPIKey is returned when no generation API key is configured.
var ErrMissingAPIKey = errors.New("GENAI_API_KEY is not set; export it or add it to the secrets file")

// Config holds all runtime settings.
type Config struct {
	GenAIAPIKey      string `env:"GENAI_API_KEY"`
	SpeechAPIKey     string `env:"SPEECH_API_KEY"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL"`
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL"`
	SecretsFile      string `env:"SECRETS_FILE" envDefault:"secrets.yaml"`

	Addr                 string        `env:"ADDR" envDefault:":8501"`
	Models               []string      `env:"MODELS" envDefault:"gemini-2.0-flash,gemini-pro-vision" envSeparator:","`
	OllamaBaseURL        string        `env:"OLLAMA_BASE_URL"`
	Transcriber          string        `env:"TRANSCRIBER" envDefault:"google"`
	SpeechLanguage       string        `env:"SPEECH_LANGUAGE" envDefault:"en-US"`
	FFmpegPath           string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	GenerationTimeout    time.Duration `env:"GENERATION_TIMEOUT" envDefault:"60s"`
	TranscriptionTimeout time.Duration `env:"TRANSCRIPTION_TIMEOUT" envDefault:"30s"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"text"`
	CORSAllowedOrigins   []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// secrets is the layout of the secrets file. Values there are used only for
// keys the environment leaves empty.
type secrets struct {
	GenAIAPIKey     string `yaml:"GENAI_API_KEY"`
	SpeechAPIKey    string `yaml:"SPEECH_API_KEY"`
	OpenAIAPIKey    string `yaml:"OPENAI_API_KEY"`
	AnthropicAPIKey string `yaml:"ANTHROPIC_API_KEY"`
}

// Load reads .env when present, then the process environment, then the secrets file.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return parse(env.Options{})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}

	if err := cfg.applySecretsFile(); err != nil {
		return nil, err
	}
	if cfg.SpeechAPIKey == "" {
		cfg.SpeechAPIKey = cfg.GenAIAPIKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applySecretsFile() error {
	if c.SecretsFile == "" {
		return nil
	}
	f, err := os.Open(c.SecretsFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening secrets file: %w", err)
	}
	defer f.Close()

	s, err := decodeSecrets(f)
	if err != nil {
		return fmt.Errorf("reading secrets file %s: %w", c.SecretsFile, err)
	}
	fill(&c.GenAIAPIKey, s.GenAIAPIKey)
	fill(&c.SpeechAPIKey, s.SpeechAPIKey)
	fill(&c.OpenAIAPIKey, s.OpenAIAPIKey)
	fill(&c.AnthropicAPIKey, s.AnthropicAPIKey)
	return nil
}

func decodeSecrets(r io.Reader) (secrets, error) {
	var s secrets
	if err := yaml.NewDecoder(r).Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return s, err
	}
	return s, nil
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = strings.TrimSpace(v)
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var result error

	if strings.TrimSpace(c.GenAIAPIKey) == "" {
		result = multierror.Append(result, ErrMissingAPIKey)
	}
	switch c.Transcriber {
	case TranscriberGoogle:
	case TranscriberWhisper:
		if c.OpenAIAPIKey == "" {
			result = multierror.Append(result, errors.New("TRANSCRIBER=whisper requires OPENAI_API_KEY"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unknown TRANSCRIBER %q (want %s or %s)", c.Transcriber, TranscriberGoogle, TranscriberWhisper))
	}
	if len(c.ModelNames()) == 0 {
		result = multierror.Append(result, errors.New("MODELS must list at least one model"))
	}
	if c.GenerationTimeout <= 0 {
		result = multierror.Append(result, errors.New("GENERATION_TIMEOUT must be positive"))
	}
	if c.TranscriptionTimeout <= 0 {
		result = multierror.Append(result, errors.New("TRANSCRIPTION_TIMEOUT must be positive"))
	}
	if _, err := common.ParseLogLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := c.Format(); err != nil {
		result = multierror.Append(result, err)
	}

	return result
}

// ModelNames returns the configured model names with blanks removed.
func (c *Config) ModelNames() []string {
	names := make([]string, 0, len(c.Models))
	for _, m := range c.Models {
		if m = strings.TrimSpace(m); m != "" {
			names = append(names, m)
		}
	}
	return names
}

// Level returns the parsed LOG_LEVEL.
func (c *Config) Level() common.LogLevel {
	level, _ := common.ParseLogLevel(c.LogLevel)
	return level
}

// Format returns the parsed LOG_FORMAT.
func (c *Config) Format() (logging.Format, error) {
	switch f := logging.Format(strings.ToLower(c.LogFormat)); f {
	case logging.FormatText, logging.FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown LOG_FORMAT %q (want text or json)", c.LogFormat)
	}
}
