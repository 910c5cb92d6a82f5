package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/1broseidon/blogsmith/client"
	"github.com/1broseidon/blogsmith/internal/config"
	"github.com/1broseidon/blogsmith/internal/logging"
	"github.com/1broseidon/blogsmith/internal/metrics"
	"github.com/1broseidon/blogsmith/internal/web"
	"github.com/1broseidon/blogsmith/media"
	"github.com/1broseidon/blogsmith/models"
	"github.com/1broseidon/blogsmith/providers/anthropic"
	"github.com/1broseidon/blogsmith/providers/googlegemini"
	"github.com/1broseidon/blogsmith/providers/googlespeech"
	"github.com/1broseidon/blogsmith/providers/ollama"
	"github.com/1broseidon/blogsmith/providers/openai"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const usage = `Usage: blogsmith [command] [flags]

Commands:
  serve       run the web form and JSON API (default)
  generate    generate a blog and print it
  transcribe  print the transcript of an audio file
  models      list configured models and providers
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "blogsmith: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	format, _ := cfg.Format()
	logger := logging.New(os.Stderr, format, cfg.Level())

	switch cmd {
	case "serve":
		return serve(ctx, cfg, logger)
	case "generate":
		return generate(ctx, cfg, logger, args)
	case "transcribe":
		return transcribe(ctx, cfg, logger, args)
	case "models":
		return listModels(ctx, cfg, logger)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// newClient wires the configured backends into a client.Client.
func newClient(ctx context.Context, cfg *config.Config, logger logging.Logger, reg prometheus.Registerer) (*client.Client, error) {
	gemini, err := googlegemini.NewGoogleGeminiProvider(ctx, cfg.GenAIAPIKey)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini provider: %w", err)
	}

	opts := []client.ClientOption{
		client.WithLogger(logger),
		client.WithProvider(gemini),
		client.WithAudioConverter(&media.FFmpegConverter{Path: cfg.FFmpegPath}),
		client.WithGenerationTimeout(cfg.GenerationTimeout),
		client.WithTranscriptionTimeout(cfg.TranscriptionTimeout),
	}

	if cfg.OllamaBaseURL != "" {
		local, err := ollama.NewOllamaProvider(cfg.OllamaBaseURL)
		if err != nil {
			return nil, fmt.Errorf("creating Ollama provider: %w", err)
		}
		opts = append(opts, client.WithProvider(local))
	}

	if cfg.AnthropicAPIKey != "" {
		claude, err := anthropic.NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("creating Anthropic provider: %w", err)
		}
		opts = append(opts, client.WithProvider(claude))
	}

	switch cfg.Transcriber {
	case config.TranscriberWhisper:
		whisper, err := openai.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("creating Whisper transcriber: %w", err)
		}
		opts = append(opts, client.WithTranscriber(whisper))
	default:
		speech, err := googlespeech.NewGoogleSpeechProvider(ctx, cfg.SpeechAPIKey, cfg.SpeechLanguage)
		if err != nil {
			return nil, fmt.Errorf("creating Speech-to-Text transcriber: %w", err)
		}
		opts = append(opts, client.WithTranscriber(speech))
	}

	if reg != nil {
		opts = append(opts, client.WithMetrics(metrics.NewRecorder(reg)))
	}

	return client.NewClient(opts...)
}

func serve(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c, err := newClient(ctx, cfg, logger, reg)
	if err != nil {
		return err
	}
	defer closeClient(c, logger)

	srv := web.NewServer(c, web.Options{
		Models:         cfg.ModelNames(),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
		Gatherer:       reg,
	})
	return srv.ListenAndServe(ctx, cfg.Addr)
}

func generate(ctx context.Context, cfg *config.Config, logger logging.Logger, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	mode := fs.String("mode", string(models.ModeText), "input type: Text, Image, Audio or Video")
	topic := fs.String("topic", "", "blog topic (Text)")
	tone := fs.String("tone", string(models.ToneInformative), "Informative, Casual, Formal or Storytelling")
	words := fs.Int("words", models.DefaultWordLimit, "word limit (100-1000)")
	model := fs.String("model", cfg.ModelNames()[0], "model name, optionally prefixed with a provider")
	file := fs.String("file", "", "image, video or audio file")
	transcript := fs.String("transcript", "", "transcript to use instead of transcribing -file (Audio)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	inputMode, err := models.ParseInputMode(*mode)
	if err != nil {
		return err
	}

	c, err := newClient(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeClient(c, logger)

	var upload *models.Media
	if *file != "" {
		if upload, err = readMedia(*file); err != nil {
			return err
		}
	}

	if inputMode == models.ModeAudio && strings.TrimSpace(*transcript) == "" && upload != nil {
		res := c.Transcribe(ctx, upload)
		if !res.OK() {
			return res.Err
		}
		*transcript = res.Transcript
	}

	res := c.Generate(ctx, models.GenerationRequest{
		Tone:      models.Tone(*tone),
		WordLimit: *words,
		Model:     *model,
		Source:    models.BuildSource(inputMode, *topic, *transcript, upload),
	})
	if !res.OK() {
		return res.Err
	}
	fmt.Println(res.Text)
	return nil
}

func transcribe(ctx context.Context, cfg *config.Config, logger logging.Logger, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: blogsmith transcribe <audio-file>")
	}
	clip, err := readMedia(args[0])
	if err != nil {
		return err
	}

	c, err := newClient(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeClient(c, logger)

	res := c.Transcribe(ctx, clip)
	if !res.OK() {
		return res.Err
	}
	fmt.Println(res.Transcript)
	return nil
}

func listModels(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	c, err := newClient(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeClient(c, logger)

	fmt.Println("Providers:")
	for _, p := range c.Providers() {
		fmt.Printf("  %s\n", p)
	}
	fmt.Println("Models:")
	for _, m := range cfg.ModelNames() {
		fmt.Printf("  %s\n", m)
	}
	return nil
}

// closeClient closes every backend and logs what failed to close.
func closeClient(c io.Closer, logger logging.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("Failed to close client", "error", err)
	}
}

func readMedia(path string) (*models.Media, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &models.Media{
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}
