package googlegemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/1broseidon/blogsmith/models"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GoogleGeminiProvider implements blog generation on Google Gemini
type GoogleGeminiProvider struct {
	client *genai.Client
}

// NewGoogleGeminiProvider creates a new Google Gemini provider
func NewGoogleGeminiProvider(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GoogleGeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("GENAI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GoogleGeminiProvider{
		client: client,
	}, nil
}

// Name identifies the provider in model strings such as "googlegemini/gemini-2.0-flash".
func (p *GoogleGeminiProvider) Name() string { return "googlegemini" }

// Close closes the Google Gemini client
func (p *GoogleGeminiProvider) Close() error {
	return p.client.Close()
}

// Generate sends the instruction, plus the attachment when present, to the named model
func (p *GoogleGeminiProvider) Generate(ctx context.Context, input models.GenerationInput) (string, error) {
	model := p.client.GenerativeModel(input.Model)

	resp, err := model.GenerateContent(ctx, Parts(input)...)
	if err != nil {
		return "", &models.RequestError{Err: err}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", errors.New("no content generated")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("unexpected content type in response")
	}

	return sb.String(), nil
}

// Parts converts the input into genai parts: the instruction first, then
// an image or a raw blob for other media.
func Parts(input models.GenerationInput) []genai.Part {
	parts := []genai.Part{genai.Text(input.Instruction)}
	if a := input.Attachment; a != nil {
		if format, ok := strings.CutPrefix(a.MIMEType, "image/"); ok {
			parts = append(parts, genai.ImageData(format, a.Data))
		} else {
			parts = append(parts, genai.Blob{MIMEType: a.MIMEType, Data: a.Data})
		}
	}
	return parts
}
