package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/1broseidon/blogsmith/models"
)

const (
	// DefaultBaseURL is the public Anthropic API.
	DefaultBaseURL = "https://api.anthropic.com"

	apiVersion = "2023-06-01"
	// maxTokens covers a 1000-word blog with room to spare.
	maxTokens = 4096
)

// AnthropicProvider implements blog generation on Anthropic's Messages API
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewAnthropicProvider creates a new Anthropic provider. baseURL may be empty for the public API.
func NewAnthropicProvider(apiKey, baseURL string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY is not set")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &AnthropicProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}, nil
}

// Name identifies the provider in model strings such as "anthropic/claude-3-5-haiku-latest".
func (p *AnthropicProvider) Name() string { return "anthropic" }

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// content builds the user message: the image block first when present, then
// the instruction. Non-image attachments are rejected.
func content(input models.GenerationInput) ([]contentBlock, error) {
	var blocks []contentBlock
	if a := input.Attachment; a != nil {
		if !strings.HasPrefix(a.MIMEType, "image/") {
			return nil, fmt.Errorf("anthropic does not accept %s attachments", a.MIMEType)
		}
		blocks = append(blocks, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: a.MIMEType,
				Data:      base64.StdEncoding.EncodeToString(a.Data),
			},
		})
	}
	return append(blocks, contentBlock{Type: "text", Text: input.Instruction}), nil
}

// Generate generates a blog using the specified Anthropic model
func (p *AnthropicProvider) Generate(ctx context.Context, input models.GenerationInput) (string, error) {
	blocks, err := content(input)
	if err != nil {
		return "", err
	}

	jsonBody, err := json.Marshal(messagesRequest{
		Model:     input.Model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: blocks}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &models.RequestError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", &models.RequestError{Err: fmt.Errorf("API request failed with status code: %d, body: %s", resp.StatusCode, string(bodyBytes))}
	}

	var result messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("%s: %s", result.Error.Type, result.Error.Message)
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", errors.New("no content in response")
	}

	return sb.String(), nil
}

// Close closes the Anthropic provider (no-op in this case)
func (p *AnthropicProvider) Close() error {
	return nil
}
