package ollama

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

// OllamaProvider implements blog generation on a local Ollama server
type OllamaProvider struct {
	baseURL string
	client  *http.Client
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(baseURL string) (*OllamaProvider, error) {
	if baseURL == "" {
		return nil, errors.New("OLLAMA_BASE_URL is not set")
	}

	return &OllamaProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}, nil
}

// Name identifies the provider in model strings such as "ollama/llava".
func (p *OllamaProvider) Name() string { return "ollama" }

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Generate generates a blog using the specified Ollama model. Images are sent
// base64-encoded; other attachments are rejected.
func (p *OllamaProvider) Generate(ctx context.Context, input models.GenerationInput) (string, error) {
	body := generateRequest{
		Model:  input.Model,
		Prompt: input.Instruction,
	}
	if a := input.Attachment; a != nil {
		if !strings.HasPrefix(a.MIMEType, "image/") {
			return "", fmt.Errorf("ollama does not accept %s attachments", a.MIMEType)
		}
		body.Images = []string{base64.StdEncoding.EncodeToString(a.Data)}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &models.RequestError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", &models.RequestError{Err: fmt.Errorf("API request failed with status code: %d, body: %s", resp.StatusCode, string(bodyBytes))}
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if result.Error != "" {
		return "", errors.New(result.Error)
	}
	if strings.TrimSpace(result.Response) == "" {
		return "", errors.New("no content generated")
	}

	return result.Response, nil
}

// Close closes the Ollama provider (no-op in this case)
func (p *OllamaProvider) Close() error {
	return nil
}
