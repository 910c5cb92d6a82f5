package googlespeech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/1broseidon/blogsmith/models"
	"google.golang.org/api/option"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *GoogleSpeechProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewGoogleSpeechProvider(context.Background(), "test-key", "en-GB",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("Failed to create speech provider: %v", err)
	}
	return p
}

func TestGoogleSpeechProvider(t *testing.T) {
	ctx := context.Background()
	wav := []byte("RIFF\x24\x00\x00\x00WAVEfmt ")

	t.Run("Transcribe", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "speech:recognize") {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			var body struct {
				Config struct {
					Encoding     string `json:"encoding"`
					LanguageCode string `json:"languageCode"`
				} `json:"config"`
				Audio struct {
					Content string `json:"content"`
				} `json:"audio"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decoding request: %v", err)
			}
			if body.Config.Encoding != "LINEAR16" || body.Config.LanguageCode != "en-GB" {
				t.Errorf("config = %+v", body.Config)
			}
			if got, _ := base64.StdEncoding.DecodeString(body.Audio.Content); string(got) != string(wav) {
				t.Errorf("audio content not forwarded")
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"results":[{"alternatives":[{"transcript":"hello"}]},{"alternatives":[{"transcript":" world "}]}]}`))
		})

		text, err := p.Transcribe(ctx, wav)
		if err != nil {
			t.Fatalf("Transcribe failed: %v", err)
		}
		if text != "hello world" {
			t.Errorf("transcript = %q", text)
		}
	})

	t.Run("Unintelligible", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{}`))
		})

		_, err := p.Transcribe(ctx, wav)
		if !errors.Is(err, models.ErrUnintelligible) {
			t.Fatalf("expected ErrUnintelligible, got %v", err)
		}
	})

	t.Run("RequestError", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"code":403,"message":"API key not valid"}}`, http.StatusForbidden)
		})

		_, err := p.Transcribe(ctx, wav)
		var reqErr *models.RequestError
		if !errors.As(err, &reqErr) {
			t.Fatalf("expected RequestError, got %v", err)
		}
	})
}

func TestNewGoogleSpeechProviderRequiresKey(t *testing.T) {
	if _, err := NewGoogleSpeechProvider(context.Background(), "", ""); err == nil {
		t.Fatal("expected error without API key")
	}
}
