package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/1broseidon/blogsmith/models"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubService struct {
	genResult models.GenerationResult
	trResult  models.TranscriptionResult

	genReqs []models.GenerationRequest
	clips   []*models.Media
}

func (s *stubService) Generate(ctx context.Context, req models.GenerationRequest) models.GenerationResult {
	s.genReqs = append(s.genReqs, req)
	return s.genResult
}

func (s *stubService) Transcribe(ctx context.Context, clip *models.Media) models.TranscriptionResult {
	s.clips = append(s.clips, clip)
	if clip.Empty() {
		return models.TranscriptionResult{Err: models.ErrMissingMedia}
	}
	return s.trResult
}

type filePart struct {
	field, name, contentType string
	data                     []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...filePart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="` + f.field + `"; filename="` + f.name + `"`}
		h["Content-Type"] = []string{f.contentType}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestIndex(t *testing.T) {
	s := NewServer(&stubService{}, Options{Models: []string{"gemini-2.0-flash", "ollama/llama3.2"}})

	w := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `<option value="ollama/llama3.2">`)
	assert.Contains(t, body, `<option value="Storytelling">`)
	assert.Contains(t, body, `min="100" max="1000" step="1"`)
	assert.Contains(t, body, `value="500"`)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))
}

func TestRequestIDPropagation(t *testing.T) {
	s := NewServer(&stubService{}, Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "6f1c1b7e-58c8-4a5e-9d33-1e8f0f6f8a10")
	w := do(t, s, req)
	assert.Equal(t, "6f1c1b7e-58c8-4a5e-9d33-1e8f0f6f8a10", w.Header().Get(headerRequestID))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "not a uuid")
	w = do(t, s, req)
	assert.NotEqual(t, "not a uuid", w.Header().Get(headerRequestID))
}

func TestGeneratePageRendersMarkdown(t *testing.T) {
	svc := &stubService{genResult: models.GenerationResult{Text: "# Coffee\n\nIt is **great**.\n\n<script>alert(1)</script>"}}
	s := NewServer(svc, Options{})

	form := url.Values{"mode": {"Text"}, "topic": {"coffee"}, "tone": {"Casual"}, "word_limit": {"300"}, "model": {"gemini-2.0-flash"}}
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := do(t, s, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<h1>Coffee</h1>")
	assert.Contains(t, body, "<strong>great</strong>")
	assert.NotContains(t, body, "<script>alert(1)</script>")

	require.Len(t, svc.genReqs, 1)
	got := svc.genReqs[0]
	assert.Equal(t, models.ToneCasual, got.Tone)
	assert.Equal(t, 300, got.WordLimit)
	assert.Equal(t, "coffee", got.Topic())
}

func TestGeneratePageShowsError(t *testing.T) {
	svc := &stubService{genResult: models.GenerationResult{Err: models.NewValidationError("topic", models.MsgEmptyTopic)}}
	s := NewServer(svc, Options{})

	form := url.Values{"mode": {"Text"}, "tone": {"Casual"}}
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := do(t, s, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), models.MsgEmptyTopic)
}

func TestAPIGenerateJSON(t *testing.T) {
	svc := &stubService{genResult: models.GenerationResult{Text: "A blog."}}
	s := NewServer(svc, Options{Models: []string{"gemini-2.0-flash"}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate",
		strings.NewReader(`{"mode":"Audio","tone":"Formal","transcript":"hello there"}`))
	req.Header.Set("Content-Type", "application/json")
	w := do(t, s, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "A blog.", resp["text"])

	got := svc.genReqs[0]
	assert.Equal(t, models.ModeAudio, got.Mode())
	assert.Equal(t, models.DefaultWordLimit, got.WordLimit)
	assert.Equal(t, "gemini-2.0-flash", got.Model)
	assert.Equal(t, "hello there", got.Transcript())
}

func TestAPIGenerateStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		result models.GenerationResult
		want   int
	}{
		{"Validation", models.GenerationResult{Err: models.ErrMissingMedia}, http.StatusUnprocessableEntity},
		{"Service", models.GenerationResult{Err: &models.GenerationError{Err: errors.New("boom")}}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(&stubService{genResult: tt.result}, Options{})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(`{"mode":"Image","tone":"Casual"}`))
			req.Header.Set("Content-Type", "application/json")
			w := do(t, s, req)

			assert.Equal(t, tt.want, w.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.result.String(), resp["error"])
		})
	}
}

func TestAPIGenerateUnknownMode(t *testing.T) {
	svc := &stubService{}
	s := NewServer(svc, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(`{"mode":"Podcast"}`))
	req.Header.Set("Content-Type", "application/json")
	w := do(t, s, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, svc.genReqs)
}

func TestAPIGenerateWithImageUpload(t *testing.T) {
	svc := &stubService{genResult: models.GenerationResult{Text: "ok"}}
	s := NewServer(svc, Options{})

	body, ct := multipartBody(t,
		map[string]string{"mode": "Image", "tone": "Informative", "word_limit": "200"},
		filePart{field: "media", name: "cat.png", contentType: "image/png", data: []byte("png-bytes")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", body)
	req.Header.Set("Content-Type", ct)
	w := do(t, s, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	src, ok := svc.genReqs[0].Source.(models.ImageSource)
	require.True(t, ok)
	assert.Equal(t, "cat.png", src.Image.Filename)
	assert.Equal(t, "image/png", src.Image.ContentType)
	assert.Equal(t, []byte("png-bytes"), src.Image.Data)
	assert.Equal(t, int64(len("png-bytes")), src.Image.Size)
}

func TestAPIGenerateAudioTranscribesFirst(t *testing.T) {
	svc := &stubService{
		trResult:  models.TranscriptionResult{Transcript: "spoken words"},
		genResult: models.GenerationResult{Text: "ok"},
	}
	s := NewServer(svc, Options{})

	body, ct := multipartBody(t,
		map[string]string{"mode": "Audio", "tone": "Casual"},
		filePart{field: "audio", name: "clip.mp3", contentType: "audio/mpeg", data: []byte("mp3")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", body)
	req.Header.Set("Content-Type", ct)
	w := do(t, s, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, svc.clips, 1)
	assert.Equal(t, "spoken words", svc.genReqs[0].Transcript())
}

func TestAPITranscribe(t *testing.T) {
	svc := &stubService{trResult: models.TranscriptionResult{Transcript: "hello"}}
	s := NewServer(svc, Options{})

	body, ct := multipartBody(t, nil,
		filePart{field: "audio", name: "recording.webm", contentType: "audio/webm", data: []byte("webm")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe", body)
	req.Header.Set("Content-Type", ct)
	w := do(t, s, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "hello", resp["transcript"])
	assert.Equal(t, "recording.webm", svc.clips[0].Filename)
}

func TestAPITranscribeFailure(t *testing.T) {
	svc := &stubService{trResult: models.TranscriptionResult{Err: &models.TranscriptionError{
		Kind: models.FailureUnintelligible, Service: "Google Speech-to-Text", Err: models.ErrUnintelligible,
	}}}
	s := NewServer(svc, Options{})

	body, ct := multipartBody(t, nil, filePart{field: "audio", name: "a.wav", contentType: "audio/wav", data: []byte("RIFF")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe", body)
	req.Header.Set("Content-Type", ct)
	w := do(t, s, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Google Speech-to-Text could not understand the audio.")
}

func TestAPITranscribeMissingFile(t *testing.T) {
	s := NewServer(&stubService{}, Options{})

	body, ct := multipartBody(t, map[string]string{"mode": "Audio"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe", body)
	req.Header.Set("Content-Type", ct)
	w := do(t, s, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), models.MsgMissingMedia)
}

func TestTranscribePageFillsTranscript(t *testing.T) {
	svc := &stubService{trResult: models.TranscriptionResult{Transcript: "edit me"}}
	s := NewServer(svc, Options{})

	body, ct := multipartBody(t, map[string]string{"tone": "Formal"},
		filePart{field: "audio", name: "a.mp3", contentType: "audio/mpeg", data: []byte("mp3")})
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", ct)
	w := do(t, s, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<textarea id="transcript" name="transcript">edit me</textarea>`)
	assert.Contains(t, w.Body.String(), `<option value="Audio" selected>`)
}

func TestRequestTooLarge(t *testing.T) {
	s := NewServer(&stubService{}, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = maxRequestBytes + 1
	w := do(t, s, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestOversizeUploadUsesModeLimit(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		fields map[string]string
		file   filePart
		want   string
	}{
		{
			name:   "Video",
			path:   "/api/v1/generate",
			fields: map[string]string{"mode": "Video"},
			file:   filePart{field: "media", name: "trip.mp4", contentType: "video/mp4", data: []byte("mp4")},
			want:   "Video size exceeds the 50 MB limit. Please upload a smaller video file.",
		},
		{
			name:   "Image",
			path:   "/api/v1/generate",
			fields: map[string]string{"mode": "Image"},
			file:   filePart{field: "media", name: "cat.png", contentType: "image/png", data: []byte("png")},
			want:   "Image size exceeds the 20 MB limit. Please upload a smaller image.",
		},
		{
			name: "Transcribe",
			path: "/api/v1/transcribe",
			file: filePart{field: "audio", name: "talk.wav", contentType: "audio/wav", data: []byte("RIFF")},
			want: "Audio size exceeds the 10 MB limit. Please upload a smaller audio file.",
		},
		{
			name: "NoMode",
			path: "/api/v1/generate",
			file: filePart{field: "media", name: "trip.mp4", contentType: "video/mp4", data: []byte("mp4")},
			want: msgRequestTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{}
			s := NewServer(svc, Options{})

			body, ct := multipartBody(t, tt.fields, tt.file)
			req := httptest.NewRequest(http.MethodPost, tt.path, body)
			req.Header.Set("Content-Type", ct)
			req.ContentLength = 60 << 20
			w := do(t, s, req)

			assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp["error"])
			assert.Empty(t, svc.genReqs, "oversized uploads must not reach Generate")
			assert.Empty(t, svc.clips)
		})
	}
}

func TestOversizeVideoOnFormPage(t *testing.T) {
	svc := &stubService{}
	s := NewServer(svc, Options{})

	body, ct := multipartBody(t, map[string]string{"mode": "Video"},
		filePart{field: "media", name: "trip.mov", contentType: "video/quicktime", data: []byte("mov")})
	req := httptest.NewRequest(http.MethodPost, "/generate", body)
	req.Header.Set("Content-Type", ct)
	req.ContentLength = 60 << 20
	w := do(t, s, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "Video size exceeds the 50 MB limit. Please upload a smaller video file.")
	assert.Empty(t, svc.genReqs)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "blogsmith_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	s := NewServer(&stubService{}, Options{Gatherer: reg})
	w := do(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "blogsmith_test_total 1")

	s = NewServer(&stubService{}, Options{})
	w = do(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORS(t *testing.T) {
	s := NewServer(&stubService{}, Options{AllowedOrigins: []string{"http://app.test"}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://app.test")
	w := do(t, s, req)
	assert.Equal(t, "http://app.test", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = do(t, s, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRenderMarkdown(t *testing.T) {
	html, err := renderMarkdown("- one\n- two\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)
	assert.Contains(t, string(html), "<li>one</li>")
	assert.Contains(t, string(html), "<table>")
}
