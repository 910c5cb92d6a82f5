package web

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/1broseidon/blogsmith/media"
	"github.com/1broseidon/blogsmith/models"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// maxRequestBytes leaves room for form fields around the largest allowed upload.
const maxRequestBytes = media.MaxUploadBytes + 8<<20

const msgRequestTooLarge = "The upload is too large. Please upload a smaller file."

// generateForm is shared by the HTML form and the JSON API.
type generateForm struct {
	Mode       string `form:"mode" json:"mode"`
	Topic      string `form:"topic" json:"topic"`
	Tone       string `form:"tone" json:"tone"`
	WordLimit  int    `form:"word_limit" json:"word_limit"`
	Model      string `form:"model" json:"model"`
	Transcript string `form:"transcript" json:"transcript"`
}

// page is the data rendered by index.html.
type page struct {
	Modes    []models.InputMode
	Tones    []models.Tone
	Models   []string
	MinWords int
	MaxWords int
	Form     generateForm
	Blog     template.HTML
	Error    string
	Notice   string
}

func (s *Server) newPage(form generateForm) page {
	if form.Mode == "" {
		form.Mode = string(models.ModeText)
	}
	if form.Tone == "" {
		form.Tone = string(models.ToneInformative)
	}
	if form.WordLimit == 0 {
		form.WordLimit = models.DefaultWordLimit
	}
	if form.Model == "" {
		form.Model = s.models[0]
	}
	return page{
		Modes:    models.InputModes,
		Tones:    models.Tones,
		Models:   s.models,
		MinWords: models.MinWordLimit,
		MaxWords: models.MaxWordLimit,
		Form:     form,
	}
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", s.newPage(generateForm{}))
}

func (s *Server) generatePage(c *gin.Context) {
	form, req, err := s.readGenerateRequest(c)
	p := s.newPage(form)
	if err != nil {
		p.Error = err.Error()
		c.HTML(statusFor(err), "index.html", p)
		return
	}
	p.Form.Transcript = req.Transcript()

	res := s.svc.Generate(c.Request.Context(), req)
	if !res.OK() {
		p.Error = res.String()
		c.HTML(statusFor(res.Err), "index.html", p)
		return
	}

	html, err := renderMarkdown(res.Text)
	if err != nil {
		p.Error = models.GenerationErrorPrefix + err.Error()
		c.HTML(http.StatusInternalServerError, "index.html", p)
		return
	}
	p.Blog = html
	c.HTML(http.StatusOK, "index.html", p)
}

func (s *Server) transcribePage(c *gin.Context) {
	var form generateForm
	clip, err := s.readUpload(c, "audio", &form)
	p := s.newPage(form)
	p.Form.Mode = string(models.ModeAudio)
	if err != nil {
		p.Error = err.Error()
		c.HTML(statusFor(err), "index.html", p)
		return
	}

	res := s.svc.Transcribe(c.Request.Context(), clip)
	if !res.OK() {
		p.Error = res.String()
		c.HTML(statusFor(res.Err), "index.html", p)
		return
	}
	p.Form.Transcript = res.Transcript
	p.Notice = "Transcription complete. Edit the text below before generating if needed."
	c.HTML(http.StatusOK, "index.html", p)
}

func (s *Server) apiGenerate(c *gin.Context) {
	_, req, err := s.readGenerateRequest(c)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	res := s.svc.Generate(c.Request.Context(), req)
	if !res.OK() {
		c.JSON(statusFor(res.Err), gin.H{"error": res.String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": res.Text})
}

func (s *Server) apiTranscribe(c *gin.Context) {
	var form generateForm
	clip, err := s.readUpload(c, "audio", &form)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	res := s.svc.Transcribe(c.Request.Context(), clip)
	if !res.OK() {
		c.JSON(statusFor(res.Err), gin.H{"error": res.String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": res.Transcript})
}

// readGenerateRequest binds the form and builds the request. In Audio mode an
// attached clip is transcribed first when no transcript was submitted.
func (s *Server) readGenerateRequest(c *gin.Context) (generateForm, models.GenerationRequest, error) {
	var form generateForm
	upload, err := s.readUpload(c, "media", &form)
	if err != nil {
		return form, models.GenerationRequest{}, err
	}

	if form.Mode == "" {
		form.Mode = string(models.ModeText)
	}
	mode, err := models.ParseInputMode(form.Mode)
	if err != nil {
		return form, models.GenerationRequest{}, models.NewValidationError("mode", fmt.Sprintf("Unknown input mode %q.", form.Mode))
	}
	if form.WordLimit == 0 {
		form.WordLimit = models.DefaultWordLimit
	}
	if form.Model == "" {
		form.Model = s.models[0]
	}

	if mode == models.ModeAudio && strings.TrimSpace(form.Transcript) == "" {
		clip, err := s.readFile(c, "audio")
		if err != nil {
			return form, models.GenerationRequest{}, err
		}
		if !clip.Empty() {
			res := s.svc.Transcribe(c.Request.Context(), clip)
			if !res.OK() {
				return form, models.GenerationRequest{}, res.Err
			}
			form.Transcript = res.Transcript
		}
	}

	req := models.GenerationRequest{
		Tone:      models.Tone(form.Tone),
		WordLimit: form.WordLimit,
		Model:     form.Model,
		Source:    models.BuildSource(mode, form.Topic, form.Transcript, upload),
	}
	return form, req, nil
}

// readUpload limits the body, binds form into dst and returns the file in field, if any.
func (s *Server) readUpload(c *gin.Context, field string, dst *generateForm) (*models.Media, error) {
	if c.Request.ContentLength > maxRequestBytes {
		return nil, oversizeError(c.Request, field)
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)

	if err := c.ShouldBind(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errRequestTooLarge
		}
		return nil, models.NewValidationError("form", fmt.Sprintf("Invalid form: %v", err))
	}
	return s.readFile(c, field)
}

var errRequestTooLarge = &tooLargeError{err: models.NewValidationError("media", msgRequestTooLarge)}

// tooLargeError is a validation failure answered with 413 instead of 422.
type tooLargeError struct {
	err error
}

func (e *tooLargeError) Error() string { return e.err.Error() }
func (e *tooLargeError) Unwrap() error { return e.err }

// oversizeError reports a body over maxRequestBytes with the limit message of
// the upload's mode. The audio field is always an audio clip; otherwise the mode
// is taken from a "mode" part sent before the first file.
func oversizeError(r *http.Request, field string) error {
	mode := models.ModeAudio
	if field != "audio" {
		var ok bool
		if mode, ok = leadingMode(r); !ok {
			return errRequestTooLarge
		}
	}
	limit, ok := media.LimitFor(mode)
	if !ok {
		return errRequestTooLarge
	}
	return &tooLargeError{err: limit.Check(r.ContentLength)}
}

// leadingMode reads multipart parts up to the first file looking for the mode.
func leadingMode(r *http.Request) (models.InputMode, bool) {
	mr, err := r.MultipartReader()
	if err != nil {
		return "", false
	}
	for {
		part, err := mr.NextPart()
		if err != nil || part.FileName() != "" {
			return "", false
		}
		if part.FormName() != "mode" {
			continue
		}
		value, err := io.ReadAll(io.LimitReader(part, 64))
		if err != nil {
			return "", false
		}
		mode, err := models.ParseInputMode(string(value))
		return mode, err == nil
	}
}

// readFile returns the uploaded file in field or nil. Files over the largest
// media limit keep their reported size but are not read into memory.
func (s *Server) readFile(c *gin.Context, field string) (*models.Media, error) {
	if c.ContentType() != binding.MIMEMultipartPOSTForm {
		return nil, nil
	}
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewValidationError("media", fmt.Sprintf("Invalid upload: %v", err))
	}

	m := &models.Media{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	}
	if fh.Size > media.MaxUploadBytes {
		return m, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()
	if m.Data, err = io.ReadAll(f); err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return m, nil
}

func statusFor(err error) int {
	var (
		tooLarge *tooLargeError
		ve       *models.ValidationError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
