package models

import (
	"fmt"
	"strings"
)

// InputMode is the category of user input that drives validation and dispatch.
type InputMode string

const (
	ModeText  InputMode = "Text"
	ModeImage InputMode = "Image"
	ModeAudio InputMode = "Audio"
	ModeVideo InputMode = "Video"
)

// InputModes lists the modes in the order the form offers them.
var InputModes = []InputMode{ModeText, ModeImage, ModeAudio, ModeVideo}

// ParseInputMode accepts a mode name case-insensitively.
func ParseInputMode(s string) (InputMode, error) {
	for _, m := range InputModes {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown input mode %q", s)
}

// Tone is the writing style requested for the blog.
type Tone string

const (
	ToneInformative  Tone = "Informative"
	ToneCasual       Tone = "Casual"
	ToneFormal       Tone = "Formal"
	ToneStorytelling Tone = "Storytelling"
)

// Tones lists the supported tones in form order.
var Tones = []Tone{ToneInformative, ToneCasual, ToneFormal, ToneStorytelling}

// ParseTone accepts a tone name case-insensitively.
func ParseTone(s string) (Tone, error) {
	for _, t := range Tones {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tone %q", s)
}

// Word limit bounds offered by the form slider.
const (
	MinWordLimit     = 100
	MaxWordLimit     = 1000
	DefaultWordLimit = 500
)

// DefaultModels are the model names offered when none are configured.
var DefaultModels = []string{"gemini-2.0-flash", "gemini-pro-vision"}

// Media is an uploaded or recorded file. Size is the size reported by the
// upload and is what the limits are checked against.
type Media struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// Empty reports whether no file was supplied.
func (m *Media) Empty() bool {
	return m == nil || (m.Size == 0 && len(m.Data) == 0)
}

// Source is the mode-specific part of a request. Exactly one variant exists per InputMode.
type Source interface {
	Mode() InputMode
	isSource()
}

// TextSource carries the user's topic.
type TextSource struct {
	Topic string
}

// ImageSource carries an uploaded image.
type ImageSource struct {
	Image *Media
}

// AudioSource carries the (possibly edited) transcript of an audio clip.
type AudioSource struct {
	Transcript string
}

// VideoSource carries an uploaded video.
type VideoSource struct {
	Video *Media
}

func (TextSource) Mode() InputMode  { return ModeText }
func (ImageSource) Mode() InputMode { return ModeImage }
func (AudioSource) Mode() InputMode { return ModeAudio }
func (VideoSource) Mode() InputMode { return ModeVideo }

func (TextSource) isSource()  {}
func (ImageSource) isSource() {}
func (AudioSource) isSource() {}
func (VideoSource) isSource() {}

// BuildSource turns flat form fields into the variant for mode.
// Fields that do not belong to the mode are dropped.
func BuildSource(mode InputMode, topic, transcript string, media *Media) Source {
	switch mode {
	case ModeText:
		return TextSource{Topic: topic}
	case ModeImage:
		return ImageSource{Image: media}
	case ModeAudio:
		return AudioSource{Transcript: transcript}
	case ModeVideo:
		return VideoSource{Video: media}
	}
	return nil
}

// GenerationRequest is everything needed for one blog generation.
type GenerationRequest struct {
	Tone      Tone
	WordLimit int
	Model     string
	Source    Source
}

// Mode returns the mode of the request's source, or "" when there is none.
func (r GenerationRequest) Mode() InputMode {
	if r.Source == nil {
		return ""
	}
	return r.Source.Mode()
}

// Topic returns the topic for Text requests.
func (r GenerationRequest) Topic() string {
	if s, ok := r.Source.(TextSource); ok {
		return strings.TrimSpace(s.Topic)
	}
	return ""
}

// Transcript returns the transcript for Audio requests.
func (r GenerationRequest) Transcript() string {
	if s, ok := r.Source.(AudioSource); ok {
		return strings.TrimSpace(s.Transcript)
	}
	return ""
}

// Attachment is binary media sent alongside the instruction.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// GenerationInput is what a generation backend receives.
type GenerationInput struct {
	Model       string
	Instruction string
	Attachment  *Attachment
}
