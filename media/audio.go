package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/1broseidon/blogsmith/models"
)

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}

// isPCMMono16 reports whether data is a WAV whose fmt chunk declares
// uncompressed PCM, one channel and 16-bit samples.
func isPCMMono16(data []byte) bool {
	if !IsWAV(data) {
		return false
	}
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if id == "fmt " {
			if size < 16 || body+16 > len(data) {
				return false
			}
			format := binary.LittleEndian.Uint16(data[body:])
			channels := binary.LittleEndian.Uint16(data[body+2:])
			bits := binary.LittleEndian.Uint16(data[body+14:])
			return format == 1 && channels == 1 && bits == 16
		}
		off = body + size + size%2
	}
	return false
}

// FFmpegConverter normalizes audio clips to 16 kHz mono PCM WAV with ffmpeg.
type FFmpegConverter struct {
	// Path is the ffmpeg binary. Defaults to "ffmpeg" on PATH.
	Path string
	// TempDir is the parent of the per-call scratch directory. Defaults to os.TempDir().
	TempDir string
}

// ToWAV returns clip as WAV bytes. Mono 16-bit PCM WAV is returned unchanged;
// every other input, WAV included, goes through ffmpeg.
// Scratch files are removed before ToWAV returns, whatever the outcome.
func (c *FFmpegConverter) ToWAV(ctx context.Context, clip *models.Media) ([]byte, error) {
	if isPCMMono16(clip.Data) {
		return clip.Data, nil
	}

	bin := c.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("looking for `ffmpeg`: %w", err)
	}

	dir, err := os.MkdirTemp(c.TempDir, "blogsmith-audio-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	ext := strings.ToLower(filepath.Ext(clip.Filename))
	if ext == "" {
		ext = ".bin"
	}
	inputPath := filepath.Join(dir, "input"+ext)
	outputPath := filepath.Join(dir, "output.wav")

	if err := os.WriteFile(inputPath, clip.Data, 0o600); err != nil {
		return nil, fmt.Errorf("saving audio clip: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", inputPath,
		"-ac", "1", "-ar", "16000", "-acodec", "pcm_s16le",
		outputPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("running `ffmpeg`: %w: %s", err, strings.TrimSpace(string(out)))
	}

	wav, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("reading converted audio: %w", err)
	}
	return wav, nil
}
