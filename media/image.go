package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"path/filepath"
	"strings"

	"github.com/1broseidon/blogsmith/models"
	_ "golang.org/x/image/webp"
)

// MsgInvalidImage is shown when an upload cannot be decoded as an image.
const MsgInvalidImage = "The uploaded file is not a valid image. Please upload a JPG, PNG or WebP file."

// DecodedImage is an image that has been verified to decode.
type DecodedImage struct {
	Format string
	Width  int
	Height int
	Data   []byte
}

// MIMEType returns the image MIME type, e.g. image/png.
func (d DecodedImage) MIMEType() string {
	return "image/" + d.Format
}

// DecodeImage checks that data is a supported image and reports its format.
func DecodeImage(data []byte) (DecodedImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return DecodedImage{}, models.NewValidationError("media", MsgInvalidImage)
	}
	b := img.Bounds()
	return DecodedImage{Format: format, Width: b.Dx(), Height: b.Dy(), Data: data}, nil
}

var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
}

// VideoMIMEType picks the MIME type for a video upload, preferring the
// declared content type and falling back to the file extension.
func VideoMIMEType(m *models.Media) (string, error) {
	if ct, _, err := mime.ParseMediaType(m.ContentType); err == nil && strings.HasPrefix(ct, "video/") {
		return ct, nil
	}
	if ct, ok := videoTypes[strings.ToLower(filepath.Ext(m.Filename))]; ok {
		return ct, nil
	}
	return "", fmt.Errorf("unsupported video type %q", m.Filename)
}
