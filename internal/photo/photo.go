// Package photo holds the encoded-image value type shared by the whole
// application, plus decode, thumbnail, and crop helpers.
package photo

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"github.com/chai2010/webp"
)

// Encoded is a self-contained raster image encoded as a base64 data URI
// (e.g. "data:image/jpeg;base64,..."). It is immutable once created and
// portable as a plain string, which is how the browser sends and receives
// images over the JSON API.
type Encoded string

// ErrUnsupportedFormat is returned when raw bytes do not decode as any
// supported raster format.
var ErrUnsupportedFormat = fmt.Errorf("unsupported image format")

// FromBytes wraps raw image bytes into a data URI.
func FromBytes(mimeType string, data []byte) Encoded {
	return Encoded("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

// MIMEType returns the declared MIME type, or "" if the string is not a
// well-formed data URI.
func (e Encoded) MIMEType() string {
	s := string(e)
	if !strings.HasPrefix(s, "data:") {
		return ""
	}
	rest := s[len("data:"):]
	semi := strings.Index(rest, ";")
	if semi < 0 {
		return ""
	}
	return rest[:semi]
}

// Bytes returns the decoded raw image bytes.
func (e Encoded) Bytes() ([]byte, error) {
	s := string(e)
	comma := strings.Index(s, ",")
	if !strings.HasPrefix(s, "data:") || comma < 0 {
		return nil, fmt.Errorf("malformed data URI")
	}
	data, err := base64.StdEncoding.DecodeString(s[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("decode base64 payload: %w", err)
	}
	return data, nil
}

// Image decodes the payload into an image.Image.
func (e Encoded) Image() (image.Image, error) {
	data, err := e.Bytes()
	if err != nil {
		return nil, err
	}
	img, _, err := DecodeRaster(data)
	return img, err
}

// DecodeRaster decodes raw bytes into an image, sniffing the format from the
// content. Returns the image and the detected MIME type.
// Supported: JPEG, PNG, WebP, GIF (first frame).
func DecodeRaster(data []byte) (image.Image, string, error) {
	mimeType := http.DetectContentType(data)

	var img image.Image
	var err error
	switch mimeType {
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case "image/png":
		img, err = png.Decode(bytes.NewReader(data))
	case "image/webp":
		img, err = webp.Decode(bytes.NewReader(data))
	case "image/gif":
		img, err = gif.Decode(bytes.NewReader(data))
	default:
		return nil, mimeType, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}
	if err != nil {
		return nil, mimeType, fmt.Errorf("decode %s: %w", mimeType, err)
	}
	return img, mimeType, nil
}

// EncodeJPEG encodes an image as JPEG at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG encodes an image as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
