package album

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const zipMethodZstd uint16 = 93

func init() {
	// Register Zstandard as a ZIP compressor. Image payloads are already
	// compressed, so a mid-level encoder keeps bundling fast.
	zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
}

// Bundle packs every result image, plus the composed album when non-empty,
// into a single ZIP archive.
func Bundle(results []Labeled, composedAlbum []byte) ([]byte, error) {
	if len(results) == 0 && len(composedAlbum) == 0 {
		return nil, ErrEmptyInput
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, item := range results {
		data, err := item.Image.Bytes()
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", item.Label, err)
		}
		name := safeFileName(item.Label) + extensionFor(item.Image.MIMEType())
		if err := writeEntry(zw, name, data); err != nil {
			return nil, err
		}
	}

	if len(composedAlbum) > 0 {
		if err := writeEntry(zw, "album.png", composedAlbum); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize zip: %w", err)
	}
	return buf.Bytes(), nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zipMethodZstd,
	})
	if err != nil {
		return fmt.Errorf("create zip entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write zip entry %s: %w", name, err)
	}
	return nil
}

// safeFileName lowercases a label and replaces anything outside [a-z0-9-]
// with dashes.
func safeFileName(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		return "image"
	}
	return name
}

// extensionFor maps a MIME type to a file extension.
func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
