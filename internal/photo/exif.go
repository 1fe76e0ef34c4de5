package photo

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// CaptureInfo holds EXIF capture metadata extracted at intake. It is carried
// alongside a photo for display only; extraction failure never blocks intake.
type CaptureInfo struct {
	CameraMake  string    `json:"cameraMake,omitempty"`
	CameraModel string    `json:"cameraModel,omitempty"`
	TakenAt     time.Time `json:"takenAt,omitempty"`
	HasTime     bool      `json:"hasTime"`
}

// ExtractCapture reads EXIF metadata from raw image bytes. Only a small
// metadata prefix of the file is actually parsed by the library.
func ExtractCapture(data []byte) (*CaptureInfo, error) {
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode EXIF metadata: %w", err)
	}

	info := &CaptureInfo{
		CameraMake:  strings.TrimSpace(exifData.Make),
		CameraModel: strings.TrimSpace(exifData.Model),
	}

	// Priority: DateTimeOriginal > CreateDate > ModifyDate
	switch {
	case !exifData.DateTimeOriginal().IsZero():
		info.TakenAt = exifData.DateTimeOriginal()
		info.HasTime = true
	case !exifData.CreateDate().IsZero():
		info.TakenAt = exifData.CreateDate()
		info.HasTime = true
	case !exifData.ModifyDate().IsZero():
		info.TakenAt = exifData.ModifyDate()
		info.HasTime = true
	}

	log.Debug().
		Str("camera_make", info.CameraMake).
		Str("camera_model", info.CameraModel).
		Bool("has_time", info.HasTime).
		Msg("Capture metadata extracted")

	return info, nil
}
