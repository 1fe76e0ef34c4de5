package main

import (
	"image"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fpang/album-studio/internal/photo"
)

// GET /api/crop/head?sessionId=...
//
// Returns the crop-queue head: the source image, its category, and the
// suggested initial crop region (a centered square at 90% of the shorter
// dimension, in native pixel coordinates). Only the head is ever presented;
// the next entry renders after confirm or skip removes this one.
func handleCropHead(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	s := sessionFromQuery(w, r)
	if s == nil {
		return
	}

	head, ok := s.QueueHead()
	if !ok {
		respondJSON(w, http.StatusOK, map[string]interface{}{"empty": true})
		return
	}

	img, err := head.Source.Image()
	if err != nil {
		// The source was validated at intake; a decode failure here means the
		// entry is unusable. Drop it so the queue can advance.
		log.Warn().Err(err).Str("session", s.ID).Msg("Crop head no longer decodes; skipping entry")
		s.SkipCrop()
		httpError(w, http.StatusInternalServerError, "image could not be decoded; entry skipped")
		return
	}

	bounds := img.Bounds()
	suggested := photo.InitialSquare(bounds)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"empty":    false,
		"image":    string(head.Source),
		"category": string(head.Category),
		"width":    bounds.Dx(),
		"height":   bounds.Dy(),
		"suggested": map[string]int{
			"x":      suggested.Min.X,
			"y":      suggested.Min.Y,
			"width":  suggested.Dx(),
			"height": suggested.Dy(),
		},
	})
}

// POST /api/crop/confirm
// Body: {"sessionId": "...", "rect": {"x": n, "y": n, "width": n, "height": n}}
//
// Rasterizes the selected native-coordinate rectangle into a square image,
// appends it to the head entry's category, and advances the queue. Confirm
// is final; there is no going back to a popped entry.
func handleCropConfirm(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		SessionID string `json:"sessionId"`
		Rect      struct {
			X      int `json:"x"`
			Y      int `json:"y"`
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"rect"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s := sessionFromID(w, req.SessionID)
	if s == nil {
		return
	}

	head, ok := s.QueueHead()
	if !ok {
		httpError(w, http.StatusConflict, "crop queue is empty")
		return
	}
	if req.Rect.Width <= 0 || req.Rect.Height <= 0 {
		httpError(w, http.StatusBadRequest, "crop selection is empty")
		return
	}

	img, err := head.Source.Image()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to decode source image")
		return
	}

	sel := image.Rect(req.Rect.X, req.Rect.Y, req.Rect.X+req.Rect.Width, req.Rect.Y+req.Rect.Height)
	cropped, err := photo.SquareCrop(img, sel, photo.CropOutputSize)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := photo.EncodeJPEG(cropped, 90)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to encode cropped image")
		return
	}

	if err := s.ConfirmCrop(photo.FromBytes("image/jpeg", data)); err != nil {
		httpError(w, http.StatusConflict, err.Error())
		return
	}

	log.Info().
		Str("session", s.ID).
		Str("category", string(head.Category)).
		Int("remaining", s.QueueLen()).
		Msg("Crop confirmed")

	respondJSON(w, http.StatusOK, stateSnapshot(s))
}

// POST /api/crop/skip
// Body: {"sessionId": "..."}
//
// Discards the head entry without adding anything to any photo set.
func handleCropSkip(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		SessionID string `json:"sessionId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s := sessionFromID(w, req.SessionID)
	if s == nil {
		return
	}

	if err := s.SkipCrop(); err != nil {
		httpError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stateSnapshot(s))
}
