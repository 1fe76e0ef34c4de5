package main

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/fpang/album-studio/internal/photo"
	"github.com/fpang/album-studio/internal/session"
)

// POST /api/photos/upload
// Multipart form: sessionId, category, files.
//
// The batch is truncated to the category's available capacity; excess files
// are silently dropped. Each accepted file is decoded and queued for
// cropping; unreadable files are logged and dropped without an error.
func handleUpload(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	if err := r.ParseMultipartForm(cfg.Limits.MaxUploadBytes); err != nil {
		httpError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	s := sessionFromID(w, r.FormValue("sessionId"))
	if s == nil {
		return
	}
	cat, err := session.ParseCategory(r.FormValue("category"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		httpError(w, http.StatusBadRequest, "no files in request")
		return
	}

	available := s.AvailableSlots(cat)
	accepted := files
	if len(accepted) > available {
		accepted = accepted[:available]
	}

	var entries []session.CropEntry
	for _, header := range accepted {
		entry, ok := intakeFile(header)
		if !ok {
			continue
		}
		entry.Category = cat
		entries = append(entries, entry)
	}
	if len(entries) > 0 {
		s.EnqueueCrops(entries...)
	}

	log.Info().
		Str("session", s.ID).
		Str("category", string(cat)).
		Int("received", len(files)).
		Int("queued", len(entries)).
		Msg("Upload batch queued for cropping")

	respondJSON(w, http.StatusOK, map[string]int{
		"queued":  len(entries),
		"dropped": len(files) - len(entries),
	})
}

// intakeFile decodes one uploaded file into a crop-queue entry. Decode
// failures drop the file; EXIF extraction failure is non-fatal.
func intakeFile(header *multipart.FileHeader) (session.CropEntry, bool) {
	f, err := header.Open()
	if err != nil {
		log.Warn().Err(err).Str("file", header.Filename).Msg("Failed to open uploaded file")
		return session.CropEntry{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, cfg.Limits.MaxUploadBytes+1))
	if err != nil {
		log.Warn().Err(err).Str("file", header.Filename).Msg("Failed to read uploaded file")
		return session.CropEntry{}, false
	}
	if int64(len(data)) > cfg.Limits.MaxUploadBytes {
		log.Warn().Str("file", header.Filename).Msg("Uploaded file exceeds size limit; dropping")
		return session.CropEntry{}, false
	}

	_, mimeType, err := photo.DecodeRaster(data)
	if err != nil {
		log.Warn().Err(err).Str("file", header.Filename).Msg("Unreadable image; dropping")
		return session.CropEntry{}, false
	}

	capture, err := photo.ExtractCapture(data)
	if err != nil {
		log.Debug().Err(err).Str("file", header.Filename).Msg("No capture metadata")
		capture = nil
	}

	return session.CropEntry{
		Source:  photo.FromBytes(mimeType, data),
		Capture: capture,
	}, true
}

// POST /api/photos/paste
// Body: {"sessionId": "...", "category": "subject"|"vibe"|"", "images": ["data:...", ...]}
//
// With a category, images are queued directly (truncated to capacity). With
// no category the batch is staged for disambiguation: the user picks one
// destination for the whole batch via /paste/assign, or discards it via
// /paste/cancel.
func handlePaste(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		SessionID string   `json:"sessionId"`
		Category  string   `json:"category"`
		Images    []string `json:"images"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s := sessionFromID(w, req.SessionID)
	if s == nil {
		return
	}
	if len(req.Images) == 0 {
		httpError(w, http.StatusBadRequest, "no images in paste")
		return
	}

	var entries []session.CropEntry
	for i, raw := range req.Images {
		enc := photo.Encoded(raw)
		data, err := enc.Bytes()
		if err != nil {
			log.Warn().Err(err).Int("image", i).Msg("Malformed pasted image; dropping")
			continue
		}
		if _, _, err := photo.DecodeRaster(data); err != nil {
			log.Warn().Err(err).Int("image", i).Msg("Unreadable pasted image; dropping")
			continue
		}
		entries = append(entries, session.CropEntry{Source: enc})
	}
	if len(entries) == 0 {
		httpError(w, http.StatusBadRequest, "no readable images in paste")
		return
	}

	if req.Category == "" {
		s.SetPasteBatch(entries)
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"pending": true,
			"count":   len(entries),
		})
		return
	}

	cat, err := session.ParseCategory(req.Category)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	available := s.AvailableSlots(cat)
	if len(entries) > available {
		entries = entries[:available]
	}
	for i := range entries {
		entries[i].Category = cat
	}
	if len(entries) > 0 {
		s.EnqueueCrops(entries...)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"pending": false,
		"queued":  len(entries),
	})
}

// POST /api/photos/paste/assign
// Body: {"sessionId": "...", "category": "subject"|"vibe"}
func handlePasteAssign(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		SessionID string `json:"sessionId"`
		Category  string `json:"category"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s := sessionFromID(w, req.SessionID)
	if s == nil {
		return
	}
	cat, err := session.ParseCategory(req.Category)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	queued, err := s.AssignPasteBatch(cat)
	if err != nil {
		httpError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"queued": queued})
}

// POST /api/photos/paste/cancel
// Body: {"sessionId": "..."}
func handlePasteCancel(w http.ResponseWriter, r *http.Request) {
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

	s.CancelPasteBatch()
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// POST /api/photos/remove
// Body: {"sessionId": "...", "category": "...", "index": n}
func handlePhotoRemove(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		SessionID string `json:"sessionId"`
		Category  string `json:"category"`
		Index     int    `json:"index"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s := sessionFromID(w, req.SessionID)
	if s == nil {
		return
	}
	cat, err := session.ParseCategory(req.Category)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.RemovePhoto(cat, req.Index); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/photos/thumbnail?sessionId=...&category=...&index=n
func handlePhotoThumbnail(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	s := sessionFromQuery(w, r)
	if s == nil {
		return
	}
	cat, err := session.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid index")
		return
	}

	set := s.Photos(cat)
	if index < 0 || index >= len(set) {
		httpError(w, http.StatusNotFound, "photo not found")
		return
	}

	img, err := set[index].Image.Image()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to decode photo")
		return
	}
	thumb, err := photo.Thumbnail(img, photo.DefaultThumbnailMaxDimension)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to build thumbnail")
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(thumb)
}
