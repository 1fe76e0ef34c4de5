package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/album-studio/internal/album"
	"github.com/fpang/album-studio/internal/history"
	"github.com/fpang/album-studio/internal/session"
)

// POST /api/album/compose
// Body: {"sessionId": "..."}
//
// Composes every completed slot into a single labeled collage, writes it to
// the album directory, and records it in history. A second compose request
// while one is running is rejected rather than queued.
func handleAlbumCompose(w http.ResponseWriter, r *http.Request) {
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

	if !s.BeginCompose() {
		httpError(w, http.StatusConflict, "album composition already in progress")
		return
	}
	defer s.EndCompose()

	results := doneLabeled(s)
	composed, err := album.Compose(results)
	if err != nil {
		if errors.Is(err, album.ErrEmptyInput) {
			httpError(w, http.StatusBadRequest, "no completed images to compose")
			return
		}
		log.Error().Err(err).Str("session", s.ID).Msg("Album composition failed")
		httpError(w, http.StatusInternalServerError, "failed to compose album")
		return
	}

	data, err := composed.Bytes()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to decode composed album")
		return
	}

	albumID := uuid.NewString()
	path := filepath.Join(albumDir, albumID+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to write album file")
		httpError(w, http.StatusInternalServerError, "failed to save album")
		return
	}

	record := history.Album{
		ID:        albumID,
		SessionID: s.ID,
		CreatedAt: time.Now(),
		SlotCount: len(results),
		Path:      path,
	}
	if err := albums.Record(r.Context(), record); err != nil {
		// The file is on disk and downloadable; history is best effort.
		log.Warn().Err(err).Str("album", albumID).Msg("Failed to record album history")
	}

	log.Info().
		Str("session", s.ID).
		Str("album", albumID).
		Int("images", len(results)).
		Msg("Album composed")

	respondJSON(w, http.StatusOK, map[string]string{
		"albumId":     albumID,
		"downloadUrl": fmt.Sprintf("/api/album/download?id=%s", albumID),
	})
}

// GET /api/album/download?id=...
// Serves a previously composed album as a PNG attachment.
func handleAlbumDownload(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	id := r.URL.Query().Get("id")
	if _, err := uuid.Parse(id); err != nil {
		httpError(w, http.StatusBadRequest, "invalid album id")
		return
	}

	record, err := albums.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			httpError(w, http.StatusNotFound, "album not found")
			return
		}
		httpError(w, http.StatusInternalServerError, "failed to look up album")
		return
	}

	f, err := os.Open(record.Path)
	if err != nil {
		httpError(w, http.StatusNotFound, "album file missing")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "album-"+id[:8]+".png"))
	http.ServeContent(w, r, record.Path, record.CreatedAt, f)
}

// GET /api/album/zip?sessionId=...
//
// Bundles every completed slot image, plus the freshest composed collage if
// one exists for the session, into a single Zstandard-compressed zip.
func handleAlbumZip(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	s := sessionFromQuery(w, r)
	if s == nil {
		return
	}

	var composed []byte
	if records, err := albums.List(r.Context(), s.ID); err == nil && len(records) > 0 {
		if data, err := os.ReadFile(records[0].Path); err == nil {
			composed = data
		}
	}

	bundle, err := album.Bundle(doneLabeled(s), composed)
	if err != nil {
		if errors.Is(err, album.ErrEmptyInput) {
			httpError(w, http.StatusBadRequest, "nothing to bundle yet")
			return
		}
		httpError(w, http.StatusInternalServerError, "failed to build zip")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="album-bundle.zip"`)
	w.Write(bundle)
}

// GET /api/albums?sessionId=...
// Lists the session's composed albums, newest first.
func handleAlbumList(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	s := sessionFromQuery(w, r)
	if s == nil {
		return
	}

	records, err := albums.List(r.Context(), s.ID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to list albums")
		return
	}
	if records == nil {
		records = []history.Album{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"albums": records})
}

// doneLabeled projects the session's completed slots into the composer's
// input shape.
func doneLabeled(s *session.Session) []album.Labeled {
	done := s.DoneResults()
	labeled := make([]album.Labeled, 0, len(done))
	for _, r := range done {
		labeled = append(labeled, album.Labeled{Label: r.Label, Image: r.Image})
	}
	return labeled
}
