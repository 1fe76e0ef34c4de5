package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// POST /api/generate/start
// Body: {"sessionId": "...", "count": n, "instructions": "..."}
//
// Starts a K-way fan-out: K independent generation calls, one per slot.
// The request returns as soon as the slots are allocated; the browser polls
// /api/state for per-slot progress. Generation continues on a background
// context so an abandoned poll never cancels work in flight.
func handleGenerateStart(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		SessionID    string `json:"sessionId"`
		Count        int    `json:"count"`
		Instructions string `json:"instructions"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s := sessionFromID(w, req.SessionID)
	if s == nil {
		return
	}

	// The request carries the textarea's current contents verbatim; an empty
	// string means the user cleared it, not that it should be kept.
	s.SetInstructions(req.Instructions)

	if err := orchestrator.StartBatch(context.Background(), s, req.Count); err != nil {
		httpError(w, http.StatusConflict, err.Error())
		return
	}

	log.Info().
		Str("session", s.ID).
		Int("count", req.Count).
		Msg("Generation batch started")

	respondJSON(w, http.StatusOK, stateSnapshot(s))
}

// POST /api/generate/regenerate
// Body: {"sessionId": "...", "slot": n}
//
// Replaces one slot's result without touching its siblings. Re-clicking a
// slot issues a new attempt; the newest attempt always wins, and any
// still-running older attempt for that slot is discarded when it lands.
func handleRegenerate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		SessionID string `json:"sessionId"`
		Slot      int    `json:"slot"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s := sessionFromID(w, req.SessionID)
	if s == nil {
		return
	}

	if err := orchestrator.Regenerate(context.Background(), s, req.Slot); err != nil {
		httpError(w, http.StatusConflict, err.Error())
		return
	}

	log.Info().
		Str("session", s.ID).
		Int("slot", req.Slot).
		Msg("Slot regeneration started")

	respondJSON(w, http.StatusOK, stateSnapshot(s))
}

// GET /api/slot/image?sessionId=...&slot=n
// Serves the raw bytes of a completed slot's generated image.
func handleSlotImage(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	s := sessionFromQuery(w, r)
	if s == nil {
		return
	}
	index, err := strconv.Atoi(r.URL.Query().Get("slot"))
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid slot index")
		return
	}

	result, err := s.SlotResult(index)
	if err != nil {
		httpError(w, http.StatusNotFound, err.Error())
		return
	}
	data, err := result.Bytes()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to decode slot image")
		return
	}

	w.Header().Set("Content-Type", result.MIMEType())
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}
