package main

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fpang/album-studio/internal/photo"
	"github.com/fpang/album-studio/internal/session"
)

// --- View projections ---

type photoView struct {
	Index        int                `json:"index"`
	ThumbnailURL string             `json:"thumbnailUrl"`
	Capture      *photo.CaptureInfo `json:"capture,omitempty"`
}

type slotView struct {
	Index    int    `json:"index"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type stateResponse struct {
	SessionID    string      `json:"sessionId"`
	ViewState    string      `json:"viewState"`
	Subject      []photoView `json:"subject"`
	Vibe         []photoView `json:"vibe"`
	SubjectFree  int         `json:"subjectFree"`
	VibeFree     int         `json:"vibeFree"`
	CropPending  int         `json:"cropPending"`
	PastePending bool        `json:"pastePending"`
	Instructions string      `json:"instructions"`
	Slots        []slotView  `json:"slots"`
}

// POST /api/session
// Creates a new session and returns its ID.
func handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	s := sessions.Create()
	log.Info().Str("session", s.ID).Msg("Session created")
	respondJSON(w, http.StatusOK, map[string]string{"sessionId": s.ID})
}

// GET /api/state?sessionId=...
// Pure projection of the session state; drives which UI region renders.
func handleState(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	s := sessionFromQuery(w, r)
	if s == nil {
		return
	}

	respondJSON(w, http.StatusOK, stateSnapshot(s))
}

func stateSnapshot(s *session.Session) stateResponse {
	resp := stateResponse{
		SessionID:    s.ID,
		ViewState:    string(s.View()),
		Subject:      photoViews(s, session.CategorySubject),
		Vibe:         photoViews(s, session.CategoryVibe),
		SubjectFree:  s.AvailableSlots(session.CategorySubject),
		VibeFree:     s.AvailableSlots(session.CategoryVibe),
		CropPending:  s.QueueLen(),
		PastePending: s.PastePending(),
		Instructions: s.Instructions(),
		Slots:        []slotView{},
	}

	for _, slot := range s.Slots() {
		view := slotView{
			Index:  slot.Index,
			Status: string(slot.Status),
			Error:  slot.ErrMsg,
		}
		if slot.Status == session.SlotDone {
			view.ImageURL = fmt.Sprintf("/api/slot/image?sessionId=%s&slot=%d", s.ID, slot.Index)
		}
		resp.Slots = append(resp.Slots, view)
	}
	return resp
}

func photoViews(s *session.Session, cat session.Category) []photoView {
	views := []photoView{}
	for i, p := range s.Photos(cat) {
		views = append(views, photoView{
			Index:        i,
			ThumbnailURL: fmt.Sprintf("/api/photos/thumbnail?sessionId=%s&category=%s&index=%d", s.ID, cat, i),
			Capture:      p.Capture,
		})
	}
	return views
}

// POST /api/reset
// Body: {"sessionId": "..."}
//
// Returns photo sets, slots, instructions, and view state to their initial
// values. Crop-queue entries mid-flight survive and resume being asked about.
func handleReset(w http.ResponseWriter, r *http.Request) {
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

	s.Reset()
	respondJSON(w, http.StatusOK, stateSnapshot(s))
}

// POST /api/instructions
// Body: {"sessionId": "...", "text": "..."}
func handleInstructions(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req struct {
		SessionID string `json:"sessionId"`
		Text      string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s := sessionFromID(w, req.SessionID)
	if s == nil {
		return
	}

	s.SetInstructions(req.Text)
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
