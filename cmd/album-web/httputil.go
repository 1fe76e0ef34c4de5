package main

import (
	"encoding/json"
	"net/http"

	"github.com/fpang/album-studio/internal/session"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// requirePost rejects non-POST requests. Returns false when the request was
// already answered.
func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// requireGet rejects non-GET requests.
func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// sessionFromQuery resolves the session named by the request's sessionId
// query parameter, answering the request itself on failure.
func sessionFromQuery(w http.ResponseWriter, r *http.Request) *session.Session {
	s, err := sessions.Get(r.URL.Query().Get("sessionId"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return nil
	}
	return s
}

// sessionFromID resolves a session from a decoded request body field.
func sessionFromID(w http.ResponseWriter, id string) *session.Session {
	s, err := sessions.Get(id)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return nil
	}
	return s
}

// decodeBody parses a JSON request body into dst, answering the request on
// failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
