package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fpang/album-studio/internal/config"
	"github.com/fpang/album-studio/internal/generate"
	"github.com/fpang/album-studio/internal/photo"
	"github.com/fpang/album-studio/internal/session"
)

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, subject, vibe []photo.Encoded, instructions string) (photo.Encoded, error) {
	return photo.FromBytes("image/png", []byte("generated")), nil
}

func setupTestState() {
	cfg = config.Default()
	sessions = session.NewManager(session.DefaultLimits)
}

func testPhoto(t *testing.T, w, h int) photo.Encoded {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test photo: %v", err)
	}
	return photo.FromBytes("image/png", buf.Bytes())
}

func postRequest(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func getRequest(handler http.HandlerFunc, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestSessionCreateAndState(t *testing.T) {
	setupTestState()

	rr := postRequest(t, handleSessionCreate, "/api/session", map[string]string{})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var created struct {
		SessionID string `json:"sessionId"`
	}
	decodeResponse(t, rr, &created)
	if created.SessionID == "" {
		t.Fatal("expected a session ID")
	}

	rr = getRequest(handleState, "/api/state?sessionId="+created.SessionID)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var state stateResponse
	decodeResponse(t, rr, &state)
	if state.ViewState != string(session.ViewIdle) {
		t.Errorf("expected idle view, got %q", state.ViewState)
	}
	if len(state.Subject) != 0 || len(state.Vibe) != 0 {
		t.Error("expected empty photo sets in a new session")
	}
}

func TestStateUnknownSession(t *testing.T) {
	setupTestState()

	rr := getRequest(handleState, "/api/state?sessionId=not-a-uuid")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestSessionCreateRejectsGet(t *testing.T) {
	setupTestState()

	rr := getRequest(handleSessionCreate, "/api/session")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rr.Code)
	}
}

func TestCropHeadAndConfirm(t *testing.T) {
	setupTestState()
	s := sessions.Create()
	s.EnqueueCrops(session.CropEntry{
		Source:   testPhoto(t, 400, 300),
		Category: session.CategorySubject,
	})

	rr := getRequest(handleCropHead, "/api/crop/head?sessionId="+s.ID)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var head struct {
		Empty     bool   `json:"empty"`
		Category  string `json:"category"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Suggested struct {
			X, Y, Width, Height int
		} `json:"suggested"`
	}
	decodeResponse(t, rr, &head)
	if head.Empty {
		t.Fatal("expected a queue head")
	}
	if head.Category != "subject" {
		t.Errorf("expected subject category, got %q", head.Category)
	}
	if head.Width != 400 || head.Height != 300 {
		t.Errorf("expected 400x300, got %dx%d", head.Width, head.Height)
	}
	if head.Suggested.Width != head.Suggested.Height {
		t.Errorf("suggested crop is not square: %dx%d", head.Suggested.Width, head.Suggested.Height)
	}

	rr = postRequest(t, handleCropConfirm, "/api/crop/confirm", map[string]interface{}{
		"sessionId": s.ID,
		"rect":      map[string]int{"x": 50, "y": 20, "width": 250, "height": 250},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var state stateResponse
	decodeResponse(t, rr, &state)
	if len(state.Subject) != 1 {
		t.Fatalf("expected 1 subject photo, got %d", len(state.Subject))
	}
	if state.CropPending != 0 {
		t.Errorf("expected empty crop queue, got %d", state.CropPending)
	}
	if state.ViewState != string(session.ViewPhotosUploaded) {
		t.Errorf("expected photosUploaded view, got %q", state.ViewState)
	}
}

func TestCropHeadEmptyQueue(t *testing.T) {
	setupTestState()
	s := sessions.Create()

	rr := getRequest(handleCropHead, "/api/crop/head?sessionId="+s.ID)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var head struct {
		Empty bool `json:"empty"`
	}
	decodeResponse(t, rr, &head)
	if !head.Empty {
		t.Error("expected empty queue response")
	}
}

func TestCropConfirmEmptySelection(t *testing.T) {
	setupTestState()
	s := sessions.Create()
	s.EnqueueCrops(session.CropEntry{
		Source:   testPhoto(t, 200, 200),
		Category: session.CategoryVibe,
	})

	rr := postRequest(t, handleCropConfirm, "/api/crop/confirm", map[string]interface{}{
		"sessionId": s.ID,
		"rect":      map[string]int{"x": 10, "y": 10, "width": 0, "height": 0},
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
	if s.QueueLen() != 1 {
		t.Error("rejected confirm should not advance the queue")
	}
}

func TestCropSkipAdvancesQueue(t *testing.T) {
	setupTestState()
	s := sessions.Create()
	s.EnqueueCrops(
		session.CropEntry{Source: testPhoto(t, 100, 100), Category: session.CategorySubject},
		session.CropEntry{Source: testPhoto(t, 120, 80), Category: session.CategoryVibe},
	)

	rr := postRequest(t, handleCropSkip, "/api/crop/skip", map[string]string{"sessionId": s.ID})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if s.QueueLen() != 1 {
		t.Errorf("expected 1 entry remaining, got %d", s.QueueLen())
	}
	if len(s.Photos(session.CategorySubject)) != 0 {
		t.Error("skip must not add a photo")
	}
}

func TestPasteWithoutCategoryStagesBatch(t *testing.T) {
	setupTestState()
	s := sessions.Create()

	rr := postRequest(t, handlePaste, "/api/photos/paste", map[string]interface{}{
		"sessionId": s.ID,
		"images":    []string{string(testPhoto(t, 64, 64))},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var res struct {
		Pending bool `json:"pending"`
		Count   int  `json:"count"`
	}
	decodeResponse(t, rr, &res)
	if !res.Pending || res.Count != 1 {
		t.Errorf("expected pending batch of 1, got pending=%v count=%d", res.Pending, res.Count)
	}

	rr = postRequest(t, handlePasteAssign, "/api/photos/paste/assign", map[string]string{
		"sessionId": s.ID,
		"category":  "vibe",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if s.QueueLen() != 1 {
		t.Errorf("expected assigned batch in crop queue, got %d entries", s.QueueLen())
	}
	head, _ := s.QueueHead()
	if head.Category != session.CategoryVibe {
		t.Errorf("expected vibe category, got %q", head.Category)
	}
}

func TestPasteAssignWithoutBatch(t *testing.T) {
	setupTestState()
	s := sessions.Create()

	rr := postRequest(t, handlePasteAssign, "/api/photos/paste/assign", map[string]string{
		"sessionId": s.ID,
		"category":  "subject",
	})
	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestPasteRejectsUnreadableImages(t *testing.T) {
	setupTestState()
	s := sessions.Create()

	rr := postRequest(t, handlePaste, "/api/photos/paste", map[string]interface{}{
		"sessionId": s.ID,
		"images":    []string{"data:image/png;base64,bm90IGFuIGltYWdl"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestResetKeepsCropQueue(t *testing.T) {
	setupTestState()
	s := sessions.Create()
	s.EnqueueCrops(session.CropEntry{
		Source:   testPhoto(t, 100, 100),
		Category: session.CategorySubject,
	})
	s.SetInstructions("moody lighting")

	rr := postRequest(t, handleReset, "/api/reset", map[string]string{"sessionId": s.ID})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var state stateResponse
	decodeResponse(t, rr, &state)
	if state.ViewState != string(session.ViewIdle) {
		t.Errorf("expected idle view after reset, got %q", state.ViewState)
	}
	if state.Instructions != "" {
		t.Error("expected instructions cleared")
	}
	if state.CropPending != 1 {
		t.Errorf("expected crop queue to survive reset, got %d", state.CropPending)
	}
}

func TestThumbnailEndpoint(t *testing.T) {
	setupTestState()
	s := sessions.Create()
	s.EnqueueCrops(session.CropEntry{
		Source:   testPhoto(t, 300, 300),
		Category: session.CategorySubject,
	})
	if err := s.ConfirmCrop(testPhoto(t, 256, 256)); err != nil {
		t.Fatalf("confirm crop: %v", err)
	}

	rr := getRequest(handlePhotoThumbnail, "/api/photos/thumbnail?sessionId="+s.ID+"&category=subject&index=0")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/webp" {
		t.Errorf("expected webp thumbnail, got %q", ct)
	}
	if rr.Body.Len() == 0 {
		t.Error("expected thumbnail bytes")
	}

	rr = getRequest(handlePhotoThumbnail, "/api/photos/thumbnail?sessionId="+s.ID+"&category=subject&index=5")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for out-of-range index, got %d", rr.Code)
	}
}

func TestSlotImageNotReady(t *testing.T) {
	setupTestState()
	s := sessions.Create()

	rr := getRequest(handleSlotImage, "/api/slot/image?sessionId="+s.ID+"&slot=0")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestInstructionsEndpoint(t *testing.T) {
	setupTestState()
	s := sessions.Create()

	rr := postRequest(t, handleInstructions, "/api/instructions", map[string]string{
		"sessionId": s.ID,
		"text":      "warm film tones",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got := s.Instructions(); got != "warm film tones" {
		t.Errorf("expected instructions stored, got %q", got)
	}
}

func TestGenerateStartCarriesEmptyInstructions(t *testing.T) {
	setupTestState()
	orchestrator = generate.NewOrchestrator(stubGenerator{})
	s := sessions.Create()
	s.EnqueueCrops(session.CropEntry{Source: testPhoto(t, 64, 64), Category: session.CategorySubject})
	if err := s.ConfirmCrop(testPhoto(t, 64, 64)); err != nil {
		t.Fatal(err)
	}
	s.EnqueueCrops(session.CropEntry{Source: testPhoto(t, 64, 64), Category: session.CategoryVibe})
	if err := s.ConfirmCrop(testPhoto(t, 64, 64)); err != nil {
		t.Fatal(err)
	}
	s.SetInstructions("golden hour")

	// Clearing the textarea and starting a batch must not reuse the old text.
	rr := postRequest(t, handleGenerateStart, "/api/generate/start", map[string]interface{}{
		"sessionId":    s.ID,
		"count":        1,
		"instructions": "",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := s.Instructions(); got != "" {
		t.Errorf("instructions = %q, want empty", got)
	}
}

func TestInvalidBody(t *testing.T) {
	setupTestState()

	req := httptest.NewRequest(http.MethodPost, "/api/reset", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	handleReset(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}
