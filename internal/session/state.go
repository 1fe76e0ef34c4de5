// Package session holds the per-browser-session application state: the
// bounded photo sets, the crop queue, the generation slot board, and the
// view state machine that drives the frontend.
package session

import "fmt"

// Category names the role a photo plays in generation.
type Category string

const (
	// CategorySubject photos are the people/things the generated looks are of.
	CategorySubject Category = "subject"
	// CategoryVibe photos are style references that bias the output.
	CategoryVibe Category = "vibe"
)

// ParseCategory validates a category string from the API.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategorySubject, CategoryVibe:
		return Category(s), nil
	}
	return "", fmt.Errorf("invalid category %q: must be subject or vibe", s)
}

// ViewState is the top-level UI state. Transitions:
//
//	idle -> photosUploaded        first crop confirmed
//	photosUploaded -> generating  batch started
//	generating -> resultsShown    all slots settled
//	any -> idle                   reset
type ViewState string

const (
	ViewIdle           ViewState = "idle"
	ViewPhotosUploaded ViewState = "photosUploaded"
	ViewGenerating     ViewState = "generating"
	ViewResultsShown   ViewState = "resultsShown"
)

// SlotStatus is the lifecycle of one generation slot. Each slot moves
// pending -> done or pending -> error exactly once per batch or
// regeneration cycle, independently of its siblings.
type SlotStatus string

const (
	SlotPending SlotStatus = "pending"
	SlotDone    SlotStatus = "done"
	SlotError   SlotStatus = "error"
)

// Limits bounds the photo sets and generation batches for a session.
type Limits struct {
	SubjectMax int
	VibeMax    int
	BatchMax   int
}

// DefaultLimits mirrors the product defaults: 10 subject photos, 5 vibe
// photos, up to 8 looks per batch.
var DefaultLimits = Limits{SubjectMax: 10, VibeMax: 5, BatchMax: 8}

// Max returns the bound for the given category.
func (l Limits) Max(cat Category) int {
	if cat == CategoryVibe {
		return l.VibeMax
	}
	return l.SubjectMax
}
