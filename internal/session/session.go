package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/album-studio/internal/photo"
)

// Photo is one committed photo set entry: the cropped square image plus
// whatever capture metadata intake managed to extract.
type Photo struct {
	Image   photo.Encoded      `json:"-"`
	Capture *photo.CaptureInfo `json:"capture,omitempty"`
}

// CropEntry is one pending crop-queue item. Only the queue head is ever
// presented for cropping.
type CropEntry struct {
	Source   photo.Encoded
	Category Category
	Capture  *photo.CaptureInfo
}

// Slot is one result position in a generation batch. gen is a token drawn
// from the session-wide sequence; a result is only committed if its token
// still matches, which makes overlapping attempts last-issued-wins whether
// they overlap through regeneration or through a replacement batch.
type Slot struct {
	Index  int           `json:"index"`
	Status SlotStatus    `json:"status"`
	Result photo.Encoded `json:"-"`
	ErrMsg string        `json:"error,omitempty"`
	gen    uint64
}

// Gen returns the slot's current generation token.
func (s Slot) Gen() uint64 { return s.gen }

// Session is the complete state for one browser session. All fields are
// guarded by mu; photo sets and the slot board are copy-on-write, so
// snapshots handed out under the lock stay valid after it is released.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	limits       Limits
	subject      []Photo
	vibe         []Photo
	queue        []CropEntry
	pasteBatch   []CropEntry
	slots        []Slot
	instructions string
	view         ViewState
	composing    bool

	// tokenSeq issues slot commit tokens; epoch identifies the current
	// batch. Both only ever increase, even across Reset.
	tokenSeq uint64
	epoch    uint64
}

// New creates an empty session in the idle view state.
func New(id string, limits Limits) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		limits:    limits,
		view:      ViewIdle,
	}
}

// Limits returns the session's configured bounds.
func (s *Session) Limits() Limits { return s.limits }

// --- Photo sets ---

// setFor returns the current slice for a category. Caller must hold mu.
func (s *Session) setFor(cat Category) []Photo {
	if cat == CategoryVibe {
		return s.vibe
	}
	return s.subject
}

// replaceSet installs a new slice for a category. Caller must hold mu.
func (s *Session) replaceSet(cat Category, set []Photo) {
	if cat == CategoryVibe {
		s.vibe = set
	} else {
		s.subject = set
	}
}

// AvailableSlots reports how many more photos the category can accept.
func (s *Session) AvailableSlots(cat Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	free := s.limits.Max(cat) - len(s.setFor(cat))
	if free < 0 {
		return 0
	}
	return free
}

// Photos returns a snapshot of the category's photo set.
func (s *Session) Photos(cat Category) []Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.setFor(cat)
	out := make([]Photo, len(set))
	copy(out, set)
	return out
}

// RemovePhoto deletes the photo at index from the category, copy-on-write.
func (s *Session) RemovePhoto(cat Category, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.setFor(cat)
	if index < 0 || index >= len(set) {
		return fmt.Errorf("photo index %d out of range for %s set of %d", index, cat, len(set))
	}

	next := make([]Photo, 0, len(set)-1)
	next = append(next, set[:index]...)
	next = append(next, set[index+1:]...)
	s.replaceSet(cat, next)
	return nil
}

// --- Crop queue ---

// EnqueueCrops appends entries to the crop queue.
func (s *Session) EnqueueCrops(entries ...CropEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(append([]CropEntry{}, s.queue...), entries...)
}

// QueueHead returns the current head of the crop queue, if any.
func (s *Session) QueueHead() (CropEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return CropEntry{}, false
	}
	return s.queue[0], true
}

// QueueLen returns the number of pending crop entries.
func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// ConfirmCrop commits a cropped image to the head entry's category, pops the
// queue, and advances the view state to photosUploaded. If the category is
// already full the image is dropped (capacity is also enforced at intake;
// this guards photos queued before an earlier batch filled the set).
func (s *Session) ConfirmCrop(cropped photo.Encoded) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return fmt.Errorf("crop queue is empty")
	}
	head := s.queue[0]
	s.queue = append([]CropEntry{}, s.queue[1:]...)

	set := s.setFor(head.Category)
	if len(set) >= s.limits.Max(head.Category) {
		log.Warn().
			Str("session", s.ID).
			Str("category", string(head.Category)).
			Msg("Photo set full at crop confirm; dropping image")
		return nil
	}

	next := make([]Photo, 0, len(set)+1)
	next = append(next, set...)
	next = append(next, Photo{Image: cropped, Capture: head.Capture})
	s.replaceSet(head.Category, next)

	if s.view == ViewIdle {
		s.view = ViewPhotosUploaded
	}
	return nil
}

// SkipCrop discards the head entry without touching any photo set.
func (s *Session) SkipCrop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return fmt.Errorf("crop queue is empty")
	}
	s.queue = append([]CropEntry{}, s.queue[1:]...)
	return nil
}

// --- Paste disambiguation ---

// SetPasteBatch stages a multi-image paste awaiting a category choice. Any
// previously staged batch is replaced.
func (s *Session) SetPasteBatch(entries []CropEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pasteBatch = entries
}

// PastePending reports whether a paste batch is awaiting a category.
func (s *Session) PastePending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pasteBatch) > 0
}

// AssignPasteBatch queues the staged paste batch to one category, truncated
// to the category's available capacity, and clears the staging area.
// Returns how many entries were queued.
func (s *Session) AssignPasteBatch(cat Category) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pasteBatch) == 0 {
		return 0, fmt.Errorf("no paste batch pending")
	}

	free := s.limits.Max(cat) - len(s.setFor(cat))
	if free < 0 {
		free = 0
	}
	batch := s.pasteBatch
	if len(batch) > free {
		batch = batch[:free]
	}

	queued := make([]CropEntry, 0, len(batch))
	for _, e := range batch {
		e.Category = cat
		queued = append(queued, e)
	}
	s.queue = append(append([]CropEntry{}, s.queue...), queued...)
	s.pasteBatch = nil
	return len(queued), nil
}

// CancelPasteBatch discards the staged paste batch without mutating any
// photo set.
func (s *Session) CancelPasteBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pasteBatch = nil
}

// --- Instructions ---

// SetInstructions stores the free-text generation instructions.
func (s *Session) SetInstructions(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instructions = text
}

// Instructions returns the free-text generation instructions.
func (s *Session) Instructions() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instructions
}

// --- View / reset ---

// View returns the current view state.
func (s *Session) View() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Reset returns photo sets, slots, instructions, and view state to their
// initial empty values. The crop queue deliberately survives: entries
// mid-flight resume being asked about after a reset.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subject = nil
	s.vibe = nil
	s.slots = nil
	s.instructions = ""
	s.view = ViewIdle
	s.pasteBatch = nil
	log.Info().Str("session", s.ID).Msg("Session reset")
}
