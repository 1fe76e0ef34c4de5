package session

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fpang/album-studio/internal/photo"
)

// GenerationInputs is the immutable snapshot of session state captured when a
// batch or regeneration starts. Every request in a batch carries identical
// inputs; the model introduces its own variation.
type GenerationInputs struct {
	Subject      []photo.Encoded
	Vibe         []photo.Encoded
	Instructions string
}

// BatchStart describes a newly started batch: the inputs snapshot, the
// per-slot commit tokens, and the epoch FinishBatch must present to flip
// the view. Tokens are drawn from the session-wide sequence, so a straggler
// from a superseded batch can never commit into the replacement board.
type BatchStart struct {
	Inputs GenerationInputs
	Tokens []uint64
	Epoch  uint64
}

// BeginBatch validates preconditions, transitions the view to generating,
// and installs count fresh pending slots.
func (s *Session) BeginBatch(count int) (*BatchStart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if count < 1 || count > s.limits.BatchMax {
		return nil, fmt.Errorf("count must be between 1 and %d, got %d", s.limits.BatchMax, count)
	}
	if len(s.subject) == 0 || len(s.vibe) == 0 {
		return nil, fmt.Errorf("both subject and vibe photos are required before generating")
	}

	s.epoch++
	slots := make([]Slot, count)
	tokens := make([]uint64, count)
	for i := range slots {
		s.tokenSeq++
		slots[i] = Slot{Index: i, Status: SlotPending, gen: s.tokenSeq}
		tokens[i] = s.tokenSeq
	}
	s.slots = slots
	s.view = ViewGenerating

	return &BatchStart{
		Inputs: s.generationInputsLocked(),
		Tokens: tokens,
		Epoch:  s.epoch,
	}, nil
}

// BeginRegenerate resets one settled slot to pending and bumps its token.
// Disallowed while the slot is still pending or when either photo set has
// since been emptied.
func (s *Session) BeginRegenerate(index int) (GenerationInputs, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.slots) {
		return GenerationInputs{}, 0, fmt.Errorf("slot %d out of range", index)
	}
	if s.slots[index].Status == SlotPending {
		return GenerationInputs{}, 0, fmt.Errorf("slot %d is still generating", index)
	}
	if len(s.subject) == 0 || len(s.vibe) == 0 {
		return GenerationInputs{}, 0, fmt.Errorf("both subject and vibe photos are required before regenerating")
	}

	s.tokenSeq++
	next := append([]Slot{}, s.slots...)
	slot := next[index]
	slot.Status = SlotPending
	slot.Result = ""
	slot.ErrMsg = ""
	slot.gen = s.tokenSeq
	next[index] = slot
	s.slots = next

	return s.generationInputsLocked(), slot.gen, nil
}

// ApplySlotResult commits one request outcome to its slot. The commit is
// skipped when the token no longer matches (a later regeneration superseded
// this request) or when the slot board was reset. Reports whether the result
// was committed.
func (s *Session) ApplySlotResult(index int, token uint64, result photo.Encoded, genErr error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.slots) {
		return false
	}
	if s.slots[index].gen != token {
		log.Debug().
			Str("session", s.ID).
			Int("slot", index).
			Uint64("token", token).
			Uint64("current", s.slots[index].gen).
			Msg("Discarding stale generation result")
		return false
	}

	next := append([]Slot{}, s.slots...)
	slot := next[index]
	if genErr != nil {
		slot.Status = SlotError
		slot.Result = ""
		slot.ErrMsg = genErr.Error()
	} else {
		slot.Status = SlotDone
		slot.Result = result
		slot.ErrMsg = ""
	}
	next[index] = slot
	s.slots = next
	return true
}

// FinishBatch flips the view to resultsShown once all requests in a batch
// have settled. The epoch check keeps a superseded batch's join from
// flipping the view while the replacement batch is still in flight.
// Regenerations never call it.
func (s *Session) FinishBatch(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == epoch && s.view == ViewGenerating {
		s.view = ViewResultsShown
	}
}

// Slots returns a snapshot of the slot board.
func (s *Session) Slots() []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Slot, len(s.slots))
	copy(out, s.slots)
	return out
}

// SlotResult returns the result image for a done slot.
func (s *Session) SlotResult(index int) (photo.Encoded, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.slots) {
		return "", fmt.Errorf("slot %d out of range", index)
	}
	if s.slots[index].Status != SlotDone {
		return "", fmt.Errorf("slot %d has no result (status %s)", index, s.slots[index].Status)
	}
	return s.slots[index].Result, nil
}

// DoneResults returns the label→image pairs for every done slot, in slot
// order. Labels are 1-based ("Look 1", "Look 2", ...).
func (s *Session) DoneResults() []LabeledResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []LabeledResult
	for _, slot := range s.slots {
		if slot.Status == SlotDone {
			out = append(out, LabeledResult{
				Label: fmt.Sprintf("Look %d", slot.Index+1),
				Image: slot.Result,
			})
		}
	}
	return out
}

// LabeledResult pairs a display label with a result image.
type LabeledResult struct {
	Label string
	Image photo.Encoded
}

// generationInputsLocked snapshots the photo sets and instructions.
// Caller must hold mu.
func (s *Session) generationInputsLocked() GenerationInputs {
	in := GenerationInputs{
		Subject:      make([]photo.Encoded, len(s.subject)),
		Vibe:         make([]photo.Encoded, len(s.vibe)),
		Instructions: s.instructions,
	}
	for i, p := range s.subject {
		in.Subject[i] = p.Image
	}
	for i, p := range s.vibe {
		in.Vibe[i] = p.Image
	}
	return in
}

// --- Compose guard ---

// BeginCompose acquires the composition re-entrancy guard. Returns false if
// a composition is already in flight.
func (s *Session) BeginCompose() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.composing {
		return false
	}
	s.composing = true
	return true
}

// EndCompose releases the composition guard. Safe to call on both success
// and failure paths.
func (s *Session) EndCompose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.composing = false
}
