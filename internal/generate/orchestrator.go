package generate

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fpang/album-studio/internal/session"
)

// Orchestrator fans generation requests out over a session's slot board.
// Requests are fire-and-forget: there is no timeout and no cancellation, and
// every outcome (success or failure) lands in its slot as it settles.
type Orchestrator struct {
	generator Generator
}

// NewOrchestrator creates an orchestrator backed by the given generator.
func NewOrchestrator(generator Generator) *Orchestrator {
	return &Orchestrator{generator: generator}
}

// StartBatch validates the session, installs count pending slots, and
// launches count concurrent requests with identical inputs. Each result is
// applied to its slot as it resolves; once all requests have settled a
// background join flips the session to resultsShown. Returns immediately
// after the requests are launched.
func (o *Orchestrator) StartBatch(ctx context.Context, s *session.Session, count int) error {
	batch, err := s.BeginBatch(count)
	if err != nil {
		return err
	}

	log.Info().
		Str("session", s.ID).
		Int("count", count).
		Int("subject_photos", len(batch.Inputs.Subject)).
		Int("vibe_photos", len(batch.Inputs.Vibe)).
		Msg("Starting generation batch")

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(index int, token uint64) {
			defer wg.Done()
			o.runOne(ctx, s, index, token, batch.Inputs)
		}(i, batch.Tokens[i])
	}

	go func() {
		wg.Wait()
		s.FinishBatch(batch.Epoch)
		log.Info().Str("session", s.ID).Msg("Generation batch settled")
	}()

	return nil
}

// Regenerate reissues a single settled slot. The slot's generation token
// serializes overlapping regenerations: whichever request was issued last
// wins, and stale results are discarded. The view state is never touched.
func (o *Orchestrator) Regenerate(ctx context.Context, s *session.Session, index int) error {
	inputs, token, err := s.BeginRegenerate(index)
	if err != nil {
		return err
	}

	log.Info().
		Str("session", s.ID).
		Int("slot", index).
		Msg("Regenerating slot")

	go o.runOne(ctx, s, index, token, inputs)
	return nil
}

// runOne executes a single request and applies its outcome. Failures are
// converted into slot error state; nothing propagates.
func (o *Orchestrator) runOne(ctx context.Context, s *session.Session, index int, token uint64, inputs session.GenerationInputs) {
	result, err := o.generator.Generate(ctx, inputs.Subject, inputs.Vibe, inputs.Instructions)
	if err != nil {
		log.Warn().
			Err(err).
			Str("session", s.ID).
			Int("slot", index).
			Msg("Generation request failed")
	}
	s.ApplySlotResult(index, token, result, err)
}
