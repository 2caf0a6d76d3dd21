package purchase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type compensation struct {
	name string
	fn   func(ctx context.Context) error
}

// saga records the undo action of every completed step so a failure can
// unwind them in reverse order.
type saga struct {
	txnID uuid.UUID
	steps []compensation
}

func newSaga(txnID uuid.UUID) *saga {
	return &saga{txnID: txnID}
}

func (s *saga) onFailure(name string, fn func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, fn: fn})
}

// rollback runs every compensation even if some fail, and reports the failures.
func (s *saga) rollback(ctx context.Context) error {
	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.fn(ctx); err != nil {
			log.Error().Err(err).
				Str("transaction_id", s.txnID.String()).
				Str("step", step.name).
				Msg("compensation failed")
			errs = append(errs, err)
			continue
		}
		log.Warn().
			Str("transaction_id", s.txnID.String()).
			Str("step", step.name).
			Msg("compensation applied")
	}
	s.steps = nil
	return errors.Join(errs...)
}
