package pipeline

import "github.com/rs/zerolog"

// SessionStats counts outcomes for the lifetime of one process. It is
// written only by the single worker or batch loop and read at shutdown, so
// it needs no locking.
type SessionStats struct {
	Processed int
	Failed    int
	Skipped   int
}

// Record tallies one outcome.
func (s *SessionStats) Record(outcome Outcome) {
	if outcome.Done {
		s.Processed++
	} else {
		s.Failed++
	}
}

// Log writes the session totals at the given level context.
func (s *SessionStats) Log(logger *zerolog.Logger, msg string) {
	logger.Info().
		Int("processed", s.Processed).
		Int("failed", s.Failed).
		Int("skipped", s.Skipped).
		Msg(msg)
}
