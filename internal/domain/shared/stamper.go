package shared

import "time"

// TimestampPrecision is the resolution audit timestamps are kept at. It matches
// what the record store can persist so a reloaded aggregate compares equal.
const TimestampPrecision = time.Microsecond

// Stamper advances the audit envelope of an aggregate on every accepted mutation
type Stamper struct {
	clock Clock
}

// NewStamper creates a stamper reading time from clock
func NewStamper(clock Clock) *Stamper {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Stamper{clock: clock}
}

// Now returns the clock's current time normalized to UTC at TimestampPrecision
func (s *Stamper) Now() time.Time {
	return s.clock.Now().UTC().Truncate(TimestampPrecision)
}

// Stamp bumps the version by exactly one and moves UpdatedAt forward. When the
// clock has not advanced past the previous UpdatedAt the new value is the
// previous one plus TimestampPrecision, so UpdatedAt is strictly increasing.
func (s *Stamper) Stamp(env *Envelope, actor string) (int, time.Time) {
	now := s.Now()
	if !now.After(env.UpdatedAt) {
		now = env.UpdatedAt.Add(TimestampPrecision)
	}
	env.Version++
	env.UpdatedAt = now
	if actor != "" {
		env.UpdatedBy = actor
	}
	return env.Version, env.UpdatedAt
}
