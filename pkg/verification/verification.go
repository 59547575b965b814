// Package verification applies acceptance thresholds and attempt limits to
// gallery matches. A Session is the only stateful object in the engine: it
// tracks the attempt counter for exactly one verification flow and is
// discarded when the flow ends. Sessions are not safe for concurrent use and
// must never be shared between flows.
package verification

import (
	"errors"

	"github.com/veriface/veriface/pkg/features"
	"github.com/veriface/veriface/pkg/matching"
)

// State identifies where a session is in its lifecycle.
type State string

const (
	// StateIdle is the state before Start is called.
	StateIdle State = "idle"
	// StateAwaitingProbe means the session accepts probe submissions.
	StateAwaitingProbe State = "awaiting_probe"
	// StateScoring is the transient state while a probe is being matched.
	StateScoring State = "scoring"
	// StateDecided is terminal: the identity was verified or the attempt
	// budget ran out.
	StateDecided State = "decided"
)

// Policy configures a verification session.
type Policy struct {
	// Threshold is the minimum gallery score that verifies the identity.
	Threshold float64
	// MaxAttempts is the number of scored probes allowed before the
	// session terminates.
	MaxAttempts int
}

// Outcome extends a match result with the session's attempt bookkeeping.
type Outcome struct {
	matching.MatchResult

	// Attempts is the number of probes scored so far, this one included.
	Attempts int
	// RemainingAttempts is how many more probes the session will accept.
	RemainingAttempts int
	// Exhausted is true when the attempt budget ran out without a match.
	// It distinguishes "locked out" from a plain "try again" non-match.
	Exhausted bool
}

// ErrSessionNotStarted is returned when a probe arrives before Start.
var ErrSessionNotStarted = errors.New("verification session not started")

// ErrSessionStarted is returned when Start is called on a session that has
// left the idle state. Sessions are single-use.
var ErrSessionStarted = errors.New("verification session already started")

// ErrSessionDecided is returned when a probe arrives after the session
// reached its terminal state.
var ErrSessionDecided = errors.New("verification session already decided")

// ErrNoEnrolledGallery is returned when a probe is submitted against an
// identity with no enrolled samples. The session is unaffected.
var ErrNoEnrolledGallery = errors.New("no enrolled gallery")

// Session runs one attempt-limited verification flow against a fixed
// gallery snapshot.
type Session struct {
	policy   Policy
	matcher  *matching.Matcher
	gallery  matching.Gallery
	state    State
	attempts int
}

// NewSession creates an idle session over a read-only gallery snapshot.
// Restarting a verification flow means constructing a new session; attempt
// counters never carry over.
func NewSession(policy Policy, matcher *matching.Matcher, gallery matching.Gallery) *Session {
	return &Session{
		policy:  policy,
		matcher: matcher,
		gallery: gallery,
		state:   StateIdle,
	}
}

// Start moves the session from Idle to AwaitingProbe.
func (s *Session) Start() error {
	if s.state == StateDecided {
		return ErrSessionDecided
	}
	if s.state != StateIdle {
		return ErrSessionStarted
	}
	s.state = StateAwaitingProbe
	return nil
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Attempts returns the number of probes scored so far.
func (s *Session) Attempts() int {
	return s.attempts
}

// RemainingAttempts returns how many more probes the session will accept.
func (s *Session) RemainingAttempts() int {
	remaining := s.policy.MaxAttempts - s.attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Submit scores one probe against the gallery and applies the attempt
// bookkeeping. A match or an exhausted attempt budget decides the session;
// any other non-match returns it to AwaitingProbe for the next probe.
//
// Submitting against an empty gallery is a reported precondition failure,
// not a consumed attempt.
func (s *Session) Submit(probe features.Record) (Outcome, error) {
	switch s.state {
	case StateIdle:
		return Outcome{}, ErrSessionNotStarted
	case StateDecided:
		return Outcome{}, ErrSessionDecided
	}

	if len(s.gallery) == 0 {
		return Outcome{}, ErrNoEnrolledGallery
	}

	s.state = StateScoring
	result := s.matcher.Match(probe, s.gallery, s.policy.Threshold)
	s.attempts++

	outcome := Outcome{
		MatchResult:       result,
		Attempts:          s.attempts,
		RemainingAttempts: s.RemainingAttempts(),
		Exhausted:         !result.Matched && s.attempts >= s.policy.MaxAttempts,
	}

	if result.Matched || outcome.Exhausted {
		s.state = StateDecided
	} else {
		s.state = StateAwaitingProbe
	}
	return outcome, nil
}
