package game

import (
	"math/rand"
	"time"

	"github.com/wordduel/internal/config"
	"github.com/wordduel/internal/domain"
)

// Engine applies the game rules to session state. It performs no I/O; the
// service layer loads state, calls the engine, and persists the result.
type Engine struct {
	cfg *config.GameConfig
}

// NewEngine creates a rules engine with the given configuration
func NewEngine(cfg *config.GameConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the rule configuration the engine was built with
func (e *Engine) Config() *config.GameConfig {
	return e.cfg
}

// PlayersToStart returns the participant count that activates a session
func (e *Engine) PlayersToStart() int {
	return e.cfg.PlayersToStart
}

// Activate transitions a waiting session to active: the clock starts, the
// end time is set from the difficulty budget, and the first turn is assigned
// according to the configured policy.
func (e *Engine) Activate(st *domain.SessionState, now time.Time) {
	sess := &st.Session
	sess.Status = domain.StatusActive
	sess.StartTime = &now
	end := now.Add(e.cfg.Budget(string(sess.Difficulty)))
	sess.EndTime = &end

	switch e.cfg.TurnPolicy {
	case config.TurnPolicyRandom:
		if len(st.Participants) > 0 {
			sess.CurrentTurnID = st.Participants[rand.Intn(len(st.Participants))].PlayerID
		}
	default:
		if len(st.Participants) > 0 {
			sess.CurrentTurnID = st.Participants[0].PlayerID
		}
	}
	sess.UpdatedAt = now
}

// RotateTurn advances the current turn to the next participant in join
// order, wrapping cyclically. An unset turn resolves to the first joiner.
func (e *Engine) RotateTurn(st *domain.SessionState) {
	if len(st.Participants) == 0 {
		return
	}
	if st.Session.CurrentTurnID == "" {
		st.Session.CurrentTurnID = st.Participants[0].PlayerID
		return
	}
	for i := range st.Participants {
		if st.Participants[i].PlayerID == st.Session.CurrentTurnID {
			next := (i + 1) % len(st.Participants)
			st.Session.CurrentTurnID = st.Participants[next].PlayerID
			return
		}
	}
	st.Session.CurrentTurnID = st.Participants[0].PlayerID
}

// Complete transitions a session to its terminal state. Completion is
// monotonic: a completed session never becomes active again.
func (e *Engine) Complete(st *domain.SessionState, now time.Time, timedOut bool) {
	st.Session.Status = domain.StatusCompleted
	st.Session.TimedOut = timedOut
	st.Session.CurrentTurnID = ""
	st.Session.UpdatedAt = now
}

// checkActive rejects operations against sessions in the wrong lifecycle
// state. Expiry is detected here lazily: an active session past its end time
// yields ErrSessionExpired, and the caller is responsible for completing it.
func (e *Engine) checkActive(st *domain.SessionState, now time.Time) error {
	switch st.Session.Status {
	case domain.StatusCompleted:
		return domain.ErrSessionCompleted
	case domain.StatusWaiting:
		return domain.ErrSessionNotActive
	}
	if st.Session.IsExpired(now) {
		return domain.ErrSessionExpired
	}
	return nil
}
