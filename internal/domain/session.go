package domain

import (
	"strings"
	"time"
)

// Difficulty controls word selection, the session time budget and reward scaling
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether the difficulty is one of the known tiers
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// SessionStatus represents the lifecycle state of a session
type SessionStatus string

const (
	StatusWaiting   SessionStatus = "waiting"
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
)

// MaskPlaceholder is the character shown for letters not yet revealed
const MaskPlaceholder = '_'

// Session represents one word-guessing game from creation to completion.
// Word is the hidden answer and is never serialized to clients; Mask is the
// partially revealed rendering and always has the same length as Word.
type Session struct {
	ID             string        `json:"id"`
	CreatorID      string        `json:"creator_id"`
	Difficulty     Difficulty    `json:"difficulty"`
	Word           string        `json:"-"`
	Mask           string        `json:"mask"`
	Status         SessionStatus `json:"status"`
	CurrentTurnID  string        `json:"current_turn_id,omitempty"`
	GuessedLetters string        `json:"guessed_letters"`
	TimedOut       bool          `json:"timed_out"`
	StartTime      *time.Time    `json:"start_time,omitempty"`
	EndTime        *time.Time    `json:"end_time,omitempty"`
	Version        int64         `json:"version"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// IsExpired reports whether an active session has run past its end time
func (s *Session) IsExpired(now time.Time) bool {
	if s.Status != StatusActive || s.EndTime == nil {
		return false
	}
	return now.After(*s.EndTime)
}

// TimeRemaining returns the seconds left on the clock, zero when not active
func (s *Session) TimeRemaining(now time.Time) int {
	if s.Status != StatusActive || s.EndTime == nil {
		return 0
	}
	remaining := s.EndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds())
}

// MaskSolved reports whether the mask has no hidden letters left
func (s *Session) MaskSolved() bool {
	return !strings.ContainsRune(s.Mask, MaskPlaceholder)
}

// HasGuessed reports whether the lower-cased letter was already guessed
func (s *Session) HasGuessed(letter rune) bool {
	return strings.ContainsRune(s.GuessedLetters, letter)
}

// Participant binds a player to a session with a running score.
// JoinOrder is assigned sequentially and drives turn rotation.
type Participant struct {
	SessionID string    `json:"session_id"`
	PlayerID  string    `json:"player_id"`
	Score     int       `json:"score"`
	JoinOrder int       `json:"join_order"`
	JoinedAt  time.Time `json:"joined_at"`
}

// GuessRecord is an append-only log entry for a single letter guess
type GuessRecord struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	PlayerID  string    `json:"player_id"`
	Letter    string    `json:"letter"`
	Correct   bool      `json:"correct"`
	Points    int       `json:"points"`
	Timestamp time.Time `json:"timestamp"`
}

// Outcome is a participant's final result in a completed session
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomeDraw Outcome = "draw"
)

// OutcomeRecord is the append-only per-player result of a completed session.
// GuessedWord holds the full word when it was solved, the final mask otherwise.
type OutcomeRecord struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	PlayerID    string    `json:"player_id"`
	Score       int       `json:"score"`
	Result      Outcome   `json:"result"`
	GuessedWord string    `json:"guessed_word"`
	Timestamp   time.Time `json:"timestamp"`
}

// SessionState bundles a session with its participants, ordered by join order.
// It is the unit cached as the session snapshot and returned to callers.
type SessionState struct {
	Session      Session       `json:"session"`
	Participants []Participant `json:"participants"`
}

// Member returns the participant for the given player, or nil
func (st *SessionState) Member(playerID string) *Participant {
	for i := range st.Participants {
		if st.Participants[i].PlayerID == playerID {
			return &st.Participants[i]
		}
	}
	return nil
}

// GuessResult is the outcome of a letter or word guess
type GuessResult struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	Points   int           `json:"points"`
	Session  *SessionState `json:"session,omitempty"`
	LevelUps []LevelUp     `json:"level_ups,omitempty"`
}

// RevealResult is the outcome of a paid letter reveal
type RevealResult struct {
	Position         int    `json:"position"`
	Mask             string `json:"mask"`
	Cost             int    `json:"cost"`
	RemainingBalance int    `json:"remaining_balance"`
}

// LeaderboardEntry is a single row of the experience leaderboard
type LeaderboardEntry struct {
	Rank     int64  `json:"rank"`
	PlayerID string `json:"player_id"`
	XP       int64  `json:"xp"`
}

// GuessSubmission is a letter guess arriving over the event stream
type GuessSubmission struct {
	PlayerID string `json:"player_id"`
	Letter   string `json:"letter"`
}
