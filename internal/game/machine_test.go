package game

import (
	"testing"
	"time"

	"github.com/wordduel/internal/config"
	"github.com/wordduel/internal/domain"
)

func waitingState(players ...string) *domain.SessionState {
	st := &domain.SessionState{
		Session: domain.Session{
			ID:         "s1",
			CreatorID:  players[0],
			Difficulty: domain.DifficultyMedium,
			Word:       "coffee",
			Mask:       "______",
			Status:     domain.StatusWaiting,
			Version:    1,
		},
	}
	for i, p := range players {
		st.Participants = append(st.Participants, domain.Participant{
			SessionID: "s1",
			PlayerID:  p,
			JoinOrder: i,
		})
	}
	return st
}

func TestActivateFirstJoiner(t *testing.T) {
	e := testEngine()
	st := waitingState("alice", "bob")
	now := time.Now()

	e.Activate(st, now)

	if st.Session.Status != domain.StatusActive {
		t.Errorf("Status = %q, want active", st.Session.Status)
	}
	if st.Session.CurrentTurnID != "alice" {
		t.Errorf("first turn = %q, want alice", st.Session.CurrentTurnID)
	}
	if st.Session.StartTime == nil || !st.Session.StartTime.Equal(now) {
		t.Error("StartTime not set to activation instant")
	}
	if st.Session.EndTime == nil {
		t.Fatal("EndTime not set")
	}
	// Medium budget is 7 minutes by default.
	if got := st.Session.EndTime.Sub(*st.Session.StartTime); got != 7*time.Minute {
		t.Errorf("budget = %v, want 7m", got)
	}
}

func TestActivateRandomPolicy(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Game.TurnPolicy = config.TurnPolicyRandom
	e := NewEngine(&cfg.Game)

	st := waitingState("alice", "bob", "carol")
	e.Activate(st, time.Now())

	if st.Member(st.Session.CurrentTurnID) == nil {
		t.Errorf("first turn %q is not a participant", st.Session.CurrentTurnID)
	}
}

func TestRotateTurn(t *testing.T) {
	e := testEngine()
	st := waitingState("alice", "bob", "carol")
	st.Session.Status = domain.StatusActive

	tests := []struct {
		current string
		want    string
	}{
		{current: "alice", want: "bob"},
		{current: "bob", want: "carol"},
		{current: "carol", want: "alice"},
		{current: "", want: "alice"},
		{current: "ghost", want: "alice"},
	}

	for _, tt := range tests {
		st.Session.CurrentTurnID = tt.current
		e.RotateTurn(st)
		if st.Session.CurrentTurnID != tt.want {
			t.Errorf("RotateTurn from %q = %q, want %q", tt.current, st.Session.CurrentTurnID, tt.want)
		}
	}
}

func TestComplete(t *testing.T) {
	e := testEngine()
	st := waitingState("alice", "bob")
	st.Session.Status = domain.StatusActive
	st.Session.CurrentTurnID = "bob"
	now := time.Now()

	e.Complete(st, now, true)

	if st.Session.Status != domain.StatusCompleted {
		t.Errorf("Status = %q, want completed", st.Session.Status)
	}
	if !st.Session.TimedOut {
		t.Error("TimedOut = false, want true")
	}
	if st.Session.CurrentTurnID != "" {
		t.Errorf("turn = %q, want cleared", st.Session.CurrentTurnID)
	}
}

func TestBudgetsPerDifficulty(t *testing.T) {
	cfg := config.DefaultConfig()
	tests := []struct {
		difficulty string
		want       time.Duration
	}{
		{difficulty: "easy", want: 10 * time.Minute},
		{difficulty: "medium", want: 7 * time.Minute},
		{difficulty: "hard", want: 5 * time.Minute},
		{difficulty: "unknown", want: 10 * time.Minute},
	}
	for _, tt := range tests {
		if got := cfg.Game.Budget(tt.difficulty); got != tt.want {
			t.Errorf("Budget(%q) = %v, want %v", tt.difficulty, got, tt.want)
		}
	}
}
