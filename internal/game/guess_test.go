package game

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wordduel/internal/config"
	"github.com/wordduel/internal/domain"
)

func testEngine() *Engine {
	cfg := config.DefaultConfig()
	return NewEngine(&cfg.Game)
}

// activeState builds an active two-player session over the given word with
// alice holding the turn.
func activeState(word string) *domain.SessionState {
	now := time.Now()
	end := now.Add(10 * time.Minute)
	return &domain.SessionState{
		Session: domain.Session{
			ID:            "s1",
			CreatorID:     "alice",
			Difficulty:    domain.DifficultyEasy,
			Word:          word,
			Mask:          strings.Repeat("_", len(word)),
			Status:        domain.StatusActive,
			CurrentTurnID: "alice",
			StartTime:     &now,
			EndTime:       &end,
			Version:       2,
		},
		Participants: []domain.Participant{
			{SessionID: "s1", PlayerID: "alice", JoinOrder: 0},
			{SessionID: "s1", PlayerID: "bob", JoinOrder: 1},
		},
	}
}

func TestParseLetter(t *testing.T) {
	tests := []struct {
		raw     string
		want    rune
		wantErr bool
	}{
		{raw: "a", want: 'a'},
		{raw: "A", want: 'a'},
		{raw: " e ", want: 'e'},
		{raw: "", wantErr: true},
		{raw: "ab", wantErr: true},
		{raw: "1", wantErr: true},
		{raw: "!", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLetter(tt.raw)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrInvalidLetter) {
				t.Errorf("ParseLetter(%q) error = %v, want ErrInvalidLetter", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseLetter(%q) = %q, %v, want %q", tt.raw, got, err, tt.want)
		}
	}
}

func TestParseWord(t *testing.T) {
	if _, err := ParseWord("go"); !errors.Is(err, domain.ErrInvalidWord) {
		t.Errorf("ParseWord(go) error = %v, want ErrInvalidWord", err)
	}
	got, err := ParseWord("  game ")
	if err != nil || got != "game" {
		t.Errorf("ParseWord = %q, %v, want game", got, err)
	}
}

func TestApplyLetterCorrect(t *testing.T) {
	e := testEngine()
	st := activeState("game")

	out, err := e.ApplyLetter(st, "alice", 'a', time.Now())
	if err != nil {
		t.Fatalf("ApplyLetter: %v", err)
	}
	if !out.Correct {
		t.Error("Correct = false, want true")
	}
	if out.Points != 20 {
		t.Errorf("Points = %d, want 20", out.Points)
	}
	if st.Session.Mask != "_a__" {
		t.Errorf("Mask = %q, want _a__", st.Session.Mask)
	}
	if st.Member("alice").Score != 20 {
		t.Errorf("Score = %d, want 20", st.Member("alice").Score)
	}
	if st.Session.CurrentTurnID != "bob" {
		t.Errorf("turn = %q, want bob", st.Session.CurrentTurnID)
	}
	if !st.Session.HasGuessed('a') {
		t.Error("letter not recorded in guessed set")
	}
}

func TestApplyLetterWrong(t *testing.T) {
	e := testEngine()
	st := activeState("game")

	out, err := e.ApplyLetter(st, "alice", 'z', time.Now())
	if err != nil {
		t.Fatalf("ApplyLetter: %v", err)
	}
	if out.Correct {
		t.Error("Correct = true, want false")
	}
	if out.Points != -10 {
		t.Errorf("Points = %d, want -10", out.Points)
	}
	if st.Session.Mask != "____" {
		t.Errorf("Mask = %q, want ____", st.Session.Mask)
	}
	if st.Member("alice").Score != -10 {
		t.Errorf("Score = %d, want -10", st.Member("alice").Score)
	}
	if st.Session.CurrentTurnID != "bob" {
		t.Errorf("turn = %q, want bob", st.Session.CurrentTurnID)
	}
}

func TestApplyLetterRevealsAllOccurrences(t *testing.T) {
	e := testEngine()
	st := activeState("coffee")

	out, err := e.ApplyLetter(st, "alice", 'f', time.Now())
	if err != nil {
		t.Fatalf("ApplyLetter: %v", err)
	}
	if out.Revealed != 2 {
		t.Errorf("Revealed = %d, want 2", out.Revealed)
	}
	if st.Session.Mask != "__ff__" {
		t.Errorf("Mask = %q, want __ff__", st.Session.Mask)
	}
	if out.Points != 20 {
		t.Errorf("Points = %d, want a single correct-guess award", out.Points)
	}
}

func TestApplyLetterCompletesSession(t *testing.T) {
	e := testEngine()
	st := activeState("go")
	st.Session.Mask = "g_"
	st.Session.GuessedLetters = "g"

	out, err := e.ApplyLetter(st, "alice", 'o', time.Now())
	if err != nil {
		t.Fatalf("ApplyLetter: %v", err)
	}
	if !out.Completed {
		t.Error("Completed = false, want true")
	}
	if st.Session.Status != domain.StatusCompleted {
		t.Errorf("Status = %q, want completed", st.Session.Status)
	}
	if st.Session.TimedOut {
		t.Error("TimedOut = true on a solved session")
	}
	if st.Session.CurrentTurnID != "" {
		t.Errorf("turn = %q after completion, want empty", st.Session.CurrentTurnID)
	}
}

func TestApplyLetterRejections(t *testing.T) {
	e := testEngine()
	now := time.Now()

	t.Run("not your turn", func(t *testing.T) {
		st := activeState("game")
		if _, err := e.ApplyLetter(st, "bob", 'a', now); !errors.Is(err, domain.ErrNotYourTurn) {
			t.Errorf("error = %v, want ErrNotYourTurn", err)
		}
		if st.Session.Mask != "____" {
			t.Error("rejected guess mutated the mask")
		}
	})

	t.Run("not a participant", func(t *testing.T) {
		st := activeState("game")
		st.Session.CurrentTurnID = "carol"
		if _, err := e.ApplyLetter(st, "carol", 'a', now); !errors.Is(err, domain.ErrNotParticipant) {
			t.Errorf("error = %v, want ErrNotParticipant", err)
		}
	})

	t.Run("repeated letter", func(t *testing.T) {
		st := activeState("game")
		st.Session.GuessedLetters = "a"
		st.Session.Mask = "_a__"
		if _, err := e.ApplyLetter(st, "alice", 'a', now); !errors.Is(err, domain.ErrLetterAlreadyGuessed) {
			t.Errorf("error = %v, want ErrLetterAlreadyGuessed", err)
		}
		if st.Member("alice").Score != 0 {
			t.Error("repeated letter changed the score")
		}
	})

	t.Run("waiting session", func(t *testing.T) {
		st := activeState("game")
		st.Session.Status = domain.StatusWaiting
		if _, err := e.ApplyLetter(st, "alice", 'a', now); !errors.Is(err, domain.ErrSessionNotActive) {
			t.Errorf("error = %v, want ErrSessionNotActive", err)
		}
	})

	t.Run("completed session", func(t *testing.T) {
		st := activeState("game")
		st.Session.Status = domain.StatusCompleted
		if _, err := e.ApplyLetter(st, "alice", 'a', now); !errors.Is(err, domain.ErrSessionCompleted) {
			t.Errorf("error = %v, want ErrSessionCompleted", err)
		}
	})

	t.Run("expired session", func(t *testing.T) {
		st := activeState("game")
		past := now.Add(-time.Second)
		st.Session.EndTime = &past
		if _, err := e.ApplyLetter(st, "alice", 'a', now); !errors.Is(err, domain.ErrSessionExpired) {
			t.Errorf("error = %v, want ErrSessionExpired", err)
		}
		if st.Session.Status != domain.StatusActive {
			t.Error("checkActive must not complete the session itself")
		}
	})
}

func TestApplyWordCorrect(t *testing.T) {
	e := testEngine()
	st := activeState("game")
	st.Session.Mask = "_a__"

	out, err := e.ApplyWord(st, "bob", "GAME", time.Now())
	if err != nil {
		t.Fatalf("ApplyWord: %v", err)
	}
	if !out.Correct {
		t.Error("Correct = false, want true")
	}
	if out.WinnerID != "bob" {
		t.Errorf("WinnerID = %q, want bob", out.WinnerID)
	}
	if out.Points != 100 {
		t.Errorf("Points = %d, want 100", out.Points)
	}
	if st.Session.Mask != "game" {
		t.Errorf("Mask = %q, want game", st.Session.Mask)
	}
	if st.Session.Status != domain.StatusCompleted {
		t.Errorf("Status = %q, want completed", st.Session.Status)
	}
	if st.Member("bob").Score != 100 {
		t.Errorf("Score = %d, want 100", st.Member("bob").Score)
	}
}

func TestApplyWordIncorrect(t *testing.T) {
	e := testEngine()
	st := activeState("game")

	out, err := e.ApplyWord(st, "alice", "gate", time.Now())
	if err != nil {
		t.Fatalf("ApplyWord: %v", err)
	}
	if out.Correct {
		t.Error("Correct = true, want false")
	}
	if out.LoserID != "alice" {
		t.Errorf("LoserID = %q, want alice", out.LoserID)
	}
	if out.Points != -50 {
		t.Errorf("Points = %d, want -50", out.Points)
	}
	if st.Session.Status != domain.StatusCompleted {
		t.Errorf("Status = %q, want completed", st.Session.Status)
	}
	if st.Member("alice").Score != -50 {
		t.Errorf("Score = %d, want -50", st.Member("alice").Score)
	}
}

func TestReveal(t *testing.T) {
	e := testEngine()
	st := activeState("game")
	st.Session.Mask = "ga_e"

	out, err := e.Reveal(st, "bob", time.Now())
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if out.Position != 3 {
		t.Errorf("Position = %d, want 3 (the only hidden slot, 1-indexed)", out.Position)
	}
	if out.Mask != "game" {
		t.Errorf("Mask = %q, want game", out.Mask)
	}
	// Reveal does not rotate the turn.
	if st.Session.CurrentTurnID != "alice" {
		t.Errorf("turn = %q, want alice", st.Session.CurrentTurnID)
	}
	// The session stays active even when the reveal uncovers the last letter.
	if st.Session.Status != domain.StatusActive {
		t.Errorf("Status = %q, want active", st.Session.Status)
	}
}

func TestRevealNothingHidden(t *testing.T) {
	e := testEngine()
	st := activeState("game")
	st.Session.Mask = "game"

	if _, err := e.Reveal(st, "alice", time.Now()); !errors.Is(err, domain.ErrNothingToReveal) {
		t.Errorf("error = %v, want ErrNothingToReveal", err)
	}
}

func TestRevealNonParticipant(t *testing.T) {
	e := testEngine()
	st := activeState("game")

	if _, err := e.Reveal(st, "carol", time.Now()); !errors.Is(err, domain.ErrNotParticipant) {
		t.Errorf("error = %v, want ErrNotParticipant", err)
	}
}
