package game

import (
	"testing"
	"time"

	"github.com/wordduel/internal/domain"
)

// completedState builds a completed session over word with the given scores
// assigned in join order.
func completedState(word string, difficulty domain.Difficulty, timedOut bool, scores map[string]int) *domain.SessionState {
	st := &domain.SessionState{
		Session: domain.Session{
			ID:         "s1",
			Difficulty: difficulty,
			Word:       word,
			Mask:       word,
			Status:     domain.StatusCompleted,
			TimedOut:   timedOut,
		},
	}
	order := 0
	for _, p := range []string{"alice", "bob", "carol"} {
		score, ok := scores[p]
		if !ok {
			continue
		}
		st.Participants = append(st.Participants, domain.Participant{
			SessionID: "s1",
			PlayerID:  p,
			Score:     score,
			JoinOrder: order,
		})
		order++
	}
	return st
}

func rewardFor(rewards []ParticipantReward, playerID string) *ParticipantReward {
	for i := range rewards {
		if rewards[i].PlayerID == playerID {
			return &rewards[i]
		}
	}
	return nil
}

func TestComputeRewardsSolved(t *testing.T) {
	e := testEngine()
	st := completedState("game", domain.DifficultyEasy, false, map[string]int{
		"alice": 40,
		"bob":   20,
	})
	completedAt := time.Now()
	start := completedAt.Add(-5 * time.Minute) // half the easy budget
	st.Session.StartTime = &start

	rewards := e.ComputeRewards(st, nil, completedAt)
	if len(rewards) != 2 {
		t.Fatalf("got %d rewards, want 2", len(rewards))
	}

	// (rank 50 + score 40/5 + completion 30 + time 25 + participation 10) * 1.0 * 4/5
	alice := rewardFor(rewards, "alice")
	if alice.XP != 98 {
		t.Errorf("alice XP = %d, want 98", alice.XP)
	}
	if alice.Coins != 60 {
		t.Errorf("alice coins = %d, want 60", alice.Coins)
	}
	if alice.Result != domain.OutcomeWin {
		t.Errorf("alice result = %q, want win", alice.Result)
	}

	// (rank 30 + score 20/5 + completion 30 + time 25 + participation 10) * 1.0 * 4/5
	bob := rewardFor(rewards, "bob")
	if bob.XP != 79 {
		t.Errorf("bob XP = %d, want 79", bob.XP)
	}
	if bob.Coins != 40 {
		t.Errorf("bob coins = %d, want 40", bob.Coins)
	}
	if bob.Result != domain.OutcomeLose {
		t.Errorf("bob result = %q, want lose", bob.Result)
	}
}

func TestComputeRewardsTimedOut(t *testing.T) {
	e := testEngine()
	st := completedState("game", domain.DifficultyEasy, true, map[string]int{
		"alice": 40,
		"bob":   -10,
	})
	st.Session.Mask = "_a__"
	completedAt := time.Now()
	start := completedAt.Add(-10 * time.Minute)
	st.Session.StartTime = &start

	rewards := e.ComputeRewards(st, nil, completedAt)

	// No completion or time bonus on timeout; negative scores contribute zero.
	// alice: (50 + 8 + 10) * 0.8 = 54.4
	alice := rewardFor(rewards, "alice")
	if alice.XP != 54 {
		t.Errorf("alice XP = %d, want 54", alice.XP)
	}
	// bob: (30 + 0 + 10) * 0.8 = 32
	bob := rewardFor(rewards, "bob")
	if bob.XP != 32 {
		t.Errorf("bob XP = %d, want 32", bob.XP)
	}
	// No solve bonus on the coins either.
	if alice.Coins != 50 || bob.Coins != 30 {
		t.Errorf("coins = %d, %d, want 50, 30", alice.Coins, bob.Coins)
	}
}

func TestComputeRewardsFloor(t *testing.T) {
	e := testEngine()
	st := completedState("game", domain.DifficultyEasy, true, map[string]int{
		"alice": 30,
		"bob":   10,
		"carol": 0,
	})
	st.Session.Mask = "____"
	completedAt := time.Now()
	start := completedAt.Add(-10 * time.Minute)
	st.Session.StartTime = &start

	rewards := e.ComputeRewards(st, nil, completedAt)

	// carol ranks third: (0 + 0 + 10) * 0.8 = 8, lifted to the floor.
	carol := rewardFor(rewards, "carol")
	if carol.XP != 15 {
		t.Errorf("carol XP = %d, want the 15 XP floor", carol.XP)
	}
	if carol.Coins != 0 {
		t.Errorf("carol coins = %d, want 0", carol.Coins)
	}
}

func TestComputeRewardsDifficultyScaling(t *testing.T) {
	e := testEngine()
	st := completedState("developer", domain.DifficultyHard, true, map[string]int{
		"alice": 0,
		"bob":   0,
	})
	st.Session.Mask = "_________"
	completedAt := time.Now()
	start := completedAt.Add(-5 * time.Minute)
	st.Session.StartTime = &start

	rewards := e.ComputeRewards(st, nil, completedAt)

	// Hard doubles the multiplier and the nine-letter word scales by 9/5.
	// rank 0: (50 + 10) * 2.0 * 1.8 = 216
	alice := rewardFor(rewards, "alice")
	if alice.XP != 216 {
		t.Errorf("alice XP = %d, want 216", alice.XP)
	}
	// rank 1: (30 + 10) * 2.0 * 1.8 = 144
	bob := rewardFor(rewards, "bob")
	if bob.XP != 144 {
		t.Errorf("bob XP = %d, want 144", bob.XP)
	}

	// Equal scores in a two-player session is a draw.
	if alice.Result != domain.OutcomeDraw || bob.Result != domain.OutcomeDraw {
		t.Errorf("results = %q, %q, want draw, draw", alice.Result, bob.Result)
	}
}

func TestComputeRewardsForcedWordOutcome(t *testing.T) {
	e := testEngine()
	st := completedState("game", domain.DifficultyEasy, false, map[string]int{
		"alice": 80,
		"bob":   100,
	})
	completedAt := time.Now()
	start := completedAt.Add(-time.Minute)
	st.Session.StartTime = &start

	t.Run("forced winner", func(t *testing.T) {
		// alice guessed the word: she wins despite bob's higher score.
		rewards := e.ComputeRewards(st, &WordOutcome{Correct: true, WinnerID: "alice"}, completedAt)
		if got := rewardFor(rewards, "alice").Result; got != domain.OutcomeWin {
			t.Errorf("alice result = %q, want win", got)
		}
		if got := rewardFor(rewards, "bob").Result; got != domain.OutcomeLose {
			t.Errorf("bob result = %q, want lose", got)
		}
	})

	t.Run("forced loser", func(t *testing.T) {
		// bob guessed wrong: the rest win by exclusion.
		rewards := e.ComputeRewards(st, &WordOutcome{LoserID: "bob"}, completedAt)
		if got := rewardFor(rewards, "bob").Result; got != domain.OutcomeLose {
			t.Errorf("bob result = %q, want lose", got)
		}
		if got := rewardFor(rewards, "alice").Result; got != domain.OutcomeWin {
			t.Errorf("alice result = %q, want win", got)
		}
	})
}

func TestOutcomeSnapshot(t *testing.T) {
	sess := &domain.Session{Word: "game", Mask: "game"}
	if got := OutcomeSnapshot(sess); got != "game" {
		t.Errorf("solved snapshot = %q, want the word", got)
	}
	sess.Mask = "ga__"
	if got := OutcomeSnapshot(sess); got != "ga__" {
		t.Errorf("unsolved snapshot = %q, want the mask", got)
	}
}
