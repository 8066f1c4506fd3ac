package game

import (
	"sort"
	"time"

	"github.com/wordduel/internal/domain"
)

// ParticipantReward is the computed payout for one participant of a
// completed session, before it is applied to the progression ledger.
type ParticipantReward struct {
	PlayerID string
	Score    int
	Rank     int
	XP       int64
	Coins    int64
	Result   domain.Outcome
}

// rankXP returns the position-based XP for a rank in descending score order.
// Two-participant sessions are the common case; lower ranks zero-fill.
func rankXP(rank int) float64 {
	switch rank {
	case 0:
		return 50
	case 1:
		return 30
	default:
		return 0
	}
}

// rankCoins mirrors rankXP for the coin payout before difficulty scaling
func rankCoins(rank int) float64 {
	switch rank {
	case 0:
		return 50
	case 1:
		return 30
	default:
		return 0
	}
}

func difficultyMultiplier(d domain.Difficulty) float64 {
	switch d {
	case domain.DifficultyMedium:
		return 1.5
	case domain.DifficultyHard:
		return 2.0
	default:
		return 1.0
	}
}

// ComputeRewards calculates the XP and coin distribution for a completed
// session. Participants are ranked by descending score (join order breaks
// ties). The word guess path forces a winner or loser regardless of score;
// otherwise the top score wins and a two-way score tie is a draw.
//
// XP per participant:
//
//	max(int((rank + score/5 + completion + time + participation) * mult * len(word)/5), floor)
//
// where the completion bonus (30*mult) and time bonus (50*(1-elapsed/budget))
// apply only when the session ended normally, not by timeout.
func (e *Engine) ComputeRewards(st *domain.SessionState, word *WordOutcome, completedAt time.Time) []ParticipantReward {
	sess := &st.Session

	ranked := make([]domain.Participant, len(st.Participants))
	copy(ranked, st.Participants)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	mult := difficultyMultiplier(sess.Difficulty)
	lengthMod := float64(len(sess.Word)) / 5

	var timeBonus float64
	if !sess.TimedOut && sess.StartTime != nil {
		budget := e.cfg.Budget(string(sess.Difficulty)).Seconds()
		elapsed := completedAt.Sub(*sess.StartTime).Seconds()
		if elapsed < budget && budget > 0 {
			timeBonus = 50 * (1 - elapsed/budget)
		}
	}

	solved := sess.MaskSolved() && !sess.TimedOut
	var completionBonus float64
	if solved {
		completionBonus = 30 * mult
	}

	rewards := make([]ParticipantReward, 0, len(ranked))
	for rank, p := range ranked {
		scoreXP := float64(p.Score / 5)
		if scoreXP < 0 {
			scoreXP = 0
		}

		total := (rankXP(rank) + scoreXP + completionBonus + timeBonus + 10) * mult * lengthMod
		xp := int64(total)
		if xp < int64(e.cfg.MinXPReward) {
			xp = int64(e.cfg.MinXPReward)
		}

		coins := rankCoins(rank) * mult
		if solved {
			coins += 10 * mult
		}

		rewards = append(rewards, ParticipantReward{
			PlayerID: p.PlayerID,
			Score:    p.Score,
			Rank:     rank,
			XP:       xp,
			Coins:    int64(coins),
			Result:   e.outcomeFor(ranked, rank, word),
		})
	}
	return rewards
}

// outcomeFor resolves a ranked participant's win/lose/draw result. A forced
// word-guess result overrides the score ranking; a draw only occurs when
// exactly two participants tie on score with nothing forced.
func (e *Engine) outcomeFor(ranked []domain.Participant, rank int, word *WordOutcome) domain.Outcome {
	p := ranked[rank]
	if word != nil {
		if word.WinnerID != "" {
			if p.PlayerID == word.WinnerID {
				return domain.OutcomeWin
			}
			return domain.OutcomeLose
		}
		if word.LoserID != "" {
			if p.PlayerID == word.LoserID {
				return domain.OutcomeLose
			}
			return domain.OutcomeWin
		}
	}
	if len(ranked) == 2 && ranked[0].Score == ranked[1].Score {
		return domain.OutcomeDraw
	}
	if rank == 0 {
		return domain.OutcomeWin
	}
	return domain.OutcomeLose
}

// OutcomeSnapshot returns the word text recorded with an outcome: the full
// word when it was solved, the final mask otherwise.
func OutcomeSnapshot(sess *domain.Session) string {
	if sess.MaskSolved() {
		return sess.Word
	}
	return sess.Mask
}
