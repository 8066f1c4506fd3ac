package game

import (
	"math/rand"
	"strings"
	"time"
	"unicode"

	"github.com/wordduel/internal/domain"
)

// LetterOutcome describes the effect of a letter guess on the session
type LetterOutcome struct {
	Correct   bool
	Points    int
	Revealed  int
	Completed bool
	Message   string
}

// WordOutcome describes the effect of a full-word guess. A word guess always
// completes the session. A correct word forces the guesser as winner; an
// incorrect one forces the guesser as loser, handing the win to the rest by
// exclusion.
type WordOutcome struct {
	Correct  bool
	Points   int
	WinnerID string
	LoserID  string
	Message  string
}

// RevealOutcome describes a paid hint reveal. Position is 1-indexed.
type RevealOutcome struct {
	Position int
	Mask     string
}

// ParseLetter validates a raw guess input and returns the lower-cased letter
func ParseLetter(raw string) (rune, error) {
	runes := []rune(strings.TrimSpace(raw))
	if len(runes) != 1 || !unicode.IsLetter(runes[0]) {
		return 0, domain.ErrInvalidLetter
	}
	return unicode.ToLower(runes[0]), nil
}

// ParseWord validates a raw full-word guess
func ParseWord(raw string) (string, error) {
	word := strings.TrimSpace(raw)
	if len(word) < 3 {
		return "", domain.ErrInvalidWord
	}
	return word, nil
}

// ApplyLetter processes a letter guess against the session state, mutating
// the mask, the guesser's score and the turn. The letter must already be
// validated and lower-cased via ParseLetter.
//
// Every index whose lower-cased word character matches the letter is
// revealed in one guess, preserving the original case. A guess revealing at
// least one new character scores positive; anything else scores negative.
// Repeating an already-guessed letter is rejected outright so the same
// letter cannot be farmed for points.
func (e *Engine) ApplyLetter(st *domain.SessionState, playerID string, letter rune, now time.Time) (*LetterOutcome, error) {
	if err := e.checkActive(st, now); err != nil {
		return nil, err
	}
	if st.Session.CurrentTurnID != playerID {
		return nil, domain.ErrNotYourTurn
	}
	participant := st.Member(playerID)
	if participant == nil {
		return nil, domain.ErrNotParticipant
	}
	if st.Session.HasGuessed(letter) {
		return nil, domain.ErrLetterAlreadyGuessed
	}

	sess := &st.Session
	sess.GuessedLetters += string(letter)

	word := []rune(sess.Word)
	lower := []rune(strings.ToLower(sess.Word))
	mask := []rune(sess.Mask)

	revealed := 0
	for i, ch := range lower {
		if ch == letter && mask[i] == domain.MaskPlaceholder {
			mask[i] = word[i]
			revealed++
		}
	}
	sess.Mask = string(mask)
	sess.UpdatedAt = now

	out := &LetterOutcome{Revealed: revealed}
	if revealed > 0 {
		out.Correct = true
		out.Points = e.cfg.CorrectPoints
		out.Message = "Correct guess"
	} else {
		out.Points = -e.cfg.WrongPenalty
		out.Message = "Incorrect guess"
	}
	participant.Score += out.Points

	if sess.MaskSolved() {
		e.Complete(st, now, false)
		out.Completed = true
	} else {
		e.RotateTurn(st)
	}
	return out, nil
}

// ApplyWord processes a full-word guess. Either branch ends the session: a
// correct word fully reveals the mask and makes the guesser the winner; an
// incorrect word discloses the mask, penalizes the guesser and hands the win
// to the remaining participants by exclusion.
func (e *Engine) ApplyWord(st *domain.SessionState, playerID, word string, now time.Time) (*WordOutcome, error) {
	if err := e.checkActive(st, now); err != nil {
		return nil, err
	}
	participant := st.Member(playerID)
	if participant == nil {
		return nil, domain.ErrNotParticipant
	}

	sess := &st.Session
	sess.Mask = sess.Word
	sess.UpdatedAt = now

	out := &WordOutcome{}
	if strings.EqualFold(word, sess.Word) {
		out.Correct = true
		out.Points = e.cfg.WordBonus
		out.WinnerID = playerID
		out.Message = "Correct! You win the game"
	} else {
		out.Points = -e.cfg.WordPenalty
		out.LoserID = playerID
		out.Message = "Incorrect guess. You lost the game"
	}
	participant.Score += out.Points
	e.Complete(st, now, false)
	return out, nil
}

// Reveal uncovers one uniformly random hidden position in the mask. The coin
// deduction happens in the ledger before this is applied; revealing does not
// consume a turn.
func (e *Engine) Reveal(st *domain.SessionState, playerID string, now time.Time) (*RevealOutcome, error) {
	if err := e.checkActive(st, now); err != nil {
		return nil, err
	}
	if st.Member(playerID) == nil {
		return nil, domain.ErrNotParticipant
	}

	sess := &st.Session
	mask := []rune(sess.Mask)
	var hidden []int
	for i, ch := range mask {
		if ch == domain.MaskPlaceholder {
			hidden = append(hidden, i)
		}
	}
	if len(hidden) == 0 {
		return nil, domain.ErrNothingToReveal
	}

	pos := hidden[rand.Intn(len(hidden))]
	word := []rune(sess.Word)
	mask[pos] = word[pos]
	sess.Mask = string(mask)
	sess.UpdatedAt = now

	return &RevealOutcome{Position: pos + 1, Mask: sess.Mask}, nil
}
