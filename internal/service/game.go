package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wordduel/internal/domain"
	"github.com/wordduel/internal/game"
)

// SessionStore is the durable store for sessions and their owned records.
// Session mutations are compare-and-swap on the session version so two
// concurrent guesses cannot both commit against the same observed state.
type SessionStore interface {
	CreateSession(ctx context.Context, sess *domain.Session, creator *domain.Participant) error
	GetSessionState(ctx context.Context, sessionID string) (*domain.SessionState, error)
	FindActiveSessionID(ctx context.Context, playerID string) (string, error)
	HasOpenSession(ctx context.Context, creatorID string) (bool, error)
	AddParticipant(ctx context.Context, p *domain.Participant) error
	UpdateSession(ctx context.Context, sess *domain.Session) error
	CommitGuess(ctx context.Context, sess *domain.Session, p *domain.Participant, rec *domain.GuessRecord) error
	ListSessions(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error)
	ListExpiredActive(ctx context.Context, now time.Time) ([]string, error)
	ListGuesses(ctx context.Context, sessionID string) ([]domain.GuessRecord, error)
	RecordOutcomes(ctx context.Context, recs []domain.OutcomeRecord) error
}

// ProgressionLedger owns the level/XP/coin arithmetic for player identities
type ProgressionLedger interface {
	GetProgression(ctx context.Context, playerID string) (*domain.PlayerProgression, error)
	AddXP(ctx context.Context, playerID string, amount int64) (*domain.PlayerProgression, int, error)
	AddCoins(ctx context.Context, playerID string, amount int64) (*domain.PlayerProgression, error)
	DeductCoins(ctx context.Context, playerID string, amount int64) (*domain.PlayerProgression, error)
	TopByXP(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// WordSource supplies a random word for a difficulty tier
type WordSource interface {
	RandomWord(ctx context.Context, difficulty domain.Difficulty) (string, error)
}

// SessionCache is the best-effort lookup layer in front of the store. It is
// never the source of truth for authorization decisions; membership and turn
// ownership are re-validated against the store on every write.
type SessionCache interface {
	// GetActiveSessionID returns (id, true, nil) on a pointer hit,
	// ("", true, nil) on a negative hit and ("", false, nil) on a miss.
	GetActiveSessionID(ctx context.Context, playerID string) (string, bool, error)
	SetActiveSessionID(ctx context.Context, playerID, sessionID string) error
	SetNoActiveSession(ctx context.Context, playerID string) error
	EvictPointer(ctx context.Context, playerID string) error
	GetSnapshot(ctx context.Context, sessionID string) (*domain.SessionState, error)
	SetSnapshot(ctx context.Context, st *domain.SessionState) error
	EvictSnapshot(ctx context.Context, sessionID string) error
	UpdateLeaderboard(ctx context.Context, playerID string, xp int64) error
	TopPlayers(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	RebuildLeaderboard(ctx context.Context, entries []domain.LeaderboardEntry) error
}

// Notifier pushes session events to connected spectators
type Notifier interface {
	BroadcastSessionUpdate(st *domain.SessionState)
	BroadcastSessionCompleted(st *domain.SessionState, levelUps []domain.LevelUp)
}

// GameService provides the business logic for word-guessing sessions
type GameService struct {
	store    SessionStore
	ledger   ProgressionLedger
	words    WordSource
	cache    SessionCache
	engine   *game.Engine
	notifier Notifier
	logger   *slog.Logger
}

// NewGameService creates a new game service
func NewGameService(
	store SessionStore,
	ledger ProgressionLedger,
	words WordSource,
	cache SessionCache,
	engine *game.Engine,
	logger *slog.Logger,
) *GameService {
	return &GameService{
		store:  store,
		ledger: ledger,
		words:  words,
		cache:  cache,
		engine: engine,
		logger: logger,
	}
}

// SetNotifier attaches the event hub used for broadcasting session updates
func (s *GameService) SetNotifier(n Notifier) {
	s.notifier = n
}

// CreateSession starts a new waiting session with the creator as its first
// participant. A player can only have one waiting or active session at a time.
func (s *GameService) CreateSession(ctx context.Context, playerID string, difficulty domain.Difficulty) (*domain.SessionState, error) {
	if !difficulty.Valid() {
		return nil, domain.ErrInvalidDifficulty
	}

	open, err := s.store.HasOpenSession(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("checking open sessions: %w", err)
	}
	if open {
		return nil, domain.ErrActiveSessionExists
	}

	word, err := s.words.RandomWord(ctx, difficulty)
	if err != nil {
		return nil, fmt.Errorf("drawing word: %w", err)
	}

	now := time.Now()
	sess := &domain.Session{
		ID:         uuid.New().String(),
		CreatorID:  playerID,
		Difficulty: difficulty,
		Word:       word,
		Mask:       strings.Repeat(string(domain.MaskPlaceholder), len([]rune(word))),
		Status:     domain.StatusWaiting,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	creator := &domain.Participant{
		SessionID: sess.ID,
		PlayerID:  playerID,
		JoinOrder: 0,
		JoinedAt:  now,
	}

	if err := s.store.CreateSession(ctx, sess, creator); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Info("session created",
		"session_id", sess.ID,
		"creator_id", playerID,
		"difficulty", difficulty,
	)
	return &domain.SessionState{Session: *sess, Participants: []domain.Participant{*creator}}, nil
}

// JoinSession adds a player to a waiting session. When the participant count
// reaches the configured threshold the session activates: the clock starts
// and the first turn is assigned.
func (s *GameService) JoinSession(ctx context.Context, sessionID, playerID string) (*domain.SessionState, error) {
	st, err := s.store.GetSessionState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if st.Session.Status != domain.StatusWaiting {
		return nil, domain.ErrSessionNotWaiting
	}
	if st.Member(playerID) != nil {
		return nil, domain.ErrAlreadyJoined
	}

	now := time.Now()
	p := &domain.Participant{
		SessionID: sessionID,
		PlayerID:  playerID,
		JoinOrder: len(st.Participants),
		JoinedAt:  now,
	}
	if err := s.store.AddParticipant(ctx, p); err != nil {
		return nil, err
	}
	st.Participants = append(st.Participants, *p)

	if len(st.Participants) >= s.engine.PlayersToStart() {
		s.engine.Activate(st, now)
		if err := s.store.UpdateSession(ctx, &st.Session); err != nil {
			return nil, fmt.Errorf("activating session: %w", err)
		}
		s.populateCaches(ctx, st)
		s.notifyUpdate(st)
		s.logger.Info("session activated",
			"session_id", sessionID,
			"players", len(st.Participants),
			"first_turn", st.Session.CurrentTurnID,
		)
	}
	return st, nil
}

// GuessLetter processes a letter guess for the caller's current active
// session. The session is resolved through the pointer cache with a store
// fallback; the authoritative state is always re-read before mutating.
func (s *GameService) GuessLetter(ctx context.Context, playerID, rawLetter string) (*domain.GuessResult, error) {
	letter, err := game.ParseLetter(rawLetter)
	if err != nil {
		return nil, err
	}

	st, err := s.loadActiveState(ctx, playerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out, err := s.engine.ApplyLetter(st, playerID, letter, now)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			s.expireSession(ctx, st, now)
		}
		return nil, err
	}

	rec := &domain.GuessRecord{
		SessionID: st.Session.ID,
		PlayerID:  playerID,
		Letter:    string(letter),
		Correct:   out.Correct,
		Points:    out.Points,
		Timestamp: now,
	}
	if err := s.store.CommitGuess(ctx, &st.Session, st.Member(playerID), rec); err != nil {
		return nil, err
	}

	result := &domain.GuessResult{
		Success: true,
		Message: out.Message,
		Points:  out.Points,
		Session: st,
	}
	if out.Completed {
		result.LevelUps = s.finalize(ctx, st, nil, now)
	} else {
		s.refreshSnapshot(ctx, st)
		s.notifyUpdate(st)
	}
	return result, nil
}

// GuessWord processes a full-word guess. Either branch ends the session and
// distributes rewards synchronously before returning.
func (s *GameService) GuessWord(ctx context.Context, playerID, rawWord string) (*domain.GuessResult, error) {
	word, err := game.ParseWord(rawWord)
	if err != nil {
		return nil, err
	}

	st, err := s.loadActiveState(ctx, playerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out, err := s.engine.ApplyWord(st, playerID, word, now)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			s.expireSession(ctx, st, now)
		}
		return nil, err
	}

	if err := s.store.CommitGuess(ctx, &st.Session, st.Member(playerID), nil); err != nil {
		return nil, err
	}

	levelUps := s.finalize(ctx, st, out, now)

	return &domain.GuessResult{
		Success:  out.Correct,
		Message:  out.Message,
		Points:   out.Points,
		Session:  st,
		LevelUps: levelUps,
	}, nil
}

// RevealLetter is the paid hint: it deducts a fixed coin cost and uncovers
// one random hidden position. It does not consume the caller's turn.
func (s *GameService) RevealLetter(ctx context.Context, playerID string) (*domain.RevealResult, error) {
	st, err := s.loadActiveState(ctx, playerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out, err := s.engine.Reveal(st, playerID, now)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			s.expireSession(ctx, st, now)
		}
		return nil, err
	}

	cost := int64(s.engine.Config().RevealCost)
	prog, err := s.ledger.DeductCoins(ctx, playerID, cost)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateSession(ctx, &st.Session); err != nil {
		// The mask mutation lost a race; undo the deduction.
		if _, refundErr := s.ledger.AddCoins(ctx, playerID, cost); refundErr != nil {
			s.logger.Error("failed to refund reveal cost",
				"player_id", playerID,
				"error", refundErr,
			)
		}
		return nil, err
	}

	s.refreshSnapshot(ctx, st)
	s.notifyUpdate(st)

	return &domain.RevealResult{
		Position:         out.Position,
		Mask:             out.Mask,
		Cost:             int(cost),
		RemainingBalance: int(prog.Coins),
	}, nil
}

// GetSession returns a session's materialized state, preferring the snapshot
// cache. An expired active session is completed before being returned.
func (s *GameService) GetSession(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	now := time.Now()

	if st, err := s.cache.GetSnapshot(ctx, sessionID); err != nil {
		s.logger.Warn("snapshot cache read failed", "error", err)
	} else if st != nil && !st.Session.IsExpired(now) {
		return st, nil
	}

	st, err := s.store.GetSessionState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if st.Session.IsExpired(now) {
		s.expireSession(ctx, st, now)
		return st, nil
	}

	if err := s.cache.SetSnapshot(ctx, st); err != nil {
		s.logger.Warn("snapshot cache write failed", "error", err)
	}
	return st, nil
}

// ListSessions returns sessions filtered by status, sweeping expired active
// sessions first so the listing never reports a stale Active state.
func (s *GameService) ListSessions(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error) {
	s.sweepExpired(ctx)
	return s.store.ListSessions(ctx, status)
}

// GetHistory returns a session's guess records, most recent first
func (s *GameService) GetHistory(ctx context.Context, sessionID string) ([]domain.GuessRecord, error) {
	if _, err := s.store.GetSessionState(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListGuesses(ctx, sessionID)
}

// GetLeaderboard returns players ordered by total experience, descending.
// The redis sorted set is the fast path; on a miss the durable store answers
// and the set is repopulated best-effort.
func (s *GameService) GetLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	entries, err := s.cache.TopPlayers(ctx, limit)
	if err == nil && len(entries) > 0 {
		return entries, nil
	}
	if err != nil {
		s.logger.Warn("leaderboard cache read failed", "error", err)
	}

	entries, err = s.ledger.TopByXP(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("reading leaderboard: %w", err)
	}
	if rebuildErr := s.cache.RebuildLeaderboard(ctx, entries); rebuildErr != nil {
		s.logger.Warn("leaderboard cache rebuild failed", "error", rebuildErr)
	}
	return entries, nil
}

// GetProgression returns a player's level, experience and coin balance,
// creating the starting progression for a first-seen identity.
func (s *GameService) GetProgression(ctx context.Context, playerID string) (*domain.PlayerProgression, error) {
	return s.ledger.GetProgression(ctx, playerID)
}

// loadActiveState resolves the caller's active session id (pointer cache
// first, store on miss) and loads the authoritative state from the store.
func (s *GameService) loadActiveState(ctx context.Context, playerID string) (*domain.SessionState, error) {
	sessionID, err := s.resolveActiveID(ctx, playerID)
	if err != nil {
		return nil, err
	}

	st, err := s.store.GetSessionState(ctx, sessionID)
	if err != nil || st.Session.Status != domain.StatusActive || st.Member(playerID) == nil {
		// Stale pointer; drop it and retry against the store directly.
		s.evictPointer(ctx, playerID)
		if err == nil {
			s.evictSnapshot(ctx, sessionID)
		}
		sessionID, lookupErr := s.store.FindActiveSessionID(ctx, playerID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		return s.store.GetSessionState(ctx, sessionID)
	}
	return st, nil
}

func (s *GameService) resolveActiveID(ctx context.Context, playerID string) (string, error) {
	id, hit, err := s.cache.GetActiveSessionID(ctx, playerID)
	if err != nil {
		s.logger.Warn("pointer cache read failed", "error", err)
	} else if hit {
		if id == "" {
			return "", domain.ErrNoActiveSession
		}
		return id, nil
	}

	id, err = s.store.FindActiveSessionID(ctx, playerID)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveSession) {
			if cacheErr := s.cache.SetNoActiveSession(ctx, playerID); cacheErr != nil {
				s.logger.Warn("negative pointer write failed", "error", cacheErr)
			}
		}
		return "", err
	}
	if cacheErr := s.cache.SetActiveSessionID(ctx, playerID, id); cacheErr != nil {
		s.logger.Warn("pointer cache write failed", "error", cacheErr)
	}
	return id, nil
}

// finalize runs the reward distribution for a completed session, writes the
// outcome records, evicts cache entries and broadcasts the result. It
// returns the level-up notifications for the caller to surface.
func (s *GameService) finalize(ctx context.Context, st *domain.SessionState, word *game.WordOutcome, completedAt time.Time) []domain.LevelUp {
	rewards := s.engine.ComputeRewards(st, word, completedAt)

	var levelUps []domain.LevelUp
	outcomes := make([]domain.OutcomeRecord, 0, len(rewards))
	snapshot := game.OutcomeSnapshot(&st.Session)

	for _, r := range rewards {
		prog, levelsGained, err := s.ledger.AddXP(ctx, r.PlayerID, r.XP)
		if err != nil {
			s.logger.Error("failed to apply xp reward",
				"session_id", st.Session.ID,
				"player_id", r.PlayerID,
				"error", err,
			)
			continue
		}
		if levelsGained > 0 {
			levelUps = append(levelUps, domain.LevelUp{
				PlayerID:     r.PlayerID,
				NewLevel:     prog.Level,
				LevelsGained: levelsGained,
				XPGained:     r.XP,
			})
		}
		if r.Coins > 0 {
			if _, err := s.ledger.AddCoins(ctx, r.PlayerID, r.Coins); err != nil {
				s.logger.Error("failed to apply coin reward",
					"session_id", st.Session.ID,
					"player_id", r.PlayerID,
					"error", err,
				)
			}
		}
		if err := s.cache.UpdateLeaderboard(ctx, r.PlayerID, prog.XP); err != nil {
			s.logger.Warn("leaderboard cache update failed", "error", err)
		}

		outcomes = append(outcomes, domain.OutcomeRecord{
			SessionID:   st.Session.ID,
			PlayerID:    r.PlayerID,
			Score:       r.Score,
			Result:      r.Result,
			GuessedWord: snapshot,
			Timestamp:   completedAt,
		})
	}

	if err := s.store.RecordOutcomes(ctx, outcomes); err != nil {
		s.logger.Error("failed to record outcomes",
			"session_id", st.Session.ID,
			"error", err,
		)
	}

	s.evictSnapshot(ctx, st.Session.ID)
	for _, p := range st.Participants {
		s.evictPointer(ctx, p.PlayerID)
	}
	if s.notifier != nil {
		s.notifier.BroadcastSessionCompleted(st, levelUps)
	}

	s.logger.Info("session completed",
		"session_id", st.Session.ID,
		"timed_out", st.Session.TimedOut,
		"participants", len(st.Participants),
	)
	return levelUps
}

// expireSession force-completes an active session whose clock ran out. The
// triggering operation has already been rejected; this is its side effect.
func (s *GameService) expireSession(ctx context.Context, st *domain.SessionState, now time.Time) {
	s.engine.Complete(st, now, true)
	if err := s.store.UpdateSession(ctx, &st.Session); err != nil {
		// A concurrent touch already completed it.
		if !errors.Is(err, domain.ErrVersionConflict) {
			s.logger.Error("failed to persist expiry",
				"session_id", st.Session.ID,
				"error", err,
			)
		}
		return
	}
	s.finalize(ctx, st, nil, now)
}

// SweepExpired completes every active session past its end time. The
// background worker calls this so abandoned sessions settle their rewards
// even when nobody reads them again.
func (s *GameService) SweepExpired(ctx context.Context) {
	s.sweepExpired(ctx)
}

// sweepExpired lazily completes every active session past its end time
func (s *GameService) sweepExpired(ctx context.Context) {
	now := time.Now()
	ids, err := s.store.ListExpiredActive(ctx, now)
	if err != nil {
		s.logger.Warn("expiry sweep failed", "error", err)
		return
	}
	for _, id := range ids {
		st, err := s.store.GetSessionState(ctx, id)
		if err != nil || !st.Session.IsExpired(now) {
			continue
		}
		s.expireSession(ctx, st, now)
	}
}

func (s *GameService) populateCaches(ctx context.Context, st *domain.SessionState) {
	if err := s.cache.SetSnapshot(ctx, st); err != nil {
		s.logger.Warn("snapshot cache write failed", "error", err)
	}
	for _, p := range st.Participants {
		if err := s.cache.SetActiveSessionID(ctx, p.PlayerID, st.Session.ID); err != nil {
			s.logger.Warn("pointer cache write failed", "error", err)
		}
	}
}

func (s *GameService) refreshSnapshot(ctx context.Context, st *domain.SessionState) {
	if err := s.cache.SetSnapshot(ctx, st); err != nil {
		s.logger.Warn("snapshot cache refresh failed", "error", err)
	}
}

func (s *GameService) evictSnapshot(ctx context.Context, sessionID string) {
	if err := s.cache.EvictSnapshot(ctx, sessionID); err != nil {
		s.logger.Warn("snapshot cache evict failed", "error", err)
	}
}

func (s *GameService) evictPointer(ctx context.Context, playerID string) {
	if err := s.cache.EvictPointer(ctx, playerID); err != nil {
		s.logger.Warn("pointer cache evict failed", "error", err)
	}
}

func (s *GameService) notifyUpdate(st *domain.SessionState) {
	if s.notifier != nil {
		s.notifier.BroadcastSessionUpdate(st)
	}
}
