package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wordduel/internal/config"
	"github.com/wordduel/internal/domain"
)

// Repository provides PostgreSQL-based data access. It is the durable store
// for sessions and their owned records, and the progression ledger.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY,
			creator_id VARCHAR(64) NOT NULL,
			difficulty VARCHAR(10) NOT NULL,
			word VARCHAR(30) NOT NULL,
			mask VARCHAR(30) NOT NULL,
			status VARCHAR(10) NOT NULL DEFAULT 'waiting',
			current_turn VARCHAR(64),
			guessed_letters VARCHAR(32) NOT NULL DEFAULT '',
			timed_out BOOLEAN NOT NULL DEFAULT FALSE,
			start_time TIMESTAMPTZ,
			end_time TIMESTAMPTZ,
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS participants (
			id BIGSERIAL PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			player_id VARCHAR(64) NOT NULL,
			score INT NOT NULL DEFAULT 0,
			join_order INT NOT NULL,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(session_id, player_id)
		)`,
		`CREATE TABLE IF NOT EXISTS guess_records (
			id BIGSERIAL PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			player_id VARCHAR(64) NOT NULL,
			letter VARCHAR(1) NOT NULL,
			correct BOOLEAN NOT NULL,
			points INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS outcome_records (
			id BIGSERIAL PRIMARY KEY,
			session_id UUID NOT NULL,
			player_id VARCHAR(64) NOT NULL,
			score INT NOT NULL,
			result VARCHAR(10) NOT NULL,
			guessed_word VARCHAR(100) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS player_progression (
			player_id VARCHAR(64) PRIMARY KEY,
			level INT NOT NULL DEFAULT 1,
			xp BIGINT NOT NULL DEFAULT 0,
			coins BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS word_bank (
			id BIGSERIAL PRIMARY KEY,
			word VARCHAR(30) NOT NULL,
			difficulty VARCHAR(10) NOT NULL,
			UNIQUE (word, difficulty)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_creator ON sessions(creator_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_player ON participants(player_id)`,
		`CREATE INDEX IF NOT EXISTS idx_guess_records_session ON guess_records(session_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_outcome_records_player ON outcome_records(player_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_player_progression_xp ON player_progression(xp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_word_bank_difficulty ON word_bank(difficulty)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

const sessionColumns = `id, creator_id, difficulty, word, mask, status, current_turn,
	guessed_letters, timed_out, start_time, end_time, version, created_at, updated_at`

func scanSession(row pgx.Row) (*domain.Session, error) {
	var sess domain.Session
	var currentTurn *string
	err := row.Scan(
		&sess.ID,
		&sess.CreatorID,
		&sess.Difficulty,
		&sess.Word,
		&sess.Mask,
		&sess.Status,
		&currentTurn,
		&sess.GuessedLetters,
		&sess.TimedOut,
		&sess.StartTime,
		&sess.EndTime,
		&sess.Version,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if currentTurn != nil {
		sess.CurrentTurnID = *currentTurn
	}
	return &sess, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateSession inserts a new session together with its creator participant
func (r *Repository) CreateSession(ctx context.Context, sess *domain.Session, creator *domain.Participant) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (id, creator_id, difficulty, word, mask, status, current_turn,
			guessed_letters, timed_out, start_time, end_time, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		sess.ID, sess.CreatorID, string(sess.Difficulty), sess.Word, sess.Mask,
		string(sess.Status), nullable(sess.CurrentTurnID), sess.GuessedLetters,
		sess.TimedOut, sess.StartTime, sess.EndTime, sess.Version,
		sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO participants (session_id, player_id, score, join_order, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`, creator.SessionID, creator.PlayerID, creator.Score, creator.JoinOrder, creator.JoinedAt)
	if err != nil {
		return fmt.Errorf("inserting creator participant: %w", err)
	}

	return tx.Commit(ctx)
}

// GetSessionState loads a session with its participants in join order
func (r *Repository) GetSessionState(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, sessionID)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT session_id, player_id, score, join_order, joined_at
		FROM participants
		WHERE session_id = $1
		ORDER BY join_order
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing participants: %w", err)
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.SessionID, &p.PlayerID, &p.Score, &p.JoinOrder, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scanning participant: %w", err)
		}
		participants = append(participants, p)
	}

	return &domain.SessionState{Session: *sess, Participants: participants}, nil
}

// FindActiveSessionID returns the id of the active session the player
// participates in
func (r *Repository) FindActiveSessionID(ctx context.Context, playerID string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		SELECT s.id
		FROM sessions s
		JOIN participants p ON p.session_id = s.id
		WHERE p.player_id = $1 AND s.status = 'active'
		LIMIT 1
	`, playerID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNoActiveSession
		}
		return "", fmt.Errorf("finding active session: %w", err)
	}
	return id, nil
}

// HasOpenSession reports whether the player created a session that is still
// waiting or active
func (r *Repository) HasOpenSession(ctx context.Context, creatorID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM sessions
			WHERE creator_id = $1 AND status IN ('waiting', 'active')
		)
	`, creatorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking open sessions: %w", err)
	}
	return exists, nil
}

// AddParticipant inserts a participant row; a duplicate join is rejected by
// the (session_id, player_id) uniqueness constraint
func (r *Repository) AddParticipant(ctx context.Context, p *domain.Participant) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO participants (session_id, player_id, score, join_order, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.SessionID, p.PlayerID, p.Score, p.JoinOrder, p.JoinedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyJoined
		}
		return fmt.Errorf("adding participant: %w", err)
	}
	return nil
}

// UpdateSession persists session mutations with a compare-and-swap on the
// version column. A stale version means a concurrent writer won the race.
func (r *Repository) UpdateSession(ctx context.Context, sess *domain.Session) error {
	return r.updateSessionTx(ctx, r.pool, sess)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *Repository) updateSessionTx(ctx context.Context, db execer, sess *domain.Session) error {
	tag, err := db.Exec(ctx, `
		UPDATE sessions
		SET mask = $3, status = $4, current_turn = $5, guessed_letters = $6,
			timed_out = $7, start_time = $8, end_time = $9,
			version = version + 1, updated_at = $10
		WHERE id = $1 AND version = $2
	`,
		sess.ID, sess.Version, sess.Mask, string(sess.Status),
		nullable(sess.CurrentTurnID), sess.GuessedLetters, sess.TimedOut,
		sess.StartTime, sess.EndTime, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	sess.Version++
	return nil
}

// CommitGuess atomically persists a guess: the session CAS update, the
// participant's new score, and the guess record when one was produced
// (full-word guesses leave no letter record). Nothing is committed when the
// version check fails.
func (r *Repository) CommitGuess(ctx context.Context, sess *domain.Session, p *domain.Participant, rec *domain.GuessRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.updateSessionTx(ctx, tx, sess); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE participants SET score = $3
		WHERE session_id = $1 AND player_id = $2
	`, sess.ID, p.PlayerID, p.Score)
	if err != nil {
		return fmt.Errorf("updating participant score: %w", err)
	}

	if rec != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO guess_records (session_id, player_id, letter, correct, points, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, rec.SessionID, rec.PlayerID, rec.Letter, rec.Correct, rec.Points, rec.Timestamp)
		if err != nil {
			return fmt.Errorf("inserting guess record: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListSessions returns sessions, optionally filtered by status, newest first
func (r *Repository) ListSessions(ctx context.Context, status domain.SessionStatus) ([]domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, nil
}

// ListExpiredActive returns ids of active sessions past their end time
func (r *Repository) ListExpiredActive(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM sessions
		WHERE status = 'active' AND end_time IS NOT NULL AND end_time < $1
	`, now)
	if err != nil {
		return nil, fmt.Errorf("listing expired sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ListGuesses returns a session's guess records, most recent first
func (r *Repository) ListGuesses(ctx context.Context, sessionID string) ([]domain.GuessRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, player_id, letter, correct, points, created_at
		FROM guess_records
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing guesses: %w", err)
	}
	defer rows.Close()

	var records []domain.GuessRecord
	for rows.Next() {
		var rec domain.GuessRecord
		err := rows.Scan(&rec.ID, &rec.SessionID, &rec.PlayerID, &rec.Letter,
			&rec.Correct, &rec.Points, &rec.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("scanning guess record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// RecordOutcomes appends the per-player results of a completed session
func (r *Repository) RecordOutcomes(ctx context.Context, recs []domain.OutcomeRecord) error {
	if len(recs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range recs {
		batch.Queue(`
			INSERT INTO outcome_records (session_id, player_id, score, result, guessed_word, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, rec.SessionID, rec.PlayerID, rec.Score, string(rec.Result), rec.GuessedWord, rec.Timestamp)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range recs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("recording outcome: %w", err)
		}
	}
	return nil
}

// GetProgression returns a player's progression, creating the level-1
// starting row for a first-seen identity
func (r *Repository) GetProgression(ctx context.Context, playerID string) (*domain.PlayerProgression, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO player_progression (player_id) VALUES ($1)
		ON CONFLICT (player_id) DO NOTHING
	`, playerID)
	if err != nil {
		return nil, fmt.Errorf("ensuring progression: %w", err)
	}

	var prog domain.PlayerProgression
	err = r.pool.QueryRow(ctx, `
		SELECT player_id, level, xp, coins, created_at, updated_at
		FROM player_progression
		WHERE player_id = $1
	`, playerID).Scan(&prog.PlayerID, &prog.Level, &prog.XP, &prog.Coins, &prog.CreatedAt, &prog.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting progression: %w", err)
	}
	return &prog, nil
}

// AddXP credits experience and advances the level past any thresholds the
// new total clears. Returns the updated progression and the levels gained.
func (r *Repository) AddXP(ctx context.Context, playerID string, amount int64) (*domain.PlayerProgression, int, error) {
	if amount <= 0 {
		prog, err := r.GetProgression(ctx, playerID)
		return prog, 0, err
	}

	prog, gained, err := r.mutateProgression(ctx, playerID, func(p *domain.PlayerProgression) (int, error) {
		_, levels := p.AddXP(amount)
		return levels, nil
	})
	return prog, gained, err
}

// AddCoins credits the coin balance
func (r *Repository) AddCoins(ctx context.Context, playerID string, amount int64) (*domain.PlayerProgression, error) {
	if amount <= 0 {
		return r.GetProgression(ctx, playerID)
	}
	prog, _, err := r.mutateProgression(ctx, playerID, func(p *domain.PlayerProgression) (int, error) {
		p.AddCoins(amount)
		return 0, nil
	})
	return prog, err
}

// DeductCoins debits the coin balance, all-or-nothing
func (r *Repository) DeductCoins(ctx context.Context, playerID string, amount int64) (*domain.PlayerProgression, error) {
	prog, _, err := r.mutateProgression(ctx, playerID, func(p *domain.PlayerProgression) (int, error) {
		if !p.DeductCoins(amount) {
			return 0, domain.ErrInsufficientCoins
		}
		return 0, nil
	})
	return prog, err
}

// mutateProgression applies the domain arithmetic to a row-locked
// progression record and persists the result
func (r *Repository) mutateProgression(ctx context.Context, playerID string, fn func(*domain.PlayerProgression) (int, error)) (*domain.PlayerProgression, int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO player_progression (player_id) VALUES ($1)
		ON CONFLICT (player_id) DO NOTHING
	`, playerID)
	if err != nil {
		return nil, 0, fmt.Errorf("ensuring progression: %w", err)
	}

	var prog domain.PlayerProgression
	err = tx.QueryRow(ctx, `
		SELECT player_id, level, xp, coins, created_at, updated_at
		FROM player_progression
		WHERE player_id = $1
		FOR UPDATE
	`, playerID).Scan(&prog.PlayerID, &prog.Level, &prog.XP, &prog.Coins, &prog.CreatedAt, &prog.UpdatedAt)
	if err != nil {
		return nil, 0, fmt.Errorf("locking progression: %w", err)
	}

	gained, err := fn(&prog)
	if err != nil {
		return nil, 0, err
	}

	prog.UpdatedAt = time.Now()
	_, err = tx.Exec(ctx, `
		UPDATE player_progression
		SET level = $2, xp = $3, coins = $4, updated_at = $5
		WHERE player_id = $1
	`, prog.PlayerID, prog.Level, prog.XP, prog.Coins, prog.UpdatedAt)
	if err != nil {
		return nil, 0, fmt.Errorf("updating progression: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("committing progression: %w", err)
	}
	return &prog, gained, nil
}

// TopByXP returns players ordered by cumulative experience, descending
func (r *Repository) TopByXP(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT player_id, xp
		FROM player_progression
		ORDER BY xp DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("reading top players: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	rank := int64(1)
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.XP); err != nil {
			return nil, fmt.Errorf("scanning leaderboard entry: %w", err)
		}
		e.Rank = rank
		rank++
		entries = append(entries, e)
	}
	return entries, nil
}
