package words

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wordduel/internal/domain"
)

// Bank picks secret words from the word_bank table. Selection is uniform
// over the rows of the requested difficulty.
type Bank struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewBank creates a word bank backed by the given connection pool
func NewBank(pool *pgxpool.Pool, logger *slog.Logger) *Bank {
	return &Bank{
		pool:   pool,
		logger: logger,
	}
}

// RandomWord returns a random word of the given difficulty. Words are
// stored lower-case; callers mask them without altering case.
func (b *Bank) RandomWord(ctx context.Context, difficulty domain.Difficulty) (string, error) {
	var word string
	err := b.pool.QueryRow(ctx,
		`SELECT word FROM word_bank WHERE difficulty = $1 ORDER BY random() LIMIT 1`,
		string(difficulty),
	).Scan(&word)
	if err == pgx.ErrNoRows {
		return "", domain.ErrNoWordAvailable
	}
	if err != nil {
		return "", fmt.Errorf("selecting random word: %w", err)
	}
	return strings.ToLower(word), nil
}

// Count returns the number of words stored for a difficulty
func (b *Bank) Count(ctx context.Context, difficulty domain.Difficulty) (int64, error) {
	var n int64
	err := b.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM word_bank WHERE difficulty = $1`,
		string(difficulty),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting words: %w", err)
	}
	return n, nil
}

// Seed inserts the stock word lists, skipping words already present. It is
// safe to run on every startup.
func (b *Bank) Seed(ctx context.Context) error {
	batch := &pgx.Batch{}
	total := 0
	for difficulty, list := range stockWords {
		for _, word := range list {
			batch.Queue(
				`INSERT INTO word_bank (word, difficulty) VALUES ($1, $2)
				 ON CONFLICT (word, difficulty) DO NOTHING`,
				word, string(difficulty),
			)
			total++
		}
	}

	results := b.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := int64(0)
	for i := 0; i < total; i++ {
		tag, err := results.Exec()
		if err != nil {
			return fmt.Errorf("seeding word bank: %w", err)
		}
		inserted += tag.RowsAffected()
	}

	if inserted > 0 {
		b.logger.Info("seeded word bank", "inserted", inserted)
	}
	return nil
}

// stockWords are the built-in lists: easy 4-5 letters, medium 6-7,
// hard 8 and up.
var stockWords = map[domain.Difficulty][]string{
	domain.DifficultyEasy: {
		"game", "play", "word", "time", "code", "work", "turn",
		"card", "home", "book", "door", "wind", "cold", "warm",
		"rain", "snow", "tree", "sing", "fish", "bird", "cake",
		"lake", "city", "moon", "star", "ship", "road", "path",
	},
	domain.DifficultyMedium: {
		"python", "coding", "player", "system", "dinner", "coffee",
		"rainbow", "summer", "winter", "garden", "window", "castle",
		"melody", "rhythm", "autumn", "basket", "camera", "pencil",
		"kitchen", "laptop", "concert", "journey", "picture", "theater",
	},
	domain.DifficultyHard: {
		"developer", "algorithm", "interface", "challenge", "different",
		"experience", "community", "beautiful", "adventure", "knowledge",
		"discovery", "chocolate", "friendship", "playground", "education",
		"technology", "collection", "revolution", "generation", "innovation",
	},
}
