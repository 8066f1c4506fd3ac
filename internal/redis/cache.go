package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/wordduel/internal/config"
	"github.com/wordduel/internal/domain"
)

// noSession marks a negative pointer entry: the player was looked up in the
// store and had no active session.
const noSession = "-"

// leaderboardKey is the sorted set holding cumulative XP per player
const leaderboardKey = "leaderboard:xp"

// Cache provides the Redis-backed session lookup cache and the experience
// leaderboard. It is an optimization layer only; callers tolerate staleness
// and every error degrades to direct store reads.
type Cache struct {
	client *redis.Client
	cfg    *config.CacheConfig
	logger *slog.Logger
}

// NewCache creates a new Redis session cache
func NewCache(redisCfg *config.RedisConfig, cacheCfg *config.CacheConfig, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         redisCfg.Addr,
		Password:     redisCfg.Password,
		DB:           redisCfg.DB,
		PoolSize:     redisCfg.PoolSize,
		MinIdleConns: redisCfg.MinIdleConns,
		DialTimeout:  redisCfg.DialTimeout,
		ReadTimeout:  redisCfg.ReadTimeout,
		WriteTimeout: redisCfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{
		client: client,
		cfg:    cacheCfg,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Ping verifies the cache is reachable
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// pointerKey returns the key mapping a player to their active session id
func (c *Cache) pointerKey(playerID string) string {
	return fmt.Sprintf("player:%s:session", playerID)
}

// snapshotKey returns the key holding a session's materialized state
func (c *Cache) snapshotKey(sessionID string) string {
	return fmt.Sprintf("session:%s:snapshot", sessionID)
}

// GetActiveSessionID consults the pointer cache. It returns (id, true, nil)
// on a hit, ("", true, nil) when a negative entry records that the player
// has no active session, and ("", false, nil) on a miss.
func (c *Cache) GetActiveSessionID(ctx context.Context, playerID string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.pointerKey(playerID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading session pointer: %w", err)
	}
	if val == noSession {
		return "", true, nil
	}
	return val, true, nil
}

// SetActiveSessionID records a player's active session pointer
func (c *Cache) SetActiveSessionID(ctx context.Context, playerID, sessionID string) error {
	err := c.client.Set(ctx, c.pointerKey(playerID), sessionID, c.cfg.PointerTTL).Err()
	if err != nil {
		return fmt.Errorf("setting session pointer: %w", err)
	}
	return nil
}

// SetNoActiveSession writes a short-lived negative entry so repeated
// lookups for an idle player do not hit the store
func (c *Cache) SetNoActiveSession(ctx context.Context, playerID string) error {
	err := c.client.Set(ctx, c.pointerKey(playerID), noSession, c.cfg.NegativeTTL).Err()
	if err != nil {
		return fmt.Errorf("setting negative pointer: %w", err)
	}
	return nil
}

// EvictPointer drops a player's session pointer
func (c *Cache) EvictPointer(ctx context.Context, playerID string) error {
	err := c.client.Del(ctx, c.pointerKey(playerID)).Err()
	if err != nil {
		return fmt.Errorf("evicting session pointer: %w", err)
	}
	return nil
}

// GetSnapshot returns the cached session state, or nil on a miss. Snapshots
// are serialized without the secret word, so a cache read can never leak
// the answer.
func (c *Cache) GetSnapshot(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	data, err := c.client.Get(ctx, c.snapshotKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session snapshot: %w", err)
	}

	var st domain.SessionState
	if err := json.Unmarshal(data, &st); err != nil {
		// Corrupt entry; drop it and treat as a miss
		c.client.Del(ctx, c.snapshotKey(sessionID))
		c.logger.Warn("dropped corrupt session snapshot", "session_id", sessionID, "error", err)
		return nil, nil
	}
	return &st, nil
}

// SetSnapshot stores or refreshes a session's materialized state
func (c *Cache) SetSnapshot(ctx context.Context, st *domain.SessionState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	err = c.client.Set(ctx, c.snapshotKey(st.Session.ID), data, c.cfg.SnapshotTTL).Err()
	if err != nil {
		return fmt.Errorf("setting session snapshot: %w", err)
	}
	return nil
}

// EvictSnapshot drops a session's cached state
func (c *Cache) EvictSnapshot(ctx context.Context, sessionID string) error {
	err := c.client.Del(ctx, c.snapshotKey(sessionID)).Err()
	if err != nil {
		return fmt.Errorf("evicting session snapshot: %w", err)
	}
	return nil
}

// UpdateLeaderboard records a player's cumulative XP in the sorted set
func (c *Cache) UpdateLeaderboard(ctx context.Context, playerID string, xp int64) error {
	err := c.client.ZAdd(ctx, leaderboardKey, redis.Z{
		Score:  float64(xp),
		Member: playerID,
	}).Err()
	if err != nil {
		return fmt.Errorf("updating leaderboard: %w", err)
	}
	return nil
}

// TopPlayers returns the highest-XP players, descending
func (c *Cache) TopPlayers(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading leaderboard: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, len(results))
	for i, result := range results {
		entries[i] = domain.LeaderboardEntry{
			Rank:     int64(i + 1),
			PlayerID: result.Member.(string),
			XP:       int64(result.Score),
		}
	}
	return entries, nil
}

// RebuildLeaderboard repopulates the sorted set from authoritative store
// data in a single pipeline
func (c *Cache) RebuildLeaderboard(ctx context.Context, entries []domain.LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, e := range entries {
		pipe.ZAdd(ctx, leaderboardKey, redis.Z{
			Score:  float64(e.XP),
			Member: e.PlayerID,
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rebuilding leaderboard: %w", err)
	}

	c.logger.Debug("leaderboard rebuilt", "players", len(entries))
	return nil
}
