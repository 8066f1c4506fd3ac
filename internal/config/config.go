package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Cache    CacheConfig    `yaml:"cache"`
	Game     GameConfig     `yaml:"game"`
	Worker   WorkerConfig   `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// ConnectionString returns the PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode,
	)
}

// KafkaConfig holds Kafka connection configuration for guess ingestion
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
	Enabled bool     `yaml:"enabled"`
}

// CacheConfig holds session cache expiry budgets. The pointer and snapshot
// relations expire independently; negative entries suppress repeated store
// lookups for players with no active session.
type CacheConfig struct {
	PointerTTL  time.Duration `yaml:"pointer_ttl"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`
	NegativeTTL time.Duration `yaml:"negative_ttl"`
}

// WorkerConfig holds the background maintenance worker settings
type WorkerConfig struct {
	Interval        time.Duration `yaml:"interval"`
	LeaderboardSize int           `yaml:"leaderboard_size"`
}

// TurnPolicy selects how the first turn is assigned at activation
type TurnPolicy string

const (
	TurnPolicyFirstJoiner TurnPolicy = "first_joiner"
	TurnPolicyRandom      TurnPolicy = "random"
)

// GameConfig holds the game rule constants. Everything that was a magic
// number in earlier revisions is injected here at construction time.
type GameConfig struct {
	PlayersToStart int           `yaml:"players_to_start"`
	TurnPolicy     TurnPolicy    `yaml:"turn_policy"`
	EasyBudget     time.Duration `yaml:"easy_budget"`
	MediumBudget   time.Duration `yaml:"medium_budget"`
	HardBudget     time.Duration `yaml:"hard_budget"`
	CorrectPoints  int           `yaml:"correct_points"`
	WrongPenalty   int           `yaml:"wrong_penalty"`
	WordBonus      int           `yaml:"word_bonus"`
	WordPenalty    int           `yaml:"word_penalty"`
	RevealCost     int           `yaml:"reveal_cost"`
	MinXPReward    int           `yaml:"min_xp_reward"`
}

// Budget returns the time allotment for a difficulty tier
func (g *GameConfig) Budget(difficulty string) time.Duration {
	switch difficulty {
	case "medium":
		return g.MediumBudget
	case "hard":
		return g.HardBudget
	default:
		return g.EasyBudget
	}
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 100
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 10
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}

	// PostgreSQL defaults
	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.MaxConnections == 0 {
		c.Postgres.MaxConnections = 50
	}
	if c.Postgres.MinConnections == 0 {
		c.Postgres.MinConnections = 5
	}
	if c.Postgres.MaxConnLifetime == 0 {
		c.Postgres.MaxConnLifetime = 1 * time.Hour
	}
	if c.Postgres.MaxConnIdleTime == 0 {
		c.Postgres.MaxConnIdleTime = 30 * time.Minute
	}

	// Kafka defaults
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "wordduel-guesses"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "wordduel-consumer"
	}

	// Cache defaults
	if c.Cache.PointerTTL == 0 {
		c.Cache.PointerTTL = 10 * time.Minute
	}
	if c.Cache.SnapshotTTL == 0 {
		c.Cache.SnapshotTTL = 15 * time.Minute
	}
	if c.Cache.NegativeTTL == 0 {
		c.Cache.NegativeTTL = 60 * time.Second
	}

	// Worker defaults
	if c.Worker.Interval == 0 {
		c.Worker.Interval = 1 * time.Minute
	}
	if c.Worker.LeaderboardSize == 0 {
		c.Worker.LeaderboardSize = 1000
	}

	// Game defaults
	if c.Game.PlayersToStart == 0 {
		c.Game.PlayersToStart = 2
	}
	if c.Game.TurnPolicy == "" {
		c.Game.TurnPolicy = TurnPolicyFirstJoiner
	}
	if c.Game.EasyBudget == 0 {
		c.Game.EasyBudget = 10 * time.Minute
	}
	if c.Game.MediumBudget == 0 {
		c.Game.MediumBudget = 7 * time.Minute
	}
	if c.Game.HardBudget == 0 {
		c.Game.HardBudget = 5 * time.Minute
	}
	if c.Game.CorrectPoints == 0 {
		c.Game.CorrectPoints = 20
	}
	if c.Game.WrongPenalty == 0 {
		c.Game.WrongPenalty = 10
	}
	if c.Game.WordBonus == 0 {
		c.Game.WordBonus = 100
	}
	if c.Game.WordPenalty == 0 {
		c.Game.WordPenalty = 50
	}
	if c.Game.RevealCost == 0 {
		c.Game.RevealCost = 30
	}
	if c.Game.MinXPReward == 0 {
		c.Game.MinXPReward = 15
	}
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
