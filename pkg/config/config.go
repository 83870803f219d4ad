package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the ledger node.
type Config struct {
	// Identity
	NodeID string
	DataDir string

	// Server configuration
	MetricsAddr string

	// Storage configuration
	KVBackend string // "goleveldb", "badgerdb", "boltdb", "memdb"
	DBName    string

	// Confirmation archive (optional Postgres mirror of cemented blocks)
	ArchiveDatabaseURL  string
	ArchiveRequired     bool
	ArchiveMaxOpenConns int
	ArchiveMaxIdleConns int
	ArchiveConnMaxLife  time.Duration

	// Consensus / election tuning
	OnlineWeightMinimum   uint64        // floor applied to trended online weight
	QuorumPercent         int           // percent of trended online weight required to confirm
	ActiveElectionsLimit  int           // bounded size of the active elections map
	ConfirmationRequestTTL time.Duration // how long an election waits before a rebroadcast tick
	ElectionExpiry        time.Duration // timeout after which an unconfirmed election expires

	// Vote cache tuning
	VoteCacheMaxVotesPerHash int
	VoteCacheMaxAge          time.Duration

	// Cementer tuning
	CementerBatchBudget   time.Duration // 250ms per spec
	CementerBatchFloor    int           // 16384 per spec
	CementerShrinkPercent int           // 10
	CementerGrowPercent   int           // 10

	// Online representatives register
	OnlineRepsLiveWindow    time.Duration
	OnlineWeightSampleEvery time.Duration
	OnlineWeightSampleCount int // 4032 per spec

	// Scheduler tuning
	OptimisticGapThreshold uint64
	HintedWeightPercent    int

	LogLevel string
}

// Load reads configuration from environment variables, falling back to
// sane single-node defaults everywhere a value is optional.
func Load() (*Config, error) {
	cfg := &Config{
		NodeID:  getEnv("NODE_ID", "node-default"),
		DataDir: getEnv("DATA_DIR", "./data"),

		MetricsAddr: getEnv("METRICS_ADDR", "0.0.0.0:9090"),

		KVBackend: getEnv("KV_BACKEND", "goleveldb"),
		DBName:    getEnv("DB_NAME", "ledger"),

		ArchiveDatabaseURL:  getEnv("ARCHIVE_DATABASE_URL", ""),
		ArchiveRequired:     getEnvBool("ARCHIVE_REQUIRED", false),
		ArchiveMaxOpenConns: getEnvInt("ARCHIVE_MAX_OPEN_CONNS", 10),
		ArchiveMaxIdleConns: getEnvInt("ARCHIVE_MAX_IDLE_CONNS", 2),
		ArchiveConnMaxLife:  getEnvDuration("ARCHIVE_CONN_MAX_LIFETIME", time.Hour),

		OnlineWeightMinimum:    getEnvUint64("ONLINE_WEIGHT_MINIMUM", 60_000_000),
		QuorumPercent:          getEnvInt("QUORUM_PERCENT", 67),
		ActiveElectionsLimit:   getEnvInt("ACTIVE_ELECTIONS_LIMIT", 5000),
		ConfirmationRequestTTL: getEnvDuration("CONFIRMATION_REQUEST_TTL", 16*time.Second),
		ElectionExpiry:         getEnvDuration("ELECTION_EXPIRY", 5*time.Minute),

		VoteCacheMaxVotesPerHash: getEnvInt("VOTE_CACHE_MAX_VOTES_PER_HASH", 40),
		VoteCacheMaxAge:          getEnvDuration("VOTE_CACHE_MAX_AGE", 3*time.Minute),

		CementerBatchBudget:   getEnvDuration("CEMENTER_BATCH_BUDGET", 250*time.Millisecond),
		CementerBatchFloor:    getEnvInt("CEMENTER_BATCH_FLOOR", 16384),
		CementerShrinkPercent: getEnvInt("CEMENTER_SHRINK_PERCENT", 10),
		CementerGrowPercent:   getEnvInt("CEMENTER_GROW_PERCENT", 10),

		OnlineRepsLiveWindow:    getEnvDuration("ONLINE_REPS_LIVE_WINDOW", 2*time.Minute),
		OnlineWeightSampleEvery: getEnvDuration("ONLINE_WEIGHT_SAMPLE_EVERY", 5*time.Minute),
		OnlineWeightSampleCount: getEnvInt("ONLINE_WEIGHT_SAMPLE_COUNT", 4032),

		OptimisticGapThreshold: getEnvUint64("OPTIMISTIC_GAP_THRESHOLD", 64),
		HintedWeightPercent:    getEnvInt("HINTED_WEIGHT_PERCENT", 10),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	var errs []string

	switch c.KVBackend {
	case "goleveldb", "badgerdb", "boltdb", "memdb":
	default:
		errs = append(errs, fmt.Sprintf("KV_BACKEND %q is not a supported backend", c.KVBackend))
	}

	if c.QuorumPercent <= 0 || c.QuorumPercent > 100 {
		errs = append(errs, "QUORUM_PERCENT must be in (0,100]")
	}
	if c.ActiveElectionsLimit <= 0 {
		errs = append(errs, "ACTIVE_ELECTIONS_LIMIT must be positive")
	}
	if c.CementerBatchFloor <= 0 {
		errs = append(errs, "CEMENTER_BATCH_FLOOR must be positive")
	}
	if c.ArchiveRequired && c.ArchiveDatabaseURL == "" {
		errs = append(errs, "ARCHIVE_DATABASE_URL is required when ARCHIVE_REQUIRED is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Helper functions for environment variable parsing.

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
