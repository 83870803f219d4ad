// File-based configuration loading, adapted from the teacher's
// pkg/config/anchor_config.go: a YAML document with ${VAR_NAME} /
// ${VAR_NAME:-default} environment-variable substitution, unmarshaled
// with gopkg.in/yaml.v3. Fields the file omits fall back to Load's own
// environment-variable defaults rather than zero values, the same
// "apply defaults over what was parsed" shape the teacher's
// applyDefaults uses.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config's fields with yaml tags and string-form
// durations, the same Duration-wrapping the teacher's anchor config
// uses for human-readable YAML durations.
type fileConfig struct {
	NodeID      string `yaml:"node_id"`
	DataDir     string `yaml:"data_dir"`
	MetricsAddr string `yaml:"metrics_addr"`

	KVBackend string `yaml:"kv_backend"`
	DBName    string `yaml:"db_name"`

	ArchiveDatabaseURL  string `yaml:"archive_database_url"`
	ArchiveRequired     bool   `yaml:"archive_required"`
	ArchiveMaxOpenConns int    `yaml:"archive_max_open_conns"`
	ArchiveMaxIdleConns int    `yaml:"archive_max_idle_conns"`
	ArchiveConnMaxLife  string `yaml:"archive_conn_max_lifetime"`

	OnlineWeightMinimum    uint64 `yaml:"online_weight_minimum"`
	QuorumPercent          int    `yaml:"quorum_percent"`
	ActiveElectionsLimit   int    `yaml:"active_elections_limit"`
	ConfirmationRequestTTL string `yaml:"confirmation_request_ttl"`
	ElectionExpiry         string `yaml:"election_expiry"`

	VoteCacheMaxVotesPerHash int    `yaml:"vote_cache_max_votes_per_hash"`
	VoteCacheMaxAge          string `yaml:"vote_cache_max_age"`

	CementerBatchBudget   string `yaml:"cementer_batch_budget"`
	CementerBatchFloor    int    `yaml:"cementer_batch_floor"`
	CementerShrinkPercent int    `yaml:"cementer_shrink_percent"`
	CementerGrowPercent   int    `yaml:"cementer_grow_percent"`

	OnlineRepsLiveWindow    string `yaml:"online_reps_live_window"`
	OnlineWeightSampleEvery string `yaml:"online_weight_sample_every"`
	OnlineWeightSampleCount int    `yaml:"online_weight_sample_count"`

	OptimisticGapThreshold uint64 `yaml:"optimistic_gap_threshold"`
	HintedWeightPercent    int    `yaml:"hinted_weight_percent"`

	LogLevel string `yaml:"log_level"`
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}, the same
// substitution syntax the teacher's anchor config loader supports.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		if value := os.Getenv(groups[1]); value != "" {
			return value
		}
		if len(groups) >= 4 {
			return groups[3]
		}
		return ""
	})
}

// LoadFile reads a YAML configuration document from path, substitutes
// ${VAR_NAME} references against the process environment, and
// overlays the parsed values onto the environment-variable defaults
// Load would otherwise produce: any field the file leaves unset (or
// sets to an empty/zero value) keeps its Load default rather than
// being zeroed out.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	expanded := substituteEnvVars(string(data))

	var fc fileConfig
	if err := yaml.Unmarshal([]byte(expanded), &fc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	overlayString(&cfg.NodeID, fc.NodeID)
	overlayString(&cfg.DataDir, fc.DataDir)
	overlayString(&cfg.MetricsAddr, fc.MetricsAddr)
	overlayString(&cfg.KVBackend, fc.KVBackend)
	overlayString(&cfg.DBName, fc.DBName)
	overlayString(&cfg.ArchiveDatabaseURL, fc.ArchiveDatabaseURL)
	overlayString(&cfg.LogLevel, fc.LogLevel)

	if fc.ArchiveRequired {
		cfg.ArchiveRequired = true
	}
	overlayInt(&cfg.ArchiveMaxOpenConns, fc.ArchiveMaxOpenConns)
	overlayInt(&cfg.ArchiveMaxIdleConns, fc.ArchiveMaxIdleConns)
	if d, err := overlayDuration(fc.ArchiveConnMaxLife); err != nil {
		return nil, err
	} else if d != 0 {
		cfg.ArchiveConnMaxLife = d
	}

	overlayUint64(&cfg.OnlineWeightMinimum, fc.OnlineWeightMinimum)
	overlayInt(&cfg.QuorumPercent, fc.QuorumPercent)
	overlayInt(&cfg.ActiveElectionsLimit, fc.ActiveElectionsLimit)
	if err := overlayDurationField(&cfg.ConfirmationRequestTTL, fc.ConfirmationRequestTTL); err != nil {
		return nil, err
	}
	if err := overlayDurationField(&cfg.ElectionExpiry, fc.ElectionExpiry); err != nil {
		return nil, err
	}

	overlayInt(&cfg.VoteCacheMaxVotesPerHash, fc.VoteCacheMaxVotesPerHash)
	if err := overlayDurationField(&cfg.VoteCacheMaxAge, fc.VoteCacheMaxAge); err != nil {
		return nil, err
	}

	if err := overlayDurationField(&cfg.CementerBatchBudget, fc.CementerBatchBudget); err != nil {
		return nil, err
	}
	overlayInt(&cfg.CementerBatchFloor, fc.CementerBatchFloor)
	overlayInt(&cfg.CementerShrinkPercent, fc.CementerShrinkPercent)
	overlayInt(&cfg.CementerGrowPercent, fc.CementerGrowPercent)

	if err := overlayDurationField(&cfg.OnlineRepsLiveWindow, fc.OnlineRepsLiveWindow); err != nil {
		return nil, err
	}
	if err := overlayDurationField(&cfg.OnlineWeightSampleEvery, fc.OnlineWeightSampleEvery); err != nil {
		return nil, err
	}
	overlayInt(&cfg.OnlineWeightSampleCount, fc.OnlineWeightSampleCount)

	overlayUint64(&cfg.OptimisticGapThreshold, fc.OptimisticGapThreshold)
	overlayInt(&cfg.HintedWeightPercent, fc.HintedWeightPercent)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overlayString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overlayInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func overlayUint64(dst *uint64, v uint64) {
	if v != 0 {
		*dst = v
	}
}

func overlayDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	return d, nil
}

func overlayDurationField(dst *time.Duration, s string) error {
	d, err := overlayDuration(s)
	if err != nil {
		return err
	}
	if d != 0 {
		*dst = d
	}
	return nil
}
