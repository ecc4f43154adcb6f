// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as the database path, repository data root, commit policy, locking
// policy, and logging.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-translate-backend/internal/sysutil"
)

// LockConfig defines the advisory translation-lock policy.
type LockConfig struct {
	AutoLock bool          // AUTO_LOCK: lock on interactive edits
	AutoTime time.Duration // AUTO_LOCK_TIME: lifetime of automatic locks
	Time     time.Duration // LOCK_TIME: lifetime of explicit locks
}

// CommitConfig defines the repository commit policy.
type CommitConfig struct {
	Lazy         bool          // LAZY_COMMITS: defer commits until forced
	PushOnCommit bool          // PUSH_ON_COMMIT: default push policy for new projects
	Message      string        // COMMIT_MESSAGE: default commit message template
	RetryDelay   time.Duration // COMMIT_RETRY_DELAY: wait before retrying a busy repository
	PendingAge   time.Duration // COMMIT_PENDING_AGE: age after which deferred commits are swept
}

// Config holds all configuration values for the application.
type Config struct {
	// Storage
	DBPath   string // SQLite path
	DataRoot string // root directory holding the backing repositories

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Sync
	SyncInterval time.Duration // SYNC_INTERVAL: period of the reconcile loop

	// Policy
	Lock               LockConfig
	Commit             CommitConfig
	SetTranslationTeam bool   // SET_TRANSLATION_TEAM: maintain team headers
	ReportSourceBugs   string // REPORT_SOURCE_BUGS: default bug-report address

	// Notifications
	NotifyRPS   float64 // NOTIFY_RPS: new-string events per second (>= 0)
	NotifyBurst int     // NOTIFY_BURST: event bucket size (>= 1)
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Storage
		DBPath:   getenv("DB_PATH", "translate.db"),
		DataRoot: getenv("DATA_ROOT", "data/repos"),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// Sync
		SyncInterval: getdur("SYNC_INTERVAL", 5*time.Minute),

		// Policy
		Lock: LockConfig{
			AutoLock: getbool("AUTO_LOCK", true),
			AutoTime: getdur("AUTO_LOCK_TIME", time.Minute),
			Time:     getdur("LOCK_TIME", 15*time.Minute),
		},
		Commit: CommitConfig{
			Lazy:         getbool("LAZY_COMMITS", true),
			PushOnCommit: getbool("PUSH_ON_COMMIT", false),
			Message: getenv("COMMIT_MESSAGE",
				"Translated using {project} ({language_name})"),
			RetryDelay: getdur("COMMIT_RETRY_DELAY", 10*time.Second),
			PendingAge: getdur("COMMIT_PENDING_AGE", 24*time.Hour),
		},
		SetTranslationTeam: getbool("SET_TRANSLATION_TEAM", true),
		ReportSourceBugs:   getenv("REPORT_SOURCE_BUGS", ""),

		// Notifications
		NotifyRPS:   getfloat("NOTIFY_RPS", 5.0),
		NotifyBurst: getint("NOTIFY_BURST", 10),
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.DataRoot) == "" {
		return cfg, errors.New("DATA_ROOT must not be empty")
	}
	if cfg.SyncInterval <= 0 {
		return cfg, errors.New("SYNC_INTERVAL must be a positive duration")
	}
	if cfg.Lock.AutoTime <= 0 || cfg.Lock.Time <= 0 {
		return cfg, errors.New("lock lifetimes must be positive durations")
	}
	if cfg.Commit.RetryDelay <= 0 {
		return cfg, errors.New("COMMIT_RETRY_DELAY must be a positive duration")
	}
	if cfg.Commit.PendingAge <= 0 {
		return cfg, errors.New("COMMIT_PENDING_AGE must be a positive duration")
	}
	if strings.TrimSpace(cfg.Commit.Message) == "" {
		return cfg, errors.New("COMMIT_MESSAGE must not be empty")
	}
	if cfg.NotifyRPS < 0 {
		return cfg, errors.New("NOTIFY_RPS must be >= 0")
	}
	if cfg.NotifyBurst < 1 {
		return cfg, errors.New("NOTIFY_BURST must be >= 1")
	}

	return cfg, nil
}

// ---- env helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if sysutil.IsTruthy(v) {
			return true
		}
		if sysutil.IsFalsy(v) {
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
