package journal

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// TTL configuration constants and defaults.
const (
	// DefaultTTLSeconds keeps successes for 7 days.
	DefaultTTLSeconds = 7 * 24 * 3600

	// MinTTLSeconds is the minimum allowed TTL (1 minute).
	MinTTLSeconds = 60

	// MaxTTLSeconds is the maximum allowed TTL (90 days).
	MaxTTLSeconds = 90 * 24 * 3600

	// EnvTTLSeconds overrides the TTL.
	EnvTTLSeconds = "BULKPORT_JOURNAL_TTL_SECONDS"

	// EnvJournalEnabled enables or disables the journal.
	EnvJournalEnabled = "BULKPORT_JOURNAL_ENABLED"

	// EnvJournalDir overrides the journal directory.
	EnvJournalDir = "BULKPORT_JOURNAL_DIR"
)

// ErrInvalidTTL is returned for TTLs outside the accepted range.
var ErrInvalidTTL = fmt.Errorf("TTL must be between %d and %d seconds", MinTTLSeconds, MaxTTLSeconds)

// ValidateTTL checks that seconds is within range.
func ValidateTTL(seconds int) error {
	if seconds < MinTTLSeconds || seconds > MaxTTLSeconds {
		return fmt.Errorf("%w: got %d", ErrInvalidTTL, seconds)
	}
	return nil
}

// TTLDuration converts seconds to a duration.
func TTLDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// GetTTLFromEnv returns the TTL from the environment, or fallback when unset or invalid.
func GetTTLFromEnv(fallback int) int {
	envVal := os.Getenv(EnvTTLSeconds)
	if envVal == "" {
		return fallback
	}
	ttl, err := strconv.Atoi(envVal)
	if err != nil || ValidateTTL(ttl) != nil {
		return fallback
	}
	return ttl
}

// GetEnabledFromEnv returns the enabled flag from the environment, or fallback.
func GetEnabledFromEnv(fallback bool) bool {
	envVal := os.Getenv(EnvJournalEnabled)
	if envVal == "" {
		return fallback
	}
	enabled, err := strconv.ParseBool(envVal)
	if err != nil {
		return fallback
	}
	return enabled
}

// GetDirFromEnv returns the journal directory from the environment, or fallback.
func GetDirFromEnv(fallback string) string {
	if dir := os.Getenv(EnvJournalDir); dir != "" {
		return dir
	}
	return fallback
}
