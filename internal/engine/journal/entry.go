package journal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Entry records one row that was imported successfully.
type Entry struct {
	// Key is the SHA256 hash of the row's canonical JSON.
	Key string `json:"key"`

	// Row is the sheet row number the record came from.
	Row int `json:"row"`

	// RunID identifies the import run that created the record.
	RunID string `json:"run_id,omitempty"`

	// RecordedAt is when the success was recorded.
	RecordedAt time.Time `json:"recorded_at"`

	// ExpiresAt is when the entry stops counting.
	ExpiresAt time.Time `json:"expires_at"`
}

// NewEntry creates an entry that expires ttl after now.
func NewEntry(key string, row int, runID string, ttl time.Duration) Entry {
	now := time.Now().UTC()
	return Entry{
		Key:        key,
		Row:        row,
		RunID:      runID,
		RecordedAt: now,
		ExpiresAt:  now.Add(ttl),
	}
}

// IsExpired reports whether the entry has outlived its TTL.
func (e Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Key hashes a record. encoding/json sorts map keys, so equal records always
// produce equal keys regardless of column order in the source sheet.
func Key(record map[string]any) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encoding record for journal key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// entityFile is the on-disk layout of one entity's journal.
type entityFile struct {
	Entity  string           `json:"entity"`
	Entries map[string]Entry `json:"entries"`
}
