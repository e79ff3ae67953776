// Package activity records what users did to datasets: downloads, uploads,
// loads and clears. The log is informational; recording failures are logged
// by callers and never fail the triggering operation.
package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Action names a recorded operation.
type Action string

const (
	ActionDownload     Action = "download"
	ActionUpload       Action = "upload"
	ActionLoad         Action = "load"
	ActionClearDataset Action = "clear_dataset"
	ActionClearStaging Action = "clear_staging"
)

// Entry is one recorded operation. Error is empty on success.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Action    Action    `json:"action"`
	Target    string    `json:"target,omitempty"`
	Rows      int       `json:"rows,omitempty"`
	Cols      int       `json:"cols,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Failed reports whether the operation failed.
func (e Entry) Failed() bool { return e.Error != "" }

// Store persists entries.
type Store interface {
	Record(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// DefaultRecentLimit caps Recent when callers pass a non-positive limit.
const DefaultRecentLimit = 50

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the store for driver. dsn is ignored for the memory driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", DriverMemory:
		return NewMemoryStore(0), nil
	case DriverSQLite:
		s, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres, "postgresql", "pgx":
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown activity driver %q", driver)
	}
}

// prepare fills ID and At when unset.
func prepare(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return e
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return limit
}
