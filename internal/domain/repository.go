package domain

import (
	"context"
	"time"
)

// CaptureQuery selects a window of capture-service events.
type CaptureQuery struct {
	// ContentType is "ui" or "ocr".
	ContentType string

	// StartTime/EndTime bound the query window (inclusive).
	StartTime time.Time
	EndTime   time.Time

	// Limit caps the number of returned events.
	Limit int
}

// CaptureSource queries the external screen-capture service for
// recent activity events. An empty result is not an error.
type CaptureSource interface {
	Query(ctx context.Context, q CaptureQuery) ([]Activity, error)
}

// ModelClient sends a fully-formed prompt to a language model backend
// and returns its raw text response.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LogStore is the flat append-only focus log file.
// Implementation: JSON array on disk, rewritten wholesale on append
// (last-writer-wins, acceptable for single-process usage).
type LogStore interface {
	// All returns every record; a missing file yields an empty slice.
	All() ([]FocusLogRecord, error)

	// Append adds one record and rewrites the file.
	Append(rec FocusLogRecord) error

	// Path returns the log file path (for status output).
	Path() string
}

// SessionArchive persists frozen sessions and secrets.
// Implementation: SQLCipher encrypted SQLite database.
type SessionArchive interface {
	// SaveSession stores a completed session summary.
	SaveSession(s ArchivedSession) error

	// Sessions returns archived sessions, newest first.
	Sessions() ([]ArchivedSession, error)

	// GetSecret retrieves a secret by key.
	GetSecret(key string) (string, error)

	// SetSecret stores a secret.
	SetSecret(key, value string) error

	// Close releases the database connection.
	Close() error
}

// KeyProvider abstracts the source of the archive encryption key.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// Notifier delivers a user-facing focus alert.
// Delivery failures are logged by callers, never fatal.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// CaptureProbe checks the local capture service and host health.
type CaptureProbe interface {
	// IsCaptureRunning reports whether the capture service process exists.
	IsCaptureRunning() (bool, error)

	// Snapshot returns host health for the status surface.
	Snapshot() (HostSnapshot, error)
}
