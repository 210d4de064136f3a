package infra

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Ensure sqlcipher driver is registered.
	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/focusfade/focusfade/internal/domain"
)

const (
	archiveDBName = "sessions.db"

	// secretAPIKey is the secrets-table key under which the AI API key
	// rests encrypted between runs.
	secretAPIKey = "ai_api_key"
)

// SQLCipherArchive implements domain.SessionArchive using a SQLCipher
// encrypted SQLite database. Completed sessions and secrets (the AI
// API key at rest) live here.
type SQLCipherArchive struct {
	db     *sql.DB
	dbPath string
}

// NewSQLCipherArchive opens (or creates) the encrypted archive.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewSQLCipherArchive(dataDir string, key []byte) (*SQLCipherArchive, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, archiveDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	a := &SQLCipherArchive{db: db, dbPath: dbPath}
	if err := a.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return a, nil
}

func (a *SQLCipherArchive) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		focus_task TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		ended_at INTEGER NOT NULL,
		app_stats TEXT NOT NULL,
		distraction_ms INTEGER NOT NULL,
		event_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS secrets (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`
	_, err := a.db.Exec(schema)
	return err
}

// SaveSession stores a completed session summary.
func (a *SQLCipherArchive) SaveSession(s domain.ArchivedSession) error {
	statsJSON, err := json.Marshal(s.AppStats)
	if err != nil {
		return fmt.Errorf("failed to encode app stats: %w", err)
	}

	_, err = a.db.Exec(`
		INSERT OR REPLACE INTO sessions (id, focus_task, started_at, ended_at, app_stats, distraction_ms, event_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.FocusTask, s.StartedAt.UnixMilli(), s.EndedAt.UnixMilli(),
		string(statsJSON), s.DistractionScore, s.EventCount,
	)
	return err
}

// Sessions returns archived sessions, newest first.
func (a *SQLCipherArchive) Sessions() ([]domain.ArchivedSession, error) {
	rows, err := a.db.Query(`
		SELECT id, focus_task, started_at, ended_at, app_stats, distraction_ms, event_count
		FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.ArchivedSession
	for rows.Next() {
		var s domain.ArchivedSession
		var startedAt, endedAt int64
		var statsJSON string
		if err := rows.Scan(&s.ID, &s.FocusTask, &startedAt, &endedAt,
			&statsJSON, &s.DistractionScore, &s.EventCount); err != nil {
			return nil, err
		}
		s.StartedAt = time.UnixMilli(startedAt)
		s.EndedAt = time.UnixMilli(endedAt)
		if err := json.Unmarshal([]byte(statsJSON), &s.AppStats); err != nil {
			return nil, fmt.Errorf("failed to decode app stats: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// GetSecret retrieves a secret by key.
func (a *SQLCipherArchive) GetSecret(key string) (string, error) {
	var value string
	err := a.db.QueryRow(`SELECT value FROM secrets WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("secret %q not found", key)
	}
	return value, err
}

// SetSecret stores a secret.
func (a *SQLCipherArchive) SetSecret(key, value string) error {
	now := time.Now().Unix()
	_, err := a.db.Exec(`INSERT OR REPLACE INTO secrets (key, value, created_at) VALUES (?, ?, ?)`,
		key, value, now)
	return err
}

// Close releases the database connection.
func (a *SQLCipherArchive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (a *SQLCipherArchive) Path() string {
	return a.dbPath
}

// SyncAPIKey reconciles the AI API key with the encrypted archive.
// A key from config or env wins and is persisted for later runs; with
// no configured key the stored one is used, so the key only ever has
// to be supplied once and never lives in a plain-text config file.
// An absent or unreadable stored key just means running without one.
func SyncAPIKey(archive domain.SessionArchive, configured string) (string, error) {
	if configured != "" {
		return configured, archive.SetSecret(secretAPIKey, configured)
	}

	stored, err := archive.GetSecret(secretAPIKey)
	if err != nil {
		return "", nil
	}
	return stored, nil
}

// Ensure SQLCipherArchive implements domain.SessionArchive.
var _ domain.SessionArchive = (*SQLCipherArchive)(nil)
