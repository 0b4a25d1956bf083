// Package settings persists the agent configuration between runs in a small
// SQLite key/value table. Values survive restarts and are loaded with
// defaults applied for any missing key.
package settings

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"
)

const (
	// DefaultPrompt seeds a fresh installation.
	DefaultPrompt = "You are a helpful voice assistant. Please respond to the user's queries in a friendly and professional manner."

	// DefaultInstructions is the opening guidance sent with each call.
	DefaultInstructions = "Greet the user and ask how you can assist them today. Be concise and helpful in your responses."

	// DefaultHistoryLimit is how many prompt history entries are fetched.
	DefaultHistoryLimit = 5
)

const (
	keyPrompt       = "agent_prompt"
	keyInstructions = "agent_instructions"
	keyHistoryLimit = "max_history_count"
)

// Settings is the persisted agent configuration.
type Settings struct {
	Prompt       string
	Instructions string
	HistoryLimit int
}

// Defaults returns a Settings with every field at its default.
func Defaults() Settings {
	return Settings{
		Prompt:       DefaultPrompt,
		Instructions: DefaultInstructions,
		HistoryLimit: DefaultHistoryLimit,
	}
}

// Store is a SQLite-backed settings store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the settings database at path. The parent
// directory is created when missing.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("settings path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create settings directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open settings database: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create settings table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the persisted settings with defaults filled in for missing or
// unusable values. A partially written store never blocks startup.
func (s *Store) Load() (Settings, error) {
	out := Defaults()

	if v, ok, err := s.get(keyPrompt); err != nil {
		return Settings{}, err
	} else if ok && v != "" {
		out.Prompt = v
	}
	if v, ok, err := s.get(keyInstructions); err != nil {
		return Settings{}, err
	} else if ok && v != "" {
		out.Instructions = v
	}
	if v, ok, err := s.get(keyHistoryLimit); err != nil {
		return Settings{}, err
	} else if ok {
		if n, convErr := strconv.Atoi(v); convErr == nil && n > 0 {
			out.HistoryLimit = n
		}
	}
	return out, nil
}

// Save persists all fields. Empty prompt or instructions revert to defaults
// on the next Load rather than being stored.
func (s *Store) Save(settings Settings) error {
	if err := s.set(keyPrompt, settings.Prompt); err != nil {
		return err
	}
	if err := s.set(keyInstructions, settings.Instructions); err != nil {
		return err
	}
	limit := settings.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.set(keyHistoryLimit, strconv.Itoa(limit))
}

// SeedHistoryLimit stores a history limit only when none was persisted yet,
// so an environment-provided default applies to fresh installations without
// overriding a saved preference.
func (s *Store) SeedHistoryLimit(limit int) error {
	if limit <= 0 {
		return nil
	}
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		keyHistoryLimit, strconv.Itoa(limit),
	)
	if err != nil {
		return fmt.Errorf("seed setting %s: %w", keyHistoryLimit, err)
	}
	return nil
}

// Reset deletes every stored value so Load returns pure defaults.
func (s *Store) Reset() error {
	if _, err := s.db.Exec(`DELETE FROM settings`); err != nil {
		return fmt.Errorf("reset settings: %w", err)
	}
	return nil
}

func (s *Store) get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}
