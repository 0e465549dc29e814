// Package datasource persists load-order profiles in a local SQLite
// database. A profile is a named, ordered list of mods with their category
// assignment; saving one captures the current tree order so it can be
// restored later or shared between machines.
package datasource

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/modmill/modmill/pkg/model"
)

// ProfileEntry is one row of a saved load order.
type ProfileEntry struct {
	Position int
	ModID    model.NodeID
	Category string
	Disabled bool
}

// Profile is a named load order snapshot.
type Profile struct {
	Name      string
	CreatedAt time.Time
	Entries   []ProfileEntry
}

// Store wraps the profiles database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the profiles database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Read-mostly workload; mirror the pragmas that keep the TUI snappy.
	pragmas := []string{
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			// Non-fatal; older sqlite builds miss some pragmas.
			continue
		}
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			name       TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS profile_mods (
			profile  TEXT    NOT NULL REFERENCES profiles(name) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			mod_id   TEXT    NOT NULL,
			category TEXT    NOT NULL DEFAULT '',
			disabled INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (profile, position)
		);
	`)
	if err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// SaveProfile stores a profile, replacing any previous one with the same
// name. The write is transactional: a failed save leaves the old profile
// intact.
func (s *Store) SaveProfile(p Profile) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM profiles WHERE name = ?`, p.Name); err != nil {
		return fmt.Errorf("clearing old profile: %w", err)
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if _, err := tx.Exec(`INSERT INTO profiles (name, created_at) VALUES (?, ?)`,
		p.Name, createdAt.Unix()); err != nil {
		return fmt.Errorf("inserting profile: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO profile_mods (profile, position, mod_id, category, disabled) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range p.Entries {
		disabled := 0
		if e.Disabled {
			disabled = 1
		}
		if _, err := stmt.Exec(p.Name, e.Position, string(e.ModID), e.Category, disabled); err != nil {
			return fmt.Errorf("inserting entry %d: %w", e.Position, err)
		}
	}
	return tx.Commit()
}

// LoadProfile reads a profile by name. A missing profile returns
// sql.ErrNoRows wrapped with the name.
func (s *Store) LoadProfile(name string) (Profile, error) {
	p := Profile{Name: name}

	var createdAt int64
	err := s.db.QueryRow(`SELECT created_at FROM profiles WHERE name = ?`, name).Scan(&createdAt)
	if err != nil {
		return p, fmt.Errorf("profile %q: %w", name, err)
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()

	rows, err := s.db.Query(`
		SELECT position, mod_id, category, disabled
		FROM profile_mods WHERE profile = ? ORDER BY position
	`, name)
	if err != nil {
		return p, fmt.Errorf("profile %q entries: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e ProfileEntry
		var modID string
		var disabled int
		if err := rows.Scan(&e.Position, &modID, &e.Category, &disabled); err != nil {
			return p, fmt.Errorf("scanning entry: %w", err)
		}
		e.ModID = model.NodeID(modID)
		e.Disabled = disabled != 0
		p.Entries = append(p.Entries, e)
	}
	return p, rows.Err()
}

// ListProfiles returns the saved profile names, newest first.
func (s *Store) ListProfiles() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM profiles ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteProfile removes a profile and its entries.
func (s *Store) DeleteProfile(name string) error {
	if _, err := s.db.Exec(`DELETE FROM profiles WHERE name = ?`, name); err != nil {
		return fmt.Errorf("deleting profile %q: %w", name, err)
	}
	return nil
}

// SnapshotTree captures the current leaf order of a mod tree as profile
// entries, ready for SaveProfile.
func SnapshotTree(tr *model.Tree) []ProfileEntry {
	var entries []ProfileEntry
	for i, leaf := range tr.Leaves() {
		n := tr.Node(leaf)
		category := ""
		if parent, ok := tr.Parent(leaf); ok && parent != model.RootID {
			if p := tr.Node(parent); p != nil {
				category = p.Column(0)
			}
		}
		entries = append(entries, ProfileEntry{
			Position: i,
			ModID:    leaf,
			Category: category,
			Disabled: n.Flags.Has(model.FlagDisabled),
		})
	}
	return entries
}
