package override

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/iwvelando/backlog-forecast/pkg/constants"
	"github.com/iwvelando/backlog-forecast/pkg/contour"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS contract_overrides (
	contract_id TEXT PRIMARY KEY,
	end_months INTEGER,
	contour TEXT,
	updated_at DATETIME NOT NULL
);
`

// SQLiteStore persists entries in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultPath returns the override database location under the XDG data home.
func DefaultPath() (string, error) {
	return xdg.DataFile(constants.DefaultOverrideDBName)
}

// OpenSQLite opens (creating if needed) the database at path in WAL mode.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create override directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open override database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize override schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the entry for contractID.
func (s *SQLiteStore) Get(ctx context.Context, contractID string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT end_months, contour FROM contract_overrides WHERE contract_id = ?`, contractID)

	var endMonths sql.NullInt64
	var contourName sql.NullString
	if err := row.Scan(&endMonths, &contourName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("failed to read override %s: %w", contractID, err)
	}
	return entryFromColumns(endMonths, contourName), true, nil
}

// List returns every stored entry.
func (s *SQLiteStore) List(ctx context.Context) (map[string]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT contract_id, end_months, contour FROM contract_overrides`)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]Entry)
	for rows.Next() {
		var id string
		var endMonths sql.NullInt64
		var contourName sql.NullString
		if err := rows.Scan(&id, &endMonths, &contourName); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		entries[id] = entryFromColumns(endMonths, contourName)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	return entries, nil
}

// Set upserts entry under contractID.
func (s *SQLiteStore) Set(ctx context.Context, contractID string, entry Entry) error {
	var endMonths sql.NullInt64
	if entry.EndMonths != nil {
		endMonths = sql.NullInt64{Int64: int64(*entry.EndMonths), Valid: true}
	}
	var contourName sql.NullString
	if entry.Contour != nil {
		contourName = sql.NullString{String: entry.Contour.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contract_overrides (contract_id, end_months, contour, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(contract_id) DO UPDATE SET
			end_months = excluded.end_months,
			contour = excluded.contour,
			updated_at = excluded.updated_at
	`, contractID, endMonths, contourName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write override %s: %w", contractID, err)
	}
	return nil
}

// Delete removes the entry for contractID.
func (s *SQLiteStore) Delete(ctx context.Context, contractID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM contract_overrides WHERE contract_id = ?`, contractID); err != nil {
		return fmt.Errorf("failed to delete override %s: %w", contractID, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Unparseable contour names stored by another version are dropped, leaving
// the contract in automatic mode.
func entryFromColumns(endMonths sql.NullInt64, contourName sql.NullString) Entry {
	var entry Entry
	if endMonths.Valid {
		entry.EndMonths = IntPtr(int(endMonths.Int64))
	}
	if contourName.Valid {
		if t, err := contour.Parse(contourName.String); err == nil {
			entry.Contour = &t
		}
	}
	return entry
}
