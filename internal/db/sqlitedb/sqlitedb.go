// Package sqlitedb provides an embedded, file-based SQLite implementation of
// the party storage using the pure-Go modernc.org/sqlite driver.
package sqlitedb

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/patric-chuzhbe/partyplanner/internal/models"
	"github.com/patric-chuzhbe/partyplanner/internal/party"
	"github.com/patric-chuzhbe/partyplanner/internal/user"
)

// Timestamps are stored as fixed-width UTC text so that they sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const maxClaimAttempts = 5

const partyColumns = `party_id, name, start_date, end_date, menu_items, selections, created_at`

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// SQLiteDB is a SQLite-backed implementation of the party storage.
type SQLiteDB struct {
	database      *sql.DB
	claimAttempts int
}

type rowScanner interface {
	Scan(dest ...any) error
}

// New opens (or creates) the SQLite database file and applies the embedded migrations.
func New(ctx context.Context, path string) (*SQLiteDB, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/New(): error while `sql.Open()` calling: %w", err)
	}

	// A single connection keeps the pragma in effect and serializes writers.
	database.SetMaxOpenConns(1)

	if _, err := database.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/New(): error while enabling foreign keys: %w", err)
	}

	migrations, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/New(): error while `fs.Sub()` calling: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, database, migrations)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/New(): error while `goose.NewProvider()` calling: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/New(): error while `provider.Up()` calling: %w", err)
	}

	return &SQLiteDB{database: database, claimAttempts: maxClaimAttempts}, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func now() string {
	return time.Now().UTC().Format(timestampLayout)
}

func parseTimestamp(value string) (time.Time, error) {
	return time.Parse(timestampLayout, value)
}

func scanParty(row rowScanner) (*party.Party, string, error) {
	var (
		result     party.Party
		menuItems  string
		selections string
		createdAt  string
	)
	err := row.Scan(
		&result.ID,
		&result.Name,
		&result.StartDate,
		&result.EndDate,
		&menuItems,
		&selections,
		&createdAt,
	)
	if err != nil {
		return nil, "", err
	}

	if err := json.Unmarshal([]byte(menuItems), &result.MenuItems); err != nil {
		return nil, "", fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/scanParty(): error while decoding menu_items: %w", err)
	}
	if err := json.Unmarshal([]byte(selections), &result.Selections); err != nil {
		return nil, "", fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/scanParty(): error while decoding selections: %w", err)
	}
	if result.Selections == nil {
		result.Selections = party.Selections{}
	}
	if result.MenuItems == nil {
		result.MenuItems = []string{}
	}
	if result.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, "", err
	}

	return &result, selections, nil
}

// getPartyWithRawSelections also returns the selections column exactly as
// stored, for compare-and-set updates.
func (db *SQLiteDB) getPartyWithRawSelections(
	ctx context.Context,
	userID int64,
	partyID string,
) (*party.Party, string, error) {
	result, raw, err := scanParty(db.database.QueryRowContext(
		ctx,
		`SELECT `+partyColumns+` FROM parties WHERE party_id = ? AND user_id = ?`,
		partyID,
		userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", models.ErrPartyNotFound
		}
		return nil, "", fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/getPartyWithRawSelections(): error while `scanParty()` calling: %w", err)
	}

	return result, raw, nil
}

func (db *SQLiteDB) CreateUser(ctx context.Context, usr *user.User) (*user.User, error) {
	result := *usr
	createdAt := now()
	sqlResult, err := db.database.ExecContext(
		ctx,
		`INSERT INTO users (username, password, created_at) VALUES (?, ?, ?)`,
		usr.Username,
		usr.PasswordHash,
		createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/CreateUser(): error while `ExecContext()` calling: %w", err)
	}

	if result.ID, err = sqlResult.LastInsertId(); err != nil {
		return nil, err
	}
	if result.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}

	return &result, nil
}

func (db *SQLiteDB) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	var (
		result    user.User
		createdAt string
	)
	err := db.database.QueryRowContext(
		ctx,
		`SELECT id, username, password, created_at FROM users WHERE username = ?`,
		username,
	).Scan(&result.ID, &result.Username, &result.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/GetUserByUsername(): error while `QueryRowContext()` calling: %w", err)
	}

	if result.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}

	return &result, nil
}

func (db *SQLiteDB) ListParties(ctx context.Context, userID int64) ([]party.Party, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT `+partyColumns+` FROM parties WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/ListParties(): error while `QueryContext()` calling: %w", err)
	}
	defer rows.Close()

	result := []party.Party{}
	for rows.Next() {
		p, _, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (db *SQLiteDB) GetParty(ctx context.Context, userID int64, partyID string) (*party.Party, error) {
	result, _, err := db.getPartyWithRawSelections(ctx, userID, partyID)

	return result, err
}

func (db *SQLiteDB) CreateParty(ctx context.Context, userID int64, p party.Party) (*party.Party, error) {
	result := p.Clone()
	if result.MenuItems == nil {
		result.MenuItems = []string{}
	}
	result.Selections = party.Selections{}

	menuItemsJSON, err := json.Marshal(result.MenuItems)
	if err != nil {
		return nil, err
	}

	createdAt := now()
	_, err = db.database.ExecContext(
		ctx,
		`
			INSERT INTO parties (party_id, user_id, name, start_date, end_date, menu_items, selections, created_at)
				VALUES (?, ?, ?, ?, ?, ?, '{}', ?)
		`,
		p.ID,
		userID,
		p.Name,
		p.StartDate,
		p.EndDate,
		string(menuItemsJSON),
		createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrPartyAlreadyExists
		}
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/CreateParty(): error while `ExecContext()` calling: %w", err)
	}

	if result.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}

	return &result, nil
}

func (db *SQLiteDB) ReplaceSelections(
	ctx context.Context,
	userID int64,
	partyID string,
	selections party.Selections,
) (*party.Party, error) {
	if selections == nil {
		selections = party.Selections{}
	}
	selectionsJSON, err := json.Marshal(selections)
	if err != nil {
		return nil, err
	}

	result, _, err := scanParty(db.database.QueryRowContext(
		ctx,
		`UPDATE parties SET selections = ? WHERE party_id = ? AND user_id = ? RETURNING `+partyColumns,
		string(selectionsJSON),
		partyID,
		userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrPartyNotFound
		}
		return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/ReplaceSelections(): error while `scanParty()` calling: %w", err)
	}

	return result, nil
}

// ClaimSelection reads the document, claims the cell locally and writes it
// back only if the stored document is still the one that was read. When the
// document keeps changing under it the claim gives up with
// models.ErrStorageBusy.
func (db *SQLiteDB) ClaimSelection(
	ctx context.Context,
	userID int64,
	partyID string,
	date string,
	item string,
	claimant string,
) (*party.Party, error) {
	for attempt := 0; attempt < db.claimAttempts; attempt++ {
		current, raw, err := db.getPartyWithRawSelections(ctx, userID, partyID)
		if err != nil {
			return nil, err
		}

		updated := current.Selections.Clone()
		if err := updated.Claim(date, item, claimant); err != nil {
			return nil, models.ErrSelectionAlreadyClaimed
		}
		updatedJSON, err := json.Marshal(updated)
		if err != nil {
			return nil, err
		}

		sqlResult, err := db.database.ExecContext(
			ctx,
			`UPDATE parties SET selections = ? WHERE party_id = ? AND user_id = ? AND selections = ?`,
			string(updatedJSON),
			partyID,
			userID,
			raw,
		)
		if err != nil {
			return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/ClaimSelection(): error while `ExecContext()` calling: %w", err)
		}
		affected, err := sqlResult.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 1 {
			current.Selections = updated
			return current, nil
		}
	}

	return nil, fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/ClaimSelection(): %d attempts lost the race: %w", db.claimAttempts, models.ErrStorageBusy)
}

func (db *SQLiteDB) DeleteParty(ctx context.Context, userID int64, partyID string) error {
	result, err := db.database.ExecContext(
		ctx,
		`DELETE FROM parties WHERE party_id = ? AND user_id = ?`,
		partyID,
		userID,
	)
	if err != nil {
		return fmt.Errorf("in internal/db/sqlitedb/sqlitedb.go/DeleteParty(): error while `ExecContext()` calling: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrPartyNotFound
	}

	return nil
}

func (db *SQLiteDB) Ping(ctx context.Context) error {
	return db.database.PingContext(ctx)
}

func (db *SQLiteDB) Close() error {
	return db.database.Close()
}
