// Package postgresdb provides a PostgreSQL-based implementation of the party
// storage. The schema is managed by goose migrations embedded in the binary,
// and either the pgx or the lib/pq driver can be used.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/partyplanner/internal/models"
	"github.com/patric-chuzhbe/partyplanner/internal/party"
	"github.com/patric-chuzhbe/partyplanner/internal/user"
)

const (
	// DriverPgx selects github.com/jackc/pgx/v5/stdlib.
	DriverPgx = "pgx"

	// DriverPQ selects github.com/lib/pq.
	DriverPQ = "postgres"

	uniqueViolationCode = "23505"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const partyColumns = `
	party_id,
	name,
	to_char(start_date, 'YYYY-MM-DD'),
	to_char(end_date, 'YYYY-MM-DD'),
	menu_items::text,
	selections::text,
	created_at
`

// PostgresDB is a PostgreSQL-backed implementation of the party storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset drops every table before migrating. Tests use it to start from a clean schema.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New connects to PostgreSQL with the given driver, verifies the connection
// within connectionTimeout and applies the embedded migrations.
func New(
	ctx context.Context,
	driver string,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if driver != DriverPgx && driver != DriverPQ {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): unsupported driver %q", driver)
	}

	database, err := sql.Open(driver, databaseDSN)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `sql.Open()` calling: %w", err)
	}

	result := newWithDB(database, connectionTimeout)

	if err := result.Ping(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `result.Ping()` calling: %w", err)
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w", err)
		}
	}

	if err := result.migrate(ctx); err != nil {
		_ = database.Close()
		return nil, err
	}

	return result, nil
}

func newWithDB(database *sql.DB, connectionTimeout time.Duration) *PostgresDB {
	return &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}
}

func (db *PostgresDB) migrate(ctx context.Context) error {
	migrations, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/migrate(): error while `fs.Sub()` calling: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db.database, migrations)
	if err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/migrate(): error while `goose.NewProvider()` calling: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/migrate(): error while `provider.Up()` calling: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode
	}

	return false
}

func scanParty(row rowScanner) (*party.Party, error) {
	var (
		result     party.Party
		menuItems  string
		selections string
	)
	err := row.Scan(
		&result.ID,
		&result.Name,
		&result.StartDate,
		&result.EndDate,
		&menuItems,
		&selections,
		&result.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(menuItems), &result.MenuItems); err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/scanParty(): error while decoding menu_items: %w", err)
	}
	if err := json.Unmarshal([]byte(selections), &result.Selections); err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/scanParty(): error while decoding selections: %w", err)
	}
	if result.Selections == nil {
		result.Selections = party.Selections{}
	}
	if result.MenuItems == nil {
		result.MenuItems = []string{}
	}

	return &result, nil
}

func queryParty(ctx context.Context, database queryer, query string, args ...any) (*party.Party, error) {
	result, err := scanParty(database.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrPartyNotFound
		}
		return nil, err
	}

	return result, nil
}

// CreateUser inserts a new account and returns it with the assigned ID.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User) (*user.User, error) {
	result := *usr
	err := db.database.QueryRowContext(
		ctx,
		`INSERT INTO users (username, password) VALUES ($1, $2) RETURNING id, created_at`,
		usr.Username,
		usr.PasswordHash,
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/CreateUser(): error while `QueryRowContext()` calling: %w", err)
	}

	return &result, nil
}

// GetUserByUsername fetches an account by its username.
func (db *PostgresDB) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	var result user.User
	err := db.database.QueryRowContext(
		ctx,
		`SELECT id, username, password, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&result.ID, &result.Username, &result.PasswordHash, &result.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/GetUserByUsername(): error while `QueryRowContext()` calling: %w", err)
	}

	return &result, nil
}

// ListParties returns the user's parties, most recently created first.
func (db *PostgresDB) ListParties(ctx context.Context, userID int64) ([]party.Party, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT `+partyColumns+` FROM parties WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/ListParties(): error while `QueryContext()` calling: %w", err)
	}
	defer rows.Close()

	result := []party.Party{}
	for rows.Next() {
		p, err := scanParty(rows)
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

// GetParty fetches one of the user's parties.
func (db *PostgresDB) GetParty(ctx context.Context, userID int64, partyID string) (*party.Party, error) {
	return queryParty(
		ctx,
		db.database,
		`SELECT `+partyColumns+` FROM parties WHERE party_id = $1 AND user_id = $2`,
		partyID,
		userID,
	)
}

// CreateParty inserts the party with an empty selections document.
func (db *PostgresDB) CreateParty(ctx context.Context, userID int64, p party.Party) (*party.Party, error) {
	menuItems := p.MenuItems
	if menuItems == nil {
		menuItems = []string{}
	}
	menuItemsJSON, err := json.Marshal(menuItems)
	if err != nil {
		return nil, err
	}

	result, err := queryParty(
		ctx,
		db.database,
		`
			INSERT INTO parties (party_id, user_id, name, start_date, end_date, menu_items, selections)
				VALUES ($1, $2, $3, $4::text::date, $5::text::date, $6::text::jsonb, '{}'::jsonb)
				RETURNING `+partyColumns,
		p.ID,
		userID,
		p.Name,
		p.StartDate,
		p.EndDate,
		string(menuItemsJSON),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrPartyAlreadyExists
		}
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/CreateParty(): error while `queryParty()` calling: %w", err)
	}

	return result, nil
}

// ReplaceSelections overwrites the whole selections document in one statement.
func (db *PostgresDB) ReplaceSelections(
	ctx context.Context,
	userID int64,
	partyID string,
	selections party.Selections,
) (*party.Party, error) {
	selectionsJSON, err := json.Marshal(selections.Clone())
	if err != nil {
		return nil, err
	}

	return queryParty(
		ctx,
		db.database,
		`
			UPDATE parties
				SET selections = $3::text::jsonb
				WHERE party_id = $1 AND user_id = $2
				RETURNING `+partyColumns,
		partyID,
		userID,
		string(selectionsJSON),
	)
}

// ClaimSelection sets selections[date][item] in a single conditional UPDATE.
// The row lock taken by UPDATE serializes concurrent claims, and the
// predicate is re-evaluated against the newest row version, so at most one
// claim of a cell can succeed. A day that is not a JSON object is replaced
// by one, since || would otherwise turn it into an array.
func (db *PostgresDB) ClaimSelection(
	ctx context.Context,
	userID int64,
	partyID string,
	date string,
	item string,
	claimant string,
) (*party.Party, error) {
	result, err := queryParty(
		ctx,
		db.database,
		`
			UPDATE parties
				SET selections = jsonb_set(
					selections,
					ARRAY[$3::text],
					CASE
						WHEN jsonb_typeof(selections -> $3::text) = 'object' THEN selections -> $3::text
						ELSE '{}'::jsonb
					END || jsonb_build_object($4::text, $5::text)
				)
				WHERE party_id = $1
					AND user_id = $2
					AND NOT COALESCE((selections -> $3::text) ? $4::text, false)
				RETURNING `+partyColumns,
		partyID,
		userID,
		date,
		item,
		claimant,
	)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, models.ErrPartyNotFound) {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/ClaimSelection(): error while `queryParty()` calling: %w", err)
	}

	exists, err := db.partyExists(ctx, userID, partyID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrSelectionAlreadyClaimed
	}

	return nil, models.ErrPartyNotFound
}

func (db *PostgresDB) partyExists(ctx context.Context, userID int64, partyID string) (bool, error) {
	var exists bool
	err := db.database.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM parties WHERE party_id = $1 AND user_id = $2)`,
		partyID,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/partyExists(): error while `QueryRowContext()` calling: %w", err)
	}

	return exists, nil
}

// DeleteParty removes one of the user's parties.
func (db *PostgresDB) DeleteParty(ctx context.Context, userID int64, partyID string) error {
	result, err := db.database.ExecContext(
		ctx,
		`DELETE FROM parties WHERE party_id = $1 AND user_id = $2`,
		partyID,
		userID,
	)
	if err != nil {
		return fmt.Errorf("in internal/db/postgresdb/postgresdb.go/DeleteParty(): error while `ExecContext()` calling: %w", err)
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

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	err := db.database.Close()
	if err != nil {
		return err
	}

	return nil
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}
