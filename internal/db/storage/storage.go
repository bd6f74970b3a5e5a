// Package storage declares the persistence contract shared by every backend
// of the party planner: PostgreSQL, SQLite, a JSON file and plain memory.
package storage

import (
	"context"

	"github.com/patric-chuzhbe/partyplanner/internal/party"
	"github.com/patric-chuzhbe/partyplanner/internal/user"
)

// Storage persists accounts and the parties they own. Every party operation
// is scoped by the owner's user ID: a party owned by someone else behaves
// exactly like a missing one and yields models.ErrPartyNotFound.
type Storage interface {
	// CreateUser stores a new account and returns it with the assigned ID.
	// It returns models.ErrUserAlreadyExists when the username is taken.
	CreateUser(ctx context.Context, usr *user.User) (*user.User, error)

	// GetUserByUsername returns models.ErrUserNotFound for an unknown username.
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)

	// ListParties returns the user's parties, most recently created first.
	ListParties(ctx context.Context, userID int64) ([]party.Party, error)

	GetParty(ctx context.Context, userID int64, partyID string) (*party.Party, error)

	// CreateParty stores the party with an empty selections document and the
	// creation time set by the backend. A duplicate party ID yields
	// models.ErrPartyAlreadyExists.
	CreateParty(ctx context.Context, userID int64, p party.Party) (*party.Party, error)

	// ReplaceSelections overwrites the whole selections document. Concurrent
	// callers are not coordinated: the last write wins.
	ReplaceSelections(
		ctx context.Context,
		userID int64,
		partyID string,
		selections party.Selections,
	) (*party.Party, error)

	// ClaimSelection atomically assigns the claimant to the (date, item) cell
	// if and only if the cell is empty. A taken cell yields
	// models.ErrSelectionAlreadyClaimed and leaves the document untouched.
	ClaimSelection(
		ctx context.Context,
		userID int64,
		partyID string,
		date string,
		item string,
		claimant string,
	) (*party.Party, error)

	DeleteParty(ctx context.Context, userID int64, partyID string) error

	Ping(ctx context.Context) error

	Close() error
}
