// Package storagetest holds the behavioural test suite every storage backend
// must pass. Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/partyplanner/internal/db/storage"
	"github.com/patric-chuzhbe/partyplanner/internal/models"
	"github.com/patric-chuzhbe/partyplanner/internal/party"
	"github.com/patric-chuzhbe/partyplanner/internal/user"
)

// Factory returns a fresh, empty storage. Run closes it when the subtest ends.
type Factory func(t *testing.T) storage.Storage

func newParty(id string) party.Party {
	return party.Party{
		ID:        id,
		Name:      "Team lunch " + id,
		StartDate: "2024-01-01",
		EndDate:   "2024-01-03",
		MenuItems: []string{"Pizza", "Salad", "Soup"},
	}
}

func mustCreateUser(t *testing.T, db storage.Storage, username string) *user.User {
	t.Helper()
	usr, err := db.CreateUser(context.Background(), &user.User{Username: username, PasswordHash: "hash-" + username})
	require.NoError(t, err)
	require.NotZero(t, usr.ID)

	return usr
}

func mustCreateParty(t *testing.T, db storage.Storage, userID int64, id string) *party.Party {
	t.Helper()
	created, err := db.CreateParty(context.Background(), userID, newParty(id))
	require.NoError(t, err)

	return created
}

// Run executes the whole suite against storages produced by newStorage.
func Run(t *testing.T, newStorage Factory) {
	setup := func(t *testing.T) storage.Storage {
		db := newStorage(t)
		t.Cleanup(func() {
			assert.NoError(t, db.Close())
		})
		return db
	}

	t.Run("users", func(t *testing.T) {
		db := setup(t)
		ctx := context.Background()

		alice := mustCreateUser(t, db, "alice")
		assert.Equal(t, "alice", alice.Username)

		_, err := db.CreateUser(ctx, &user.User{Username: "alice", PasswordHash: "other"})
		assert.ErrorIs(t, err, models.ErrUserAlreadyExists)

		found, err := db.GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, found.ID)
		assert.Equal(t, "hash-alice", found.PasswordHash)

		_, err = db.GetUserByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, models.ErrUserNotFound)

		bob := mustCreateUser(t, db, "bob")
		assert.NotEqual(t, alice.ID, bob.ID)
	})

	t.Run("create and list parties", func(t *testing.T) {
		db := setup(t)
		ctx := context.Background()
		alice := mustCreateUser(t, db, "alice")

		created := mustCreateParty(t, db, alice.ID, "party-1")
		assert.Equal(t, party.Selections{}, created.Selections)
		assert.False(t, created.CreatedAt.IsZero())

		parties, err := db.ListParties(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, parties, 1)
		assert.Equal(t, "party-1", parties[0].ID)
		assert.Equal(t, "Team lunch party-1", parties[0].Name)
		assert.Equal(t, "2024-01-01", parties[0].StartDate)
		assert.Equal(t, "2024-01-03", parties[0].EndDate)
		assert.Equal(t, []string{"Pizza", "Salad", "Soup"}, parties[0].MenuItems)
		assert.Equal(t, party.Selections{}, parties[0].Selections)

		_, err = db.CreateParty(ctx, alice.ID, newParty("party-1"))
		assert.ErrorIs(t, err, models.ErrPartyAlreadyExists)
	})

	t.Run("parties are listed newest first", func(t *testing.T) {
		db := setup(t)
		ctx := context.Background()
		alice := mustCreateUser(t, db, "alice")

		for i := 1; i <= 3; i++ {
			mustCreateParty(t, db, alice.ID, fmt.Sprintf("party-%d", i))
		}

		parties, err := db.ListParties(ctx, alice.ID)
		require.NoError(t, err)
		ids := []string{}
		for _, p := range parties {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, []string{"party-3", "party-2", "party-1"}, ids)
	})

	t.Run("ownership isolation", func(t *testing.T) {
		db := setup(t)
		ctx := context.Background()
		alice := mustCreateUser(t, db, "alice")
		bob := mustCreateUser(t, db, "bob")
		mustCreateParty(t, db, alice.ID, "party-a")

		parties, err := db.ListParties(ctx, bob.ID)
		require.NoError(t, err)
		assert.Empty(t, parties)

		_, err = db.GetParty(ctx, bob.ID, "party-a")
		assert.ErrorIs(t, err, models.ErrPartyNotFound)

		_, err = db.ReplaceSelections(ctx, bob.ID, "party-a", party.Selections{"2024-01-01": {"Pizza": "Mallory"}})
		assert.ErrorIs(t, err, models.ErrPartyNotFound)

		_, err = db.ClaimSelection(ctx, bob.ID, "party-a", "2024-01-01", "Pizza", "Mallory")
		assert.ErrorIs(t, err, models.ErrPartyNotFound)

		assert.ErrorIs(t, db.DeleteParty(ctx, bob.ID, "party-a"), models.ErrPartyNotFound)

		stored, err := db.GetParty(ctx, alice.ID, "party-a")
		require.NoError(t, err)
		assert.Equal(t, party.Selections{}, stored.Selections)
	})

	t.Run("replace selections round trip", func(t *testing.T) {
		db := setup(t)
		ctx := context.Background()
		alice := mustCreateUser(t, db, "alice")
		mustCreateParty(t, db, alice.ID, "party-1")

		selections := party.Selections{
			"2024-01-01": {"Pizza": "Alice", "Salad": "Bob"},
			"2024-01-02": {"Soup": "Carol"},
		}
		updated, err := db.ReplaceSelections(ctx, alice.ID, "party-1", selections)
		require.NoError(t, err)
		assert.Equal(t, selections, updated.Selections)

		parties, err := db.ListParties(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, parties, 1)
		assert.Equal(t, selections, parties[0].Selections)

		reset, err := db.ReplaceSelections(ctx, alice.ID, "party-1", party.Selections{})
		require.NoError(t, err)
		assert.Equal(t, party.Selections{}, reset.Selections)

		_, err = db.ReplaceSelections(ctx, alice.ID, "party-missing", selections)
		assert.ErrorIs(t, err, models.ErrPartyNotFound)
	})

	t.Run("whole-document writes from a stale read keep the last one", func(t *testing.T) {
		db := setup(t)
		ctx := context.Background()
		alice := mustCreateUser(t, db, "alice")
		mustCreateParty(t, db, alice.ID, "party-1")

		stale, err := db.GetParty(ctx, alice.ID, "party-1")
		require.NoError(t, err)

		first := stale.Selections.Clone()
		require.NoError(t, first.Claim("2024-01-01", "Pizza", "Alice"))
		second := stale.Selections.Clone()
		require.NoError(t, second.Claim("2024-01-02", "Soup", "Bob"))

		_, err = db.ReplaceSelections(ctx, alice.ID, "party-1", first)
		require.NoError(t, err)
		_, err = db.ReplaceSelections(ctx, alice.ID, "party-1", second)
		require.NoError(t, err)

		final, err := db.GetParty(ctx, alice.ID, "party-1")
		require.NoError(t, err)
		assert.Equal(t, second, final.Selections)
	})

	t.Run("claim selection", func(t *testing.T) {
		db := setup(t)
		ctx := context.Background()
		alice := mustCreateUser(t, db, "alice")
		mustCreateParty(t, db, alice.ID, "party-1")

		updated, err := db.ClaimSelection(ctx, alice.ID, "party-1", "2024-01-01", "Pizza", "Alice")
		require.NoError(t, err)
		assert.Equal(t, party.Selections{"2024-01-01": {"Pizza": "Alice"}}, updated.Selections)

		updated, err = db.ClaimSelection(ctx, alice.ID, "party-1", "2024-01-01", "Salad", "Bob")
		require.NoError(t, err)
		assert.Equal(t, party.Selections{"2024-01-01": {"Pizza": "Alice", "Salad": "Bob"}}, updated.Selections)

		_, err = db.ClaimSelection(ctx, alice.ID, "party-1", "2024-01-01", "Pizza", "Carol")
		assert.ErrorIs(t, err, models.ErrSelectionAlreadyClaimed)

		stored, err := db.GetParty(ctx, alice.ID, "party-1")
		require.NoError(t, err)
		assert.Equal(t, "Alice", stored.Selections["2024-01-01"]["Pizza"])

		_, err = db.ClaimSelection(ctx, alice.ID, "party-missing", "2024-01-01", "Pizza", "Carol")
		assert.ErrorIs(t, err, models.ErrPartyNotFound)
	})

	t.Run("claim on a day written as null", func(t *testing.T) {
		db := setup(t)
		ctx := context.Background()
		alice := mustCreateUser(t, db, "alice")
		mustCreateParty(t, db, alice.ID, "party-1")

		_, err := db.ReplaceSelections(ctx, alice.ID, "party-1", party.Selections{"2024-01-01": nil})
		require.NoError(t, err)

		updated, err := db.ClaimSelection(ctx, alice.ID, "party-1", "2024-01-01", "Pizza", "Alice")
		require.NoError(t, err)
		assert.Equal(t, party.Selections{"2024-01-01": {"Pizza": "Alice"}}, updated.Selections)

		parties, err := db.ListParties(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, parties, 1)
		assert.Equal(t, party.Selections{"2024-01-01": {"Pizza": "Alice"}}, parties[0].Selections)
	})

	t.Run("concurrent claims on one cell have exactly one winner", func(t *testing.T) {
		db := setup(t)
		ctx := context.Background()
		alice := mustCreateUser(t, db, "alice")
		mustCreateParty(t, db, alice.ID, "party-1")

		const claimants = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			winners   []string
			conflicts int
			failures  []error
		)
		for i := 0; i < claimants; i++ {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				_, err := db.ClaimSelection(ctx, alice.ID, "party-1", "2024-01-02", "Soup", name)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					winners = append(winners, name)
				case errors.Is(err, models.ErrSelectionAlreadyClaimed):
					conflicts++
				default:
					failures = append(failures, err)
				}
			}(fmt.Sprintf("guest-%d", i))
		}
		wg.Wait()

		require.Empty(t, failures)
		require.Len(t, winners, 1)
		assert.Equal(t, claimants-1, conflicts)

		stored, err := db.GetParty(ctx, alice.ID, "party-1")
		require.NoError(t, err)
		assert.Equal(t, party.Selections{"2024-01-02": {"Soup": winners[0]}}, stored.Selections)
	})

	t.Run("delete party", func(t *testing.T) {
		db := setup(t)
		ctx := context.Background()
		alice := mustCreateUser(t, db, "alice")
		mustCreateParty(t, db, alice.ID, "party-1")

		require.NoError(t, db.DeleteParty(ctx, alice.ID, "party-1"))

		_, err := db.GetParty(ctx, alice.ID, "party-1")
		assert.ErrorIs(t, err, models.ErrPartyNotFound)
		assert.ErrorIs(t, db.DeleteParty(ctx, alice.ID, "party-1"), models.ErrPartyNotFound)

		parties, err := db.ListParties(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, parties)
	})

	t.Run("ping", func(t *testing.T) {
		db := setup(t)
		assert.NoError(t, db.Ping(context.Background()))
	})
}
