// Package mockstorage provides a testify-based mock implementation
// of the party storage used by the service and router packages.
// It is used for unit testing by simulating storage behavior, including
// failures that the real backends cannot be made to produce on demand.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/partyplanner/internal/party"
	"github.com/patric-chuzhbe/partyplanner/internal/user"
)

// StorageMock is a testify mock that implements storage.Storage.
type StorageMock struct {
	mock.Mock
}

func partyResult(args mock.Arguments) (*party.Party, error) {
	result, _ := args.Get(0).(*party.Party)
	return result, args.Error(1)
}

// CreateUser mocks storing a new account.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) (*user.User, error) {
	args := m.Called(ctx, usr)
	result, _ := args.Get(0).(*user.User)
	return result, args.Error(1)
}

// GetUserByUsername mocks an account lookup.
func (m *StorageMock) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	args := m.Called(ctx, username)
	result, _ := args.Get(0).(*user.User)
	return result, args.Error(1)
}

// ListParties mocks fetching every party of the user.
func (m *StorageMock) ListParties(ctx context.Context, userID int64) ([]party.Party, error) {
	args := m.Called(ctx, userID)
	result, _ := args.Get(0).([]party.Party)
	return result, args.Error(1)
}

// GetParty mocks fetching a single owned party.
func (m *StorageMock) GetParty(ctx context.Context, userID int64, partyID string) (*party.Party, error) {
	return partyResult(m.Called(ctx, userID, partyID))
}

// CreateParty mocks storing a new party.
func (m *StorageMock) CreateParty(ctx context.Context, userID int64, p party.Party) (*party.Party, error) {
	return partyResult(m.Called(ctx, userID, p))
}

// ReplaceSelections mocks overwriting the selections document.
func (m *StorageMock) ReplaceSelections(
	ctx context.Context,
	userID int64,
	partyID string,
	selections party.Selections,
) (*party.Party, error) {
	return partyResult(m.Called(ctx, userID, partyID, selections))
}

// ClaimSelection mocks the atomic per-cell claim.
func (m *StorageMock) ClaimSelection(
	ctx context.Context,
	userID int64,
	partyID string,
	date string,
	item string,
	claimant string,
) (*party.Party, error) {
	return partyResult(m.Called(ctx, userID, partyID, date, item, claimant))
}

// DeleteParty mocks removing a party.
func (m *StorageMock) DeleteParty(ctx context.Context, userID int64, partyID string) error {
	args := m.Called(ctx, userID, partyID)
	return args.Error(0)
}

// Ping mocks the health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing the storage.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
