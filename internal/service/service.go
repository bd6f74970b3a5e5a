// Package service holds the party business rules that sit between the HTTP
// router and the storage backends: input checks, the claim preconditions and
// the reset operation.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/partyplanner/internal/models"
	"github.com/patric-chuzhbe/partyplanner/internal/party"
)

type partyReader interface {
	ListParties(ctx context.Context, userID int64) ([]party.Party, error)

	GetParty(ctx context.Context, userID int64, partyID string) (*party.Party, error)
}

type partyWriter interface {
	CreateParty(ctx context.Context, userID int64, p party.Party) (*party.Party, error)

	ReplaceSelections(
		ctx context.Context,
		userID int64,
		partyID string,
		selections party.Selections,
	) (*party.Party, error)

	ClaimSelection(
		ctx context.Context,
		userID int64,
		partyID string,
		date string,
		item string,
		claimant string,
	) (*party.Party, error)

	DeleteParty(ctx context.Context, userID int64, partyID string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	partyReader
	partyWriter
	pinger
}

// ErrInvalidInput is returned when a request is well-formed JSON but breaks a party rule.
var ErrInvalidInput = errors.New("invalid input")

// ErrPartyNotFound is re-exported for callers that only import the service.
var ErrPartyNotFound = models.ErrPartyNotFound

type Service struct {
	db storage
}

func New(db storage) *Service {
	return &Service{db: db}
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}

func (s *Service) ListParties(ctx context.Context, userID int64) ([]party.Party, error) {
	return s.db.ListParties(ctx, userID)
}

func (s *Service) GetParty(ctx context.Context, userID int64, partyID string) (*party.Party, error) {
	return s.db.GetParty(ctx, userID, partyID)
}

// CreateParty stores a new party for the user. Name and menu items are
// trimmed; blank menu items are rejected. A start date after the end date is
// accepted and simply yields an empty date range; a longer range than
// party.MaxDays is not.
func (s *Service) CreateParty(ctx context.Context, userID int64, p party.Party) (*party.Party, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	if p.ID == "" {
		return nil, invalidInput("party id is required")
	}
	if p.Name == "" {
		return nil, invalidInput("name is required")
	}
	for _, date := range []string{p.StartDate, p.EndDate} {
		if _, err := time.Parse(party.DateLayout, date); err != nil {
			return nil, invalidInput("date %q is not in YYYY-MM-DD format", date)
		}
	}
	if party.DayCount(p.StartDate, p.EndDate) > party.MaxDays {
		return nil, invalidInput("a party can span at most %d days", party.MaxDays)
	}

	p.MenuItems = funk.Map(p.MenuItems, strings.TrimSpace).([]string)
	if len(p.MenuItems) == 0 || funk.ContainsString(p.MenuItems, "") {
		return nil, invalidInput("at least one non-empty menu item is required")
	}

	return s.db.CreateParty(ctx, userID, p)
}

// ReplaceSelections overwrites the whole selections document. It does not
// coordinate with concurrent writers; use Claim for first-come assignment.
// Days sent as null are stored as empty days.
func (s *Service) ReplaceSelections(
	ctx context.Context,
	userID int64,
	partyID string,
	selections party.Selections,
) (*party.Party, error) {
	if selections == nil {
		return nil, invalidInput("selections are required")
	}

	return s.db.ReplaceSelections(ctx, userID, partyID, selections.Clone())
}

// Claim assigns the claimant to the item on the date if nobody has claimed it
// yet. The item must be on the menu and the date inside the party's range.
func (s *Service) Claim(
	ctx context.Context,
	userID int64,
	partyID string,
	date string,
	item string,
	claimant string,
) (*party.Party, error) {
	claimant = strings.TrimSpace(claimant)
	if claimant == "" {
		return nil, invalidInput("claimant name is required")
	}

	current, err := s.db.GetParty(ctx, userID, partyID)
	if err != nil {
		return nil, err
	}
	if !current.HasMenuItem(item) {
		return nil, invalidInput("%q is not on the menu", item)
	}
	if !current.CoversDate(date) {
		return nil, invalidInput("%s is outside the party dates", date)
	}

	return s.db.ClaimSelection(ctx, userID, partyID, date, item, claimant)
}

// ResetSelections clears every claim of the party.
func (s *Service) ResetSelections(ctx context.Context, userID int64, partyID string) (*party.Party, error) {
	return s.db.ReplaceSelections(ctx, userID, partyID, party.Selections{})
}

func (s *Service) DeleteParty(ctx context.Context, userID int64, partyID string) error {
	return s.db.DeleteParty(ctx, userID, partyID)
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
