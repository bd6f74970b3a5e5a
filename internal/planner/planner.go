// Package planner holds the client-side state of the party planner: the
// collection of the user's parties and the view selection (open party,
// selected date, the name the user claims items under). Every mutation goes
// through the API first and touches the local copy only once the server has
// confirmed it, so a failed call leaves the state exactly as it was.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/partyplanner/internal/client"
	"github.com/patric-chuzhbe/partyplanner/internal/models"
	"github.com/patric-chuzhbe/partyplanner/internal/party"
	"github.com/patric-chuzhbe/partyplanner/internal/view"
)

type partyAPI interface {
	ListParties(ctx context.Context) (models.PartiesResponse, error)

	CreateParty(ctx context.Context, request models.CreatePartyRequest) (*party.Party, error)

	Claim(ctx context.Context, partyID string, claim models.ClaimRequest) (*party.Party, error)

	ResetSelections(ctx context.Context, partyID string) (*party.Party, error)

	DeleteParty(ctx context.Context, partyID string) error

	Logout() error
}

var (
	ErrInvalidDraft   = errors.New("please fill in party name, start date, end date and at least one menu item")
	ErrNameRequired   = errors.New("please enter your name first")
	ErrNoPartyOpen    = errors.New("no party is open")
	ErrUnknownParty   = errors.New("party not found")
	ErrDateOutOfRange = errors.New("the date is outside the party")
	ErrUnknownItem    = errors.New("the item is not on the menu")
)

// AlreadyClaimedError reports a cell that is taken in the local copy.
type AlreadyClaimedError struct {
	Date     string
	Item     string
	Claimant string
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("this item has already been selected by %s", e.Claimant)
}

func (e *AlreadyClaimedError) Unwrap() error {
	return party.ErrAlreadyClaimed
}

// Draft is the party creation form.
type Draft struct {
	Name      string
	StartDate string
	EndDate   string
	MenuItems []string
}

// ViewState is what the user is looking at. It is persisted between runs.
type ViewState struct {
	CurrentPartyID string `json:"currentPartyId,omitempty"`
	SelectedDate   string `json:"selectedDate,omitempty"`
	CurrentUser    string `json:"currentUser,omitempty"`
}

// Store is the client state store.
type Store struct {
	api     partyAPI
	kv      client.KeyValueStore
	parties map[string]party.Party
	view    ViewState
	newID   func() string
}

// Option configures the store.
type Option func(*Store)

// WithIDGenerator replaces the party ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

func newPartyID() string {
	return "party-" + uuid.NewString()
}

// New restores the view state from kv. The party collection stays empty
// until Load.
func New(api partyAPI, kv client.KeyValueStore, opts ...Option) (*Store, error) {
	s := &Store{
		api:     api,
		kv:      kv,
		parties: map[string]party.Party{},
		newID:   newPartyID,
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, ok, err := kv.Get(client.ViewStateKey)
	if err != nil {
		return nil, fmt.Errorf("in internal/planner/planner.go/New(): error while `kv.Get()` calling: %w", err)
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.view); err != nil {
			// A corrupt view state only loses the selection.
			s.view = ViewState{}
		}
	}

	return s, nil
}

func (s *Store) saveView(next ViewState) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("in internal/planner/planner.go/saveView(): error while `json.Marshal()` calling: %w", err)
	}
	if err := s.kv.Set(client.ViewStateKey, string(data)); err != nil {
		return fmt.Errorf("in internal/planner/planner.go/saveView(): error while `s.kv.Set()` calling: %w", err)
	}
	s.view = next

	return nil
}

// Load fetches the whole collection from the server and replaces the local one.
func (s *Store) Load(ctx context.Context) error {
	fetched, err := s.api.ListParties(ctx)
	if err != nil {
		return err
	}

	parties := make(map[string]party.Party, len(fetched))
	for id, p := range fetched {
		if p.Selections == nil {
			p.Selections = party.Selections{}
		}
		parties[id] = p
	}
	s.parties = parties

	return nil
}

// View returns the current view selection.
func (s *Store) View() ViewState {
	return s.view
}

// Parties returns the collection, newest first.
func (s *Store) Parties() []party.Party {
	result := funk.Values(s.parties).([]party.Party)
	cards := view.Cards(result)

	ordered := make([]party.Party, 0, len(cards))
	for _, card := range cards {
		ordered = append(ordered, s.parties[card.ID].Clone())
	}

	return ordered
}

// Party returns a copy of one party of the collection.
func (s *Store) Party(id string) (party.Party, bool) {
	p, ok := s.parties[id]
	if !ok {
		return party.Party{}, false
	}

	return p.Clone(), true
}

// CurrentParty returns the open party.
func (s *Store) CurrentParty() (party.Party, error) {
	if s.view.CurrentPartyID == "" {
		return party.Party{}, ErrNoPartyOpen
	}
	p, ok := s.Party(s.view.CurrentPartyID)
	if !ok {
		return party.Party{}, ErrUnknownParty
	}

	return p, nil
}

func normalizeDraft(d Draft) (Draft, error) {
	result := Draft{
		Name:      strings.TrimSpace(d.Name),
		StartDate: strings.TrimSpace(d.StartDate),
		EndDate:   strings.TrimSpace(d.EndDate),
		MenuItems: funk.FilterString(
			funk.Map(d.MenuItems, strings.TrimSpace).([]string),
			func(item string) bool { return item != "" },
		),
	}

	if result.Name == "" || result.StartDate == "" || result.EndDate == "" || len(result.MenuItems) == 0 {
		return d, ErrInvalidDraft
	}
	for _, date := range []string{result.StartDate, result.EndDate} {
		if _, err := time.Parse(party.DateLayout, date); err != nil {
			return d, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", ErrInvalidDraft, date)
		}
	}
	if party.DayCount(result.StartDate, result.EndDate) > party.MaxDays {
		return d, fmt.Errorf("%w: a party can span at most %d days", ErrInvalidDraft, party.MaxDays)
	}

	return result, nil
}

// CreateParty submits the draft under a freshly generated ID and merges the
// created party into the collection.
func (s *Store) CreateParty(ctx context.Context, d Draft) (party.Party, error) {
	draft, err := normalizeDraft(d)
	if err != nil {
		return party.Party{}, err
	}

	created, err := s.api.CreateParty(ctx, models.CreatePartyRequest{
		PartyID:   s.newID(),
		Name:      draft.Name,
		StartDate: draft.StartDate,
		EndDate:   draft.EndDate,
		MenuItems: draft.MenuItems,
	})
	if err != nil {
		return party.Party{}, err
	}

	s.parties[created.ID] = *created

	return created.Clone(), nil
}

// OpenParty makes the party current and selects its first day.
func (s *Store) OpenParty(id string) error {
	p, ok := s.parties[id]
	if !ok {
		return ErrUnknownParty
	}

	next := s.view
	next.CurrentPartyID = p.ID
	next.SelectedDate = p.StartDate

	return s.saveView(next)
}

// SelectDate moves the open party's selection to another day of its range.
func (s *Store) SelectDate(date string) error {
	p, err := s.CurrentParty()
	if err != nil {
		return err
	}
	if !p.CoversDate(date) {
		return ErrDateOutOfRange
	}

	next := s.view
	next.SelectedDate = date

	return s.saveView(next)
}

// SetCurrentUser sets the display name claims are made under.
func (s *Store) SetCurrentUser(name string) error {
	next := s.view
	next.CurrentUser = strings.TrimSpace(name)

	return s.saveView(next)
}

// DayMenu is the menu of the selected day of the open party.
func (s *Store) DayMenu() ([]view.MenuEntry, error) {
	p, err := s.CurrentParty()
	if err != nil {
		return nil, err
	}

	return view.DayMenu(p, s.view.SelectedDate, s.view.CurrentUser), nil
}

// ClaimItem claims the item on the selected day under the current user's name.
func (s *Store) ClaimItem(ctx context.Context, item string) (party.Party, error) {
	if s.view.CurrentUser == "" {
		return party.Party{}, ErrNameRequired
	}
	p, err := s.CurrentParty()
	if err != nil {
		return party.Party{}, err
	}
	item = strings.TrimSpace(item)
	if !p.HasMenuItem(item) {
		return party.Party{}, ErrUnknownItem
	}

	date := s.view.SelectedDate
	if claimant, taken := p.Selections.ClaimantOf(date, item); taken {
		return party.Party{}, &AlreadyClaimedError{Date: date, Item: item, Claimant: claimant}
	}

	confirmed, err := s.api.Claim(ctx, p.ID, models.ClaimRequest{
		Date:     date,
		Item:     item,
		Claimant: s.view.CurrentUser,
	})
	if err != nil {
		return party.Party{}, err
	}

	s.parties[confirmed.ID] = *confirmed

	return confirmed.Clone(), nil
}

// ResetSelections clears every claim of the open party.
func (s *Store) ResetSelections(ctx context.Context) (party.Party, error) {
	p, err := s.CurrentParty()
	if err != nil {
		return party.Party{}, err
	}

	confirmed, err := s.api.ResetSelections(ctx, p.ID)
	if err != nil {
		return party.Party{}, err
	}

	s.parties[confirmed.ID] = *confirmed

	return confirmed.Clone(), nil
}

// DeleteParty removes the party. Deleting the open party closes it.
func (s *Store) DeleteParty(ctx context.Context, id string) error {
	if err := s.api.DeleteParty(ctx, id); err != nil {
		return err
	}

	delete(s.parties, id)

	if s.view.CurrentPartyID == id {
		next := s.view
		next.CurrentPartyID = ""
		next.SelectedDate = ""
		return s.saveView(next)
	}

	return nil
}

// Logout forgets the token, the collection and the view state.
func (s *Store) Logout() error {
	if err := s.api.Logout(); err != nil {
		return err
	}
	if err := s.kv.Delete(client.ViewStateKey); err != nil {
		return fmt.Errorf("in internal/planner/planner.go/Logout(): error while `s.kv.Delete()` calling: %w", err)
	}

	s.parties = map[string]party.Party{}
	s.view = ViewState{}

	return nil
}
