// Package party defines the party aggregate: a date-ranged event with a
// fixed menu and a selections document recording who claimed which item on
// which day.
package party

import (
	"errors"
	"time"

	"github.com/thoas/go-funk"
)

// DateLayout is the calendar date format used by parties and selections.
const DateLayout = "2006-01-02"

// MaxDays is the longest date range a party may span.
const MaxDays = 366

// ErrAlreadyClaimed is returned when a (date, item) cell already has a claimant.
var ErrAlreadyClaimed = errors.New("the menu item has already been selected for this date")

// Selections maps a date to a mapping of menu item to the claimant's display name.
type Selections map[string]map[string]string

// Party is a date-ranged event owned by one user.
type Party struct {
	// ID is the client-generated external identifier.
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	StartDate  string     `json:"startDate"`
	EndDate    string     `json:"endDate"`
	MenuItems  []string   `json:"menuItems"`
	Selections Selections `json:"selections"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Clone returns a deep copy of the selections document. A nil document
// is cloned into an empty one.
func (s Selections) Clone() Selections {
	result := make(Selections, len(s))
	for date, items := range s {
		day := make(map[string]string, len(items))
		for item, claimant := range items {
			day[item] = claimant
		}
		result[date] = day
	}

	return result
}

// Day returns the item-to-claimant mapping for the date. The result is never nil.
func (s Selections) Day(date string) map[string]string {
	if day, ok := s[date]; ok && day != nil {
		return day
	}

	return map[string]string{}
}

// ClaimantOf reports who claimed the item on the date.
func (s Selections) ClaimantOf(date, item string) (string, bool) {
	claimant, ok := s[date][item]

	return claimant, ok
}

// Claim records the claimant for the (date, item) cell unless it is already taken.
func (s Selections) Claim(date, item, claimant string) error {
	if _, taken := s.ClaimantOf(date, item); taken {
		return ErrAlreadyClaimed
	}
	if s[date] == nil {
		s[date] = map[string]string{}
	}
	s[date][item] = claimant

	return nil
}

// TotalClaims counts every claimed cell across all dates.
func (s Selections) TotalClaims() int {
	total := 0
	for _, items := range s {
		total += len(items)
	}

	return total
}

// Clone returns a deep copy of the party.
func (p Party) Clone() Party {
	result := p
	result.MenuItems = append([]string{}, p.MenuItems...)
	result.Selections = p.Selections.Clone()

	return result
}

// HasMenuItem reports whether the item is on the party's menu.
func (p Party) HasMenuItem(item string) bool {
	return funk.ContainsString(p.MenuItems, item)
}

// Dates returns the inclusive calendar range of the party.
func (p Party) Dates() []string {
	return DateRange(p.StartDate, p.EndDate)
}

// CoversDate reports whether the date falls inside the party's range.
func (p Party) CoversDate(date string) bool {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	from, to, ok := parseRange(p.StartDate, p.EndDate)
	if !ok {
		return false
	}

	return !day.Before(from) && !day.After(to)
}

func parseRange(start, end string) (time.Time, time.Time, bool) {
	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse(DateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}

	return from, to, !to.Before(from)
}

// DayCount returns the number of days from start to end inclusive without
// building the range. It is zero whenever DateRange would be empty.
func DayCount(start, end string) int {
	from, to, ok := parseRange(start, end)
	if !ok {
		return 0
	}

	return int((to.Unix()-from.Unix())/(24*60*60)) + 1
}

// DateRange returns every calendar date from start to end inclusive, stepping
// one day in UTC. An unparsable bound or an end before the start yields an
// empty slice.
func DateRange(start, end string) []string {
	from, to, ok := parseRange(start, end)
	if !ok {
		return []string{}
	}

	result := make([]string, 0, DayCount(start, end))
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		result = append(result, day.Format(DateLayout))
	}

	return result
}
