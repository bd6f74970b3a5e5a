// Package view derives everything the client displays from party data: the
// calendar, the day menu, the summary report, the party list cards and the
// CSV export. All functions are pure.
package view

import (
	"sort"
	"strings"
	"time"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/partyplanner/internal/party"
)

// Claim is one claimed (date, item) cell.
type Claim struct {
	Date     string
	Item     string
	Claimant string
}

// Count pairs a menu item or a participant with a number of claims.
type Count struct {
	Name  string
	Count int
}

// MenuEntry is one line of the day menu.
type MenuEntry struct {
	Item     string
	Claimant string
	Claimed  bool
	// Mine is set when the claimant is the current user.
	Mine bool
}

// CalendarDay is one cell of the calendar grid.
type CalendarDay struct {
	Date     string
	Weekday  time.Weekday
	Selected bool
	Claims   []Claim
}

// TimelineDay groups the claims of one date.
type TimelineDay struct {
	Date   string
	Claims []Claim
}

// Summary is the report shown for a party.
type Summary struct {
	DaysWithSelections int
	TotalSelections    int
	UniqueParticipants int
	Popularity         []Count
	Participants       []Count
	// Timeline lists dates with claims, most recent first.
	Timeline []TimelineDay
}

// Card is an entry of the party list.
type Card struct {
	ID              string
	Name            string
	StartDate       string
	EndDate         string
	Days            int
	MenuItems       int
	TotalSelections int
	CreatedAt       time.Time
}

// DateRange returns the inclusive list of dates between start and end.
// It is empty when end is before start or either bound is malformed.
func DateRange(start, end string) []string {
	return party.DateRange(start, end)
}

// DaySelections returns the item-to-claimant mapping for the date, never nil.
func DaySelections(selections party.Selections, date string) map[string]string {
	return selections.Day(date)
}

// SortedDates returns the dates that have at least one claim, ascending.
func SortedDates(selections party.Selections) []string {
	dates := funk.FilterString(funk.Keys(selections).([]string), func(date string) bool {
		return len(selections[date]) > 0
	})
	sort.Strings(dates)

	return dates
}

// DayClaims lists the claims of the date ordered by item name.
func DayClaims(selections party.Selections, date string) []Claim {
	day := selections.Day(date)
	items := funk.Keys(day).([]string)
	sort.Strings(items)

	result := make([]Claim, 0, len(items))
	for _, item := range items {
		result = append(result, Claim{Date: date, Item: item, Claimant: day[item]})
	}

	return result
}

// DayMenu lists every menu item for the date in menu order, with its claimant.
func DayMenu(p party.Party, date, currentUser string) []MenuEntry {
	day := p.Selections.Day(date)
	currentUser = strings.TrimSpace(currentUser)

	result := make([]MenuEntry, 0, len(p.MenuItems))
	for _, item := range p.MenuItems {
		claimant, claimed := day[item]
		result = append(result, MenuEntry{
			Item:     item,
			Claimant: claimant,
			Claimed:  claimed,
			Mine:     claimed && currentUser != "" && claimant == currentUser,
		})
	}

	return result
}

// Calendar returns one cell per day of the party, flagging the selected date.
func Calendar(p party.Party, selectedDate string) []CalendarDay {
	dates := p.Dates()
	result := make([]CalendarDay, 0, len(dates))
	for _, date := range dates {
		day, _ := time.Parse(party.DateLayout, date)
		result = append(result, CalendarDay{
			Date:     date,
			Weekday:  day.Weekday(),
			Selected: date == selectedDate,
			Claims:   DayClaims(p.Selections, date),
		})
	}

	return result
}

func sortedCounts(counts map[string]int) []Count {
	result := make([]Count, 0, len(counts))
	for name, count := range counts {
		result = append(result, Count{Name: name, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})

	return result
}

// Popularity counts, per menu item, the days on which it was claimed.
func Popularity(selections party.Selections) []Count {
	counts := map[string]int{}
	for _, day := range selections {
		for item := range day {
			counts[item]++
		}
	}

	return sortedCounts(counts)
}

// Participants counts the claims of every claimant.
func Participants(selections party.Selections) []Count {
	counts := map[string]int{}
	for _, day := range selections {
		for _, claimant := range day {
			counts[claimant]++
		}
	}

	return sortedCounts(counts)
}

// Summarize builds the summary report of the party.
func Summarize(p party.Party) Summary {
	dates := SortedDates(p.Selections)
	participants := Participants(p.Selections)

	timeline := make([]TimelineDay, 0, len(dates))
	for _, date := range funk.ReverseStrings(append([]string{}, dates...)) {
		timeline = append(timeline, TimelineDay{Date: date, Claims: DayClaims(p.Selections, date)})
	}

	return Summary{
		DaysWithSelections: len(dates),
		TotalSelections:    p.Selections.TotalClaims(),
		UniqueParticipants: len(participants),
		Popularity:         Popularity(p.Selections),
		Participants:       participants,
		Timeline:           timeline,
	}
}

// Cards returns the party list entries, newest first.
func Cards(parties []party.Party) []Card {
	result := make([]Card, 0, len(parties))
	for _, p := range parties {
		result = append(result, Card{
			ID:              p.ID,
			Name:            p.Name,
			StartDate:       p.StartDate,
			EndDate:         p.EndDate,
			Days:            party.DayCount(p.StartDate, p.EndDate),
			MenuItems:       len(p.MenuItems),
			TotalSelections: p.Selections.TotalClaims(),
			CreatedAt:       p.CreatedAt,
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result
}

// LongDate formats a date like "Monday, January 1, 2024". Malformed input is
// returned unchanged.
func LongDate(date string) string {
	day, err := time.Parse(party.DateLayout, date)
	if err != nil {
		return date
	}

	return day.Format("Monday, January 2, 2006")
}
