package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/partyplanner/internal/party"
)

func newParty() party.Party {
	return party.Party{
		ID:        "party-1",
		Name:      "Office  week",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-03",
		MenuItems: []string{"Pizza", "Salad", "Soup"},
		Selections: party.Selections{
			"2024-01-01": {"Pizza": "Alice", "Salad": "Bob"},
			"2024-01-03": {"Pizza": "Bob"},
			"2024-01-02": {},
		},
	}
}

func TestDateRange(t *testing.T) {
	type tTestCase struct {
		name     string
		start    string
		end      string
		expected []string
	}
	testCases := []tTestCase{
		{name: "single day", start: "2024-01-01", end: "2024-01-01", expected: []string{"2024-01-01"}},
		{name: "end before start", start: "2024-01-02", end: "2024-01-01", expected: []string{}},
		{name: "across a month", start: "2024-01-31", end: "2024-02-01", expected: []string{"2024-01-31", "2024-02-01"}},
		{name: "malformed", start: "yesterday", end: "2024-01-01", expected: []string{}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, DateRange(testCase.start, testCase.end))
		})
	}
}

func TestDaySelections(t *testing.T) {
	p := newParty()
	assert.Equal(t, map[string]string{"Pizza": "Bob"}, DaySelections(p.Selections, "2024-01-03"))
	assert.Equal(t, map[string]string{}, DaySelections(p.Selections, "2024-05-05"))
	assert.Equal(t, map[string]string{}, DaySelections(nil, "2024-01-01"))
}

func TestDayMenu(t *testing.T) {
	menu := DayMenu(newParty(), "2024-01-01", " Bob ")

	assert.Equal(t, []MenuEntry{
		{Item: "Pizza", Claimant: "Alice", Claimed: true},
		{Item: "Salad", Claimant: "Bob", Claimed: true, Mine: true},
		{Item: "Soup"},
	}, menu)
}

func TestCalendar(t *testing.T) {
	days := Calendar(newParty(), "2024-01-02")
	require.Len(t, days, 3)

	assert.Equal(t, time.Monday, days[0].Weekday)
	assert.Equal(t, []Claim{
		{Date: "2024-01-01", Item: "Pizza", Claimant: "Alice"},
		{Date: "2024-01-01", Item: "Salad", Claimant: "Bob"},
	}, days[0].Claims)
	assert.True(t, days[1].Selected)
	assert.Empty(t, days[1].Claims)
	assert.False(t, days[2].Selected)
}

func TestCounts(t *testing.T) {
	p := newParty()

	assert.Equal(t, []Count{{Name: "Pizza", Count: 2}, {Name: "Salad", Count: 1}}, Popularity(p.Selections))
	assert.Equal(t, []Count{{Name: "Bob", Count: 2}, {Name: "Alice", Count: 1}}, Participants(p.Selections))

	tied := party.Selections{"2024-01-01": {"Soup": "Zoe", "Cake": "Adam"}}
	assert.Equal(t, []Count{{Name: "Cake", Count: 1}, {Name: "Soup", Count: 1}}, Popularity(tied))
	assert.Equal(t, []Count{{Name: "Adam", Count: 1}, {Name: "Zoe", Count: 1}}, Participants(tied))
}

func TestSummarize(t *testing.T) {
	summary := Summarize(newParty())

	assert.Equal(t, 2, summary.DaysWithSelections)
	assert.Equal(t, 3, summary.TotalSelections)
	assert.Equal(t, 2, summary.UniqueParticipants)
	require.Len(t, summary.Timeline, 2)
	assert.Equal(t, "2024-01-03", summary.Timeline[0].Date)
	assert.Equal(t, "2024-01-01", summary.Timeline[1].Date)

	empty := Summarize(party.Party{StartDate: "2024-01-01", EndDate: "2024-01-01"})
	assert.Zero(t, empty.TotalSelections)
	assert.Empty(t, empty.Timeline)
	assert.Empty(t, empty.Popularity)
}

func TestCards(t *testing.T) {
	older := newParty()
	older.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := party.Party{
		ID:        "party-2",
		Name:      "Reversed",
		StartDate: "2024-03-02",
		EndDate:   "2024-03-01",
		MenuItems: []string{"Tea"},
		CreatedAt: older.CreatedAt.Add(time.Hour),
	}

	cards := Cards([]party.Party{older, newer})
	require.Len(t, cards, 2)
	assert.Equal(t, "party-2", cards[0].ID)
	assert.Equal(t, 0, cards[0].Days)
	assert.Equal(t, 3, cards[1].Days)
	assert.Equal(t, 3, cards[1].TotalSelections)
	assert.Equal(t, 3, cards[1].MenuItems)
}

func TestCSV(t *testing.T) {
	type tTestCase struct {
		name       string
		selections party.Selections
		expected   string
	}
	testCases := []tTestCase{
		{
			name:       "single claim",
			selections: party.Selections{"2024-01-01": {"Pizza": "Alice"}},
			expected:   "Date,Menu Item,Selected By\n\"2024-01-01\",\"Pizza\",\"Alice\"\n",
		},
		{
			name:       "empty document",
			selections: party.Selections{},
			expected:   "Date,Menu Item,Selected By\n",
		},
		{
			name: "ordered by date then item",
			selections: party.Selections{
				"2024-01-02": {"Soup": "Carol", "Cake": "Dan"},
				"2024-01-01": {"Pizza": "Alice"},
			},
			expected: "Date,Menu Item,Selected By\n" +
				"\"2024-01-01\",\"Pizza\",\"Alice\"\n" +
				"\"2024-01-02\",\"Cake\",\"Dan\"\n" +
				"\"2024-01-02\",\"Soup\",\"Carol\"\n",
		},
		{
			name:       "embedded quotes are not escaped",
			selections: party.Selections{"2024-01-01": {"Pizza": `Al "The Pal"`}},
			expected:   "Date,Menu Item,Selected By\n\"2024-01-01\",\"Pizza\",\"Al \"The Pal\"\"\n",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, CSV(testCase.selections))
		})
	}
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "Office-week-selections.csv", ExportFileName(newParty().Name))
	assert.Equal(t, "Lunch-selections.csv", ExportFileName("Lunch"))
}

func TestLongDate(t *testing.T) {
	assert.Equal(t, "Monday, January 1, 2024", LongDate("2024-01-01"))
	assert.Equal(t, "soon", LongDate("soon"))
}
