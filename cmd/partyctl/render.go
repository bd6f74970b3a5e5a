package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/partyplanner/internal/view"
)

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func renderCards(out io.Writer, cards []view.Card, currentID string) error {
	if len(cards) == 0 {
		_, err := fmt.Fprintln(out, "No parties yet. Create one with `partyctl create`.")
		return err
	}

	table := newTable(out)
	fmt.Fprintln(table, "\tID\tNAME\tDATES\tDAYS\tMENU ITEMS\tSELECTIONS")
	for _, card := range cards {
		marker := ""
		if card.ID == currentID {
			marker = "*"
		}
		fmt.Fprintf(
			table,
			"%s\t%s\t%s\t%s..%s\t%d\t%d\t%d\n",
			marker,
			card.ID,
			card.Name,
			card.StartDate,
			card.EndDate,
			card.Days,
			card.MenuItems,
			card.TotalSelections,
		)
	}

	return table.Flush()
}

func renderDayMenu(out io.Writer, partyName, date string, menu []view.MenuEntry) error {
	fmt.Fprintf(out, "%s: %s\n\n", partyName, view.LongDate(date))

	table := newTable(out)
	fmt.Fprintln(table, "ITEM\tSELECTED BY")
	for _, entry := range menu {
		claimant := "(available)"
		switch {
		case entry.Mine:
			claimant = entry.Claimant + " (you)"
		case entry.Claimed:
			claimant = entry.Claimant
		}
		fmt.Fprintf(table, "%s\t%s\n", entry.Item, claimant)
	}

	return table.Flush()
}

func formatClaims(claims []view.Claim) string {
	if len(claims) == 0 {
		return "-"
	}

	return strings.Join(
		funk.Map(claims, func(claim view.Claim) string {
			return claim.Item + ": " + claim.Claimant
		}).([]string),
		", ",
	)
}

func renderCalendar(out io.Writer, days []view.CalendarDay) error {
	table := newTable(out)
	fmt.Fprintln(table, "\tDATE\tDAY\tSELECTIONS")
	for _, day := range days {
		marker := ""
		if day.Selected {
			marker = ">"
		}
		fmt.Fprintf(table, "%s\t%s\t%s\t%s\n", marker, day.Date, day.Weekday.String()[:3], formatClaims(day.Claims))
	}

	return table.Flush()
}

func renderSummary(out io.Writer, partyName string, summary view.Summary) error {
	fmt.Fprintf(out, "Summary Report: %s\n\n", partyName)

	table := newTable(out)
	fmt.Fprintf(table, "Days with Selections\t%d\n", summary.DaysWithSelections)
	fmt.Fprintf(table, "Total Selections Made\t%d\n", summary.TotalSelections)
	fmt.Fprintf(table, "Unique Participants\t%d\n", summary.UniqueParticipants)
	if err := table.Flush(); err != nil {
		return err
	}

	if summary.TotalSelections == 0 {
		_, err := fmt.Fprintln(out, "\nNo selections yet.")
		return err
	}

	fmt.Fprintln(out, "\nMost Popular Menu Items")
	table = newTable(out)
	for _, item := range summary.Popularity {
		fmt.Fprintf(table, "  %s\t%d times\n", item.Name, item.Count)
	}
	if err := table.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nParticipants")
	table = newTable(out)
	for _, participant := range summary.Participants {
		fmt.Fprintf(table, "  %s\t%d selections\n", participant.Name, participant.Count)
	}
	if err := table.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nComplete Timeline")
	for _, day := range summary.Timeline {
		fmt.Fprintf(out, "  %s\n", view.LongDate(day.Date))
		table = newTable(out)
		for _, claim := range day.Claims {
			fmt.Fprintf(table, "    %s\t%s\n", claim.Item, claim.Claimant)
		}
		if err := table.Flush(); err != nil {
			return err
		}
	}

	return nil
}
