package view

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/patric-chuzhbe/partyplanner/internal/party"
)

// CSVHeader is the first line of every export.
const CSVHeader = "Date,Menu Item,Selected By"

// CSVContentType is the media type of the export.
const CSVContentType = "text/csv; charset=utf-8"

var whitespaceRun = regexp.MustCompile(`\s+`)

// WriteCSV writes one row per claim, dates ascending and items ascending
// within a date. Every field is wrapped in double quotes; quotes inside a
// field are written as they are, so such exports are not valid RFC 4180.
func WriteCSV(w io.Writer, selections party.Selections) error {
	buffered := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(buffered, CSVHeader); err != nil {
		return err
	}

	for _, date := range SortedDates(selections) {
		for _, claim := range DayClaims(selections, date) {
			if _, err := fmt.Fprintf(buffered, "\"%s\",\"%s\",\"%s\"\n", claim.Date, claim.Item, claim.Claimant); err != nil {
				return err
			}
		}
	}

	return buffered.Flush()
}

// CSV returns the export as a string.
func CSV(selections party.Selections) string {
	var builder strings.Builder
	_ = WriteCSV(&builder, selections)

	return builder.String()
}

// ExportFileName derives the download name from the party name.
func ExportFileName(partyName string) string {
	return whitespaceRun.ReplaceAllString(partyName, "-") + "-selections.csv"
}
