// Command partyctl is the terminal client of the party planner: it signs in,
// lists and creates parties, claims menu items day by day and prints the
// calendar, the summary report and the CSV export.
package main

import (
	"log"
	"os"
)

func main() {
	log.SetFlags(0)

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		log.Fatalf("partyctl: %v", err)
	}
}
