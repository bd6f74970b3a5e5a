package a

import (
	"context"
	"database/sql"
	"fmt"
)

func queries(ctx context.Context, db *sql.DB, tx *sql.Tx, partyID string) {
	db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM parties WHERE party_id = '%s'", partyID)) // want "SQL query built with fmt.Sprintf"
	tx.Exec((fmt.Sprintf("DELETE FROM parties WHERE party_id = '%s'", partyID)))              // want "SQL query built with fmt.Sprintf"
	db.QueryRowContext(ctx, "SELECT * FROM parties WHERE party_id = $1", partyID)

	query := fmt.Sprintf("SELECT * FROM parties WHERE party_id = '%s'", partyID)
	db.Exec(query)

	fmt.Println(fmt.Sprintf("%s", partyID))
}
