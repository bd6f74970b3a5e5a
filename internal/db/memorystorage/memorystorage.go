// Package memorystorage provides the process-local storage used when neither
// a database nor a JSON file is configured. Data is lost on restart.
package memorystorage

import (
	"github.com/patric-chuzhbe/partyplanner/internal/db/jsondb"
)

type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: jsondb.NewInMemory(),
	}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}
