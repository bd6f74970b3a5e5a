// Package jsondb implements the party storage on top of a single JSON file.
// The whole dataset lives in memory and is written back to the file after
// every mutation.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/patric-chuzhbe/partyplanner/internal/models"
	"github.com/patric-chuzhbe/partyplanner/internal/party"
	"github.com/patric-chuzhbe/partyplanner/internal/user"
)

// JSONDB keeps users and parties in Cache, guarded by a mutex.
// With an empty fileName nothing is written to disk.
type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

// CacheStruct is the on-disk layout of the JSON file.
type CacheStruct struct {
	// Users is keyed by username.
	Users        map[string]*user.User
	NextUserID   int64
	Parties      map[string]*PartyRecord
	NextPartySeq int64
}

// PartyRecord binds a party to its owner. Seq orders parties created within
// the same clock tick.
type PartyRecord struct {
	UserID int64
	Seq    int64
	Party  party.Party
}

// NewCache returns an empty dataset.
func NewCache() CacheStruct {
	return CacheStruct{
		Users:        map[string]*user.User{},
		NextUserID:   1,
		Parties:      map[string]*PartyRecord{},
		NextPartySeq: 1,
	}
}

func initDBFile(fileName string) error {
	return writeToJSONFile(fileName, NewCache())
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	err = decoder.Decode(cache)
	if err != nil {
		return err
	}

	return nil
}

// New opens the JSON file, creating it with an empty dataset when it does not exist.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `parseJSONFile()` calling: %w", err)
		}
		if err := initDBFile(fileName); err != nil {
			return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `initDBFile()` calling: %w", err)
		}
	}
	db.Cache.fillGaps()

	return db, nil
}

// NewInMemory returns a JSONDB that never touches the disk.
func NewInMemory() *JSONDB {
	return &JSONDB{Cache: NewCache()}
}

func (cache *CacheStruct) fillGaps() {
	if cache.Users == nil {
		cache.Users = map[string]*user.User{}
	}
	if cache.Parties == nil {
		cache.Parties = map[string]*PartyRecord{}
	}
	if cache.NextUserID < 1 {
		cache.NextUserID = 1
	}
	if cache.NextPartySeq < 1 {
		cache.NextPartySeq = 1
	}
}

// persist must be called with mu held for writing.
func (db *JSONDB) persist() error {
	if db.fileName == "" {
		return nil
	}

	return writeToJSONFile(db.fileName, db.Cache)
}

// Ping always succeeds: the dataset is in memory.
func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close flushes the dataset to the file.
func (db *JSONDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.persist()
}

func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User) (*user.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.Cache.Users[usr.Username]; exists {
		return nil, models.ErrUserAlreadyExists
	}

	stored := *usr
	stored.ID = db.Cache.NextUserID
	stored.CreatedAt = time.Now().UTC()
	db.Cache.NextUserID++
	db.Cache.Users[stored.Username] = &stored

	if err := db.persist(); err != nil {
		delete(db.Cache.Users, stored.Username)
		db.Cache.NextUserID--
		return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/CreateUser(): error while `db.persist()` calling: %w", err)
	}

	result := stored
	return &result, nil
}

func (db *JSONDB) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	stored, exists := db.Cache.Users[username]
	if !exists {
		return nil, models.ErrUserNotFound
	}

	result := *stored
	return &result, nil
}

func (db *JSONDB) ListParties(ctx context.Context, userID int64) ([]party.Party, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	records := []*PartyRecord{}
	for _, record := range db.Cache.Parties {
		if record.UserID == userID {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		left, right := records[i], records[j]
		if !left.Party.CreatedAt.Equal(right.Party.CreatedAt) {
			return left.Party.CreatedAt.After(right.Party.CreatedAt)
		}
		return left.Seq > right.Seq
	})

	result := make([]party.Party, 0, len(records))
	for _, record := range records {
		result = append(result, record.Party.Clone())
	}

	return result, nil
}

// ownedRecord must be called with mu held.
func (db *JSONDB) ownedRecord(userID int64, partyID string) (*PartyRecord, error) {
	record, exists := db.Cache.Parties[partyID]
	if !exists || record.UserID != userID {
		return nil, models.ErrPartyNotFound
	}

	return record, nil
}

func (db *JSONDB) GetParty(ctx context.Context, userID int64, partyID string) (*party.Party, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	record, err := db.ownedRecord(userID, partyID)
	if err != nil {
		return nil, err
	}

	result := record.Party.Clone()
	return &result, nil
}

func (db *JSONDB) CreateParty(ctx context.Context, userID int64, p party.Party) (*party.Party, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.Cache.Parties[p.ID]; exists {
		return nil, models.ErrPartyAlreadyExists
	}

	stored := p.Clone()
	stored.Selections = party.Selections{}
	stored.CreatedAt = time.Now().UTC()
	db.Cache.Parties[p.ID] = &PartyRecord{
		UserID: userID,
		Seq:    db.Cache.NextPartySeq,
		Party:  stored,
	}
	db.Cache.NextPartySeq++

	if err := db.persist(); err != nil {
		delete(db.Cache.Parties, p.ID)
		return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/CreateParty(): error while `db.persist()` calling: %w", err)
	}

	result := stored.Clone()
	return &result, nil
}

func (db *JSONDB) ReplaceSelections(
	ctx context.Context,
	userID int64,
	partyID string,
	selections party.Selections,
) (*party.Party, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	record, err := db.ownedRecord(userID, partyID)
	if err != nil {
		return nil, err
	}

	previous := record.Party.Selections
	record.Party.Selections = selections.Clone()
	if err := db.persist(); err != nil {
		record.Party.Selections = previous
		return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/ReplaceSelections(): error while `db.persist()` calling: %w", err)
	}

	result := record.Party.Clone()
	return &result, nil
}

func (db *JSONDB) ClaimSelection(
	ctx context.Context,
	userID int64,
	partyID string,
	date string,
	item string,
	claimant string,
) (*party.Party, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	record, err := db.ownedRecord(userID, partyID)
	if err != nil {
		return nil, err
	}

	updated := record.Party.Selections.Clone()
	if err := updated.Claim(date, item, claimant); err != nil {
		return nil, models.ErrSelectionAlreadyClaimed
	}

	previous := record.Party.Selections
	record.Party.Selections = updated
	if err := db.persist(); err != nil {
		record.Party.Selections = previous
		return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/ClaimSelection(): error while `db.persist()` calling: %w", err)
	}

	result := record.Party.Clone()
	return &result, nil
}

func (db *JSONDB) DeleteParty(ctx context.Context, userID int64, partyID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	record, err := db.ownedRecord(userID, partyID)
	if err != nil {
		return err
	}

	delete(db.Cache.Parties, partyID)
	if err := db.persist(); err != nil {
		db.Cache.Parties[partyID] = record
		return fmt.Errorf("in internal/db/jsondb/jsondb.go/DeleteParty(): error while `db.persist()` calling: %w", err)
	}

	return nil
}
