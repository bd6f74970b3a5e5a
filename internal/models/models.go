package models

import (
	"errors"

	"github.com/patric-chuzhbe/partyplanner/internal/party"
)

type SignupRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type AuthResponse struct {
	Success bool     `json:"success"`
	User    UserInfo `json:"user"`
	Token   string   `json:"token"`
}

type CreatePartyRequest struct {
	PartyID   string   `json:"partyId" validate:"required"`
	Name      string   `json:"name" validate:"required"`
	StartDate string   `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string   `json:"endDate" validate:"required,datetime=2006-01-02"`
	MenuItems []string `json:"menuItems" validate:"required,dive,required"`
}

type UpdatePartyRequest struct {
	Selections party.Selections `json:"selections" validate:"required"`
}

type ClaimRequest struct {
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Item     string `json:"item" validate:"required"`
	Claimant string `json:"claimant" validate:"required"`
}

// PartiesResponse maps a party ID to the party.
type PartiesResponse map[string]party.Party

type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"dbConnected"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeSQLite
	StorageTypeFile
	StorageTypeMemory
)

var (
	ErrUserAlreadyExists       = errors.New("username already exists")
	ErrUserNotFound            = errors.New("user not found")
	ErrPartyAlreadyExists      = errors.New("party already exists")
	ErrPartyNotFound           = errors.New("party not found")
	ErrSelectionAlreadyClaimed = party.ErrAlreadyClaimed

	// ErrStorageBusy is a transient failure; the same request may succeed on retry.
	ErrStorageBusy = errors.New("storage is busy")
)
