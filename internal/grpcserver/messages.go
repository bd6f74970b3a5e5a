package grpcserver

import (
	"github.com/patric-chuzhbe/partyplanner/internal/models"
	"github.com/patric-chuzhbe/partyplanner/internal/party"
)

// Messages that have no HTTP counterpart: over HTTP the party ID travels in
// the path.

type Empty struct{}

type PartyRequest struct {
	PartyID string `json:"partyId" validate:"required"`
}

type ReplaceSelectionsRequest struct {
	PartyID    string           `json:"partyId" validate:"required"`
	Selections party.Selections `json:"selections" validate:"required"`
}

type ClaimRequest struct {
	PartyID  string `json:"partyId" validate:"required"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Item     string `json:"item" validate:"required"`
	Claimant string `json:"claimant" validate:"required"`
}

type ListPartiesResponse struct {
	Parties models.PartiesResponse `json:"parties"`
}

type ExportResponse struct {
	FileName string `json:"fileName"`
	CSV      string `json:"csv"`
}
