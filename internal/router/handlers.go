package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/partyplanner/internal/auth"
	"github.com/patric-chuzhbe/partyplanner/internal/logger"
	"github.com/patric-chuzhbe/partyplanner/internal/metrics"
	"github.com/patric-chuzhbe/partyplanner/internal/models"
	"github.com/patric-chuzhbe/partyplanner/internal/party"
	"github.com/patric-chuzhbe/partyplanner/internal/view"
)

func newAuthResponse(session *auth.Session) models.AuthResponse {
	return models.AuthResponse{
		Success: true,
		User: models.UserInfo{
			ID:       session.User.ID,
			Username: session.User.Username,
		},
		Token: session.Token,
	}
}

// GetHealth reports whether the storage is reachable. It always answers 200.
func (rt *Router) GetHealth(response http.ResponseWriter, request *http.Request) {
	dbConnected := true
	if err := rt.service.Ping(request.Context()); err != nil {
		logger.Log.Infoln("Error calling the `rt.service.Ping()`: ", zap.Error(err))
		dbConnected = false
	}

	writeJSON(response, http.StatusOK, models.HealthResponse{Status: "ok", DBConnected: dbConnected})
}

// PostSignup registers an account and returns it with a fresh token.
func (rt *Router) PostSignup(response http.ResponseWriter, request *http.Request) {
	var requestDTO models.SignupRequest
	if err := rt.decodeBody(request, &requestDTO); err != nil {
		logger.Log.Debugln("Error calling the `rt.decodeBody()`: ", zap.Error(err))
		writeErrorMessage(response, http.StatusBadRequest, "Username and password required")
		return
	}

	session, err := rt.auth.Register(request.Context(), requestDTO.Username, requestDTO.Password)
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusCreated, newAuthResponse(session))
}

// PostLogin checks the credentials and returns a fresh token.
func (rt *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	var requestDTO models.LoginRequest
	if err := rt.decodeBody(request, &requestDTO); err != nil {
		logger.Log.Debugln("Error calling the `rt.decodeBody()`: ", zap.Error(err))
		writeErrorMessage(response, http.StatusBadRequest, "Username and password required")
		return
	}

	session, err := rt.auth.Authenticate(request.Context(), requestDTO.Username, requestDTO.Password)
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, newAuthResponse(session))
}

// GetParties returns the caller's parties keyed by party ID.
func (rt *Router) GetParties(response http.ResponseWriter, request *http.Request) {
	uid, err := userID(request)
	if err != nil {
		writeError(response, request, err)
		return
	}

	parties, err := rt.service.ListParties(request.Context(), uid)
	if err != nil {
		writeError(response, request, err)
		return
	}

	result := make(models.PartiesResponse, len(parties))
	for _, p := range parties {
		result[p.ID] = p
	}

	writeJSON(response, http.StatusOK, result)
}

// PostParties creates a party owned by the caller.
func (rt *Router) PostParties(response http.ResponseWriter, request *http.Request) {
	uid, err := userID(request)
	if err != nil {
		writeError(response, request, err)
		return
	}

	var requestDTO models.CreatePartyRequest
	if err := rt.decodeBody(request, &requestDTO); err != nil {
		logger.Log.Debugln("Error calling the `rt.decodeBody()`: ", zap.Error(err))
		writeErrorMessage(response, http.StatusBadRequest, "Missing required fields")
		return
	}

	created, err := rt.service.CreateParty(request.Context(), uid, party.Party{
		ID:        requestDTO.PartyID,
		Name:      requestDTO.Name,
		StartDate: requestDTO.StartDate,
		EndDate:   requestDTO.EndDate,
		MenuItems: requestDTO.MenuItems,
	})
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusCreated, created)
}

// GetParty returns one of the caller's parties.
func (rt *Router) GetParty(response http.ResponseWriter, request *http.Request) {
	uid, err := userID(request)
	if err != nil {
		writeError(response, request, err)
		return
	}

	found, err := rt.service.GetParty(request.Context(), uid, chi.URLParam(request, "partyId"))
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, found)
}

// PutParty overwrites the selections document. Concurrent writers are not
// merged: the last request wins.
func (rt *Router) PutParty(response http.ResponseWriter, request *http.Request) {
	uid, err := userID(request)
	if err != nil {
		writeError(response, request, err)
		return
	}

	var requestDTO models.UpdatePartyRequest
	if err := rt.decodeBody(request, &requestDTO); err != nil {
		logger.Log.Debugln("Error calling the `rt.decodeBody()`: ", zap.Error(err))
		writeErrorMessage(response, http.StatusBadRequest, "Missing required fields")
		return
	}

	updated, err := rt.service.ReplaceSelections(
		request.Context(),
		uid,
		chi.URLParam(request, "partyId"),
		requestDTO.Selections,
	)
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, updated)
}

// PostClaim assigns the claimant to a (date, item) cell on a first-come basis.
func (rt *Router) PostClaim(response http.ResponseWriter, request *http.Request) {
	uid, err := userID(request)
	if err != nil {
		writeError(response, request, err)
		return
	}

	var requestDTO models.ClaimRequest
	if err := rt.decodeBody(request, &requestDTO); err != nil {
		logger.Log.Debugln("Error calling the `rt.decodeBody()`: ", zap.Error(err))
		writeErrorMessage(response, http.StatusBadRequest, "Missing required fields")
		return
	}

	updated, err := rt.service.Claim(
		request.Context(),
		uid,
		chi.URLParam(request, "partyId"),
		requestDTO.Date,
		requestDTO.Item,
		requestDTO.Claimant,
	)
	if rt.metrics != nil {
		rt.metrics.RecordClaim(metrics.ClaimOutcome(err))
	}
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, updated)
}

// DeleteSelections clears every claim of the party.
func (rt *Router) DeleteSelections(response http.ResponseWriter, request *http.Request) {
	uid, err := userID(request)
	if err != nil {
		writeError(response, request, err)
		return
	}

	updated, err := rt.service.ResetSelections(request.Context(), uid, chi.URLParam(request, "partyId"))
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, updated)
}

// GetExport downloads the party's selections as CSV.
func (rt *Router) GetExport(response http.ResponseWriter, request *http.Request) {
	uid, err := userID(request)
	if err != nil {
		writeError(response, request, err)
		return
	}

	found, err := rt.service.GetParty(request.Context(), uid, chi.URLParam(request, "partyId"))
	if err != nil {
		writeError(response, request, err)
		return
	}

	response.Header().Set("Content-Type", view.CSVContentType)
	response.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", view.ExportFileName(found.Name)),
	)
	response.WriteHeader(http.StatusOK)
	if err := view.WriteCSV(response, found.Selections); err != nil {
		logger.Log.Debugln("Error calling the `view.WriteCSV()`: ", zap.Error(err))
	}
}

// DeleteParty permanently removes one of the caller's parties.
func (rt *Router) DeleteParty(response http.ResponseWriter, request *http.Request) {
	uid, err := userID(request)
	if err != nil {
		writeError(response, request, err)
		return
	}

	if err := rt.service.DeleteParty(request.Context(), uid, chi.URLParam(request, "partyId")); err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, models.SuccessResponse{Success: true})
}
