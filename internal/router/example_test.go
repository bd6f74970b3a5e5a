package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/patric-chuzhbe/partyplanner/internal/models"
)

func doJSON(method, url, token string, payload any) (*http.Response, []byte) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			panic(err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		panic(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{}

	resp, err := client.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(err)
	}

	return resp, b
}

func exampleToken(baseURL string) string {
	_, body := doJSON(
		http.MethodPost,
		baseURL+"/api/signup",
		"",
		models.SignupRequest{Username: "alice", Password: "wonderland"},
	)

	var session models.AuthResponse
	if err := json.Unmarshal(body, &session); err != nil {
		panic(err)
	}

	return session.Token
}

func ExampleRouter_GetHealth() {
	tr := setupTestRouter(nil)
	defer tr.server.Close()

	resp, body := doJSON(http.MethodGet, tr.server.URL+"/api/health", "", nil)

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Print("Body: ", string(body))

	// Output:
	// Status Code: 200
	// Body: {"status":"ok","dbConnected":true}
}

func ExampleRouter_PostSignup() {
	tr := setupTestRouter(nil)
	defer tr.server.Close()

	resp, body := doJSON(
		http.MethodPost,
		tr.server.URL+"/api/signup",
		"",
		models.SignupRequest{Username: "alice", Password: "wonderland"},
	)

	var session models.AuthResponse
	if err := json.Unmarshal(body, &session); err != nil {
		panic(err)
	}

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println("Username:", session.User.Username)
	fmt.Println("Has token:", session.Token != "")

	// Output:
	// Status Code: 201
	// Username: alice
	// Has token: true
}

func ExampleRouter_PostClaim() {
	tr := setupTestRouter(nil)
	defer tr.server.Close()
	token := exampleToken(tr.server.URL)

	resp, _ := doJSON(http.MethodPost, tr.server.URL+"/api/parties", token, models.CreatePartyRequest{
		PartyID:   "party-1",
		Name:      "Team lunch",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-02",
		MenuItems: []string{"Pizza", "Salad"},
	})
	fmt.Println("Create:", resp.StatusCode)

	claim := models.ClaimRequest{Date: "2024-01-01", Item: "Pizza", Claimant: "Alice"}
	resp, _ = doJSON(http.MethodPost, tr.server.URL+"/api/parties/party-1/claims", token, claim)
	fmt.Println("First claim:", resp.StatusCode)

	claim.Claimant = "Bob"
	resp, body := doJSON(http.MethodPost, tr.server.URL+"/api/parties/party-1/claims", token, claim)
	fmt.Println("Second claim:", resp.StatusCode)
	fmt.Print(string(body))

	// Output:
	// Create: 201
	// First claim: 200
	// Second claim: 409
	// {"error":"This item has already been selected for this date"}
}

func ExampleRouter_GetExport() {
	tr := setupTestRouter(nil)
	defer tr.server.Close()
	token := exampleToken(tr.server.URL)

	doJSON(http.MethodPost, tr.server.URL+"/api/parties", token, models.CreatePartyRequest{
		PartyID:   "party-1",
		Name:      "Team lunch",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-02",
		MenuItems: []string{"Pizza", "Salad"},
	})
	doJSON(
		http.MethodPost,
		tr.server.URL+"/api/parties/party-1/claims",
		token,
		models.ClaimRequest{Date: "2024-01-02", Item: "Salad", Claimant: "Bob"},
	)

	resp, body := doJSON(http.MethodGet, tr.server.URL+"/api/parties/party-1/export", token, nil)

	fmt.Println(resp.Header.Get("Content-Disposition"))
	fmt.Print(string(body))

	// Output:
	// attachment; filename="Team-lunch-selections.csv"
	// Date,Menu Item,Selected By
	// "2024-01-02","Salad","Bob"
}
