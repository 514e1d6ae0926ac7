package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
)

func testIssuer() *TokenIssuer {
	return newTokenIssuer("test-secret", time.Hour)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	users := newUserStore()

	account, err := users.Register("alice", "hunter2")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if account.id == "" {
		t.Fatal("account has no player ID")
	}

	if _, err := users.Register("alice", "other"); err != errUserExists {
		t.Fatalf("duplicate Register = %v, want errUserExists", err)
	}

	got, err := users.Authenticate("alice", "hunter2")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.id != account.id {
		t.Fatalf("Authenticate returned account %q, want %q", got.id, account.id)
	}

	if _, err := users.Authenticate("alice", "wrong"); err != errBadCredentials {
		t.Fatalf("wrong password = %v, want errBadCredentials", err)
	}
	if _, err := users.Authenticate("nobody", "hunter2"); err != errBadCredentials {
		t.Fatalf("unknown user = %v, want errBadCredentials", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := testIssuer()

	token, err := tokens.Issue("player-1", "alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	participant, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if participant.ID != "player-1" || participant.Name != "alice" {
		t.Fatalf("Verify = %+v", participant)
	}
}

func TestVerifyRejectsInvalidTokens(t *testing.T) {
	tokens := testIssuer()

	other := newTokenIssuer("other-secret", time.Hour)
	foreign, err := other.Issue("player-1", "alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	expired := newTokenIssuer("test-secret", -time.Hour)
	stale, err := expired.Issue("player-1", "alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"wrong secret", foreign},
		{"expired", stale},
	}

	for _, tc := range cases {
		if _, err := tokens.Verify(tc.token); err == nil {
			t.Errorf("%s: Verify succeeded, want error", tc.name)
		}
	}
}

func authRouter(cfg *Config) (*httprouter.Router, *TokenIssuer) {
	users := newUserStore()
	tokens := testIssuer()

	mux := httprouter.New()
	mux.POST("/register", serveRegister(cfg, users))
	mux.POST("/login", serveLogin(cfg, users, tokens))

	return mux, tokens
}

func postJSON(t *testing.T, mux *httprouter.Router, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	return w
}

func TestRegisterAndLoginHandlers(t *testing.T) {
	mux, tokens := authRouter(&Config{})

	creds := credentialsRequest{Username: "bob", Password: "s3cret"}

	if w := postJSON(t, mux, "/register", creds); w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want %d", w.Code, http.StatusCreated)
	}
	if w := postJSON(t, mux, "/register", creds); w.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want %d", w.Code, http.StatusConflict)
	}

	w := postJSON(t, mux, "/login", creds)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d", w.Code, http.StatusOK)
	}

	var session loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if session.Username != "bob" {
		t.Fatalf("login username = %q, want %q", session.Username, "bob")
	}

	participant, err := tokens.Verify(session.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if participant.ID != session.PlayerID {
		t.Fatalf("token player = %q, response player = %q", participant.ID, session.PlayerID)
	}

	if w := postJSON(t, mux, "/login", credentialsRequest{Username: "bob", Password: "wrong"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	if w := postJSON(t, mux, "/login", credentialsRequest{Username: "bob"}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing password status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
