package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"
)

var (
	errUserExists     = errors.New("username already taken")
	errBadCredentials = errors.New("invalid username or password")
)

type userAccount struct {
	id           string
	name         string
	passwordHash []byte
	createdAt    time.Time
}

// UserStore keeps registered accounts in memory, keyed by username.
type UserStore struct {
	mu     sync.Mutex
	byName map[string]*userAccount
}

func newUserStore() *UserStore {
	return &UserStore{
		byName: make(map[string]*userAccount),
	}
}

func (s *UserStore) Register(username, password string) (*userAccount, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byName[username]; taken {
		return nil, errUserExists
	}

	account := &userAccount{
		id:           uuid.NewString(),
		name:         username,
		passwordHash: hash,
		createdAt:    time.Now(),
	}
	s.byName[username] = account

	return account, nil
}

func (s *UserStore) Authenticate(username, password string) (*userAccount, error) {
	s.mu.Lock()
	account, ok := s.byName[username]
	s.mu.Unlock()

	if !ok {
		return nil, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(account.passwordHash, []byte(password)); err != nil {
		return nil, errBadCredentials
	}

	return account, nil
}

// TokenIssuer mints and verifies the HS256 session tokens that the
// websocket handshake consumes.
type TokenIssuer struct {
	secret   []byte
	lifetime time.Duration
}

func newTokenIssuer(secret string, lifetime time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:   []byte(secret),
		lifetime: lifetime,
	}
}

func (t *TokenIssuer) Issue(playerID, username string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  playerID,
		"name": username,
		"exp":  now.Add(t.lifetime).Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *TokenIssuer) Verify(tokenString string) (Participant, error) {
	token, err := jwt.Parse(tokenString, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnauthenticated
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return Participant{}, errUnauthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Participant{}, errUnauthenticated
	}

	playerID, _ := claims["sub"].(string)
	username, _ := claims["name"].(string)
	if playerID == "" {
		return Participant{}, errUnauthenticated
	}

	return Participant{ID: playerID, Name: username}, nil
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return req, false
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return req, false
	}

	return req, true
}

func serveRegister(cfg *Config, users *UserStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		req, ok := decodeCredentials(w, r)
		if !ok {
			return
		}

		account, err := users.Register(req.Username, req.Password)
		if errors.Is(err, errUserExists) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if err != nil {
			http.Error(w, "registration failed", http.StatusInternalServerError)
			return
		}

		logf(cfg, "AUTH: Registered user %q (%s) from %s", account.name, account.id, realIP(r))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"playerId": account.id,
			"username": account.name,
		})
	}
}

func serveLogin(cfg *Config, users *UserStore, tokens *TokenIssuer) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		req, ok := decodeCredentials(w, r)
		if !ok {
			return
		}

		account, err := users.Authenticate(req.Username, req.Password)
		if err != nil {
			http.Error(w, errBadCredentials.Error(), http.StatusUnauthorized)
			return
		}

		token, err := tokens.Issue(account.id, account.name)
		if err != nil {
			http.Error(w, "token issuance failed", http.StatusInternalServerError)
			return
		}

		logf(cfg, "AUTH: User %q logged in from %s", account.name, realIP(r))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(loginResponse{
			Token:    token,
			PlayerID: account.id,
			Username: account.name,
		})
	}
}
