// GeGuesser party protocol
//
// Players register and log in over HTTP, then connect to /ws with their
// session token. Parties are identified by short shareable codes.
//
// Features:
// - create-party opens a session with a fixed round limit and location mode
// - join-party adds the sender to an existing party by code (idempotent)
// - player-ready marks the sender ready; once the whole party is ready the
//   round advances and everyone receives the new location
// - submit-guess records the sender's coordinate; once every connected
//   participant has guessed, round-results reveals the true location and
//   the full guess mapping
// - request-new-location serves the single-player path without a party
// - disconnecting removes the sender from their party and re-evaluates
//   both barriers so the remaining players are never left waiting
// - random 6-char party codes via crypto/rand, with server-side collision check
// - In-browser QR button to share a party code, backed by go-qrcode

package main

import (
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Client struct {
	conn        *websocket.Conn
	send        chan any
	participant Participant
}

// SessionHub tracks one live connection per player and implements the
// Broadcaster capability consumed by the party registry.
type SessionHub struct {
	mu      sync.Mutex
	clients map[string]*Client // keyed by player ID
}

func newSessionHub() *SessionHub {
	return &SessionHub{
		clients: make(map[string]*Client),
	}
}

// register replaces any previous connection for the same player.
func (h *SessionHub) register(c *Client) {
	h.mu.Lock()
	old := h.clients[c.participant.ID]
	h.clients[c.participant.ID] = c
	h.mu.Unlock()

	if old != nil {
		close(old.send)
		_ = old.conn.Close()
	}
}

func (h *SessionHub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.participant.ID] == c {
		delete(h.clients, c.participant.ID)
		close(c.send)
	}
}

func (h *SessionHub) ToPlayer(playerID string, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[playerID]
	if !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, playerID)
		close(c.send)
	}
}

func (h *SessionHub) ToPlayers(playerIDs []string, msg any) {
	for _, id := range playerIDs {
		h.ToPlayer(id, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (c *Client) readPump(cfg *Config, hub *SessionHub, reg *PartyRegistry, locations LocationProvider) {
	defer func() {
		hub.unregister(c)
		reg.Leave(c.participant.ID)
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		c.dispatch(cfg, hub, reg, locations, msg)
	}
}

func (c *Client) dispatch(cfg *Config, hub *SessionHub, reg *PartyRegistry, locations LocationProvider, msg ClientMessage) {
	switch msg.Type {
	case "create-party":
		_, err := reg.CreateParty(c.participant, msg.RoundLimit, Mode(msg.Mode))
		if err != nil {
			hub.ToPlayer(c.participant.ID, ErrorMessage{
				Type:    "error",
				Message: "invalid round limit or mode",
			})
		}

	case "join-party":
		err := reg.JoinParty(strings.ToUpper(strings.TrimSpace(msg.Code)), c.participant)
		if err != nil {
			hub.ToPlayer(c.participant.ID, ErrorMessage{
				Type:    "error",
				Message: "no party with that code",
			})
		}

	case "player-ready":
		if code, ok := reg.PartyOf(c.participant.ID); ok {
			reg.MarkReady(code, c.participant.ID)
		}

	case "submit-guess":
		code, ok := reg.PartyOf(c.participant.ID)
		if !ok {
			hub.ToPlayer(c.participant.ID, ErrorMessage{
				Type:    "error",
				Message: "not in a party",
			})
			return
		}
		err := reg.SubmitGuess(code, c.participant.ID, Coordinate{Lat: msg.Lat, Lng: msg.Lng})
		if err != nil {
			hub.ToPlayer(c.participant.ID, ErrorMessage{
				Type:    "error",
				Message: "no active round",
			})
		}

	case "request-new-location":
		// Single-player convenience path, bypasses party synchronization.
		mode := Mode(msg.Mode)
		if !mode.valid() {
			mode = ModeRandom
		}
		hub.ToPlayer(c.participant.ID, NewRoundMessage{
			Type:     "new-round",
			Location: locations.NextLocation(mode),
			Mode:     string(mode),
		})

	case "leave-party":
		reg.Leave(c.participant.ID)

	default:
		// ignore unknown types
	}
}

// connectionToken pulls the session token from the query string or an
// Authorization bearer header.
func connectionToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// serveWS authenticates the handshake, upgrades the connection, and runs
// the client pumps. An invalid token rejects the connection before any
// event handler runs.
func serveWS(cfg *Config, hub *SessionHub, reg *PartyRegistry, locations LocationProvider, tokens *TokenIssuer) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		participant, err := tokens.Verify(connectionToken(r))
		if err != nil {
			http.Error(w, "invalid or missing token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:        conn,
			send:        make(chan any, 8),
			participant: participant,
		}

		logf(cfg, "GAMES: Player %q connected from %s", participant.Name, realIP(r))

		hub.register(client)

		go client.writePump()
		client.readPump(cfg, hub, reg, locations)
	}
}

// qrHandler generates a PNG QR code for joining the party at :code.
func qrHandler(cfg *Config, reg *PartyRegistry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := strings.ToUpper(ps.ByName("code"))
		if !reg.Exists(code) {
			http.Error(w, "no party with that code", http.StatusNotFound)
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + "/?join=" + code

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}
