package main

import (
	"crypto/rand"
	"slices"
	"sync"
	"time"
)

// Mode selects how round locations are drawn.
type Mode string

const (
	ModeHotspot Mode = "hotspot"
	ModeRandom  Mode = "random"
)

func (m Mode) valid() bool {
	return m == ModeHotspot || m == ModeRandom
}

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Participant is the authenticated identity attached to a connection.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LocationProvider returns a coordinate inside the playable boundary.
type LocationProvider interface {
	NextLocation(mode Mode) Coordinate
}

// Broadcaster delivers events to one player or a set of players.
// The websocket hub implements it; tests substitute a recorder.
type Broadcaster interface {
	ToPlayer(playerID string, msg any)
	ToPlayers(playerIDs []string, msg any)
}

// Party is one game session. All round state is guarded by mu;
// operations on different parties proceed independently.
type Party struct {
	code       string
	mode       Mode
	roundLimit int
	host       string

	mu           sync.Mutex
	participants []Participant       // insertion order, unique by ID
	ready        map[string]struct{} // cleared on every round start
	round        int
	gameOver     bool
	trueLocation *Coordinate // nil outside an active round
	guesses      map[string]Coordinate
	lastActive   time.Time
}

func newParty(code string, host Participant, roundLimit int, mode Mode) *Party {
	return &Party{
		code:         code,
		mode:         mode,
		roundLimit:   roundLimit,
		host:         host.ID,
		participants: []Participant{host},
		ready:        make(map[string]struct{}),
		guesses:      make(map[string]Coordinate),
		lastActive:   time.Now(),
	}
}

func (p *Party) memberLocked(playerID string) bool {
	return slices.ContainsFunc(p.participants, func(m Participant) bool {
		return m.ID == playerID
	})
}

// addParticipantLocked is idempotent: rejoining does not duplicate.
func (p *Party) addParticipantLocked(member Participant) {
	if !p.memberLocked(member.ID) {
		p.participants = append(p.participants, member)
	}
}

func (p *Party) removeParticipantLocked(playerID string) {
	p.participants = slices.DeleteFunc(p.participants, func(m Participant) bool {
		return m.ID == playerID
	})
	delete(p.ready, playerID)
	delete(p.guesses, playerID)
}

func (p *Party) rosterLocked() []Participant {
	return slices.Clone(p.participants)
}

func (p *Party) playerIDsLocked() []string {
	ids := make([]string, 0, len(p.participants))
	for _, m := range p.participants {
		ids = append(ids, m.ID)
	}
	return ids
}

// PartyRegistry owns all active parties. Party codes are unique for the
// lifetime of the process; a player belongs to at most one party at a time.
type PartyRegistry struct {
	mu       sync.Mutex
	parties  map[string]*Party
	byPlayer map[string]string // playerID -> party code

	locations LocationProvider
	events    Broadcaster
	cfg       *Config
}

func newPartyRegistry(cfg *Config, locations LocationProvider, events Broadcaster) *PartyRegistry {
	return &PartyRegistry{
		parties:   make(map[string]*Party),
		byPlayer:  make(map[string]string),
		locations: locations,
		events:    events,
		cfg:       cfg,
	}
}

const (
	partyCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	partyCodeLength   = 6
)

// newPartyCodeLocked generates a crypto-random party code, regenerating
// until it doesn't collide with a registered party.
func (reg *PartyRegistry) newPartyCodeLocked() string {
	for {
		buf := make([]byte, partyCodeLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, partyCodeLength)
		for i := range out {
			out[i] = partyCodeAlphabet[int(buf[i])%len(partyCodeAlphabet)]
		}
		code := string(out)

		if _, exists := reg.parties[code]; !exists {
			return code
		}
	}
}

// CreateParty registers a new party with the host as its only participant
// and emits party-created to the host.
func (reg *PartyRegistry) CreateParty(host Participant, roundLimit int, mode Mode) (string, error) {
	if roundLimit < 1 {
		return "", errInvalidState
	}
	if !mode.valid() {
		return "", errInvalidState
	}

	reg.mu.Lock()
	previous := reg.leaveLocked(host.ID)

	code := reg.newPartyCodeLocked()
	p := newParty(code, host, roundLimit, mode)
	reg.parties[code] = p
	reg.byPlayer[host.ID] = code
	reg.mu.Unlock()

	reg.notifyDeparture(previous)

	logf(reg.cfg, "GAMES: Party %s created by %q (mode=%s, rounds=%d)", code, host.Name, mode, roundLimit)

	reg.events.ToPlayer(host.ID, PartyCreatedMessage{
		Type:         "party-created",
		Code:         code,
		Mode:         string(mode),
		RoundLimit:   roundLimit,
		Participants: []Participant{host},
	})

	return code, nil
}

// JoinParty adds a player to an existing party and broadcasts the updated
// roster. Joining a party the player already belongs to is a no-op beyond
// the roster broadcast.
func (reg *PartyRegistry) JoinParty(code string, member Participant) error {
	reg.mu.Lock()
	p, ok := reg.parties[code]
	if !ok {
		reg.mu.Unlock()
		return errPartyNotFound
	}

	var previous *Party
	if prev, ok := reg.byPlayer[member.ID]; ok && prev != code {
		previous = reg.leaveLocked(member.ID)
	}
	reg.byPlayer[member.ID] = code

	// The association and the roster must change together: releasing the
	// registry lock between them leaves a window where the party can be
	// destroyed as empty while the joiner exists only in byPlayer.
	p.mu.Lock()
	p.addParticipantLocked(member)
	p.lastActive = time.Now()
	roster := p.rosterLocked()
	ids := p.playerIDsLocked()
	p.mu.Unlock()
	reg.mu.Unlock()

	reg.notifyDeparture(previous)

	logf(reg.cfg, "GAMES: Player %q joined %s", member.Name, code)

	reg.events.ToPlayers(ids, PlayerJoinedMessage{
		Type:         "player-joined",
		Participants: roster,
	})

	return nil
}

// Leave removes a player from whichever party they belong to, broadcasts
// the updated roster, and re-evaluates both barriers so the remaining
// participants can still finish the round. Empty parties are destroyed.
func (reg *PartyRegistry) Leave(playerID string) {
	reg.mu.Lock()
	p := reg.leaveLocked(playerID)
	reg.mu.Unlock()

	reg.notifyDeparture(p)
}

// notifyDeparture broadcasts the shrunken roster and re-evaluates both
// barriers of a party a player was just removed from. A departure may be
// exactly the event a pending barrier was waiting on.
func (reg *PartyRegistry) notifyDeparture(p *Party) {
	if p == nil {
		return
	}

	p.mu.Lock()
	roster := p.rosterLocked()
	ids := p.playerIDsLocked()
	results := p.collectResultsLocked()
	release := p.tryAdvanceLocked(reg.locations)
	p.mu.Unlock()

	reg.events.ToPlayers(ids, PlayerLeftMessage{
		Type:         "player-left",
		Participants: roster,
	})
	reg.emitResults(ids, results)
	reg.emitRelease(p, ids, release)
}

// leaveLocked detaches the player and returns the affected party, or nil.
// The party is dropped from the registry once its roster is empty.
func (reg *PartyRegistry) leaveLocked(playerID string) *Party {
	code, ok := reg.byPlayer[playerID]
	if !ok {
		return nil
	}
	delete(reg.byPlayer, playerID)

	p, ok := reg.parties[code]
	if !ok {
		return nil
	}

	p.mu.Lock()
	p.removeParticipantLocked(playerID)
	p.lastActive = time.Now()
	empty := len(p.participants) == 0
	p.mu.Unlock()

	if empty {
		delete(reg.parties, code)
		logf(reg.cfg, "GAMES: Party %s is empty, destroyed", code)
		return nil
	}

	return p
}

// PartyOf returns the code of the party the player belongs to, if any.
func (reg *PartyRegistry) PartyOf(playerID string) (string, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	code, ok := reg.byPlayer[playerID]
	return code, ok
}

func (reg *PartyRegistry) party(code string) *Party {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return reg.parties[code]
}

// Exists reports whether a party code is currently registered.
func (reg *PartyRegistry) Exists(code string) bool {
	return reg.party(code) != nil
}

// reaperLoop periodically destroys parties idle longer than idleTimeout.
func (reg *PartyRegistry) reaperLoop(idleTimeout time.Duration) {
	ticker := time.NewTicker(idleTimeout / 2)
	for range ticker.C {
		reg.reapIdleParties(time.Now().Add(-idleTimeout))
	}
}

// reapIdleParties destroys every party whose last activity predates cutoff.
// Members with live connections hear game-over so their clients don't wait
// in a lobby that no longer exists.
func (reg *PartyRegistry) reapIdleParties(cutoff time.Time) {
	var reaped [][]string

	reg.mu.Lock()
	for code, p := range reg.parties {
		p.mu.Lock()
		last := p.lastActive
		ids := p.playerIDsLocked()
		p.mu.Unlock()

		if last.Before(cutoff) {
			delete(reg.parties, code)
			for _, id := range ids {
				delete(reg.byPlayer, id)
			}
			reaped = append(reaped, ids)
			logf(reg.cfg, "GAMES: Reaped idle party %s", code)
		}
	}
	reg.mu.Unlock()

	for _, ids := range reaped {
		reg.events.ToPlayers(ids, GameOverMessage{Type: "game-over"})
	}
}
