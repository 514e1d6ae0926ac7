package main

// Messages coming from clients
type ClientMessage struct {
	Type       string  `json:"type"`                 // "create-party", "join-party", "player-ready", "submit-guess", "request-new-location", "leave-party"
	RoundLimit int     `json:"roundLimit,omitempty"` // create-party
	Mode       string  `json:"mode,omitempty"`       // create-party / request-new-location
	Code       string  `json:"code,omitempty"`       // join-party
	Lat        float64 `json:"lat,omitempty"`        // submit-guess
	Lng        float64 `json:"lng,omitempty"`        // submit-guess
}

// PartyCreatedMessage is sent to the host after create-party.
type PartyCreatedMessage struct {
	Type         string        `json:"type"` // "party-created"
	Code         string        `json:"code"`
	Mode         string        `json:"mode"`
	RoundLimit   int           `json:"roundLimit"`
	Participants []Participant `json:"participants"`
}

// PlayerJoinedMessage broadcasts the updated roster after a join.
type PlayerJoinedMessage struct {
	Type         string        `json:"type"` // "player-joined"
	Participants []Participant `json:"participants"`
}

// PlayerLeftMessage broadcasts the updated roster after a leave/disconnect.
type PlayerLeftMessage struct {
	Type         string        `json:"type"` // "player-left"
	Participants []Participant `json:"participants"`
}

// PlayerReadyMessage notifies the party of a readiness signal.
type PlayerReadyMessage struct {
	Type     string `json:"type"` // "player-ready"
	PlayerID string `json:"playerId"`
}

// NewRoundMessage starts a round with its location and number.
type NewRoundMessage struct {
	Type     string     `json:"type"` // "new-round"
	Location Coordinate `json:"location"`
	Round    int        `json:"round,omitempty"`
	Mode     string     `json:"mode,omitempty"` // single-player convenience path only
}

// RoundResultsMessage reveals the true location and everyone's guesses.
type RoundResultsMessage struct {
	Type         string                `json:"type"` // "round-results"
	TrueLocation Coordinate            `json:"trueLocation"`
	Guesses      map[string]Coordinate `json:"guesses"` // keyed by player ID
}

// GameOverMessage marks the party terminal.
type GameOverMessage struct {
	Type string `json:"type"` // "game-over"
}

// ErrorMessage is sent to a single client whose event was rejected.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}
