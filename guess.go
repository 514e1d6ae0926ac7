package main

import "time"

// roundResults describes the outcome of a guess-barrier evaluation.
type roundResults struct {
	done         bool
	trueLocation Coordinate
	guesses      map[string]Coordinate
}

// collectResultsLocked releases the guess barrier when every currently
// connected participant has submitted a guess for the active round.
// Releasing closes the round (trueLocation is cleared), so late or
// duplicate guesses cannot fire a second round-results.
func (p *Party) collectResultsLocked() roundResults {
	if p.trueLocation == nil || len(p.participants) == 0 {
		return roundResults{}
	}
	if len(p.guesses) < len(p.participants) {
		return roundResults{}
	}

	results := roundResults{
		done:         true,
		trueLocation: *p.trueLocation,
		guesses:      p.guesses,
	}
	p.trueLocation = nil
	p.guesses = make(map[string]Coordinate)

	return results
}

// SubmitGuess records a guess for the active round. Resubmitting
// overwrites the previous guess without double-counting. Once all
// connected participants have guessed, round-results is broadcast with
// the stored true location and the full guess mapping.
func (reg *PartyRegistry) SubmitGuess(code, playerID string, guess Coordinate) error {
	p := reg.party(code)
	if p == nil {
		return errPartyNotFound
	}

	p.mu.Lock()
	if !p.memberLocked(playerID) || p.trueLocation == nil {
		p.mu.Unlock()
		return errInvalidState
	}
	p.guesses[playerID] = guess
	p.lastActive = time.Now()
	ids := p.playerIDsLocked()
	results := p.collectResultsLocked()
	p.mu.Unlock()

	reg.emitResults(ids, results)

	return nil
}

func (reg *PartyRegistry) emitResults(ids []string, results roundResults) {
	if !results.done {
		return
	}

	reg.events.ToPlayers(ids, RoundResultsMessage{
		Type:         "round-results",
		TrueLocation: results.trueLocation,
		Guesses:      results.guesses,
	})
}
