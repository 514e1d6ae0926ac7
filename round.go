package main

import "time"

// roundRelease describes the outcome of a readiness-barrier evaluation.
type roundRelease struct {
	released bool
	over     bool
	round    int
	location Coordinate
}

// tryAdvanceLocked releases the readiness barrier when every currently
// connected participant has signaled ready. The check runs synchronously
// after each mutation of the ready set or the roster, so exactly one
// release happens per full round of signals. A party that has passed its
// round limit is terminal and never advances again.
func (p *Party) tryAdvanceLocked(locations LocationProvider) roundRelease {
	if p.gameOver || len(p.participants) == 0 {
		return roundRelease{}
	}
	if len(p.ready) < len(p.participants) {
		return roundRelease{}
	}

	clear(p.ready)
	p.round++

	if p.round > p.roundLimit {
		p.gameOver = true
		p.trueLocation = nil
		return roundRelease{released: true, over: true}
	}

	location := locations.NextLocation(p.mode)
	p.trueLocation = &location
	p.guesses = make(map[string]Coordinate)

	return roundRelease{released: true, round: p.round, location: location}
}

// MarkReady records a readiness signal and advances the round once the
// whole party is ready. Unknown codes and non-members are silent no-ops.
func (reg *PartyRegistry) MarkReady(code, playerID string) {
	p := reg.party(code)
	if p == nil {
		return
	}

	p.mu.Lock()
	if p.gameOver || !p.memberLocked(playerID) {
		p.mu.Unlock()
		return
	}
	p.ready[playerID] = struct{}{}
	p.lastActive = time.Now()
	ids := p.playerIDsLocked()
	release := p.tryAdvanceLocked(reg.locations)
	p.mu.Unlock()

	reg.events.ToPlayers(ids, PlayerReadyMessage{
		Type:     "player-ready",
		PlayerID: playerID,
	})
	reg.emitRelease(p, ids, release)
}

func (reg *PartyRegistry) emitRelease(p *Party, ids []string, release roundRelease) {
	if !release.released {
		return
	}

	if release.over {
		logf(reg.cfg, "GAMES: Party %s finished after %d rounds", p.code, p.roundLimit)
		reg.events.ToPlayers(ids, GameOverMessage{Type: "game-over"})
		return
	}

	logf(reg.cfg, "GAMES: Party %s advanced to round %d", p.code, release.round)
	reg.events.ToPlayers(ids, NewRoundMessage{
		Type:     "new-round",
		Location: release.location,
		Round:    release.round,
	})
}
