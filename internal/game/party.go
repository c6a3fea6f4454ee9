package game

import (
	"time"

	"github.com/kiliankoe/partyhouse/internal/cards"
)

// startTurn opens a fresh party for the player holding the turn.
func (r *Room) startTurn(o *Outcome) {
	p, err := r.currentPlayer()
	if err != nil {
		return
	}
	p.InitializeRound()
	r.Party = Party{
		GuestsInHouse: []cards.Card{},
		HouseCapacity: p.HouseCapacity,
		State:         PartyActive,
	}
	o.reply(p.ID, EventYourTurn, p.TurnView(r.Market))
	o.broadcast(EventPartyUpdate, r.partyView())
}

// InviteGuest draws one guest for the caller. Manual invites never go over
// capacity; automated ones always apply and may lose the party.
func (r *Room) InviteGuest(playerID string, isAuto bool) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.turnOwner(playerID)
	if err != nil {
		return Outcome{}, err
	}
	if !r.Party.IsActive() {
		return Outcome{}, ErrPartyNotActive
	}
	o := r.outcome()
	if !isAuto && len(p.Hand) >= p.HouseCapacity {
		return o, nil
	}

	card, ok := p.DrawCard(r.rng)
	if !ok && p.Reshuffle(r.rng) > 0 {
		card, ok = p.DrawCard(r.rng)
	}
	if !ok {
		r.settle(&o, p, StopDeckExhausted, false)
		return o, nil
	}

	res := p.TryAddCard(card, isAuto)
	if !res.Success && res.Reason == "" {
		return o, nil
	}
	r.Party.GuestsInHouse = append(r.Party.GuestsInHouse, card)
	if !res.Success {
		reason := StopTroubleOverflow
		if res.Reason == ReasonCapacityExceeded {
			reason = StopCapacityOverflow
		}
		r.settle(&o, p, reason, true)
		return o, nil
	}
	o.reply(p.ID, EventHandUpdate, p.TurnView(r.Market))
	o.broadcast(EventPartyUpdate, r.partyView())
	return o, nil
}

// EndParty closes the caller's party. A forced end scores nothing.
func (r *Room) EndParty(playerID string, forced bool) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.turnOwner(playerID)
	if err != nil {
		return Outcome{}, err
	}
	if !r.Party.IsActive() {
		return Outcome{}, ErrPartyNotActive
	}
	o := r.outcome()
	r.settle(&o, p, StopManualEnd, forced)
	return o, nil
}

// settle stops the party, scores it, cycles the guests out and hands the
// turn to the next player.
func (r *Room) settle(o *Outcome, p *Player, reason StopReason, forced bool) {
	r.Party.State = PartyStopped
	r.Party.StopReason = reason

	var score Score
	busted := p.TroubleCount() > MaxTrouble || len(p.Hand) > r.Party.HouseCapacity
	if !forced && !busted {
		score = p.CountScore()
	}
	if reason != StopManualEnd {
		score.Reason = string(reason)
	}

	guests := make([]string, 0, len(p.Hand))
	for _, c := range p.Hand {
		guests = append(guests, c.Name)
	}
	o.Reports = append(o.Reports, PartyReport{
		RoomID:     r.ID,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Guests:     guests,
		Reason:     reason,
		Score:      score,
		At:         time.Now().UTC(),
	})
	o.broadcast(EventPartyStopped, r.partyView())
	o.reply(p.ID, EventPartyResults, score)

	p.DiscardHand()
	r.advance(o)
	o.broadcast(EventUpdatePlayers, r.playerViews())
}

// advance moves the turn index one step, wrapping around, and opens the
// next player's party.
func (r *Room) advance(o *Outcome) {
	if len(r.TurnOrder) == 0 {
		return
	}
	r.CurrentTurnIndex = (r.CurrentTurnIndex + 1) % len(r.TurnOrder)
	r.startTurn(o)
}

func (r *Room) partyView() PartyView {
	v := PartyView{
		GuestsInHouse: cloneCards(r.Party.GuestsInHouse),
		HouseCapacity: r.Party.HouseCapacity,
		IsActive:      r.Party.IsActive(),
		StopReason:    r.Party.StopReason,
	}
	if r.Started && len(r.TurnOrder) > 0 {
		v.PlayerID = r.TurnOrder[r.CurrentTurnIndex]
	}
	return v
}
