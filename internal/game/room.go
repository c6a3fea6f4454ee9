package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/kiliankoe/partyhouse/internal/cards"
)

// Room is one match. All exported methods serialize on the room mutex.
type Room struct {
	ID               string
	Players          map[string]*Player
	Market           []cards.Card
	Started          bool
	TurnOrder        []string
	CurrentTurnIndex int
	Party            Party
	CreatedAt        time.Time

	seats    []string // join order
	settings Settings
	catalog  *cards.Catalog
	market   MarketGenerator
	rng      Rand
	closed   bool

	mu sync.Mutex
}

func newRoom(id string, catalog *cards.Catalog, settings Settings, rng Rand) *Room {
	return &Room{
		ID:        id,
		Players:   make(map[string]*Player),
		CreatedAt: time.Now().UTC(),
		Party:     Party{State: PartyIdle, HouseCapacity: settings.HouseCapacity},
		settings:  settings,
		catalog:   catalog,
		market:    NewMarketGenerator(catalog, settings.MarketSize),
		rng:       rng,
	}
}

// addPlayer seats a participant. A participant already in the room keeps
// its player.
func (r *Room) addPlayer(id, name string) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRoomNotFound
	}
	if p := r.Players[id]; p != nil {
		return p, nil
	}
	if name == "" {
		name = fmt.Sprintf("Player%d", len(r.seats)+1)
	}
	deck := r.catalog.StarterDeck()
	r.rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	p := NewPlayer(id, r.ID, name, deck)
	if r.settings.HouseCapacity > 0 {
		p.HouseCapacity = r.settings.HouseCapacity
	}
	r.Players[id] = p
	r.seats = append(r.seats, id)
	return p, nil
}

// removePlayer drops a participant. When the leaving player held the turn
// their party is forfeited and the next player in order takes over.
func (r *Room) removePlayer(id string) (Outcome, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Outcome{}, false, ErrRoomNotFound
	}
	if r.Players[id] == nil {
		return Outcome{}, false, ErrPlayerNotInRoom
	}
	o := r.outcome()
	delete(r.Players, id)
	r.seats = removeID(r.seats, id)
	if len(r.Players) == 0 {
		r.closed = true
		return o, true, nil
	}

	if r.Started {
		idx := indexOf(r.TurnOrder, id)
		if idx >= 0 {
			wasActive := idx == r.CurrentTurnIndex
			r.TurnOrder = removeID(r.TurnOrder, id)
			switch {
			case len(r.TurnOrder) == 0:
				r.resetToLobby()
			case idx < r.CurrentTurnIndex:
				r.CurrentTurnIndex--
			case wasActive:
				if r.CurrentTurnIndex >= len(r.TurnOrder) {
					r.CurrentTurnIndex = 0
				}
				o.broadcast(EventPartyStopped, PartyView{
					PlayerID:      id,
					GuestsInHouse: cloneCards(r.Party.GuestsInHouse),
					HouseCapacity: r.Party.HouseCapacity,
					StopReason:    StopManualEnd,
				})
				r.startTurn(&o)
			}
		}
	}

	o.broadcast(EventUpdatePlayers, r.playerViews())
	// The departure stands even if the remaining players cannot start;
	// the room stays in the lobby and the next ToggleReady reports why.
	_ = r.maybeStart(&o)
	return o, false, nil
}

func (r *Room) resetToLobby() {
	r.Started = false
	r.Market = nil
	r.TurnOrder = nil
	r.CurrentTurnIndex = 0
	r.Party = Party{State: PartyIdle, HouseCapacity: r.settings.HouseCapacity}
	for _, p := range r.Players {
		p.Ready = false
	}
}

// ToggleReady flips the caller's ready flag and starts the game once every
// seated player is ready.
func (r *Room) ToggleReady(playerID string) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Outcome{}, ErrRoomNotFound
	}
	p := r.Players[playerID]
	if p == nil {
		return Outcome{}, ErrPlayerNotInRoom
	}
	o := r.outcome()
	p.ToggleReady()
	if err := r.maybeStart(&o); err != nil {
		p.ToggleReady()
		return Outcome{}, err
	}
	// players first so clients see everyone ready before the game starts
	o.Notifications = append([]Notification{{Scope: ScopeRoom, Event: EventUpdatePlayers, Data: r.playerViews()}}, o.Notifications...)
	return o, nil
}

func (r *Room) allReady() bool {
	if len(r.Players) == 0 || len(r.Players) < r.settings.MinPlayers {
		return false
	}
	for _, p := range r.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

func (r *Room) maybeStart(o *Outcome) error {
	if r.Started || !r.allReady() {
		return nil
	}
	market, err := r.market.Generate(r.rng)
	if err != nil {
		return err
	}
	r.Started = true
	r.Market = market
	r.TurnOrder = append([]string(nil), r.seats...)
	r.CurrentTurnIndex = 0
	for _, id := range r.TurnOrder {
		r.Players[id].InitializeRound()
	}
	o.broadcast(EventStartGame, map[string]any{
		"market":    cloneCards(r.Market),
		"turnOrder": append([]string(nil), r.TurnOrder...),
	})
	r.startTurn(o)
	return nil
}

// BuyCard moves a market card into the caller's deck. Buying closes the
// caller's party, which is scored as a voluntary end, and passes the turn.
func (r *Room) BuyCard(playerID, cardName string) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.turnOwner(playerID)
	if err != nil {
		return Outcome{}, err
	}
	idx := -1
	for i, c := range r.Market {
		if c.Name == cardName {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Outcome{}, ErrCardNotInMarket
	}
	o := r.outcome()
	card := r.Market[idx]
	r.Market = append(r.Market[:idx], r.Market[idx+1:]...)
	p.Acquire(cards.NewInstance(card))

	o.reply(p.ID, EventHandUpdate, p.TurnView(r.Market))
	o.broadcast(EventMarketUpdate, cloneCards(r.Market))
	r.settle(&o, p, StopManualEnd, false)
	return o, nil
}

// PassTurn forfeits the rest of the caller's turn.
func (r *Room) PassTurn(playerID string) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.turnOwner(playerID)
	if err != nil {
		return Outcome{}, err
	}
	o := r.outcome()
	r.settle(&o, p, StopManualEnd, true)
	return o, nil
}

// NextPlayer hands the turn on outside of the draw flow. An unfinished
// party is forfeited like with PassTurn.
func (r *Room) NextPlayer(playerID string) (Outcome, error) {
	return r.PassTurn(playerID)
}

// TryLockManualAction guards against the same client submitting a manual
// action twice. The caller releases the guard when its command returns.
func (r *Room) TryLockManualAction(playerID string) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRoomNotFound
	}
	p := r.Players[playerID]
	if p == nil {
		return nil, ErrPlayerNotInRoom
	}
	release, ok := p.TryLockManualAction()
	if !ok {
		return nil, ErrActionInFlight
	}
	return release, nil
}

// CurrentPlayer returns the player holding the turn.
func (r *Room) CurrentPlayer() (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentPlayer()
}

func (r *Room) currentPlayer() (*Player, error) {
	if len(r.TurnOrder) == 0 {
		return nil, ErrEmptyTurnOrder
	}
	p := r.Players[r.TurnOrder[r.CurrentTurnIndex]]
	if p == nil {
		return nil, ErrPlayerNotInRoom
	}
	return p, nil
}

// turnOwner resolves the caller and checks that the turn is theirs.
func (r *Room) turnOwner(playerID string) (*Player, error) {
	if r.closed {
		return nil, ErrRoomNotFound
	}
	p := r.Players[playerID]
	if p == nil {
		return nil, ErrPlayerNotInRoom
	}
	if !r.Started {
		return nil, ErrGameNotStarted
	}
	if len(r.TurnOrder) == 0 {
		return nil, ErrEmptyTurnOrder
	}
	if r.TurnOrder[r.CurrentTurnIndex] != playerID {
		return nil, ErrNotYourTurn
	}
	return p, nil
}

// Snapshot returns a copy of the public room state.
func (r *Room) Snapshot() RoomView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomView{
		ID:               r.ID,
		Players:          r.playerViews(),
		Market:           cloneCards(r.Market),
		Started:          r.Started,
		TurnOrder:        append([]string{}, r.TurnOrder...),
		CurrentTurnIndex: r.CurrentTurnIndex,
		Party:            r.partyView(),
	}
}

// PlayerTurnView returns the private pile view of one player.
func (r *Room) PlayerTurnView(playerID string) (TurnView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.Players[playerID]
	if p == nil {
		return TurnView{}, ErrPlayerNotInRoom
	}
	return p.TurnView(r.Market), nil
}

func (r *Room) playerViews() []PlayerView {
	out := make([]PlayerView, 0, len(r.seats))
	for _, id := range r.seats {
		if p := r.Players[id]; p != nil {
			out = append(out, p.View())
		}
	}
	return out
}

func (r *Room) outcome() Outcome {
	return Outcome{RoomID: r.ID}
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func removeID(ids []string, id string) []string {
	if i := indexOf(ids, id); i >= 0 {
		return append(ids[:i:i], ids[i+1:]...)
	}
	return ids
}
