package game

import (
	"sort"
	"sync"

	"github.com/kiliankoe/partyhouse/internal/cards"
)

// RoomManager is the registry of live rooms. Lock order is manager, then room.
type RoomManager struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	catalog  *cards.Catalog
	settings Settings
	newRand  func() Rand
}

type Option func(*RoomManager)

func WithSettings(s Settings) Option {
	return func(rm *RoomManager) { rm.settings = s }
}

// WithRand sets the randomness factory; it is called once per room.
func WithRand(f func() Rand) Option {
	return func(rm *RoomManager) { rm.newRand = f }
}

func NewRoomManager(catalog *cards.Catalog, opts ...Option) *RoomManager {
	rm := &RoomManager{
		rooms:    make(map[string]*Room),
		catalog:  catalog,
		settings: DefaultSettings(),
		newRand:  NewRand,
	}
	for _, opt := range opts {
		opt(rm)
	}
	return rm
}

// CheckSettings reports whether the catalog can fill a market of the
// configured size.
func (rm *RoomManager) CheckSettings() error {
	return NewMarketGenerator(rm.catalog, rm.settings.MarketSize).Check()
}

// Departure is the result of removing a participant from one room.
type Departure struct {
	RoomID  string
	Outcome Outcome
	Closed  bool
}

// CreateRoom opens a new room with its creator seated.
func (rm *RoomManager) CreateRoom(roomID, playerID, name string) (*Room, *Player, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.rooms[roomID] != nil {
		return nil, nil, ErrRoomExists
	}
	r := newRoom(roomID, rm.catalog, rm.settings, rm.newRand())
	p, err := r.addPlayer(playerID, name)
	if err != nil {
		return nil, nil, err
	}
	rm.rooms[roomID] = r
	return r, p, nil
}

// JoinRoom seats a participant, opening the room if nobody has yet.
func (rm *RoomManager) JoinRoom(roomID, playerID, name string) (*Room, *Player, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	r := rm.rooms[roomID]
	if r == nil {
		r = newRoom(roomID, rm.catalog, rm.settings, rm.newRand())
		rm.rooms[roomID] = r
	}
	p, err := r.addPlayer(playerID, name)
	if err != nil {
		return nil, nil, err
	}
	return r, p, nil
}

func (rm *RoomManager) Get(roomID string) (*Room, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	r := rm.rooms[roomID]
	if r == nil {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// RemovePlayer takes a participant out of a room and deletes the room once
// it is empty. The bool reports whether the room was deleted.
func (rm *RoomManager) RemovePlayer(roomID, playerID string) (Outcome, bool, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	r := rm.rooms[roomID]
	if r == nil {
		return Outcome{}, false, ErrRoomNotFound
	}
	o, empty, err := r.removePlayer(playerID)
	if empty {
		delete(rm.rooms, roomID)
	}
	return o, empty, err
}

// Disconnect removes a participant from every room it sits in.
func (rm *RoomManager) Disconnect(playerID string) []Departure {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	var out []Departure
	for _, id := range rm.sortedIDs() {
		r := rm.rooms[id]
		o, empty, err := r.removePlayer(playerID)
		if err != nil {
			continue
		}
		if empty {
			delete(rm.rooms, id)
		}
		out = append(out, Departure{RoomID: id, Outcome: o, Closed: empty})
	}
	return out
}

func (rm *RoomManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

// RoomIDs lists the live rooms in lexical order.
func (rm *RoomManager) RoomIDs() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.sortedIDs()
}

// Close drops every room.
func (rm *RoomManager) Close() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for id, r := range rm.rooms {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		delete(rm.rooms, id)
	}
}

func (rm *RoomManager) sortedIDs() []string {
	ids := make([]string, 0, len(rm.rooms))
	for id := range rm.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
