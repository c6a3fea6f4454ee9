package game

import "errors"

var (
	ErrRoomExists      = errors.New("room already exists")
	ErrRoomNotFound    = errors.New("room not found")
	ErrPlayerNotInRoom = errors.New("player not in room")
	ErrEmptyTurnOrder  = errors.New("no players in turn order")
	ErrGameNotStarted  = errors.New("game not started")
	ErrCardNotInMarket = errors.New("card not found in market")

	ErrNotYourTurn = errors.New("not your turn")

	ErrPartyNotActive  = errors.New("party not active")
	ErrActionInFlight  = errors.New("action already in progress")
	ErrCatalogTooSmall = errors.New("catalog too small for market")
)

// ErrorCode maps engine errors to the short codes sent to clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomExists):
		return "room_exists"
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrPlayerNotInRoom):
		return "player_not_in_room"
	case errors.Is(err, ErrEmptyTurnOrder):
		return "empty_turn_order"
	case errors.Is(err, ErrGameNotStarted):
		return "game_not_started"
	case errors.Is(err, ErrCardNotInMarket):
		return "card_not_in_market"
	case errors.Is(err, ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, ErrPartyNotActive):
		return "party_not_active"
	case errors.Is(err, ErrActionInFlight):
		return "action_in_flight"
	case errors.Is(err, ErrCatalogTooSmall):
		return "market_unavailable"
	}
	return "internal"
}
