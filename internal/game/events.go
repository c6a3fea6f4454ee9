package game

// Event names emitted to clients.
const (
	EventRoomCreated   = "roomCreated"
	EventJoinedRoom    = "joinedRoom"
	EventUpdatePlayers = "updatePlayers"
	EventStartGame     = "startGame"
	EventYourTurn      = "yourTurn"
	EventPartyUpdate   = "partyUpdate"
	EventHandUpdate    = "handUpdate"
	EventPartyStopped  = "partyStopped"
	EventPartyResults  = "partyResults"
	EventMarketUpdate  = "marketUpdate"
)

type Scope int

const (
	ScopePlayer Scope = iota
	ScopeRoom
)

// Notification is one message the transport has to deliver.
type Notification struct {
	Scope    Scope
	PlayerID string // set for ScopePlayer
	Event    string
	Data     any
}

// Outcome is everything a command produced, in emission order.
type Outcome struct {
	RoomID        string
	Notifications []Notification
	Reports       []PartyReport
}

func (o *Outcome) reply(playerID, event string, data any) {
	o.Notifications = append(o.Notifications, Notification{Scope: ScopePlayer, PlayerID: playerID, Event: event, Data: data})
}

func (o *Outcome) broadcast(event string, data any) {
	o.Notifications = append(o.Notifications, Notification{Scope: ScopeRoom, Event: event, Data: data})
}

// Events lists the event names in order, mostly for tests and logs.
func (o Outcome) Events() []string {
	out := make([]string, 0, len(o.Notifications))
	for _, n := range o.Notifications {
		out = append(out, n.Event)
	}
	return out
}

// Find returns the first notification with the given event name.
func (o Outcome) Find(event string) (Notification, bool) {
	for _, n := range o.Notifications {
		if n.Event == event {
			return n, true
		}
	}
	return Notification{}, false
}
