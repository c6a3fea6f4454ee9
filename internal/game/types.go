package game

import (
	"time"

	"github.com/kiliankoe/partyhouse/internal/cards"
)

type PartyState string

const (
	PartyIdle    PartyState = "Idle"
	PartyActive  PartyState = "Active"
	PartyStopped PartyState = "Stopped"
)

// StopReason tells why a party ended.
type StopReason string

const (
	StopTroubleOverflow  StopReason = "trouble_overflow"
	StopCapacityOverflow StopReason = "capacity_overflow"
	StopDeckExhausted    StopReason = "deck_exhausted"
	StopManualEnd        StopReason = "manual_end"
)

// Settings are the per-room game constants.
type Settings struct {
	HouseCapacity int `json:"houseCapacity"`
	MarketSize    int `json:"marketSize"`
	MinPlayers    int `json:"minPlayers"`
}

func DefaultSettings() Settings {
	return Settings{
		HouseCapacity: DefaultHouseCapacity,
		MarketSize:    DefaultMarketSize,
		MinPlayers:    1,
	}
}

// Party is the round state of the player whose turn it is.
type Party struct {
	GuestsInHouse []cards.Card
	HouseCapacity int
	State         PartyState
	StopReason    StopReason
}

func (p *Party) IsActive() bool { return p.State == PartyActive }

// Score is the popularity and money earned by one party.
type Score struct {
	Popularity int    `json:"popularity"`
	Money      int    `json:"money"`
	Reason     string `json:"reason,omitempty"`
}

// AddResult is the verdict of Player.TryAddCard.
type AddResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// PartyReport describes a settled party.
type PartyReport struct {
	RoomID     string     `json:"roomId"`
	PlayerID   string     `json:"playerId"`
	PlayerName string     `json:"playerName"`
	Guests     []string   `json:"guests"`
	Reason     StopReason `json:"reason"`
	Score      Score      `json:"score"`
	At         time.Time  `json:"at"`
}

type PlayerView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Ready         bool   `json:"ready"`
	Popularity    int    `json:"popularity"`
	Money         int    `json:"money"`
	HouseCapacity int    `json:"houseCapacity"`
	DeckSize      int    `json:"deckSize"`
	HandSize      int    `json:"handSize"`
	DiscardSize   int    `json:"discardSize"`
}

// TurnView is what the active player sees of their own piles.
type TurnView struct {
	Hand          []cards.Card `json:"hand"`
	Deck          []cards.Card `json:"deck"`
	Discard       []cards.Card `json:"discard"`
	HouseCapacity int          `json:"houseCapacity"`
	Market        []cards.Card `json:"market"`
}

type PartyView struct {
	PlayerID      string       `json:"playerId,omitempty"`
	GuestsInHouse []cards.Card `json:"guestsInHouse"`
	HouseCapacity int          `json:"houseCapacity"`
	IsActive      bool         `json:"isActive"`
	StopReason    StopReason   `json:"stopReason,omitempty"`
}

type RoomView struct {
	ID               string       `json:"id"`
	Players          []PlayerView `json:"players"`
	Market           []cards.Card `json:"market"`
	Started          bool         `json:"started"`
	TurnOrder        []string     `json:"turnOrder"`
	CurrentTurnIndex int          `json:"currentTurnIndex"`
	Party            PartyView    `json:"party"`
}
