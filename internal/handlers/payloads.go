package handlers

import (
	"github.com/tablesync/tablesync/pkg/dice"
	"github.com/tablesync/tablesync/pkg/protocol"
	"github.com/tablesync/tablesync/pkg/rooms"
	"github.com/tablesync/tablesync/pkg/store"
)

// Outbound payloads.

type playersPayload struct {
	Players []rooms.PlayerInfo `json:"players"`
}

type playerJoinedPayload struct {
	Player rooms.PlayerInfo `json:"player"`
}

type playerLeftPayload struct {
	UserID string `json:"userId"`
}

type scenePayload struct {
	Scene *store.Scene `json:"scene"`
}

type tokenPayload struct {
	Token *store.Token `json:"token"`
}

type tokenRemovedPayload struct {
	TokenID string `json:"tokenId"`
}

type wallPayload struct {
	Wall *store.Wall `json:"wall"`
}

type wallRemovedPayload struct {
	WallID string `json:"wallId"`
}

type chatPayload struct {
	Message *store.ChatMessage `json:"message"`
}

type diceRoll struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	dice.Result
}

type diceRolledPayload struct {
	Roll    diceRoll           `json:"roll"`
	Message *store.ChatMessage `json:"message"`
}

type combatPayload struct {
	Combat *store.Combat `json:"combat"`
}

type combatEndedPayload struct {
	CombatID string `json:"combatId"`
}

type turnAdvancedPayload struct {
	Combat *store.Combat `json:"combat"`
	// nil when the combat has no combatants
	CurrentCombatant *store.Combatant `json:"currentCombatant"`
}

type combatantPayload struct {
	Combatant *store.Combatant `json:"combatant"`
}

type combatantRemovedPayload struct {
	CombatantID string `json:"combatantId"`
	CombatID    string `json:"combatId"`
}

type drawStreamedPayload struct {
	UserID string `json:"userId"`
	protocol.DrawStreamRequest
}

type rulerMeasuredPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	protocol.RulerMeasureRequest
}
