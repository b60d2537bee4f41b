// Package store declares the persistence boundary used by the session core.
// Every mutating call is atomic on its own; a call that matched no row
// returns ErrNotFound regardless of the entity kind.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type Session struct {
	ID        string    `json:"id" yaml:"id"`
	UserID    string    `json:"userId" yaml:"userId"`
	ExpiresAt time.Time `json:"expiresAt" yaml:"expiresAt"`
}

type User struct {
	ID       string `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
}

type Scene struct {
	ID         string          `json:"id" yaml:"id"`
	CampaignID string          `json:"campaignId" yaml:"campaignId"`
	Name       string          `json:"name" yaml:"name"`
	Active     bool            `json:"active" yaml:"active"`
	Data       json.RawMessage `json:"data,omitempty" yaml:"-"`
}

type Token struct {
	ID      string          `json:"id"`
	SceneID string          `json:"sceneId"`
	X       float64         `json:"x"`
	Y       float64         `json:"y"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type DoorState string

const (
	DoorNone   DoorState = ""
	DoorClosed DoorState = "closed"
	DoorOpen   DoorState = "open"
	DoorLocked DoorState = "locked"
)

func (d DoorState) Valid() bool {
	switch d {
	case DoorNone, DoorClosed, DoorOpen, DoorLocked:
		return true
	}
	return false
}

type Wall struct {
	ID      string          `json:"id"`
	SceneID string          `json:"sceneId"`
	Coords  [4]float64      `json:"coords"`
	Door    DoorState       `json:"door,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type Combat struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaignId"`
	SceneID    string `json:"sceneId"`
	Round      int    `json:"round"`
	Turn       int    `json:"turn"`
}

type Combatant struct {
	ID         string  `json:"id"`
	CombatID   string  `json:"combatId"`
	TokenID    string  `json:"tokenId,omitempty"`
	Name       string  `json:"name"`
	Initiative float64 `json:"initiative"`
}

type ChatMessage struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaignId"`
	UserID     string    `json:"userId"`
	Username   string    `json:"username"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// WallPatch lists the fields a wall update may change. Nil fields are kept.
type WallPatch struct {
	Coords *[4]float64
	Door   *DoorState
	Data   json.RawMessage
}

type Sessions interface {
	LookupSession(ctx context.Context, token string) (*Session, error)
}

type Users interface {
	LookupUser(ctx context.Context, userID string) (*User, error)
}

type Scenes interface {
	// ActivateScene marks sceneID active and every other scene of its
	// campaign inactive.
	ActivateScene(ctx context.Context, campaignID, sceneID string) (*Scene, error)
}

// Tokens, Walls and Combats scope every call by campaign: an entity that
// exists under another campaign is reported as ErrNotFound.
type Tokens interface {
	CreateToken(ctx context.Context, campaignID string, t Token) (*Token, error)
	MoveToken(ctx context.Context, campaignID, tokenID string, x, y float64) (*Token, error)
	UpdateToken(ctx context.Context, campaignID, tokenID string, data json.RawMessage) (*Token, error)
	DeleteToken(ctx context.Context, campaignID, tokenID string) error
}

type Walls interface {
	CreateWall(ctx context.Context, campaignID string, w Wall) (*Wall, error)
	GetWall(ctx context.Context, campaignID, wallID string) (*Wall, error)
	UpdateWall(ctx context.Context, campaignID, wallID string, patch WallPatch) (*Wall, error)
	DeleteWall(ctx context.Context, campaignID, wallID string) error
}

type Combats interface {
	CreateCombat(ctx context.Context, c Combat) (*Combat, error)
	GetCombat(ctx context.Context, campaignID, combatID string) (*Combat, error)
	UpdateCombatTurn(ctx context.Context, campaignID, combatID string, round, turn int) (*Combat, error)
	// EndCombat deletes the combat and its combatants.
	EndCombat(ctx context.Context, campaignID, combatID string) error
	// ListCombatants returns combatants in insertion order, which is turn order.
	ListCombatants(ctx context.Context, campaignID, combatID string) ([]Combatant, error)
	AddCombatant(ctx context.Context, campaignID string, c Combatant) (*Combatant, error)
	RemoveCombatant(ctx context.Context, campaignID, combatantID string) (*Combatant, error)
}

type Chat interface {
	CreateMessage(ctx context.Context, m ChatMessage) (*ChatMessage, error)
}

// Store bundles every collaborator the handlers need.
type Store interface {
	Sessions
	Users
	Scenes
	Tokens
	Walls
	Combats
	Chat
}
