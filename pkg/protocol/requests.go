package protocol

import "encoding/json"

// Request payloads. Field rules live in `validate` tags and are enforced by
// Check after decoding.

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// JoinRequest may omit Token; the token presented on the upgrade request is
// used then.
type JoinRequest struct {
	RoomID string `json:"roomId" validate:"notblank"`
	Token  string `json:"token"`
}

type LeaveRequest struct {
	RoomID string `json:"roomId"`
}

type SceneActivateRequest struct {
	SceneID string `json:"sceneId" validate:"notblank"`
}

type TokenAddRequest struct {
	SceneID string          `json:"sceneId" validate:"notblank"`
	X       float64         `json:"x"`
	Y       float64         `json:"y"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type TokenMoveRequest struct {
	TokenID string  `json:"tokenId" validate:"notblank"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type TokenUpdateRequest struct {
	TokenID string          `json:"tokenId" validate:"notblank"`
	Data    json.RawMessage `json:"data"`
}

type TokenRemoveRequest struct {
	TokenID string `json:"tokenId" validate:"notblank"`
}

// WallAddRequest additionally requires two distinct endpoints.
type WallAddRequest struct {
	SceneID string          `json:"sceneId" validate:"notblank"`
	Coords  [4]float64      `json:"coords"`
	Door    string          `json:"door,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type WallUpdateRequest struct {
	WallID string          `json:"wallId" validate:"notblank"`
	Coords *[4]float64     `json:"coords,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type WallRemoveRequest struct {
	WallID string `json:"wallId" validate:"notblank"`
}

type DoorToggleRequest struct {
	WallID string `json:"wallId" validate:"notblank"`
}

// ChatSendRequest may carry identity fields; they are ignored in favour of the
// identity bound to the connection.
type ChatSendRequest struct {
	Content  string `json:"content" validate:"notblank"`
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
}

type DiceRollRequest struct {
	Expression string `json:"expression" validate:"notblank"`
	UserID     string `json:"userId,omitempty"`
	Username   string `json:"username,omitempty"`
}

type CombatStartRequest struct {
	SceneID string `json:"sceneId" validate:"notblank"`
}

type CombatRequest struct {
	CombatID string `json:"combatId" validate:"notblank"`
}

type CombatantAddRequest struct {
	CombatID   string  `json:"combatId" validate:"notblank"`
	TokenID    string  `json:"tokenId,omitempty"`
	Name       string  `json:"name" validate:"notblank"`
	Initiative float64 `json:"initiative"`
}

type CombatantRemoveRequest struct {
	CombatantID string `json:"combatantId" validate:"notblank"`
}

// DrawStreamRequest carries in-progress freehand points. It is never persisted.
type DrawStreamRequest struct {
	StrokeID string  `json:"strokeId" validate:"notblank"`
	Points   []Point `json:"points" validate:"min=1"`
	Color    string  `json:"color,omitempty"`
	Width    float64 `json:"width,omitempty"`
}

type RulerMeasureRequest struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}
