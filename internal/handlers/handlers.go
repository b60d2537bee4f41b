// Package handlers implements the session and domain message handlers. Every
// domain handler follows the same shape: resolve the caller's room, persist,
// then broadcast the result to the room. Nothing is broadcast when
// persistence fails.
package handlers

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/tablesync/tablesync/internal/dispatch"
	"github.com/tablesync/tablesync/pkg/auth"
	"github.com/tablesync/tablesync/pkg/dice"
	"github.com/tablesync/tablesync/pkg/protocol"
	"github.com/tablesync/tablesync/pkg/rooms"
	"github.com/tablesync/tablesync/pkg/store"
)

type Handlers struct {
	logger   *slog.Logger
	registry *rooms.Registry
	auth     *auth.Authenticator
	store    store.Store
	dice     *dice.Roller

	// serialises read-advance-write of combat turns
	combatMu sync.Mutex
}

func New(logger *slog.Logger, registry *rooms.Registry, authenticator *auth.Authenticator, st store.Store, roller *dice.Roller) *Handlers {
	return &Handlers{
		logger:   logger.With(slog.String("component", "handlers")),
		registry: registry,
		auth:     authenticator,
		store:    st,
		dice:     roller,
	}
}

// Register binds every message type to its handler.
func (h *Handlers) Register(d *dispatch.Dispatcher) {
	dispatch.On(d, protocol.TypeSessionJoin, h.join)
	dispatch.On(d, protocol.TypeSessionLeave, h.leave)

	dispatch.On(d, protocol.TypeSceneActivate, h.activateScene)

	dispatch.On(d, protocol.TypeTokenAdd, h.addToken)
	dispatch.On(d, protocol.TypeTokenMove, h.moveToken)
	dispatch.On(d, protocol.TypeTokenUpdate, h.updateToken)
	dispatch.On(d, protocol.TypeTokenRemove, h.removeToken)

	dispatch.On(d, protocol.TypeWallAdd, h.addWall)
	dispatch.On(d, protocol.TypeWallUpdate, h.updateWall)
	dispatch.On(d, protocol.TypeWallRemove, h.removeWall)
	dispatch.On(d, protocol.TypeDoorToggle, h.toggleDoor)

	dispatch.On(d, protocol.TypeChatSend, h.sendChat)
	dispatch.On(d, protocol.TypeDiceRoll, h.rollDice)

	dispatch.On(d, protocol.TypeCombatStart, h.startCombat)
	dispatch.On(d, protocol.TypeCombatEnd, h.endCombat)
	dispatch.On(d, protocol.TypeCombatNextTurn, h.nextTurn)
	dispatch.On(d, protocol.TypeCombatantAdd, h.addCombatant)
	dispatch.On(d, protocol.TypeCombatantRemove, h.removeCombatant)

	dispatch.On(d, protocol.TypeDrawStream, h.streamDrawing)
	dispatch.On(d, protocol.TypeRulerMeasure, h.measureRuler)

	h.logger.Info("Registered handlers", slog.Int("count", len(d.Types())))
}

var errNotInRoom = errors.New("connection has not joined a room")

// room resolves the caller's room or fails with a client facing error.
func (h *Handlers) room(req *dispatch.Request) (string, error) {
	roomID, ok := h.registry.RoomForConnection(req.Conn)
	if !ok {
		return "", dispatch.Fail("Not in a room", errNotInRoom)
	}
	return roomID, nil
}

// player resolves the caller's room together with its server known identity.
func (h *Handlers) player(req *dispatch.Request) (string, rooms.PlayerInfo, error) {
	roomID, err := h.room(req)
	if err != nil {
		return "", rooms.PlayerInfo{}, err
	}
	info, ok := h.registry.PlayerInfo(req.Conn)
	if !ok {
		return "", rooms.PlayerInfo{}, dispatch.Fail("Not in a room", errNotInRoom)
	}
	return roomID, info, nil
}

// persistFailure maps a store error onto the client facing message for
// entity. ErrNotFound becomes "<Entity> not found".
func persistFailure(entity, action string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return dispatch.Fail(entity+" not found", err)
	}
	return dispatch.Fail("Failed to "+action, err)
}
