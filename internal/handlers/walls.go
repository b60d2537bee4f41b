package handlers

import (
	"fmt"

	"github.com/tablesync/tablesync/internal/dispatch"
	"github.com/tablesync/tablesync/pkg/protocol"
	"github.com/tablesync/tablesync/pkg/store"
)

func (h *Handlers) addWall(req *dispatch.Request, p protocol.WallAddRequest) error {
	roomID, err := h.room(req)
	if err != nil {
		return err
	}
	door := store.DoorState(p.Door)
	if !door.Valid() {
		return dispatch.Fail("Invalid door state", fmt.Errorf("door state %q", p.Door))
	}
	wall, err := h.store.CreateWall(req.Ctx, roomID, store.Wall{
		SceneID: p.SceneID,
		Coords:  p.Coords,
		Door:    door,
		Data:    p.Data,
	})
	if err != nil {
		return persistFailure("Scene", "add wall", err)
	}
	h.registry.Broadcast(roomID, protocol.TypeWallAdded, wallPayload{Wall: wall}, nil)
	return nil
}

func (h *Handlers) updateWall(req *dispatch.Request, p protocol.WallUpdateRequest) error {
	roomID, err := h.room(req)
	if err != nil {
		return err
	}
	wall, err := h.store.UpdateWall(req.Ctx, roomID, p.WallID, store.WallPatch{
		Coords: p.Coords,
		Data:   p.Data,
	})
	if err != nil {
		return persistFailure("Wall", "update wall", err)
	}
	h.registry.Broadcast(roomID, protocol.TypeWallUpdated, wallPayload{Wall: wall}, nil)
	return nil
}

func (h *Handlers) removeWall(req *dispatch.Request, p protocol.WallRemoveRequest) error {
	roomID, err := h.room(req)
	if err != nil {
		return err
	}
	if err := h.store.DeleteWall(req.Ctx, roomID, p.WallID); err != nil {
		return persistFailure("Wall", "remove wall", err)
	}
	h.registry.Broadcast(roomID, protocol.TypeWallRemoved, wallRemovedPayload{WallID: p.WallID}, nil)
	return nil
}

// toggleDoor flips a door between open and closed. Plain walls and locked
// doors are rejected.
func (h *Handlers) toggleDoor(req *dispatch.Request, p protocol.DoorToggleRequest) error {
	roomID, err := h.room(req)
	if err != nil {
		return err
	}
	wall, err := h.store.GetWall(req.Ctx, roomID, p.WallID)
	if err != nil {
		return persistFailure("Door", "toggle door", err)
	}

	var next store.DoorState
	switch wall.Door {
	case store.DoorOpen:
		next = store.DoorClosed
	case store.DoorClosed:
		next = store.DoorOpen
	case store.DoorLocked:
		return dispatch.Fail("Door is locked", nil)
	default:
		return dispatch.Fail("Wall is not a door", nil)
	}

	wall, err = h.store.UpdateWall(req.Ctx, roomID, p.WallID, store.WallPatch{Door: &next})
	if err != nil {
		return persistFailure("Door", "toggle door", err)
	}
	h.registry.Broadcast(roomID, protocol.TypeDoorToggled, wallPayload{Wall: wall}, nil)
	return nil
}
