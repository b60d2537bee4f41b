package handlers

import (
	"github.com/tablesync/tablesync/internal/dispatch"
	"github.com/tablesync/tablesync/pkg/protocol"
	"github.com/tablesync/tablesync/pkg/store"
)

func (h *Handlers) activateScene(req *dispatch.Request, p protocol.SceneActivateRequest) error {
	roomID, err := h.room(req)
	if err != nil {
		return err
	}
	scene, err := h.store.ActivateScene(req.Ctx, roomID, p.SceneID)
	if err != nil {
		return persistFailure("Scene", "activate scene", err)
	}
	h.registry.Broadcast(roomID, protocol.TypeSceneActivated, scenePayload{Scene: scene}, nil)
	return nil
}

func (h *Handlers) addToken(req *dispatch.Request, p protocol.TokenAddRequest) error {
	roomID, err := h.room(req)
	if err != nil {
		return err
	}
	token, err := h.store.CreateToken(req.Ctx, roomID, store.Token{
		SceneID: p.SceneID,
		X:       p.X,
		Y:       p.Y,
		Data:    p.Data,
	})
	if err != nil {
		return persistFailure("Scene", "add token", err)
	}
	h.registry.Broadcast(roomID, protocol.TypeTokenAdded, tokenPayload{Token: token}, nil)
	return nil
}

// moveToken echoes to the sender too; clients use it as move confirmation.
func (h *Handlers) moveToken(req *dispatch.Request, p protocol.TokenMoveRequest) error {
	roomID, err := h.room(req)
	if err != nil {
		return err
	}
	token, err := h.store.MoveToken(req.Ctx, roomID, p.TokenID, p.X, p.Y)
	if err != nil {
		return persistFailure("Token", "move token", err)
	}
	h.registry.Broadcast(roomID, protocol.TypeTokenMoved, tokenPayload{Token: token}, nil)
	return nil
}

func (h *Handlers) updateToken(req *dispatch.Request, p protocol.TokenUpdateRequest) error {
	roomID, err := h.room(req)
	if err != nil {
		return err
	}
	token, err := h.store.UpdateToken(req.Ctx, roomID, p.TokenID, p.Data)
	if err != nil {
		return persistFailure("Token", "update token", err)
	}
	h.registry.Broadcast(roomID, protocol.TypeTokenUpdated, tokenPayload{Token: token}, nil)
	return nil
}

func (h *Handlers) removeToken(req *dispatch.Request, p protocol.TokenRemoveRequest) error {
	roomID, err := h.room(req)
	if err != nil {
		return err
	}
	if err := h.store.DeleteToken(req.Ctx, roomID, p.TokenID); err != nil {
		return persistFailure("Token", "remove token", err)
	}
	h.registry.Broadcast(roomID, protocol.TypeTokenRemoved, tokenRemovedPayload{TokenID: p.TokenID}, nil)
	return nil
}
