package handlers

import (
	"github.com/tablesync/tablesync/internal/dispatch"
	"github.com/tablesync/tablesync/pkg/protocol"
)

// Ephemeral updates skip persistence and go straight to the room.

// streamDrawing relays in-progress stroke points to observers only.
func (h *Handlers) streamDrawing(req *dispatch.Request, p protocol.DrawStreamRequest) error {
	roomID, player, err := h.player(req)
	if err != nil {
		return err
	}
	h.registry.Broadcast(roomID, protocol.TypeDrawStreamed, drawStreamedPayload{
		UserID:            player.UserID,
		DrawStreamRequest: p,
	}, req.Conn)
	return nil
}

func (h *Handlers) measureRuler(req *dispatch.Request, p protocol.RulerMeasureRequest) error {
	roomID, player, err := h.player(req)
	if err != nil {
		return err
	}
	h.registry.Broadcast(roomID, protocol.TypeRulerMeasured, rulerMeasuredPayload{
		UserID:              player.UserID,
		Username:            player.Username,
		RulerMeasureRequest: p,
	}, nil)
	return nil
}
