package handlers

import (
	"log/slog"

	"github.com/tablesync/tablesync/internal/dispatch"
	"github.com/tablesync/tablesync/pkg/auth"
	"github.com/tablesync/tablesync/pkg/protocol"
	"github.com/tablesync/tablesync/pkg/rooms"
)

// join authenticates the caller and admits it to the requested room. The
// joiner receives the full roster; everyone else is told about the joiner.
func (h *Handlers) join(req *dispatch.Request, p protocol.JoinRequest) error {
	token := p.Token
	if token == "" {
		token, _ = auth.HandshakeToken(req.Ctx)
	}
	id, ok := h.auth.Validate(req.Ctx, token)
	if !ok {
		req.Logger.Info("Join rejected", slog.String("roomID", p.RoomID))
		return dispatch.Unauthorized()
	}

	info := rooms.PlayerInfo{UserID: id.UserID, Username: id.Username}
	previous, hadRoom := h.registry.RoomForConnection(req.Conn)
	h.registry.Join(p.RoomID, req.Conn, info)

	if hadRoom && previous != p.RoomID {
		h.registry.Broadcast(previous, protocol.TypeSessionPlayerLeft, playerLeftPayload{UserID: info.UserID}, nil)
	}

	h.registry.SendToOne(req.Conn, protocol.TypeSessionPlayers, playersPayload{Players: h.registry.PlayersInRoom(p.RoomID)})
	h.registry.Broadcast(p.RoomID, protocol.TypeSessionPlayerJoined, playerJoinedPayload{Player: info}, req.Conn)

	req.Logger.Info("Player joined",
		slog.String("roomID", p.RoomID),
		slog.String("userID", info.UserID),
	)
	return nil
}

// leave removes the caller from its room. The room id in the payload is
// informational; the registry knows where the connection actually is.
func (h *Handlers) leave(req *dispatch.Request, p protocol.LeaveRequest) error {
	roomID, info, ok := h.registry.Leave(req.Conn)
	if !ok {
		return nil
	}
	h.registry.Broadcast(roomID, protocol.TypeSessionPlayerLeft, playerLeftPayload{UserID: info.UserID}, nil)
	req.Logger.Info("Player left",
		slog.String("roomID", roomID),
		slog.String("requestedRoomID", p.RoomID),
		slog.String("userID", info.UserID),
	)
	return nil
}
