package handlers

import (
	"fmt"

	"github.com/tablesync/tablesync/internal/dispatch"
	"github.com/tablesync/tablesync/pkg/protocol"
	"github.com/tablesync/tablesync/pkg/store"
)

const maxChatLength = 4000

// sendChat persists a chat line. Identity fields in the payload are ignored;
// authorship comes from the joined session.
func (h *Handlers) sendChat(req *dispatch.Request, p protocol.ChatSendRequest) error {
	roomID, player, err := h.player(req)
	if err != nil {
		return err
	}
	if len(p.Content) > maxChatLength {
		return dispatch.Fail("Message too long", nil)
	}
	msg, err := h.store.CreateMessage(req.Ctx, store.ChatMessage{
		CampaignID: roomID,
		UserID:     player.UserID,
		Username:   player.Username,
		Content:    p.Content,
	})
	if err != nil {
		return persistFailure("Campaign", "send message", err)
	}
	h.registry.Broadcast(roomID, protocol.TypeChatMessage, chatPayload{Message: msg}, nil)
	return nil
}

// rollDice evaluates the expression and records the outcome in the chat log.
func (h *Handlers) rollDice(req *dispatch.Request, p protocol.DiceRollRequest) error {
	roomID, player, err := h.player(req)
	if err != nil {
		return err
	}
	result, err := h.dice.Roll(p.Expression)
	if err != nil {
		return dispatch.Fail("Invalid dice expression", err)
	}
	msg, err := h.store.CreateMessage(req.Ctx, store.ChatMessage{
		CampaignID: roomID,
		UserID:     player.UserID,
		Username:   player.Username,
		Content:    fmt.Sprintf("rolled %s = %d", result.Expression, result.Total),
	})
	if err != nil {
		return persistFailure("Campaign", "roll dice", err)
	}
	h.registry.Broadcast(roomID, protocol.TypeDiceRolled, diceRolledPayload{
		Roll: diceRoll{
			UserID:   player.UserID,
			Username: player.Username,
			Result:   result,
		},
		Message: msg,
	}, nil)
	return nil
}
