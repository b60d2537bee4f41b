package handlers

import (
	"log/slog"

	"github.com/tablesync/tablesync/internal/dispatch"
	"github.com/tablesync/tablesync/pkg/protocol"
	"github.com/tablesync/tablesync/pkg/store"
	"github.com/tablesync/tablesync/pkg/turnorder"
)

func (h *Handlers) startCombat(req *dispatch.Request, p protocol.CombatStartRequest) error {
	roomID, err := h.room(req)
	if err != nil {
		return err
	}
	combat, err := h.store.CreateCombat(req.Ctx, store.Combat{
		CampaignID: roomID,
		SceneID:    p.SceneID,
		Round:      1,
	})
	if err != nil {
		return persistFailure("Scene", "start combat", err)
	}
	h.registry.Broadcast(roomID, protocol.TypeCombatStarted, combatPayload{Combat: combat}, nil)
	return nil
}

func (h *Handlers) endCombat(req *dispatch.Request, p protocol.CombatRequest) error {
	roomID, err := h.room(req)
	if err != nil {
		return err
	}
	if err := h.store.EndCombat(req.Ctx, roomID, p.CombatID); err != nil {
		return persistFailure("Combat", "end combat", err)
	}
	h.registry.Broadcast(roomID, protocol.TypeCombatEnded, combatEndedPayload{CombatID: p.CombatID}, nil)
	return nil
}

// nextTurn advances the combat one turn in combatant insertion order.
func (h *Handlers) nextTurn(req *dispatch.Request, p protocol.CombatRequest) error {
	roomID, err := h.room(req)
	if err != nil {
		return err
	}

	h.combatMu.Lock()
	defer h.combatMu.Unlock()

	combat, err := h.store.GetCombat(req.Ctx, roomID, p.CombatID)
	if err != nil {
		return persistFailure("Combat", "advance turn", err)
	}
	combatants, err := h.store.ListCombatants(req.Ctx, roomID, p.CombatID)
	if err != nil {
		return persistFailure("Combat", "advance turn", err)
	}

	next := turnorder.Advance(combat.Round, combat.Turn, len(combatants))
	combat, err = h.store.UpdateCombatTurn(req.Ctx, roomID, p.CombatID, next.Round, next.Turn)
	if err != nil {
		return persistFailure("Combat", "advance turn", err)
	}

	var current *store.Combatant
	if next.HasCurrent {
		current = &combatants[next.Current]
	}
	req.Logger.Debug("Turn advanced",
		slog.String("combatID", combat.ID),
		slog.Int("round", combat.Round),
		slog.Int("turn", combat.Turn),
	)
	h.registry.Broadcast(roomID, protocol.TypeCombatTurnAdvanced, turnAdvancedPayload{
		Combat:           combat,
		CurrentCombatant: current,
	}, nil)
	return nil
}

func (h *Handlers) addCombatant(req *dispatch.Request, p protocol.CombatantAddRequest) error {
	roomID, err := h.room(req)
	if err != nil {
		return err
	}
	combatant, err := h.store.AddCombatant(req.Ctx, roomID, store.Combatant{
		CombatID:   p.CombatID,
		TokenID:    p.TokenID,
		Name:       p.Name,
		Initiative: p.Initiative,
	})
	if err != nil {
		return persistFailure("Combat", "add combatant", err)
	}
	h.registry.Broadcast(roomID, protocol.TypeCombatantAdded, combatantPayload{Combatant: combatant}, nil)
	return nil
}

func (h *Handlers) removeCombatant(req *dispatch.Request, p protocol.CombatantRemoveRequest) error {
	roomID, err := h.room(req)
	if err != nil {
		return err
	}
	removed, err := h.store.RemoveCombatant(req.Ctx, roomID, p.CombatantID)
	if err != nil {
		return persistFailure("Combatant", "remove combatant", err)
	}
	h.registry.Broadcast(roomID, protocol.TypeCombatantRemoved, combatantRemovedPayload{
		CombatantID: removed.ID,
		CombatID:    removed.CombatID,
	}, nil)
	return nil
}
