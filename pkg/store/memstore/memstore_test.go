package memstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tablesync/tablesync/pkg/logging"
	"github.com/tablesync/tablesync/pkg/store"
	"github.com/tablesync/tablesync/pkg/store/memstore"
)

func newSeededStore(t *testing.T) *memstore.Store {
	t.Helper()
	s := memstore.New(logging.Discard())
	s.PutScene(store.Scene{ID: "s1", CampaignID: "g1", Name: "Tavern"})
	s.PutScene(store.Scene{ID: "s2", CampaignID: "g1", Name: "Road"})
	s.PutScene(store.Scene{ID: "x1", CampaignID: "g2", Name: "Elsewhere"})
	return s
}

func TestTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	tok, err := s.CreateToken(ctx, "g1", store.Token{SceneID: "s1", X: 1, Y: 2})
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if tok.ID == "" {
		t.Fatal("expected generated id")
	}

	moved, err := s.MoveToken(ctx, "g1", tok.ID, 5, 6)
	if err != nil {
		t.Fatalf("MoveToken failed: %v", err)
	}
	if moved.X != 5 || moved.Y != 6 {
		t.Errorf("unexpected position %v,%v", moved.X, moved.Y)
	}

	updated, err := s.UpdateToken(ctx, "g1", tok.ID, json.RawMessage(`{"hp":3}`))
	if err != nil {
		t.Fatalf("UpdateToken failed: %v", err)
	}
	if string(updated.Data) != `{"hp":3}` {
		t.Errorf("unexpected data %s", updated.Data)
	}

	if err := s.DeleteToken(ctx, "g1", tok.ID); err != nil {
		t.Fatalf("DeleteToken failed: %v", err)
	}
	if err := s.DeleteToken(ctx, "g1", tok.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestEntitiesAreScopedByCampaign(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	tok, err := s.CreateToken(ctx, "g1", store.Token{SceneID: "s1"})
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if _, err := s.MoveToken(ctx, "g2", tok.ID, 1, 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("foreign campaign move should be ErrNotFound, got %v", err)
	}
	if _, err := s.CreateToken(ctx, "g2", store.Token{SceneID: "s1"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("creating on foreign scene should be ErrNotFound, got %v", err)
	}
	if _, err := s.ActivateScene(ctx, "g2", "s1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("activating foreign scene should be ErrNotFound, got %v", err)
	}
}

func TestActivateSceneIsExclusive(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	if _, err := s.ActivateScene(ctx, "g1", "s1"); err != nil {
		t.Fatalf("ActivateScene failed: %v", err)
	}
	sc, err := s.ActivateScene(ctx, "g1", "s2")
	if err != nil {
		t.Fatalf("ActivateScene failed: %v", err)
	}
	if !sc.Active || sc.ID != "s2" {
		t.Errorf("expected s2 active, got %+v", sc)
	}
	// s1 must have been deactivated; activating x1 in g2 must not touch g1.
	if _, err := s.ActivateScene(ctx, "g2", "x1"); err != nil {
		t.Fatalf("ActivateScene failed: %v", err)
	}
}

func TestWallPatchAndDoorValidation(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	w, err := s.CreateWall(ctx, "g1", store.Wall{SceneID: "s1", Coords: [4]float64{0, 0, 1, 0}, Door: store.DoorClosed})
	if err != nil {
		t.Fatalf("CreateWall failed: %v", err)
	}
	open := store.DoorOpen
	patched, err := s.UpdateWall(ctx, "g1", w.ID, store.WallPatch{Door: &open})
	if err != nil {
		t.Fatalf("UpdateWall failed: %v", err)
	}
	if patched.Door != store.DoorOpen || patched.Coords != w.Coords {
		t.Errorf("unexpected patched wall %+v", patched)
	}

	bogus := store.DoorState("ajar")
	if _, err := s.UpdateWall(ctx, "g1", w.ID, store.WallPatch{Door: &bogus}); err == nil {
		t.Error("expected invalid door state to be rejected")
	}
	if _, err := s.CreateWall(ctx, "g1", store.Wall{SceneID: "s1", Door: bogus}); err == nil {
		t.Error("expected invalid door state to be rejected on create")
	}
}

func TestCombatantsKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	c, err := s.CreateCombat(ctx, store.Combat{CampaignID: "g1", SceneID: "s1"})
	if err != nil {
		t.Fatalf("CreateCombat failed: %v", err)
	}
	if c.Round != 1 || c.Turn != 0 {
		t.Errorf("new combat should start at round 1 turn 0, got %+v", c)
	}

	names := []string{"Goblin", "Alice", "Bob"}
	ids := make([]string, len(names))
	for i, n := range names {
		// initiative deliberately ascending; order must not be re-sorted
		cb, err := s.AddCombatant(ctx, "g1", store.Combatant{CombatID: c.ID, Name: n, Initiative: float64(i)})
		if err != nil {
			t.Fatalf("AddCombatant failed: %v", err)
		}
		ids[i] = cb.ID
	}

	if _, err := s.RemoveCombatant(ctx, "g1", ids[1]); err != nil {
		t.Fatalf("RemoveCombatant failed: %v", err)
	}
	list, err := s.ListCombatants(ctx, "g1", c.ID)
	if err != nil {
		t.Fatalf("ListCombatants failed: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Goblin" || list[1].Name != "Bob" {
		t.Errorf("unexpected order %+v", list)
	}

	if err := s.EndCombat(ctx, "g1", c.ID); err != nil {
		t.Fatalf("EndCombat failed: %v", err)
	}
	if _, err := s.GetCombat(ctx, "g1", c.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ended combat should be gone, got %v", err)
	}
	if _, err := s.RemoveCombatant(ctx, "g1", ids[0]); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("combatants should be deleted with their combat, got %v", err)
	}
}

func TestChatMessagesPerCampaign(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)
	s.CreateMessage(ctx, store.ChatMessage{CampaignID: "g1", Content: "one"})
	s.CreateMessage(ctx, store.ChatMessage{CampaignID: "g2", Content: "other"})
	m, _ := s.CreateMessage(ctx, store.ChatMessage{CampaignID: "g1", Content: "two"})
	if m.CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped")
	}

	msgs := s.Messages("g1")
	if len(msgs) != 2 || msgs[0].Content != "one" || msgs[1].Content != "two" {
		t.Errorf("unexpected history %+v", msgs)
	}
}

const seedYAML = `
users:
  - id: u1
    username: Alice
sessions:
  - id: tok-alice
    userId: u1
    expiresAt: 2030-01-02T03:04:05Z
scenes:
  - id: s1
    campaignId: g1
    name: Tavern
    active: true
`

func TestLoadSeed(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(logging.Discard())
	if err := s.LoadSeed(strings.NewReader(seedYAML)); err != nil {
		t.Fatalf("LoadSeed failed: %v", err)
	}

	sess, err := s.LookupSession(ctx, "tok-alice")
	if err != nil {
		t.Fatalf("LookupSession failed: %v", err)
	}
	want := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	if sess.UserID != "u1" || !sess.ExpiresAt.Equal(want) {
		t.Errorf("unexpected session %+v", sess)
	}
	u, err := s.LookupUser(ctx, "u1")
	if err != nil || u.Username != "Alice" {
		t.Errorf("LookupUser = %+v, %v", u, err)
	}
	if _, err := s.CreateToken(ctx, "g1", store.Token{SceneID: "s1"}); err != nil {
		t.Errorf("seeded scene should accept tokens: %v", err)
	}
}

func TestLoadSeedRejectsUnknownFields(t *testing.T) {
	s := memstore.New(logging.Discard())
	err := s.LoadSeed(strings.NewReader("users:\n  - id: u1\n    nickname: x\n"))
	if err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestLoadSeedEmpty(t *testing.T) {
	s := memstore.New(logging.Discard())
	if err := s.LoadSeed(strings.NewReader("")); err != nil {
		t.Fatalf("empty seed should be accepted, got %v", err)
	}
}
