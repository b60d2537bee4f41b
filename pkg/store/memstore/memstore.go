// Package memstore is an in-memory implementation of the store interfaces.
// It backs the server when no database is configured and doubles as the
// fixture store in tests.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/tablesync/tablesync/pkg/store"
)

type Store struct {
	mu sync.RWMutex

	sessions   map[string]store.Session
	users      map[string]store.User
	scenes     map[string]store.Scene
	tokens     map[string]store.Token
	walls      map[string]store.Wall
	combats    map[string]store.Combat
	combatants map[string]store.Combatant
	// combatID -> combatant ids in insertion order
	turnOrder map[string][]string
	messages  []store.ChatMessage

	now    func() time.Time
	logger *slog.Logger
}

// compile-time check to ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)

func New(logger *slog.Logger) *Store {
	return &Store{
		sessions:   make(map[string]store.Session),
		users:      make(map[string]store.User),
		scenes:     make(map[string]store.Scene),
		tokens:     make(map[string]store.Token),
		walls:      make(map[string]store.Wall),
		combats:    make(map[string]store.Combat),
		combatants: make(map[string]store.Combatant),
		turnOrder:  make(map[string][]string),
		now:        time.Now,
		logger:     logger.With(slog.String("component", "memstore")),
	}
}

func newID() string {
	return ulid.Make().String()
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

// --- Seeding ---

func (s *Store) PutUser(u store.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) PutSession(sess store.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *Store) PutScene(sc store.Scene) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc.Data = cloneRaw(sc.Data)
	s.scenes[sc.ID] = sc
}

// --- Sessions & users ---

func (s *Store) LookupSession(_ context.Context, token string) (*store.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sess, nil
}

func (s *Store) LookupUser(_ context.Context, userID string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

// --- Scenes ---

// sceneInCampaign must be called with s.mu held.
func (s *Store) sceneInCampaign(campaignID, sceneID string) bool {
	sc, ok := s.scenes[sceneID]
	return ok && sc.CampaignID == campaignID
}

func (s *Store) ActivateScene(_ context.Context, campaignID, sceneID string) (*store.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sceneInCampaign(campaignID, sceneID) {
		return nil, store.ErrNotFound
	}
	var active store.Scene
	for id, sc := range s.scenes {
		if sc.CampaignID != campaignID {
			continue
		}
		sc.Active = id == sceneID
		s.scenes[id] = sc
		if sc.Active {
			active = sc
		}
	}
	return &active, nil
}

// --- Tokens ---

func (s *Store) CreateToken(_ context.Context, campaignID string, t store.Token) (*store.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sceneInCampaign(campaignID, t.SceneID) {
		return nil, fmt.Errorf("scene %q: %w", t.SceneID, store.ErrNotFound)
	}
	t.ID = newID()
	t.Data = cloneRaw(t.Data)
	s.tokens[t.ID] = t
	return &t, nil
}

// tokenLocked must be called with s.mu held.
func (s *Store) tokenLocked(campaignID, tokenID string) (store.Token, bool) {
	t, ok := s.tokens[tokenID]
	if !ok || !s.sceneInCampaign(campaignID, t.SceneID) {
		return store.Token{}, false
	}
	return t, true
}

func (s *Store) MoveToken(_ context.Context, campaignID, tokenID string, x, y float64) (*store.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokenLocked(campaignID, tokenID)
	if !ok {
		return nil, store.ErrNotFound
	}
	t.X, t.Y = x, y
	s.tokens[tokenID] = t
	return &t, nil
}

func (s *Store) UpdateToken(_ context.Context, campaignID, tokenID string, data json.RawMessage) (*store.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokenLocked(campaignID, tokenID)
	if !ok {
		return nil, store.ErrNotFound
	}
	t.Data = cloneRaw(data)
	s.tokens[tokenID] = t
	return &t, nil
}

func (s *Store) DeleteToken(_ context.Context, campaignID, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokenLocked(campaignID, tokenID); !ok {
		return store.ErrNotFound
	}
	delete(s.tokens, tokenID)
	return nil
}

// --- Walls ---

func (s *Store) CreateWall(_ context.Context, campaignID string, w store.Wall) (*store.Wall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sceneInCampaign(campaignID, w.SceneID) {
		return nil, fmt.Errorf("scene %q: %w", w.SceneID, store.ErrNotFound)
	}
	if !w.Door.Valid() {
		return nil, fmt.Errorf("invalid door state %q", w.Door)
	}
	w.ID = newID()
	w.Data = cloneRaw(w.Data)
	s.walls[w.ID] = w
	return &w, nil
}

func (s *Store) wallLocked(campaignID, wallID string) (store.Wall, bool) {
	w, ok := s.walls[wallID]
	if !ok || !s.sceneInCampaign(campaignID, w.SceneID) {
		return store.Wall{}, false
	}
	return w, true
}

func (s *Store) GetWall(_ context.Context, campaignID, wallID string) (*store.Wall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallLocked(campaignID, wallID)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &w, nil
}

func (s *Store) UpdateWall(_ context.Context, campaignID, wallID string, patch store.WallPatch) (*store.Wall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallLocked(campaignID, wallID)
	if !ok {
		return nil, store.ErrNotFound
	}
	if patch.Door != nil {
		if !patch.Door.Valid() {
			return nil, fmt.Errorf("invalid door state %q", *patch.Door)
		}
		w.Door = *patch.Door
	}
	if patch.Coords != nil {
		w.Coords = *patch.Coords
	}
	if patch.Data != nil {
		w.Data = cloneRaw(patch.Data)
	}
	s.walls[wallID] = w
	return &w, nil
}

func (s *Store) DeleteWall(_ context.Context, campaignID, wallID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallLocked(campaignID, wallID); !ok {
		return store.ErrNotFound
	}
	delete(s.walls, wallID)
	return nil
}

// --- Combats ---

func (s *Store) CreateCombat(_ context.Context, c store.Combat) (*store.Combat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sceneInCampaign(c.CampaignID, c.SceneID) {
		return nil, fmt.Errorf("scene %q: %w", c.SceneID, store.ErrNotFound)
	}
	c.ID = newID()
	if c.Round < 1 {
		c.Round = 1
	}
	s.combats[c.ID] = c
	s.turnOrder[c.ID] = nil
	return &c, nil
}

func (s *Store) combatLocked(campaignID, combatID string) (store.Combat, bool) {
	c, ok := s.combats[combatID]
	if !ok || c.CampaignID != campaignID {
		return store.Combat{}, false
	}
	return c, true
}

func (s *Store) GetCombat(_ context.Context, campaignID, combatID string) (*store.Combat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.combatLocked(campaignID, combatID)
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) UpdateCombatTurn(_ context.Context, campaignID, combatID string, round, turn int) (*store.Combat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.combatLocked(campaignID, combatID)
	if !ok {
		return nil, store.ErrNotFound
	}
	c.Round, c.Turn = round, turn
	s.combats[combatID] = c
	return &c, nil
}

func (s *Store) EndCombat(_ context.Context, campaignID, combatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.combatLocked(campaignID, combatID); !ok {
		return store.ErrNotFound
	}
	for _, id := range s.turnOrder[combatID] {
		delete(s.combatants, id)
	}
	delete(s.turnOrder, combatID)
	delete(s.combats, combatID)
	return nil
}

func (s *Store) ListCombatants(_ context.Context, campaignID, combatID string) ([]store.Combatant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.combatLocked(campaignID, combatID); !ok {
		return nil, store.ErrNotFound
	}
	order := s.turnOrder[combatID]
	list := make([]store.Combatant, 0, len(order))
	for _, id := range order {
		list = append(list, s.combatants[id])
	}
	return list, nil
}

func (s *Store) AddCombatant(_ context.Context, campaignID string, c store.Combatant) (*store.Combatant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.combatLocked(campaignID, c.CombatID); !ok {
		return nil, fmt.Errorf("combat %q: %w", c.CombatID, store.ErrNotFound)
	}
	c.ID = newID()
	s.combatants[c.ID] = c
	s.turnOrder[c.CombatID] = append(s.turnOrder[c.CombatID], c.ID)
	return &c, nil
}

func (s *Store) RemoveCombatant(_ context.Context, campaignID, combatantID string) (*store.Combatant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.combatants[combatantID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if _, ok := s.combatLocked(campaignID, c.CombatID); !ok {
		return nil, store.ErrNotFound
	}
	delete(s.combatants, combatantID)
	order := s.turnOrder[c.CombatID]
	for i, id := range order {
		if id == combatantID {
			s.turnOrder[c.CombatID] = append(order[:i:i], order[i+1:]...)
			break
		}
	}
	return &c, nil
}

// --- Chat ---

func (s *Store) CreateMessage(_ context.Context, m store.ChatMessage) (*store.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = newID()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	s.messages = append(s.messages, m)
	return &m, nil
}

// Messages returns the chat history of a campaign, oldest first.
func (s *Store) Messages(campaignID string) []store.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.ChatMessage
	for _, m := range s.messages {
		if m.CampaignID == campaignID {
			out = append(out, m)
		}
	}
	return out
}
