package rooms

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tablesync/tablesync/pkg/protocol"
)

// Conn is the registry's view of a live transport connection. The registry
// never owns or closes it.
type Conn interface {
	ID() uuid.UUID
	IsOpen() bool
	Send(msg []byte) error
}

// PlayerInfo is the identity bound to a connection after a successful join.
type PlayerInfo struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type member struct {
	conn Conn
	info PlayerInfo
	seq  uint64
}

// Registry tracks which connections are in which room. A connection is a
// member of at most one room, and rooms exist only while they have members.
type Registry struct {
	mu      sync.Mutex
	rooms   map[string]map[uuid.UUID]*member
	connIdx map[uuid.UUID]string
	seq     uint64

	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		rooms:   make(map[string]map[uuid.UUID]*member),
		connIdx: make(map[uuid.UUID]string),
		logger:  logger.With(slog.String("component", "room_registry")),
	}
}

// Join admits conn to roomID, leaving any room it was previously in. Joining
// the same room again only refreshes the stored player info.
func (r *Registry) Join(roomID string, conn Conn, info PlayerInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	if current, ok := r.connIdx[id]; ok && current != roomID {
		r.removeLocked(id)
	}

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[uuid.UUID]*member)
		r.rooms[roomID] = members
		r.logger.Debug("Room created", slog.String("roomID", roomID))
	}
	if m, exists := members[id]; exists {
		m.conn = conn
		m.info = info
	} else {
		r.seq++
		members[id] = &member{conn: conn, info: info, seq: r.seq}
	}
	r.connIdx[id] = roomID

	r.logger.Debug("Connection joined room",
		slog.String("connID", id.String()),
		slog.String("roomID", roomID),
		slog.String("userID", info.UserID),
	)
}

// Leave removes conn from its room and forgets its player info. It reports
// the room that was left and the info that was stored; both are zero when
// the connection was not in a room.
func (r *Registry) Leave(conn Conn) (roomID string, info PlayerInfo, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(conn.ID())
}

func (r *Registry) removeLocked(id uuid.UUID) (string, PlayerInfo, bool) {
	roomID, ok := r.connIdx[id]
	if !ok {
		return "", PlayerInfo{}, false
	}
	delete(r.connIdx, id)

	members := r.rooms[roomID]
	m := members[id]
	delete(members, id)
	if len(members) == 0 {
		delete(r.rooms, roomID)
		r.logger.Debug("Removed empty room", slog.String("roomID", roomID))
	}

	r.logger.Debug("Connection left room", slog.String("connID", id.String()), slog.String("roomID", roomID))
	if m == nil {
		return roomID, PlayerInfo{}, false
	}
	return roomID, m.info, true
}

// Broadcast marshals the envelope once and sends it to every open member of
// roomID except exclude, which may be nil. A failed send is logged and does
// not stop delivery to the other members. It returns the number of members
// the envelope was handed to.
func (r *Registry) Broadcast(roomID string, typ protocol.Type, payload any, exclude Conn) int {
	msg, err := protocol.Marshal(typ, payload)
	if err != nil {
		r.logger.Error("Failed to marshal broadcast", slog.String("type", string(typ)), slog.Any("error", err))
		return 0
	}
	return r.BroadcastRaw(roomID, msg, exclude)
}

// BroadcastRaw fans out an already serialized envelope.
func (r *Registry) BroadcastRaw(roomID string, msg []byte, exclude Conn) int {
	targets := r.snapshot(roomID, exclude)

	delivered := 0
	for _, conn := range targets {
		if !conn.IsOpen() {
			continue
		}
		if err := conn.Send(msg); err != nil {
			r.logger.Warn("Broadcast send failed",
				slog.String("roomID", roomID),
				slog.String("connID", conn.ID().String()),
				slog.Any("error", err),
			)
			continue
		}
		delivered++
	}
	return delivered
}

func (r *Registry) snapshot(roomID string, exclude Conn) []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	var skip uuid.UUID
	if exclude != nil {
		skip = exclude.ID()
	}
	conns := make([]Conn, 0, len(members))
	for id, m := range members {
		if exclude != nil && id == skip {
			continue
		}
		conns = append(conns, m.conn)
	}
	return conns
}

// SendToOne sends a freshly stamped envelope to a single connection if it is
// open. Failures are logged, never returned.
func (r *Registry) SendToOne(conn Conn, typ protocol.Type, payload any) {
	if !conn.IsOpen() {
		return
	}
	msg, err := protocol.Marshal(typ, payload)
	if err != nil {
		r.logger.Error("Failed to marshal message", slog.String("type", string(typ)), slog.Any("error", err))
		return
	}
	if err := conn.Send(msg); err != nil {
		r.logger.Warn("Send failed",
			slog.String("connID", conn.ID().String()),
			slog.String("type", string(typ)),
			slog.Any("error", err),
		)
	}
}

// PlayersInRoom lists the identities in roomID in join order. The result is
// never nil.
func (r *Registry) PlayersInRoom(roomID string) []PlayerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[roomID]
	ordered := make([]*member, 0, len(members))
	for _, m := range members {
		ordered = append(ordered, m)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })

	players := make([]PlayerInfo, len(ordered))
	for i, m := range ordered {
		players[i] = m.info
	}
	return players
}

func (r *Registry) RoomForConnection(conn Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roomID, ok := r.connIdx[conn.ID()]
	return roomID, ok
}

func (r *Registry) PlayerInfo(conn Conn) (PlayerInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	roomID, ok := r.connIdx[id]
	if !ok {
		return PlayerInfo{}, false
	}
	m, ok := r.rooms[roomID][id]
	if !ok {
		return PlayerInfo{}, false
	}
	return m.info, true
}

func (r *Registry) RoomSize(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[roomID])
}

func (r *Registry) IsInRoom(conn Conn, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.connIdx[conn.ID()]
	return ok && current == roomID
}

// RoomCount reports how many rooms currently have members.
func (r *Registry) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
