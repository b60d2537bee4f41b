package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"unicode/utf8"

	"github.com/tablesync/tablesync/pkg/protocol"
	"github.com/tablesync/tablesync/pkg/rooms"
	"github.com/tidwall/gjson"
)

// Request describes the inbound envelope a handler is serving.
type Request struct {
	Ctx    context.Context
	Conn   rooms.Conn
	Type   protocol.Type
	Logger *slog.Logger
}

type handlerFunc func(req *Request, payload json.RawMessage) error

// errBadPayload marks payloads that failed to decode or validate.
var errBadPayload = errors.New("bad payload")

// Dispatcher routes inbound frames of every connection to the handler
// registered for their type. It never closes a connection.
type Dispatcher struct {
	logger   *slog.Logger
	registry *rooms.Registry
	handlers map[protocol.Type]handlerFunc
	limiter  *RateLimiter
}

type Option func(*Dispatcher)

// WithRateLimiter drops frames beyond the limiter's budget.
func WithRateLimiter(l *RateLimiter) Option {
	return func(d *Dispatcher) { d.limiter = l }
}

func New(logger *slog.Logger, registry *rooms.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger:   logger.With(slog.String("component", "dispatcher")),
		registry: registry,
		handlers: make(map[protocol.Type]handlerFunc),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// On registers fn for typ. The payload is decoded into P and validated with
// protocol.Check before fn runs.
func On[P any](d *Dispatcher, typ protocol.Type, fn func(req *Request, p P) error) {
	if _, exists := d.handlers[typ]; exists {
		panic("handler already registered: " + string(typ))
	}
	d.handlers[typ] = func(req *Request, raw json.RawMessage) error {
		var p P
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &p); err != nil {
				return fmt.Errorf("%w: %v", errBadPayload, err)
			}
		}
		if err := protocol.Check(p); err != nil {
			return fmt.Errorf("%w: %v", errBadPayload, err)
		}
		return fn(req, p)
	}
}

// Types lists the registered message types.
func (d *Dispatcher) Types() []protocol.Type {
	types := make([]protocol.Type, 0, len(d.handlers))
	for t := range d.handlers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Open greets a freshly accepted connection with its client id.
func (d *Dispatcher) Open(conn rooms.Conn) {
	d.registry.SendToOne(conn, protocol.TypeCampaignState, map[string]string{
		"clientId": conn.ID().String(),
	})
}

// Handle processes one inbound frame. Frames of a connection must be handed
// in arrival order by a single goroutine.
func (d *Dispatcher) Handle(ctx context.Context, conn rooms.Conn, frame []byte) {
	logger := d.logger.With(slog.String("connID", conn.ID().String()))

	if !utf8.Valid(frame) || !gjson.ValidBytes(frame) {
		logger.Warn("Failed to decode client message")
		d.sendError(conn, protocol.MsgInvalidFormat, "")
		return
	}
	root := gjson.ParseBytes(frame)
	typeField := root.Get("type")
	if !root.IsObject() || typeField.Type != gjson.String {
		logger.Warn("Client message is not an envelope")
		d.sendError(conn, protocol.MsgInvalidFormat, "")
		return
	}
	typ := protocol.Type(typeField.Str)

	if d.limiter != nil && !d.limiter.Allow(conn.ID()) {
		logger.Warn("Rate limit exceeded", slog.String("type", string(typ)))
		d.sendError(conn, protocol.MsgRateLimited, protocol.CodeRateLimited)
		return
	}

	handler, ok := d.handlers[typ]
	if !ok {
		logger.Warn("Received unknown message type", slog.String("type", string(typ)))
		d.sendError(conn, protocol.MsgUnknownType, "")
		return
	}

	req := &Request{
		Ctx:    ctx,
		Conn:   conn,
		Type:   typ,
		Logger: logger.With(slog.String("type", string(typ))),
	}
	payload := root.Get("payload")
	var raw json.RawMessage
	if payload.Exists() {
		raw = json.RawMessage(payload.Raw)
	}
	d.run(req, handler, raw)
}

func (d *Dispatcher) run(req *Request, handler handlerFunc, raw json.RawMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			req.Logger.Error("Handler panicked", slog.Any("panic", rec))
			d.sendError(req.Conn, protocol.MsgInternal, "")
		}
	}()

	err := handler(req, raw)
	if err == nil {
		return
	}

	var clientErr *Error
	switch {
	case errors.Is(err, errBadPayload):
		req.Logger.Warn("Rejected payload", slog.Any("error", err))
		d.sendError(req.Conn, protocol.MsgInvalidFormat, "")
	case errors.As(err, &clientErr):
		req.Logger.Warn("Handler failed", slog.String("reason", clientErr.Message), slog.Any("error", clientErr.Err))
		d.sendError(req.Conn, clientErr.Message, clientErr.Code)
	default:
		req.Logger.Error("Handler failed", slog.Any("error", err))
		d.sendError(req.Conn, protocol.MsgInternal, "")
	}
}

// Close evicts a closed connection and tells its room it has gone.
func (d *Dispatcher) Close(conn rooms.Conn) {
	if d.limiter != nil {
		d.limiter.Forget(conn.ID())
	}
	roomID, info, ok := d.registry.Leave(conn)
	if !ok {
		return
	}
	d.logger.Info("Player disconnected",
		slog.String("connID", conn.ID().String()),
		slog.String("roomID", roomID),
		slog.String("userID", info.UserID),
	)
	d.registry.Broadcast(roomID, protocol.TypeSessionPlayerLeft, map[string]string{"userId": info.UserID}, nil)
}

// TransportError records a transport failure. Eviction happens on Close.
func (d *Dispatcher) TransportError(conn rooms.Conn, err error) {
	d.logger.Warn("Transport error", slog.String("connID", conn.ID().String()), slog.Any("error", err))
}

func (d *Dispatcher) sendError(conn rooms.Conn, message, code string) {
	d.registry.SendToOne(conn, protocol.TypeError, protocol.ErrorPayload{Message: message, Code: code})
}
