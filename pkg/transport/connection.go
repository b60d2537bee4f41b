package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

var (
	ErrNotOpen       = errors.New("transport: connection is not open")
	ErrSendQueueFull = errors.New("transport: send queue full")
)

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// MessageHandler is called from the read pump, one frame at a time.
type MessageHandler func(ctx context.Context, c *Connection, msg []byte)

// Handlers are the lifecycle callbacks of a connection. Any may be nil.
type Handlers struct {
	// OnOpen runs once, before the first frame is read.
	OnOpen    func(c *Connection)
	OnMessage MessageHandler
	// OnError reports read and write failures other than a normal closure.
	OnError func(c *Connection, err error)
	// OnClose runs once, after every pump has stopped.
	OnClose func(c *Connection, err error)
}

type Config struct {
	// ReadTimeout is how long a keepalive ping may go unanswered. Pings are
	// sent every ReadTimeout/2; a silent but responsive peer stays connected.
	ReadTimeout time.Duration
	SendQueue   int
}

const defaultReadTimeout = 60 * time.Second

// Connection represents a single, thread-safe WebSocket connection.
type Connection struct {
	id       uuid.UUID
	conn     *websocket.Conn
	config   Config
	handlers Handlers
	send     chan []byte
	state    atomic.Int32
	opened   time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
	wg        *sync.WaitGroup

	logger *slog.Logger
}

// NewConnection wraps an accepted websocket. wg is incremented by Run and
// released once the connection has fully terminated.
func NewConnection(parentCtx context.Context, wg *sync.WaitGroup, conn *websocket.Conn, config Config, handlers Handlers, logger *slog.Logger) *Connection {
	id := uuid.New()
	connCtx, cancel := context.WithCancel(parentCtx)
	if config.SendQueue < 1 {
		config.SendQueue = 1
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = defaultReadTimeout
	}

	c := &Connection{
		id:       id,
		conn:     conn,
		config:   config,
		handlers: handlers,
		send:     make(chan []byte, config.SendQueue),
		opened:   time.Now(),
		ctx:      connCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
		wg:       wg,
		logger:   logger.With(slog.String("connID", id.String())),
	}
	c.state.Store(int32(StateConnecting))
	return c
}

// Run opens the connection and starts its pumps. It returns immediately;
// wait on Done for termination.
func (c *Connection) Run() {
	c.wg.Add(1)
	c.state.Store(int32(StateOpen))
	if c.handlers.OnOpen != nil {
		c.handlers.OnOpen(c)
	}

	var pumps sync.WaitGroup
	pumps.Add(3)
	go func() {
		defer pumps.Done()
		c.readPump()
	}()
	go func() {
		defer pumps.Done()
		c.writePump()
	}()
	go func() {
		defer pumps.Done()
		c.pingPump()
	}()
	go func() {
		pumps.Wait()
		c.finish()
	}()

	c.logger.Info("Connection established")
}

// readPump pumps frames from the websocket to the message handler.
func (c *Connection) readPump() {
	for {
		msg, err := c.read()
		if err != nil {
			c.fail(err)
			return
		}
		if c.handlers.OnMessage != nil {
			c.handlers.OnMessage(c.ctx, c, msg)
		}
	}
}

func (c *Connection) read() ([]byte, error) {
	_, msg, err := c.conn.Read(c.ctx)
	return msg, err
}

// writePump drains the send queue into the websocket.
func (c *Connection) writePump() {
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.Write(c.ctx, websocket.MessageText, msg); err != nil {
				c.fail(err)
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// pingPump pings the peer periodically. The pong is consumed by the read
// pump; a ping left unanswered for ReadTimeout closes the connection.
func (c *Connection) pingPump() {
	ticker := time.NewTicker(c.config.ReadTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.ping(); err != nil {
				c.fail(fmt.Errorf("keepalive: %w", err))
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) ping() error {
	ctx, cancel := context.WithTimeout(c.ctx, c.config.ReadTimeout)
	defer cancel()
	return c.conn.Ping(ctx)
}

// fail reports abnormal pump errors and closes the connection.
func (c *Connection) fail(err error) {
	if !isNormalClosure(err) && c.State() == StateOpen && c.handlers.OnError != nil {
		c.handlers.OnError(c, err)
	}
	c.Close(err)
}

func isNormalClosure(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, context.Canceled)
}

// Send queues msg for delivery. It never blocks: a closed connection returns
// ErrNotOpen and a saturated queue returns ErrSendQueueFull.
func (c *Connection) Send(msg []byte) error {
	if c.State() != StateOpen || c.ctx.Err() != nil {
		return ErrNotOpen
	}
	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn("Send queue full, dropping message")
		return ErrSendQueueFull
	}
}

// Close shuts the connection down. Only the first call has any effect; err is
// recorded as the close reason.
func (c *Connection) Close(err error) {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		c.closeErr = err
		c.logger.Info("Transport connection closing",
			slog.Any("reason", err),
			slog.String("status", websocket.CloseStatus(err).String()),
		)
		c.cancel()
		c.conn.Close(websocket.StatusNormalClosure, "")
	})
}

func (c *Connection) finish() {
	c.state.Store(int32(StateClosed))
	if c.handlers.OnClose != nil {
		c.handlers.OnClose(c, c.closeErr)
	}
	c.logger.Info("Connection closed")
	c.wg.Done()
	close(c.done)
}

// Done returns a channel that is closed when the connection is fully terminated.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) ID() uuid.UUID {
	return c.id
}

func (c *Connection) State() State {
	return State(c.state.Load())
}

func (c *Connection) IsOpen() bool {
	return c.State() == StateOpen
}

// OpenedAt is when the connection was accepted.
func (c *Connection) OpenedAt() time.Time {
	return c.opened
}
