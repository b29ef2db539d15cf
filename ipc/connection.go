package ipc

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
)

// Handler processes a received envelope. Return nil to send no reply.
type Handler func(env Envelope) (*Envelope, error)

// Connection is one game host session. A host plays one side per
// connection; the side's player name is learned from the hello message.
type Connection struct {
	conn     net.Conn
	handlers map[string]Handler
	Player   string

	log *slog.Logger
	wmu sync.Mutex
}

func NewConnection(conn net.Conn, handlers map[string]Handler) *Connection {
	if handlers == nil {
		handlers = make(map[string]Handler)
	}
	return &Connection{
		conn:     conn,
		handlers: handlers,
		log:      slog.Default(),
	}
}

func (c *Connection) RegisterHandler(msgType string, handler Handler) {
	c.handlers[msgType] = handler
}

// Identify names the player on this connection; later log lines carry it.
func (c *Connection) Identify(player string) {
	c.Player = player
	c.log = slog.Default().With("player", player)
}

// Send writes one message. Writes are serialized so a frame is never
// interleaved with another.
func (c *Connection) Send(msgType string, data any) error {
	env, err := NewEnvelope(msgType, data)
	if err != nil {
		return err
	}
	return c.write(env)
}

func (c *Connection) write(env Envelope) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return WriteEnvelope(c.conn, env)
}

// dispatch runs the handler for env and sends its reply. A handler error
// goes back to the host as an error message. The returned error means the
// connection can no longer be written.
func (c *Connection) dispatch(env Envelope) error {
	handler, ok := c.handlers[env.Type]
	if !ok {
		c.log.Warn("no handler for message type", "type", env.Type)
		return nil
	}

	resp, err := handler(env)
	if err != nil {
		c.log.Error("handler error", "type", env.Type, "error", err)
		return c.Send(TypeError, ErrorMessage{Type: env.Type, Error: err.Error()})
	}
	if resp == nil {
		return nil
	}
	if err := c.write(*resp); err != nil {
		return err
	}
	c.log.Debug("sent response", "type", resp.Type)
	return nil
}

// ReadLoop serves the connection until the host hangs up or a write fails,
// then closes it.
func (c *Connection) ReadLoop() {
	defer c.conn.Close()

	for {
		env, err := ReadEnvelope(c.conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.log.Info("host disconnected")
			} else {
				c.log.Warn("connection read ended", "error", err)
			}
			return
		}
		if err := c.dispatch(env); err != nil {
			c.log.Error("failed to send reply", "type", env.Type, "error", err)
			return
		}
	}
}
