package ws

import "sync"

// JSONWriter is the write half of a websocket connection.
type JSONWriter interface {
	WriteJSON(v interface{}) error
}

// Conn serializes writes to a connection shared by the read loop and game
// broadcasts.
type Conn struct {
	mu sync.Mutex
	w  JSONWriter
}

func NewConn(w JSONWriter) *Conn {
	return &Conn{w: w}
}

func (c *Conn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.WriteJSON(v)
}

// Send wraps payload in a Message of type t and writes it.
func (c *Conn) Send(t MessageType, payload interface{}) error {
	msg, err := NewMessage(t, payload)
	if err != nil {
		return err
	}
	return c.WriteJSON(msg)
}

func (c *Conn) SendError(message string) error {
	return c.Send(MessageTypeError, ErrorPayload{Message: message})
}
