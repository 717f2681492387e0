package signaling

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/coder/websocket"
)

// ErrRoomFull is returned by Dial when the room already has two members.
var ErrRoomFull = errors.New("signaling: room full")

// Client is one member's connection to a Server.
type Client struct {
	ws *websocket.Conn
}

// Dial joins the room addressed by url, for example
// "ws://localhost:8000/my-room".
func Dial(ctx context.Context, url string) (*Client, error) {
	ws, resp, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			return nil, ErrRoomFull
		}
		return nil, fmt.Errorf("signaling: dial: %w", err)
	}
	ws.SetReadLimit(maxFrame)
	return &Client{ws: ws}, nil
}

// Send encodes and writes m.
func (c *Client) Send(ctx context.Context, m *Message) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	if err := c.ws.Write(ctx, websocket.MessageBinary, data); err != nil {
		return fmt.Errorf("signaling: write: %w", err)
	}
	return nil
}

// Receive reads the next message. io.EOF is returned once the server
// closed the connection normally.
func (c *Client) Receive(ctx context.Context) (*Message, error) {
	typ, data, err := c.ws.Read(ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return nil, io.EOF
		}
		return nil, fmt.Errorf("signaling: read: %w", err)
	}
	if typ != websocket.MessageBinary {
		return nil, fmt.Errorf("%w: text frame", ErrMalformed)
	}
	return Unmarshal(data)
}

// Close leaves the room.
func (c *Client) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "")
}
