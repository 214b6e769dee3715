package daemon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Client is a connection to a running daemon
type Client struct {
	id      string
	conn    net.Conn
	scanner *bufio.Scanner
	writeMu sync.Mutex
}

// Dial connects to the daemon at socketPath and introduces the client with
// the given role.
func Dial(socketPath string, hello HelloPayload, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon at %s: %w", socketPath, err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	c := &Client{
		id:      uuid.NewString(),
		conn:    conn,
		scanner: scanner,
	}
	if err := c.Send(MsgHello, hello); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// ID returns the client ID sent to the daemon
func (c *Client) ID() string {
	return c.id
}

// Send writes one message.
func (c *Client) Send(t MessageType, payload any) error {
	msg, err := NewMessage(t, payload)
	if err != nil {
		return err
	}
	msg.ClientID = c.id

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeMessage(c.conn, msg)
}

// Receive blocks for the next message. It returns io.EOF once the daemon
// closes the connection.
func (c *Client) Receive() (Message, error) {
	for c.scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(c.scanner.Bytes(), &msg); err != nil {
			continue
		}
		return msg, nil
	}
	if err := c.scanner.Err(); err != nil {
		return Message{}, fmt.Errorf("failed to read from daemon: %w", err)
	}
	return Message{}, io.EOF
}

// Request sends a message and waits up to timeout for a reply of type want.
// An error reply from the daemon is returned as an error.
func (c *Client) Request(t MessageType, payload any, want MessageType, timeout time.Duration) (Message, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return Message{}, err
	}
	defer func() { _ = c.conn.SetReadDeadline(time.Time{}) }()

	if err := c.Send(t, payload); err != nil {
		return Message{}, err
	}

	for {
		msg, err := c.Receive()
		if err != nil {
			return Message{}, err
		}
		switch msg.Type {
		case want:
			return msg, nil
		case MsgError:
			var e ErrorPayload
			if err := msg.Decode(&e); err != nil {
				return Message{}, err
			}
			return Message{}, fmt.Errorf("daemon: %s", e.Message)
		}
	}
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}
