// Package ws implements the WebSocket client side of the sync protocol:
// dialing with handshake credentials, join requests correlated with their
// acknowledgments, and the fire-and-forget update stream.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/elyesghazel/notedown/internal/logging"
	"github.com/elyesghazel/notedown/internal/protocol"
)

// ErrConnectionClosed is returned by operations on a client whose socket has
// been torn down.
var ErrConnectionClosed = errors.New("connection closed")

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
)

// Options carries the handshake parameters of a connection. Exactly one of
// Token or GuestID is expected for an identified session; both may be empty
// for an anonymous guest without prior share state.
type Options struct {
	ServerURL string
	Token     string
	GuestID   string
}

// ContentHandler is invoked for every doc:content broadcast received.
type ContentHandler func(p protocol.DocContentPayload)

// Client is a single WebSocket connection to the sync server. All methods
// are safe for concurrent use.
type Client struct {
	sock      *websocket.Conn
	logger    logging.Logger
	onContent ContentHandler

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan protocol.AckPayload
	closed  bool
	done    chan struct{}
}

// Dial connects to the server and starts the read loop. onContent may be nil
// when the caller does not consume broadcasts.
func Dial(ctx context.Context, opts Options, onContent ContentHandler, log logging.Logger) (*Client, error) {
	u, err := endpointURL(opts)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	sock, resp, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %s)", u, err, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}

	c := &Client{
		sock:      sock,
		logger:    log.With("module", "ws_client"),
		onContent: onContent,
		pending:   make(map[int64]chan protocol.AckPayload),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func endpointURL(opts Options) (string, error) {
	base := strings.TrimSuffix(opts.ServerURL, "/")
	u, err := url.Parse(base + "/ws")
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", opts.ServerURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	q := u.Query()
	if opts.Token != "" {
		q.Set("token", opts.Token)
	}
	if opts.GuestID != "" {
		q.Set("guest", opts.GuestID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// JoinDocument subscribes this connection to a document room as its owner.
func (c *Client) JoinDocument(ctx context.Context, documentID string) error {
	return c.join(ctx, protocol.EventDocJoin, protocol.DocJoinPayload{DocumentID: documentID})
}

// JoinShare subscribes this connection to a share room as a guest.
// editPassword may be empty for unprotected shares.
func (c *Client) JoinShare(ctx context.Context, uuid, guestName, editPassword string) error {
	return c.join(ctx, protocol.EventShareJoin, protocol.ShareJoinPayload{
		UUID:         uuid,
		GuestName:    guestName,
		EditPassword: editPassword,
	})
}

// SendDocUpdate emits one owner-path content update. No acknowledgment is
// expected; a dropped update is corrected by the next one.
func (c *Client) SendDocUpdate(documentID, content string) error {
	return c.write(protocol.EventDocUpdate, 0, protocol.DocUpdatePayload{DocumentID: documentID, Content: content})
}

// SendShareUpdate emits one guest-path content update.
func (c *Client) SendShareUpdate(uuid, content string) error {
	return c.write(protocol.EventShareUpdate, 0, protocol.ShareUpdatePayload{UUID: uuid, Content: content})
}

// Close tears down the socket. In-flight join calls fail with
// ErrConnectionClosed.
func (c *Client) Close() error {
	return c.sock.Close()
}

func (c *Client) join(ctx context.Context, event string, payload any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	c.nextID++
	id := c.nextID
	ch := make(chan protocol.AckPayload, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(event, id, payload); err != nil {
		return err
	}

	select {
	case ack := <-ch:
		if !ack.OK {
			return fmt.Errorf("%s rejected: %s", event, ack.Error)
		}
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) write(event string, id int64, payload any) error {
	msg, err := protocol.MarshalFrame(event, id, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.sock.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.sock.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("write %s: %w", event, err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	}()

	for {
		_, msg, err := c.sock.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug(context.Background(), "read loop ended", "err", err)
			}
			return
		}

		var f protocol.Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			c.logger.Debug(context.Background(), "malformed frame", "err", err)
			continue
		}

		switch f.Type {
		case protocol.EventAck:
			var ack protocol.AckPayload
			if err := json.Unmarshal(f.Data, &ack); err != nil {
				c.logger.Debug(context.Background(), "malformed ack payload", "err", err)
				continue
			}
			c.mu.Lock()
			ch, ok := c.pending[f.ID]
			c.mu.Unlock()
			if ok {
				ch <- ack
			}

		case protocol.EventDocContent:
			if c.onContent == nil {
				continue
			}
			var p protocol.DocContentPayload
			if err := json.Unmarshal(f.Data, &p); err != nil {
				c.logger.Debug(context.Background(), "malformed content payload", "err", err)
				continue
			}
			c.onContent(p)

		default:
			c.logger.Debug(context.Background(), "unknown event type", "type", f.Type)
		}
	}
}
