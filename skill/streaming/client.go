package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/BaSui01/skillbridge/internal/metrics"
	"github.com/BaSui01/skillbridge/skill/protocol"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// MaxChunkSize bounds each content stream of a request body.
	MaxChunkSize int
	// Header is sent with the websocket handshake, e.g. a bearer token.
	Header     http.Header
	HTTPClient *http.Client
	ReadLimit  int64
	Metrics    *metrics.Collector
	Logger     *zap.Logger
}

// Client sends request frames and correlates their responses by id.
// A Client is safe for concurrent use.
type Client struct {
	conn    *websocket.Conn
	opts    ClientOptions
	logger  *zap.Logger
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan *frame
	closed  bool
	err     error
	done    chan struct{}
}

// Dial connects to a streaming server at url (ws:// or wss://).
func Dial(ctx context.Context, url string, opts ClientOptions) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient: opts.HTTPClient,
		HTTPHeader: opts.Header,
	})
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = DefaultMaxChunkSize
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = DefaultReadLimit
	}
	conn.SetReadLimit(opts.ReadLimit)
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		conn:    conn,
		opts:    opts,
		logger:  logger.With(zap.String("component", "ws_client")),
		pending: make(map[string]chan *frame),
		done:    make(chan struct{}),
	}
	opts.Metrics.StreamConnected("client")
	go c.readLoop()
	return c, nil
}

// Do sends one request and waits for its response.
func (c *Client) Do(ctx context.Context, verb, path string, body []byte) (*protocol.Response, error) {
	id := uuid.NewString()
	req := &frame{
		Kind:    frameRequest,
		ID:      id,
		Verb:    verb,
		Path:    path,
		Streams: splitBody(body, "application/json; charset=utf-8", c.opts.MaxChunkSize),
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal frame: %w", err)
	}

	ch := make(chan *frame, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()
	defer c.forget(id)

	c.writeMu.Lock()
	err = c.conn.Write(ctx, websocket.MessageText, data)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("websocket write: %w", err)
	}

	select {
	case resp := <-ch:
		return &protocol.Response{StatusCode: resp.StatusCode, Body: resp.Body}, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes the connection. Pending requests fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	err := c.conn.Close(websocket.StatusNormalClosure, "closing")
	c.shutdown(nil)
	return err
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the connection, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			c.shutdown(err)
			return
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		if f.Kind != frameResponse {
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[f.ID]
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("response for unknown request", zap.String("request_id", f.ID))
			continue
		}
		ch <- &f
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.err = err
	close(c.done)
	c.opts.Metrics.StreamDisconnected("client")
}
