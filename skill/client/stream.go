package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/BaSui01/skillbridge/activity"
	"github.com/BaSui01/skillbridge/internal/metrics"
	"github.com/BaSui01/skillbridge/skill"
	"github.com/BaSui01/skillbridge/skill/auth"
	"github.com/BaSui01/skillbridge/skill/streaming"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// StreamOptions configures a StreamClient.
type StreamOptions struct {
	Issuer       *auth.Issuer
	MaxChunkSize int
	RateLimit    float64
	Burst        int
	HTTPClient   *http.Client
	Metrics      *metrics.Collector
	Logger       *zap.Logger
}

// StreamClient forwards activities over one websocket connection per skill.
// Connections are dialed lazily and redialed after they drop.
type StreamClient struct {
	opts    StreamOptions
	limiter *rate.Limiter
	logger  *zap.Logger

	mu    sync.Mutex
	conns map[string]*streaming.Client
}

// NewStream creates a StreamClient.
func NewStream(opts StreamOptions) *StreamClient {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamClient{
		opts:    opts,
		limiter: newLimiter(opts.RateLimit, opts.Burst),
		logger:  logger.With(zap.String("component", "skill_stream_client")),
		conns:   make(map[string]*streaming.Client),
	}
}

// PostToSkill sends act as a POST request frame to the skill.
func (c *StreamClient) PostToSkill(ctx context.Context, botID string, sk skill.Skill, hostEndpoint string, act *activity.Activity) (*skill.InvokeResponse, error) {
	if act == nil {
		return nil, fmt.Errorf("client: nil activity")
	}
	if err := wait(ctx, c.limiter); err != nil {
		return nil, err
	}

	out := prepare(act, botID, sk, hostEndpoint)
	body, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal activity: %w", err)
	}

	conn, err := c.conn(ctx, sk)
	if err != nil {
		return nil, err
	}
	resp, err := conn.Do(ctx, http.MethodPost, "/activities/"+url.PathEscape(out.ID), body)
	if err != nil {
		return nil, fmt.Errorf("stream request: %w", err)
	}
	return &skill.InvokeResponse{Status: resp.StatusCode, Body: resp.Body}, nil
}

// Close closes every open connection.
func (c *StreamClient) Close() error {
	c.mu.Lock()
	conns := c.conns
	c.conns = make(map[string]*streaming.Client)
	c.mu.Unlock()

	var firstErr error
	for _, conn := range conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *StreamClient) conn(ctx context.Context, sk skill.Skill) (*streaming.Client, error) {
	if conn, ok := c.cached(sk.ID); ok {
		return conn, nil
	}

	u, err := StreamURL(sk.Endpoint)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	tok, err := bearer(c.opts.Issuer, sk)
	if err != nil {
		return nil, err
	}
	if tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}

	// 拨号不持锁，慢的技能不会阻塞其他技能的转发
	conn, err := streaming.Dial(ctx, u, streaming.ClientOptions{
		MaxChunkSize: c.opts.MaxChunkSize,
		Header:       header,
		HTTPClient:   c.opts.HTTPClient,
		Metrics:      c.opts.Metrics,
		Logger:       c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to skill %q: %w", sk.ID, err)
	}

	c.mu.Lock()
	if existing, ok := c.conns[sk.ID]; ok && alive(existing) {
		c.mu.Unlock()
		_ = conn.Close()
		return existing, nil
	}
	c.conns[sk.ID] = conn
	c.mu.Unlock()

	c.logger.Debug("stream connected", zap.String("skill_id", sk.ID), zap.String("url", u))
	return conn, nil
}

// cached 返回仍然可用的连接；已断开的连接被移除
func (c *StreamClient) cached(skillID string) (*streaming.Client, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conn, ok := c.conns[skillID]
	if !ok {
		return nil, false
	}
	if alive(conn) {
		return conn, true
	}
	c.logger.Info("stream dropped, redialing", zap.String("skill_id", skillID), zap.Error(conn.Err()))
	delete(c.conns, skillID)
	return nil, false
}

func alive(conn *streaming.Client) bool {
	select {
	case <-conn.Done():
		return false
	default:
		return true
	}
}
