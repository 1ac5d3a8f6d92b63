package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BaSui01/skillbridge/activity"
	"github.com/BaSui01/skillbridge/internal/ctxkeys"
	"github.com/BaSui01/skillbridge/internal/tlsutil"
	"github.com/BaSui01/skillbridge/skill"
	"github.com/BaSui01/skillbridge/skill/auth"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	// HTTPClient defaults to a hardened client with Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration
	// Issuer signs the bearer token. Nil sends no Authorization header.
	Issuer *auth.Issuer
	// RateLimit is forwards per second; zero disables limiting.
	RateLimit        float64
	Burst            int
	MaxResponseBytes int64
	Logger           *zap.Logger
}

// HTTPClient forwards activities to skills over plain HTTP.
type HTTPClient struct {
	http     *http.Client
	issuer   *auth.Issuer
	limiter  *rate.Limiter
	maxBytes int64
	logger   *zap.Logger
}

// NewHTTP creates an HTTPClient.
func NewHTTP(opts HTTPOptions) *HTTPClient {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = tlsutil.SecureHTTPClient(timeout)
	}
	if opts.MaxResponseBytes <= 0 {
		opts.MaxResponseBytes = DefaultMaxResponseBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		http:     hc,
		issuer:   opts.Issuer,
		limiter:  newLimiter(opts.RateLimit, opts.Burst),
		maxBytes: opts.MaxResponseBytes,
		logger:   logger.With(zap.String("component", "skill_http_client")),
	}
}

// PostToSkill posts act to the skill's activity url and returns the raw status
// and body. Only transport failures are errors.
func (c *HTTPClient) PostToSkill(ctx context.Context, botID string, sk skill.Skill, hostEndpoint string, act *activity.Activity) (*skill.InvokeResponse, error) {
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

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sk.ActivityURL(out.ID), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	if id, ok := ctxkeys.RequestID(ctx); ok {
		req.Header.Set("X-Request-ID", id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	tok, err := bearer(c.issuer, sk)
	if err != nil {
		return nil, err
	}
	if tok != "" {
		auth.SetBearer(req, tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post activity: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("activity posted",
		zap.String("skill_id", sk.ID),
		zap.String("activity_id", out.ID),
		zap.Int("status", resp.StatusCode),
	)
	return &skill.InvokeResponse{Status: resp.StatusCode, Body: data}, nil
}
