package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/BaSui01/skillbridge/activity"
	"github.com/BaSui01/skillbridge/skill"
	"github.com/BaSui01/skillbridge/skill/auth"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when the limiter cannot admit a forward before
// the context ends.
var ErrRateLimited = errors.New("client: rate limited")

// DefaultMaxResponseBytes caps how much of a skill response is kept.
const DefaultMaxResponseBytes = 1 << 20

// prepare copies act and fills in the routing fields of a forward.
// RelatesTo is left as the caller set it.
func prepare(act *activity.Activity, botID string, sk skill.Skill, hostEndpoint string) *activity.Activity {
	out := act.Clone()
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if hostEndpoint != "" {
		out.ServiceURL = hostEndpoint
	}
	out.From = &activity.ChannelAccount{ID: botID, Role: activity.RoleBot}
	out.Recipient = &activity.ChannelAccount{ID: sk.Audience(), Name: sk.Name, Role: activity.RoleSkill}
	return out
}

// bearer issues a token for sk, or returns "" without an issuer.
func bearer(iss *auth.Issuer, sk skill.Skill) (string, error) {
	if iss == nil {
		return "", nil
	}
	return iss.Token(sk.Audience())
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func wait(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	if err := l.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return nil
}

// StreamURL derives the websocket url of a skill endpoint: ws and wss
// endpoints are used as is, http and https ones get the ws scheme and a
// trailing /ws.
func StreamURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: %q", skill.ErrInvalidEndpoint, endpoint)
	}
	switch u.Scheme {
	case "ws", "wss":
		return u.String(), nil
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", skill.ErrInvalidEndpoint, u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
