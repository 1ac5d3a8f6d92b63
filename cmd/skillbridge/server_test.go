package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/skillbridge/activity"
	"github.com/BaSui01/skillbridge/config"
	"github.com/BaSui01/skillbridge/skill"
	"github.com/BaSui01/skillbridge/skill/auth"
	"github.com/BaSui01/skillbridge/skill/client"
	"github.com/BaSui01/skillbridge/skill/streaming"
	"github.com/BaSui01/skillbridge/state"
)

var testSecret = "server-test-secret"

// newTestServer 在内存后端上组装路由，不监听端口
func newTestServer(t *testing.T, modify func(*config.Config)) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.RateLimitRPS = 0
	if modify != nil {
		modify(cfg)
	}

	s := NewServer(cfg, zap.NewNop())
	s.backend = &stateBackend{name: "memory", storage: state.NewMemoryStorage()}
	h, err := s.buildHandler()
	require.NoError(t, err)
	t.Cleanup(s.rateLimiterCancel)

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return s, ts
}

func doRequest(t *testing.T, method, url, body string, header http.Header) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var sb bytes.Buffer
	_, err = sb.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, sb.String()
}

func TestServer_ActivityLifecycle(t *testing.T) {
	s, ts := newTestServer(t, nil)
	ctx := context.Background()

	// POST 投递活动
	resp, body := doRequest(t, http.MethodPost, ts.URL+"/activities/a1",
		`{"type":"message","id":"a1","text":"hi","conversation":{"id":"c1"}}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":"a1"}`, body)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	stored, err := s.host.lookup(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "hi", stored.Text)

	// PUT 更新，响应体为空
	resp, body = doRequest(t, http.MethodPut, ts.URL+"/activities/a1",
		`{"type":"message","id":"a1","text":"edited","conversation":{"id":"c1"}}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body)
	stored, err = s.host.lookup(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "edited", stored.Text)

	// DELETE 按路径 id 删除
	resp, _ = doRequest(t, http.MethodDelete, ts.URL+"/activities/a1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err = s.host.lookup(ctx, "a1")
	assert.ErrorIs(t, err, state.ErrNotFound)

	// 再次删除：轮次报错，转换为 500
	resp, _ = doRequest(t, http.MethodDelete, ts.URL+"/activities/a1", "", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestServer_RouteMisses(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/activities/a1", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/activities/a1/extra", `{"type":"message"}`, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodPut, ts.URL+"/activities/missing",
		`{"type":"message","id":"missing"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/activities/a1", `not json`, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestServer_ControlEvents(t *testing.T) {
	_, ts := newTestServer(t, nil)

	for _, body := range []string{
		`{"type":"event","name":"tokens/request","id":"e1"}`,
		`{"type":"event","name":"fallbackEvent","id":"e2"}`,
		`{"type":"handoff","id":"e3"}`,
	} {
		resp, got := doRequest(t, http.MethodPost, ts.URL+"/activities/x", body, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
		assert.JSONEq(t, `{"id":""}`, got)
	}
}

func TestServer_HealthAndVersion(t *testing.T) {
	_, ts := newTestServer(t, nil)

	for _, path := range []string{"/health", "/healthz", "/ready"} {
		resp, _ := doRequest(t, http.MethodGet, ts.URL+path, "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/version", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v struct {
		Data struct {
			Version string `json:"version"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	assert.Equal(t, Version, v.Data.Version)
}

func TestServer_AuthEnabled(t *testing.T) {
	_, ts := newTestServer(t, func(c *config.Config) {
		c.Auth.Enabled = true
		c.Auth.Secret = testSecret
		c.Auth.Audience = "weather-app"
	})

	body := `{"type":"message","id":"a1","text":"hi"}`

	resp, _ := doRequest(t, http.MethodPost, ts.URL+"/activities/a1", body, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// 探活路径不需要令牌
	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	iss, err := auth.NewIssuer("root-bot", "skillbridge", []byte(testSecret), time.Minute)
	require.NoError(t, err)

	wrongAud, err := iss.Token("other-app")
	require.NoError(t, err)
	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/activities/a1", body,
		http.Header{"Authorization": {"Bearer " + wrongAud}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tok, err := iss.Token("weather-app")
	require.NoError(t, err)
	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/activities/a1", body,
		http.Header{"Authorization": {"Bearer " + tok}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_WebsocketTransport(t *testing.T) {
	s, ts := newTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := streaming.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", streaming.ClientOptions{})
	require.NoError(t, err)
	defer c.Close()

	act := activity.NewMessage("over websocket")
	act.Conversation = &activity.ConversationAccount{ID: "c-ws"}
	data, err := json.Marshal(act)
	require.NoError(t, err)

	resp, err := c.Do(ctx, http.MethodPost, "/activities/"+act.ID, data)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := s.host.lookup(ctx, act.ID)
	require.NoError(t, err)
	assert.Equal(t, "over websocket", stored.Text)
}

func TestServer_StreamingDisabled(t *testing.T) {
	_, ts := newTestServer(t, func(c *config.Config) { c.Streaming.Enabled = false })

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/ws", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_OnConfigReload(t *testing.T) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	s := NewServer(config.DefaultConfig(), zap.NewNop(), WithLogLevel(level))

	prev := config.DefaultConfig()
	next := config.DefaultConfig()
	next.Log.Level = "debug"
	next.Server.HTTPPort = 9999

	s.onConfigReload(prev, next)
	assert.Equal(t, zap.DebugLevel, level.Level())
}

func TestServer_ReadyDrainsOnShutdown(t *testing.T) {
	s, ts := newTestServer(t, nil)

	s.healthHandler.SetDraining(true)
	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ActivityIDWithSlash(t *testing.T) {
	tests := []struct {
		name string
		post func(ctx context.Context, sk skill.Skill, act *activity.Activity) (*skill.InvokeResponse, error)
	}{
		{"http", func(ctx context.Context, sk skill.Skill, act *activity.Activity) (*skill.InvokeResponse, error) {
			return client.NewHTTP(client.HTTPOptions{}).PostToSkill(ctx, "root-bot", sk, "", act)
		}},
		{"websocket", func(ctx context.Context, sk skill.Skill, act *activity.Activity) (*skill.InvokeResponse, error) {
			c := client.NewStream(client.StreamOptions{})
			defer c.Close()
			return c.PostToSkill(ctx, "root-bot", sk, "", act)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ts := newTestServer(t, nil)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			act := activity.NewMessage("slashed")
			act.ID = "conv/0001"
			act.Conversation = &activity.ConversationAccount{ID: "c-slash"}

			resp, err := tt.post(ctx, skill.Skill{ID: "echo", Endpoint: ts.URL}, act)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
			assert.JSONEq(t, `{"id":"conv/0001"}`, string(resp.Body))

			stored, err := s.host.lookup(ctx, "conv/0001")
			require.NoError(t, err)
			assert.Equal(t, "slashed", stored.Text)

			// DELETE 用编码后的 id
			r, _ := doRequest(t, http.MethodDelete, ts.URL+"/activities/conv%2F0001", "", nil)
			assert.Equal(t, http.StatusOK, r.StatusCode)
			_, err = s.host.lookup(ctx, "conv/0001")
			assert.ErrorIs(t, err, state.ErrNotFound)
		})
	}
}

func TestServer_UnmatchedPathIgnoresContentType(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, _ := doRequest(t, http.MethodPost, ts.URL+"/activities/a/b", "hello",
		http.Header{"Content-Type": {"text/plain"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/activities/a1", "hello",
		http.Header{"Content-Type": {"text/plain"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/activities/a1",
		`{"type":"message","id":"a1","text":"hi","conversation":{"id":"c1"}}`,
		http.Header{"Content-Type": {"application/json; charset=UTF-8"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
