package streaming

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/skillbridge/activity"
	"github.com/BaSui01/skillbridge/skill/handler"
	"github.com/BaSui01/skillbridge/skill/protocol"
	"github.com/BaSui01/skillbridge/turn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func startServer(t *testing.T, h protocol.RequestHandler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(h, ServerOptions{Logger: zap.NewNop()}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, opts ClientOptions) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, wsURL(srv), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSplitBody(t *testing.T) {
	assert.Nil(t, splitBody(nil, "", 4))

	chunks := splitBody([]byte("abcdefghij"), "text/plain", 4)
	require.Len(t, chunks, 3)
	assert.Equal(t, "abcd", string(chunks[0].Data))
	assert.Equal(t, "efgh", string(chunks[1].Data))
	assert.Equal(t, "ij", string(chunks[2].Data))
	assert.Equal(t, "text/plain", chunks[2].ContentType)

	assert.Len(t, splitBody([]byte("abc"), "", 0), 1, "zero size uses the default")
}

func TestRoundTripThroughHandler(t *testing.T) {
	tr := turn.NewTranscript(nil)
	h, err := handler.New(handler.Options{Turn: tr, Logger: zap.NewNop()})
	require.NoError(t, err)

	srv := startServer(t, h)
	// 小分块强制请求体拆成多个内容流
	c := dial(t, srv, ClientOptions{MaxChunkSize: 7})

	text := strings.Repeat("héllo wörld ", 20)
	body, err := json.Marshal(&activity.Activity{Type: activity.TypeMessage, ID: "act-1", Text: text})
	require.NoError(t, err)
	require.Greater(t, len(splitBody(body, "", 7)), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := c.Do(ctx, http.MethodPost, "/activities/act-1", body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":"act-1"}`, string(resp.Body))

	sent := tr.Sent(activity.TypeMessage)
	require.Len(t, sent, 1)
	assert.Equal(t, text, sent[0].Text)

	resp, err = c.Do(ctx, http.MethodGet, "/activities/act-1", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = c.Do(ctx, http.MethodDelete, "/activities/act-1", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Body)
	_, live := tr.Lookup("act-1")
	assert.False(t, live)
}

func TestConcurrentRequestsAreCorrelated(t *testing.T) {
	echo := protocol.RequestHandlerFunc(func(ctx context.Context, req *protocol.ReceiveRequest) *protocol.Response {
		return &protocol.Response{StatusCode: http.StatusOK, Body: []byte(req.Path)}
	})
	srv := startServer(t, echo)
	c := dial(t, srv, ClientOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := "/activities/" + strings.Repeat("x", i+1)
			resp, err := c.Do(ctx, http.MethodPost, path, []byte(`{}`))
			if assert.NoError(t, err) {
				assert.Equal(t, path, string(resp.Body))
			}
		}(i)
	}
	wg.Wait()
}

func TestNilResponseBecomes500(t *testing.T) {
	srv := startServer(t, protocol.RequestHandlerFunc(func(context.Context, *protocol.ReceiveRequest) *protocol.Response {
		return nil
	}))
	c := dial(t, srv, ClientOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.Do(ctx, http.MethodPost, "/activities/a", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestClientClosed(t *testing.T) {
	release := make(chan struct{})
	srv := startServer(t, protocol.RequestHandlerFunc(func(ctx context.Context, _ *protocol.ReceiveRequest) *protocol.Response {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return protocol.NewResponse(http.StatusOK)
	}))
	defer close(release)
	c := dial(t, srv, ClientOptions{})

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Do(context.Background(), http.MethodPost, "/activities/slow", nil)
		errCh <- err
	}()

	// 等待请求发出
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, c.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("pending request was not released")
	}

	_, err := c.Do(context.Background(), http.MethodPost, "/activities/after", nil)
	assert.ErrorIs(t, err, ErrClosed)
	<-c.Done()
}

func TestDoHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := startServer(t, protocol.RequestHandlerFunc(func(ctx context.Context, _ *protocol.ReceiveRequest) *protocol.Response {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return protocol.NewResponse(http.StatusOK)
	}))
	defer close(release)
	c := dial(t, srv, ClientOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Do(ctx, http.MethodPost, "/activities/slow", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
