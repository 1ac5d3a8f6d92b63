package streaming

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/BaSui01/skillbridge/internal/ctxkeys"
	"github.com/BaSui01/skillbridge/internal/metrics"
	"github.com/BaSui01/skillbridge/skill/protocol"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// ServerOptions configures a Server.
type ServerOptions struct {
	// ReadLimit is the largest accepted message in bytes.
	ReadLimit    int64
	WriteTimeout time.Duration
	// OriginPatterns are passed to websocket.Accept. Empty means same origin only.
	OriginPatterns []string
	Metrics        *metrics.Collector
	Logger         *zap.Logger
}

// Server serves request frames from websocket connections to a RequestHandler.
type Server struct {
	handler protocol.RequestHandler
	opts    ServerOptions
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewServer creates a Server.
func NewServer(h protocol.RequestHandler, opts ServerOptions) *Server {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = DefaultReadLimit
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		handler: h,
		opts:    opts,
		logger:  logger.With(zap.String("component", "ws_server")),
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.opts.OriginPatterns,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(s.opts.ReadLimit)

	s.opts.Metrics.StreamConnected("server")
	defer s.opts.Metrics.StreamDisconnected("server")

	err = s.serveConn(r.Context(), conn)
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		s.logger.Debug("websocket closed by peer")
	default:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("websocket connection ended", zap.Error(err))
		}
	}
}

// Wait blocks until all in-flight requests have been answered.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) serveConn(ctx context.Context, conn *websocket.Conn) error {
	defer conn.CloseNow()
	var inflight sync.WaitGroup
	defer inflight.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var writeMu sync.Mutex
	write := func(f *frame) error {
		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("marshal frame: %w", err)
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		wctx, wcancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
		defer wcancel()
		return conn.Write(wctx, websocket.MessageText, data)
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			s.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		if f.Kind != frameRequest {
			s.logger.Debug("ignoring non-request frame", zap.String("kind", string(f.Kind)))
			continue
		}

		inflight.Add(1)
		s.wg.Add(1)
		go func(f frame) {
			defer inflight.Done()
			defer s.wg.Done()

			rctx := ctxkeys.WithRequestID(ctx, f.ID)
			resp := s.handler.ProcessRequest(rctx, f.toReceiveRequest())
			if resp == nil {
				resp = protocol.InternalServerError()
			}
			out := &frame{Kind: frameResponse, ID: f.ID, StatusCode: resp.StatusCode, Body: resp.Body}
			if err := write(out); err != nil {
				s.logger.Warn("failed to write response frame", zap.String("request_id", f.ID), zap.Error(err))
			}
		}(f)
	}
}
