package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/BaSui01/skillbridge/api"
	"github.com/BaSui01/skillbridge/internal/ctxkeys"
	"github.com/BaSui01/skillbridge/skill/protocol"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxBodyBytes 活动请求体上限
const DefaultMaxBodyBytes int64 = 4 << 20

// =============================================================================
// 📨 活动请求 Handler（HTTP 传输）
// =============================================================================

// ActivityHandler 把 HTTP 请求转换为 protocol.ReceiveRequest 交给技能侧请求处理器，
// 并原样写回处理器返回的状态码与响应体
type ActivityHandler struct {
	handler      protocol.RequestHandler
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewActivityHandler 创建活动请求处理器；maxBodyBytes <= 0 时使用 DefaultMaxBodyBytes
func NewActivityHandler(handler protocol.RequestHandler, maxBodyBytes int64, logger *zap.Logger) *ActivityHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityHandler{
		handler:      handler,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.With(zap.String("component", "activity_http")),
	}
}

// ServeHTTP 实现 http.Handler
func (h *ActivityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 未命中路由的请求交给处理器返回 404，不做 Content-Type 检查
	if m, ok := h.handler.(protocol.RouteMatcher); !ok || m.Matches(r.Method, r.URL.EscapedPath()) {
		if !ValidateContentType(w, r, h.logger) {
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, r, api.ErrInvalidRequest, "request body too large", h.logger)
			return
		}
		WriteError(w, r, api.ErrInvalidRequest, "failed to read request body", h.logger)
		return
	}

	ctx, id := h.requestContext(r)
	req := &protocol.ReceiveRequest{
		ID:   id,
		Verb: r.Method,
		Path: r.URL.EscapedPath(),
	}
	if len(body) > 0 {
		req.Streams = []protocol.ContentStream{
			&protocol.BytesStream{ContentType: r.Header.Get("Content-Type"), Data: body},
		}
	}

	resp := h.handler.ProcessRequest(ctx, req)
	if resp == nil {
		resp = protocol.InternalServerError()
	}

	if len(resp.Body) > 0 {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		if _, err := w.Write(resp.Body); err != nil {
			h.logger.Debug("write response body failed", zap.String("request_id", id), zap.Error(err))
		}
	}
}

func (h *ActivityHandler) requestContext(r *http.Request) (context.Context, string) {
	ctx := r.Context()
	if id, ok := ctxkeys.RequestID(ctx); ok {
		return ctx, id
	}
	id := r.Header.Get("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	return ctxkeys.WithRequestID(ctx, id), id
}
