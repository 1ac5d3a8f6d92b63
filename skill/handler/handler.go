package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/skillbridge/activity"
	"github.com/BaSui01/skillbridge/internal/ctxkeys"
	"github.com/BaSui01/skillbridge/internal/metrics"
	"github.com/BaSui01/skillbridge/internal/telemetry"
	"github.com/BaSui01/skillbridge/skill/protocol"
	"github.com/BaSui01/skillbridge/turn"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// ActivityPath is the route template served by the handler.
	ActivityPath = "/activities/{activityId}"
	// ActivityIDParam is the placeholder holding the activity id.
	ActivityIDParam = "activityId"

	unmatchedRoute = "unmatched"
)

// Callback handles a control activity.
type Callback func(ctx context.Context, act *activity.Activity) error

// Callbacks 控制事件回调槽位。未设置的槽位收到对应活动时请求失败。
type Callbacks struct {
	TokenRequest Callback
	Fallback     Callback
	Handoff      Callback
}

// Options configures a Handler.
type Options struct {
	Turn      turn.Context
	Callbacks Callbacks
	Reporter  telemetry.ExceptionReporter
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

// Handler routes inbound activity requests and dispatches them by activity kind.
type Handler struct {
	routes    *protocol.Table
	turn      turn.Context
	callbacks Callbacks
	reporter  telemetry.ExceptionReporter
	metrics   *metrics.Collector
	logger    *zap.Logger
}

var (
	_ protocol.RequestHandler = (*Handler)(nil)
	_ protocol.RouteMatcher   = (*Handler)(nil)
)

// New creates a Handler.
func New(opts Options) (*Handler, error) {
	if opts.Turn == nil {
		return nil, ErrMissingTurn
	}
	if opts.Reporter == nil {
		opts.Reporter = telemetry.NopReporter{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	h := &Handler{
		turn:      opts.Turn,
		callbacks: opts.Callbacks,
		reporter:  opts.Reporter,
		metrics:   opts.Metrics,
		logger:    opts.Logger.With(zap.String("component", "skill_handler")),
	}

	routes, err := protocol.NewTable(
		protocol.Template{Method: http.MethodPost, Path: ActivityPath, Action: h.postActivity},
		protocol.Template{Method: http.MethodPut, Path: ActivityPath, Action: h.putActivity},
		protocol.Template{Method: http.MethodDelete, Path: ActivityPath, Action: h.deleteActivity},
	)
	if err != nil {
		return nil, err
	}
	h.routes = routes
	return h, nil
}

// ProcessRequest implements protocol.RequestHandler. It never returns nil and
// never panics.
func (h *Handler) ProcessRequest(ctx context.Context, req *protocol.ReceiveRequest) (resp *protocol.Response) {
	start := time.Now()
	route := unmatchedRoute
	verb := ""
	if req != nil {
		verb = req.Verb
	}

	ctx, span := telemetry.Tracer().Start(ctx, "skill.ProcessRequest",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	defer func() {
		span.SetAttributes(
			attribute.String("skill.route", route),
			attribute.Int("skill.status_code", resp.StatusCode),
		)
		h.metrics.RecordSkillRequest(verb, route, resp.StatusCode, time.Since(start))
	}()

	if req == nil {
		h.report(ctx, fmt.Errorf("%w: nil request", ErrInvalidActivity), verb, route, "")
		return protocol.InternalServerError()
	}
	if req.ID != "" {
		ctx = ctxkeys.WithRequestID(ctx, req.ID)
	}

	m, ok := h.routes.Match(req.Verb, req.Path)
	if !ok {
		h.logger.Debug("no route matched",
			zap.String("verb", req.Verb),
			zap.String("path", req.Path),
		)
		return protocol.NotFound()
	}
	route = m.Template.Path

	defer func() {
		if r := recover(); r != nil {
			h.report(ctx, fmt.Errorf("%w: %v", ErrPanic, r), verb, route, req.ID)
			resp = protocol.InternalServerError()
		}
	}()

	result, err := m.Template.Action(ctx, req, m.Params)
	if err != nil {
		h.report(ctx, err, verb, route, req.ID)
		return protocol.InternalServerError()
	}

	resp, err = protocol.OK(result)
	if err != nil {
		h.report(ctx, fmt.Errorf("encode response: %w", err), verb, route, req.ID)
		return protocol.InternalServerError()
	}
	return resp
}

// Matches implements protocol.RouteMatcher.
func (h *Handler) Matches(verb, path string) bool {
	_, ok := h.routes.Match(verb, path)
	return ok
}

func (h *Handler) report(ctx context.Context, err error, verb, route, requestID string) {
	h.reporter.ReportException(ctx, err,
		attribute.String("verb", verb),
		attribute.String("route", route),
		attribute.String("request_id", requestID),
	)
}

// =============================================================================
// 🎯 路由动作
// =============================================================================

func (h *Handler) postActivity(ctx context.Context, req *protocol.ReceiveRequest, _ map[string]string) (any, error) {
	act, err := h.readActivity(ctx, req)
	if err != nil {
		return nil, err
	}

	kind := activity.Classify(act)
	switch {
	case kind.IsTokenRequest():
		return h.invoke(ctx, kind, h.callbacks.TokenRequest, act)
	case kind.IsFallback():
		return h.invoke(ctx, kind, h.callbacks.Fallback, act)
	case kind.Tag == activity.KindHandoff:
		return h.invoke(ctx, kind, h.callbacks.Handoff, act)
	}

	rr, err := h.turn.SendActivity(ctx, act)
	if err != nil {
		return nil, fmt.Errorf("send activity: %w", err)
	}
	h.logger.Debug("activity delivered to turn",
		zap.String("kind", kind.String()),
		zap.String("activity_id", act.ID),
	)
	if rr == nil {
		return nil, nil
	}
	return rr, nil
}

func (h *Handler) invoke(ctx context.Context, kind activity.Kind, cb Callback, act *activity.Activity) (any, error) {
	if cb == nil {
		h.metrics.RecordControlEvent(kind.String(), "missing_callback")
		return nil, fmt.Errorf("%w: %s", ErrMissingCallback, kind)
	}
	if err := cb(ctx, act); err != nil {
		h.metrics.RecordControlEvent(kind.String(), "error")
		return nil, fmt.Errorf("%s callback: %w", kind, err)
	}
	h.metrics.RecordControlEvent(kind.String(), "ok")
	return &activity.ResourceResponse{}, nil
}

// putActivity applies the update to the turn. The update result is not
// returned to the caller; the response body is always empty.
func (h *Handler) putActivity(ctx context.Context, req *protocol.ReceiveRequest, _ map[string]string) (any, error) {
	act, err := h.readActivity(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := h.turn.UpdateActivity(ctx, act); err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	return nil, nil
}

func (h *Handler) deleteActivity(ctx context.Context, _ *protocol.ReceiveRequest, params map[string]string) (any, error) {
	id := params[ActivityIDParam]
	if err := h.turn.DeleteActivity(ctx, id); err != nil {
		return nil, fmt.Errorf("delete activity %q: %w", id, err)
	}
	return nil, nil
}

// =============================================================================
// 📦 请求体重组
// =============================================================================

func (h *Handler) readActivity(ctx context.Context, req *protocol.ReceiveRequest) (*activity.Activity, error) {
	body, err := readBody(ctx, req.Streams)
	if err != nil {
		return nil, err
	}
	act, err := activity.Parse([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidActivity, err)
	}
	return act, nil
}

// readBody reads every stream concurrently and joins the texts in stream order.
func readBody(ctx context.Context, streams []protocol.ContentStream) (string, error) {
	parts := make([]string, len(streams))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range streams {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: content stream %d: %v", ErrPanic, i, r)
				}
			}()
			if s == nil {
				return fmt.Errorf("%w: content stream %d is nil", ErrInvalidActivity, i)
			}
			text, err := s.ReadString(gctx)
			if err != nil {
				return fmt.Errorf("read content stream %d: %w", i, err)
			}
			parts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(parts, ""), nil
}
