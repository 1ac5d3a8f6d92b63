package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/skillbridge/api/handlers"
	"github.com/BaSui01/skillbridge/config"
	"github.com/BaSui01/skillbridge/internal/metrics"
	"github.com/BaSui01/skillbridge/internal/server"
	"github.com/BaSui01/skillbridge/internal/telemetry"
	"github.com/BaSui01/skillbridge/skill/auth"
	"github.com/BaSui01/skillbridge/skill/handler"
	"github.com/BaSui01/skillbridge/skill/streaming"
)

// 不经过鉴权的路径
var publicPaths = []string{"/health", "/healthz", "/ready", "/version"}

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 技能宿主服务：活动端点、websocket、探活与指标
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	level  *zap.AtomicLevel

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	healthHandler *handlers.HealthHandler
	streamServer  *streaming.Server
	backend       *stateBackend
	host          *hostTurn

	collector *metrics.Collector
	otel      *telemetry.Providers
	reloader  *config.Reloader

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// ServerOption 配置 Server
type ServerOption func(*Server)

// WithTelemetry 关闭时一并 flush otel providers
func WithTelemetry(p *telemetry.Providers) ServerOption {
	return func(s *Server) { s.otel = p }
}

// WithLogLevel 配置重载时调整该级别
func WithLogLevel(level zap.AtomicLevel) ServerOption {
	return func(s *Server) { s.level = &level }
}

// WithCollector 使用已有的指标收集器
func WithCollector(c *metrics.Collector) ServerOption {
	return func(s *Server) { s.collector = c }
}

// WithReloader 监听配置文件变更
func WithReloader(r *config.Reloader) ServerOption {
	return func(s *Server) { s.reloader = r }
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, opts ...ServerOption) *Server {
	s := &Server{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	ctx := context.Background()

	// 1. 指标收集器
	if s.collector == nil {
		s.collector = metrics.NewCollector("skillbridge", s.logger)
	}

	// 2. 会话状态后端
	backend, err := openStateBackend(ctx, s.cfg, s.collector, s.logger)
	if err != nil {
		return fmt.Errorf("failed to open state backend: %w", err)
	}
	s.backend = backend

	// 3. 路由与中间件
	h, err := s.buildHandler()
	if err != nil {
		return fmt.Errorf("failed to build handler: %w", err)
	}

	// 4. HTTP 服务器
	if err := s.startHTTPServer(h); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 5. Metrics 服务器
	if s.cfg.Server.MetricsPort > 0 {
		if err := s.startMetricsServer(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	// 6. 配置热重载
	if s.reloader != nil {
		s.reloader.OnReload(s.onConfigReload)
		if err := s.reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start config reloader: %w", err)
		}
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("state_backend", s.backend.name),
		zap.Bool("auth_enabled", s.cfg.Auth.Enabled),
		zap.Bool("streaming_enabled", s.cfg.Streaming.Enabled),
	)
	return nil
}

// =============================================================================
// 🔧 路由
// =============================================================================

// buildHandler 组装路由与中间件链；需要 backend 已打开
func (s *Server) buildHandler() (http.Handler, error) {
	reporter, err := telemetry.NewReporter(s.logger)
	if err != nil {
		return nil, err
	}

	s.host = newHostTurn(s.backend.storage, s.logger)
	activities, err := handler.New(handler.Options{
		Turn:      s.host,
		Callbacks: hostCallbacks(s.logger),
		Reporter:  reporter,
		Metrics:   s.collector,
		Logger:    s.logger,
	})
	if err != nil {
		return nil, err
	}

	s.healthHandler = handlers.NewHealthHandler(s.logger)
	for _, check := range s.backend.checks {
		s.healthHandler.RegisterCheck(check)
	}

	mux := http.NewServeMux()

	// ========================================
	// 健康检查端点
	// ========================================
	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// ========================================
	// 活动端点：方法与路径由路由表判定，未匹配返回 404
	// ========================================
	mux.Handle("/activities/", handlers.NewActivityHandler(activities, s.cfg.Streaming.ReadLimit, s.logger))

	if s.cfg.Streaming.Enabled {
		s.streamServer = streaming.NewServer(activities, streaming.ServerOptions{
			ReadLimit:      s.cfg.Streaming.ReadLimit,
			WriteTimeout:   s.cfg.Streaming.WriteTimeout,
			OriginPatterns: s.cfg.Streaming.OriginPatterns,
			Metrics:        s.collector,
			Logger:         s.logger,
		})
		mux.Handle("GET /ws", s.streamServer)
	}

	// ========================================
	// 中间件链
	// ========================================
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	chain := []Middleware{
		Recovery(s.logger),
		RequestID(),
		OTelTracing(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
		RateLimiter(rateLimiterCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	}
	if s.cfg.Auth.Enabled {
		verifier, err := auth.NewVerifier([]byte(s.cfg.Auth.Secret), s.cfg.Auth.Issuer, s.cfg.Auth.Audience)
		if err != nil {
			rateLimiterCancel()
			return nil, err
		}
		chain = append(chain, auth.Middleware(verifier, publicPaths, s.logger))
	}

	return Chain(mux, chain...), nil
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

func (s *Server) startHTTPServer(h http.Handler) error {
	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
		H2C:             s.cfg.Server.H2C,
		CertFile:        s.cfg.Server.CertFile,
		KeyFile:         s.cfg.Server.KeyFile,
	}

	s.httpManager = server.NewManager("activities", h, serverConfig, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager("metrics", mux, serverConfig, s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🔄 配置重载
// =============================================================================

// onConfigReload 只有日志级别即时生效，其余段需要重启
func (s *Server) onConfigReload(prev, next *config.Config) {
	if s.level != nil && prev.Log.Level != next.Log.Level {
		s.level.SetLevel(parseLevel(next.Log.Level))
		s.logger.Info("log level changed", zap.String("level", next.Log.Level))
	}
	for _, section := range config.ChangedSections(prev, next) {
		if section != "log" {
			s.logger.Warn("config section changed, restart to apply", zap.String("section", section))
		}
	}
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown(context.Background())
	}
	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// 0. 就绪探针先转为 503，再停止 rate limiter 清理 goroutine 与配置监听
	if s.healthHandler != nil {
		s.healthHandler.SetDraining(true)
	}
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
	if s.reloader != nil {
		s.reloader.Stop()
	}

	var errs []error

	// 1. 关闭 HTTP 服务器，再等待 websocket 连接退出
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}
	if s.streamServer != nil {
		s.streamServer.Wait()
	}

	// 2. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}

	// 3. 关闭状态后端
	if err := s.backend.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("state backend: %w", err))
	}

	// 4. flush 遥测
	if err := s.otel.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.Error("shutdown finished with errors", zap.Error(err))
		return
	}
	s.logger.Info("Graceful shutdown completed")
}
