package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/BaSui01/npcagent/agent"
	"github.com/BaSui01/npcagent/config"
	"github.com/BaSui01/npcagent/internal/metrics"
	"github.com/BaSui01/npcagent/internal/server"
	"github.com/BaSui01/npcagent/internal/telemetry"
	"github.com/BaSui01/npcagent/tokenstore"
	"github.com/BaSui01/npcagent/types"
)

// =============================================================================
// 🖥️ App
// =============================================================================

// App 组装并运行整个 NPC 集群
type App struct {
	cfg        *config.Config
	configPath string
	roster     []types.Character
	logger     *zap.Logger
	level      zap.AtomicLevel

	registry  *prometheus.Registry
	collector *metrics.Collector
	otel      *telemetry.Providers
	tokens    tokenstore.Store
	fleet     *agent.Fleet
	metrics   *server.Manager
	watcher   *config.FileWatcher
}

// NewApp 创建应用
func NewApp(cfg *config.Config, configPath string, roster []types.Character, logger *zap.Logger, level zap.AtomicLevel) *App {
	return &App{
		cfg:        cfg,
		configPath: configPath,
		roster:     roster,
		logger:     logger,
		level:      level,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 初始化所有组件并启动集群。单个 NPC 连接失败不会让 Start 失败。
func (a *App) Start(ctx context.Context) error {
	// 1. 遥测
	p, err := telemetry.Init(ctx, a.cfg.Telemetry, a.logger,
		telemetry.WithAttributes(
			attribute.String("npcagent.backend_module", a.cfg.Backend.Module),
			attribute.Int("npcagent.fleet_size", len(a.roster)),
		))
	if err != nil {
		a.logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	a.otel = p

	// 2. 指标
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.collector = metrics.NewCollector(a.cfg.Metrics.Namespace, a.logger, metrics.WithRegisterer(a.registry))

	// 3. 令牌存储
	a.tokens, err = tokenstore.New(a.cfg.Tokens)
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}

	// 4. 规划器（集群共享）
	pl, err := newPlanner(a.cfg.Planner, a.collector, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create planner: %w", err)
	}

	// 5. 集群
	dialer := agent.BackendDialer(newDialer(a.cfg.Backend, a.collector, a.logger))
	acfg := agentConfig(a.cfg)
	agents := make([]*agent.Agent, 0, len(a.roster))
	for _, char := range a.roster {
		opts := []agent.Option{
			agent.WithLogger(a.logger),
			agent.WithMetrics(a.collector),
		}
		if pl != nil {
			opts = append(opts, agent.WithPlanner(pl))
		}
		agents = append(agents, agent.New(char, acfg, dialer, a.tokens, opts...))
	}
	a.fleet = agent.NewFleet(agents, fleetConfig(a.cfg.Fleet), a.logger)

	// 6. 指标与健康检查端点
	if a.cfg.Metrics.Enabled {
		handler := server.Chain(
			server.NewHandler(a.registry, func() (int, int) { return a.fleet.Connected(), len(agents) }),
			server.Recovery(a.logger),
			server.RequestLogger(a.logger),
		)
		a.metrics = server.NewManager(handler, metricsServerConfig(a.cfg.Metrics), a.logger)
		if err := a.metrics.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	// 7. 日志级别热加载
	if a.configPath != "" {
		if err := a.startWatcher(ctx); err != nil {
			a.logger.Warn("config watcher disabled", zap.Error(err))
		}
	}

	// 8. 启动 NPC
	if err := a.fleet.Start(ctx); err != nil {
		return fmt.Errorf("fleet boot interrupted: %w", err)
	}

	a.logger.Info("npcagent started",
		zap.Int("npcs", len(agents)),
		zap.Int("connected", a.fleet.Connected()),
		zap.String("planner", a.cfg.Planner.Kind),
		zap.Bool("metrics_enabled", a.cfg.Metrics.Enabled),
	)
	return nil
}

func (a *App) startWatcher(ctx context.Context) error {
	w, err := config.NewFileWatcher([]string{a.configPath}, config.WithWatcherLogger(a.logger))
	if err != nil {
		return err
	}
	reloader := config.NewLevelReloader(config.NewLoader().WithConfigPath(a.configPath), a.level, a.logger)
	w.OnChange(reloader.Handle)
	if err := w.Start(ctx); err != nil {
		return err
	}
	a.watcher = w
	return nil
}

// Run 阻塞直到 ctx 取消或指标服务器异常退出
func (a *App) Run(ctx context.Context) error {
	var serverErrs <-chan error
	if a.metrics != nil {
		serverErrs = a.metrics.Errors()
	}
	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErrs:
		return fmt.Errorf("metrics server exited: %w", err)
	}
}

// MetricsAddr 指标服务器实际监听地址
func (a *App) MetricsAddr() string {
	if a.metrics == nil {
		return ""
	}
	return a.metrics.Addr()
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// Shutdown 停止热加载 → 关闭集群 → 关闭指标端点 → 关闭令牌存储 → 刷新遥测
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if a.watcher != nil {
		_ = a.watcher.Stop()
	}

	if a.fleet != nil {
		fctx, cancel := context.WithTimeout(ctx, a.cfg.Fleet.ShutdownTimeout)
		if err := a.fleet.Shutdown(fctx); err != nil {
			errs = append(errs, fmt.Errorf("fleet shutdown: %w", err))
		}
		cancel()
	}

	if a.metrics != nil {
		if err := a.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if a.tokens != nil {
		if err := a.tokens.Close(); err != nil {
			errs = append(errs, fmt.Errorf("token store close: %w", err))
		}
	}

	if err := a.otel.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", zap.Error(err))
	}

	err := errors.Join(errs...)
	if err != nil {
		a.logger.Error("shutdown finished with errors", zap.Error(err))
	} else {
		a.logger.Info("npcagent stopped")
	}
	return err
}
