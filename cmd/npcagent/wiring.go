package main

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/npcagent/agent"
	"github.com/BaSui01/npcagent/backend"
	"github.com/BaSui01/npcagent/config"
	"github.com/BaSui01/npcagent/internal/circuitbreaker"
	"github.com/BaSui01/npcagent/internal/geom"
	"github.com/BaSui01/npcagent/internal/metrics"
	"github.com/BaSui01/npcagent/internal/retry"
	"github.com/BaSui01/npcagent/internal/server"
	"github.com/BaSui01/npcagent/planner"
	"github.com/BaSui01/npcagent/types"
	"github.com/BaSui01/npcagent/world"
)

// =============================================================================
// 🔧 配置 → 组件
// =============================================================================

func agentConfig(cfg *config.Config) agent.Config {
	return agent.Config{
		TickRate:        cfg.Loop.TickRate,
		PlannerInterval: cfg.Planner.Interval,
		PlannerJitter:   cfg.Planner.Jitter,
		PlannerTimeout:  cfg.Planner.Timeout,
		Reconnect: retry.Policy{
			InitialDelay: cfg.Loop.ReconnectInitial,
			MaxDelay:     cfg.Loop.ReconnectMax,
			Multiplier:   2.0,
			PenaltyEvery: cfg.Loop.PlannerFailurePenalty,
		},
		Bounds:    geom.Bounds{Size: cfg.World.Size, Margin: cfg.World.Margin},
		ChatLines: cfg.Loop.ChatLines,
	}
}

// fleetRoster 读取名册并按 fleet.agent_count 截取
func fleetRoster(cfg *config.Config) ([]types.Character, error) {
	roster, err := config.LoadRoster(cfg.RosterPath)
	if err != nil {
		return nil, err
	}
	return cfg.Fleet.SelectAgents(roster)
}

func fleetConfig(cfg config.FleetConfig) agent.FleetConfig {
	return agent.FleetConfig{
		BootStagger:     cfg.BootStagger,
		MaxLoopJitter:   cfg.MaxLoopJitter,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
}

func backendConfig(cfg config.BackendConfig) backend.Config {
	return backend.Config{
		URI:              cfg.URI,
		Module:           cfg.Module,
		SendQueueSize:    cfg.SendQueueSize,
		HandshakeTimeout: cfg.HandshakeTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		ReadLimit:        cfg.ReadLimit,
	}
}

func metricsServerConfig(cfg config.MetricsConfig) server.Config {
	sc := server.DefaultConfig()
	sc.Addr = cfg.Addr
	if cfg.ReadTimeout > 0 {
		sc.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		sc.WriteTimeout = cfg.WriteTimeout
	}
	return sc
}

// newDialer 创建后端拨号器，reducer 结果与行解析失败计入指标
func newDialer(cfg config.BackendConfig, collector *metrics.Collector, logger *zap.Logger) *backend.Dialer {
	var opts []backend.DialerOption
	if collector != nil {
		opts = append(opts,
			backend.WithReducerResultHook(func(r backend.ReducerResult) {
				collector.RecordReducerResult(r.Reducer, r.OK)
			}),
			backend.WithRowErrorHook(func(e world.RowError) {
				collector.RecordRowError(e.Table)
			}),
		)
	}
	return backend.NewDialer(backendConfig(cfg), logger, opts...)
}

// newPlanner 按配置创建规划器；kind=none 时返回 nil。
// 限流器与熔断器由整个集群共享。
func newPlanner(cfg config.PlannerConfig, collector *metrics.Collector, logger *zap.Logger) (agent.Planner, error) {
	if cfg.Kind == config.PlannerNone {
		return nil, nil
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	var observer planner.Observer
	bc := cfg.Breaker
	if collector != nil {
		observer = collector
		bc.OnStateChange = func(from, to circuitbreaker.State) {
			collector.SetBreakerState(int(to))
		}
	}
	guard := planner.NewGuard(limiter, circuitbreaker.New(bc, logger), observer)

	switch cfg.Kind {
	case config.PlannerHTTP:
		return planner.NewHTTPPlanner(planner.HTTPConfig{
			URL:     cfg.URL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		}, logger, planner.WithGuard(guard)), nil
	case config.PlannerLLM:
		return planner.NewLLMPlanner(planner.LLMConfig{
			BaseURL:      cfg.LLM.BaseURL,
			EndpointPath: cfg.LLM.EndpointPath,
			APIKey:       cfg.APIKey,
			Model:        cfg.LLM.Model,
			Temperature:  float32(cfg.LLM.Temperature),
			MaxTokens:    cfg.LLM.MaxTokens,
			Timeout:      cfg.Timeout,
			JSONMode:     cfg.LLM.JSONMode,
		}, logger, planner.WithLLMGuard(guard)), nil
	default:
		return nil, fmt.Errorf("unsupported planner kind: %s", cfg.Kind)
	}
}
