// =============================================================================
// 📦 npcagent 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/npcagent/internal/circuitbreaker"
	"github.com/BaSui01/npcagent/internal/geom"
	"github.com/BaSui01/npcagent/tokenstore"
)

// 规划器类型
const (
	PlannerNone = "none"
	PlannerHTTP = "http"
	PlannerLLM  = "llm"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Fleet:      DefaultFleetConfig(),
		Backend:    DefaultBackendConfig(),
		Loop:       DefaultLoopConfig(),
		Planner:    DefaultPlannerConfig(),
		Tokens:     DefaultTokensConfig(),
		World:      DefaultWorldConfig(),
		Metrics:    DefaultMetricsConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
		RosterPath: "roster.yaml",
	}
}

// DefaultFleetConfig 返回默认集群配置
func DefaultFleetConfig() FleetConfig {
	return FleetConfig{
		BootStagger:     500 * time.Millisecond,
		MaxLoopJitter:   2 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// DefaultBackendConfig 返回默认后端配置
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		URI:              "ws://localhost:3000",
		Module:           "broth-bullets-local",
		SendQueueSize:    256,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReadLimit:        64 << 20,
	}
}

// DefaultLoopConfig 返回默认快循环配置
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		TickRate:              10,
		ReconnectInitial:      5 * time.Second,
		ReconnectMax:          60 * time.Second,
		PlannerFailurePenalty: 3,
		ChatLines: []string{
			"Anyone seen water around here?",
			"Watch out for wolves.",
			"Good day for gathering.",
		},
	}
}

// DefaultPlannerConfig 返回默认规划配置
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		Kind:     PlannerHTTP,
		Interval: 15 * time.Second,
		Jitter:   0.2,
		Timeout:  20 * time.Second,
		URL:      "http://localhost:8787/plan",
		LLM: LLMConfig{
			EndpointPath: "/v1/chat/completions",
			Model:        "deepseek-chat",
			Temperature:  0.7,
			MaxTokens:    600,
			JSONMode:     true,
		},
		RateLimit: 2,
		RateBurst: 4,
		Breaker:   circuitbreaker.DefaultConfig(),
	}
}

// DefaultTokensConfig 返回默认令牌存储配置
func DefaultTokensConfig() tokenstore.Config {
	return tokenstore.Config{
		Type: tokenstore.StoreTypeFile,
		Dir:  ".npc_tokens",
		Redis: tokenstore.RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "npcagent:token:",
		},
	}
}

// DefaultWorldConfig 返回默认世界配置
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Size:   geom.WorldSize,
		Margin: geom.DefaultMargin,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:      true,
		Addr:         ":9091",
		Namespace:    "npcagent",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "npcagent",
		SampleRate:   0.1,
	}
}
