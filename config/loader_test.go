// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/npcagent/tokenstore"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	// 不指定配置文件，应该返回默认值
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "ws://localhost:3000", cfg.Backend.URI)
	assert.Equal(t, 10, cfg.Loop.TickRate)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "npcagent.yaml")

	yamlContent := `
fleet:
  boot_stagger: 1s
backend:
  uri: "wss://game.example.com"
  module: "broth-bullets"
loop:
  tick_rate: 20
  chat_lines: ["hi", "bye"]
planner:
  kind: llm
  interval: 30s
  llm:
    base_url: "https://api.deepseek.com"
    model: "deepseek-chat"
  breaker:
    threshold: 3
tokens:
  type: redis
  redis:
    addr: "redis:6379"
    ttl: 720h
world:
  margin: 200
log:
  level: debug
  format: console
roster_path: "/etc/npcagent/roster.yaml"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Fleet.BootStagger)
	assert.Equal(t, 10*time.Second, cfg.Fleet.ShutdownTimeout, "unset keys keep defaults")
	assert.Equal(t, "wss://game.example.com", cfg.Backend.URI)
	assert.Equal(t, "broth-bullets", cfg.Backend.Module)
	assert.Equal(t, 256, cfg.Backend.SendQueueSize)
	assert.Equal(t, 20, cfg.Loop.TickRate)
	assert.Equal(t, []string{"hi", "bye"}, cfg.Loop.ChatLines)
	assert.Equal(t, PlannerLLM, cfg.Planner.Kind)
	assert.Equal(t, 30*time.Second, cfg.Planner.Interval)
	assert.Equal(t, "deepseek-chat", cfg.Planner.LLM.Model)
	assert.Equal(t, "/v1/chat/completions", cfg.Planner.LLM.EndpointPath)
	assert.Equal(t, 3, cfg.Planner.Breaker.Threshold)
	assert.Equal(t, 30*time.Second, cfg.Planner.Breaker.ResetTimeout)
	assert.Equal(t, tokenstore.StoreTypeRedis, cfg.Tokens.Type)
	assert.Equal(t, "redis:6379", cfg.Tokens.Redis.Addr)
	assert.Equal(t, 720*time.Hour, cfg.Tokens.Redis.TTL)
	assert.Equal(t, 200.0, cfg.World.Margin)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "/etc/npcagent/roster.yaml", cfg.RosterPath)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("NPCAGENT_BACKEND_URI", "ws://env-backend:3000")
	t.Setenv("NPCAGENT_LOOP_TICK_RATE", "5")
	t.Setenv("NPCAGENT_LOOP_CHAT_LINES", "one, two")
	t.Setenv("NPCAGENT_PLANNER_INTERVAL", "45s")
	t.Setenv("NPCAGENT_PLANNER_JITTER", "0.1")
	t.Setenv("NPCAGENT_PLANNER_API_KEY", "secret")
	t.Setenv("NPCAGENT_PLANNER_BREAKER_THRESHOLD", "9")
	t.Setenv("NPCAGENT_TOKENS_REDIS_DB", "2")
	t.Setenv("NPCAGENT_METRICS_ENABLED", "false")
	t.Setenv("NPCAGENT_LOG_LEVEL", "warn")
	t.Setenv("NPCAGENT_FLEET_AGENT_COUNT", "3")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "ws://env-backend:3000", cfg.Backend.URI)
	assert.Equal(t, 5, cfg.Loop.TickRate)
	assert.Equal(t, []string{"one", "two"}, cfg.Loop.ChatLines)
	assert.Equal(t, 45*time.Second, cfg.Planner.Interval)
	assert.InDelta(t, 0.1, cfg.Planner.Jitter, 1e-9)
	assert.Equal(t, "secret", cfg.Planner.APIKey)
	assert.Equal(t, 9, cfg.Planner.Breaker.Threshold)
	assert.Equal(t, 2, cfg.Tokens.Redis.DB)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Fleet.AgentCount)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "npcagent.yaml")

	yamlContent := `
backend:
  uri: "ws://yaml:3000"
  module: "yaml-module"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	// 环境变量应该覆盖 YAML
	t.Setenv("NPCAGENT_BACKEND_URI", "ws://env:3000")

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	assert.Equal(t, "ws://env:3000", cfg.Backend.URI)
	// YAML 值应该保留（没有被环境变量覆盖）
	assert.Equal(t, "yaml-module", cfg.Backend.Module)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_BACKEND_MODULE", "custom-module")
	t.Setenv("NPCAGENT_BACKEND_MODULE", "ignored")

	cfg, err := NewLoader().
		WithEnvPrefix("MYAPP").
		Load()
	require.NoError(t, err)

	assert.Equal(t, "custom-module", cfg.Backend.Module)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("NPCAGENT_PLANNER_TIMEOUT", "soon")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NPCAGENT_PLANNER_TIMEOUT")
}

func TestLoader_WithValidator(t *testing.T) {
	t.Setenv("NPCAGENT_LOOP_TICK_RATE", "0")

	_, err := NewLoader().
		WithValidator((*Config).Validate).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loop.tick_rate")
}

func TestLoader_NonExistentFile(t *testing.T) {
	// 指定不存在的文件，应该使用默认值（不报错）
	cfg, err := NewLoader().
		WithConfigPath("/non/existent/path/npcagent.yaml").
		Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultConfig().Backend, cfg.Backend)
}

func TestLoader_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
loop:
  tick_rate: [invalid
  this is not valid yaml
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidYAML), 0644))

	_, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	assert.Error(t, err)
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "valid default config", modify: func(c *Config) {}},
		{name: "planner disabled", modify: func(c *Config) { c.Planner.Kind = PlannerNone; c.Planner.URL = "" }},
		{name: "negative agent count", modify: func(c *Config) { c.Fleet.AgentCount = -1 }, wantErr: "fleet.agent_count"},
		{name: "missing backend uri", modify: func(c *Config) { c.Backend.URI = "" }, wantErr: "backend.uri is required"},
		{name: "bad backend scheme", modify: func(c *Config) { c.Backend.URI = "ftp://host" }, wantErr: "backend.uri scheme"},
		{name: "missing module", modify: func(c *Config) { c.Backend.Module = "" }, wantErr: "backend.module"},
		{name: "tick rate too high", modify: func(c *Config) { c.Loop.TickRate = 120 }, wantErr: "loop.tick_rate"},
		{name: "reconnect max below initial", modify: func(c *Config) { c.Loop.ReconnectMax = time.Second }, wantErr: "loop.reconnect_max"},
		{name: "http planner without url", modify: func(c *Config) { c.Planner.URL = "" }, wantErr: "planner.url"},
		{name: "llm planner without base url", modify: func(c *Config) { c.Planner.Kind = PlannerLLM }, wantErr: "planner.llm.base_url"},
		{name: "unknown planner", modify: func(c *Config) { c.Planner.Kind = "oracle" }, wantErr: `unknown planner.kind "oracle"`},
		{name: "jitter out of range", modify: func(c *Config) { c.Planner.Jitter = 1 }, wantErr: "planner.jitter"},
		{name: "redis store without addr", modify: func(c *Config) { c.Tokens.Type = tokenstore.StoreTypeRedis; c.Tokens.Redis.Addr = "" }, wantErr: "tokens.redis.addr"},
		{name: "unknown token store", modify: func(c *Config) { c.Tokens.Type = "etcd" }, wantErr: "unknown tokens.type"},
		{name: "margin swallows world", modify: func(c *Config) { c.World.Margin = c.World.Size }, wantErr: "world.margin"},
		{name: "metrics without addr", modify: func(c *Config) { c.Metrics.Addr = "" }, wantErr: "metrics.addr"},
		{name: "bad log format", modify: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
		{name: "missing roster", modify: func(c *Config) { c.RosterPath = "" }, wantErr: "roster_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.Module = ""
	cfg.Loop.TickRate = 0
	cfg.RosterPath = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.module")
	assert.Contains(t, err.Error(), "loop.tick_rate")
	assert.Contains(t, err.Error(), "roster_path")
}

// --- MustLoad 测试 ---

func TestMustLoad_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "npcagent.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("loop:\n  tick_rate: 4\n"), 0644))

	assert.NotPanics(t, func() {
		cfg := MustLoad(configPath)
		assert.Equal(t, 4, cfg.Loop.TickRate)
	})
}

func TestMustLoad_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("invalid: [yaml"), 0644))

	assert.Panics(t, func() {
		MustLoad(configPath)
	})
}
