// =============================================================================
// 📦 npcagent 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("npcagent.yaml").
//	    WithEnvPrefix("NPCAGENT").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/npcagent/internal/circuitbreaker"
	"github.com/BaSui01/npcagent/tokenstore"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 npcagent 的完整配置结构
type Config struct {
	// Fleet 集群启动与关闭
	Fleet FleetConfig `yaml:"fleet" env:"FLEET"`

	// Backend 游戏后端连接
	Backend BackendConfig `yaml:"backend" env:"BACKEND"`

	// Loop 快循环与重连
	Loop LoopConfig `yaml:"loop" env:"LOOP"`

	// Planner 慢循环规划服务
	Planner PlannerConfig `yaml:"planner" env:"PLANNER"`

	// Tokens 身份令牌存储
	Tokens tokenstore.Config `yaml:"tokens" env:"TOKENS"`

	// World 世界几何
	World WorldConfig `yaml:"world" env:"WORLD"`

	// Metrics 指标与健康检查端点
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// RosterPath NPC 名册文件
	RosterPath string `yaml:"roster_path" env:"ROSTER_PATH"`
}

// FleetConfig 集群配置
type FleetConfig struct {
	// 启动名册中前 N 个角色；0 表示全部
	AgentCount int `yaml:"agent_count" env:"AGENT_COUNT"`
	// 相邻 NPC 连接间隔
	BootStagger time.Duration `yaml:"boot_stagger" env:"BOOT_STAGGER"`
	// 循环启动随机延迟上限
	MaxLoopJitter time.Duration `yaml:"max_loop_jitter" env:"MAX_LOOP_JITTER"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// BackendConfig 游戏后端配置
type BackendConfig struct {
	// 后端地址 ws:// wss:// http:// https://
	URI string `yaml:"uri" env:"URI"`
	// 数据库模块名
	Module string `yaml:"module" env:"MODULE"`
	// 发送队列容量
	SendQueueSize int `yaml:"send_queue_size" env:"SEND_QUEUE_SIZE"`
	// 握手超时
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" env:"HANDSHAKE_TIMEOUT"`
	// 写超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 单条消息上限
	ReadLimit int64 `yaml:"read_limit" env:"READ_LIMIT"`
}

// LoopConfig 快循环配置
type LoopConfig struct {
	// 快循环频率（Hz）
	TickRate int `yaml:"tick_rate" env:"TICK_RATE"`
	// 重连初始延迟
	ReconnectInitial time.Duration `yaml:"reconnect_initial" env:"RECONNECT_INITIAL"`
	// 重连最大延迟
	ReconnectMax time.Duration `yaml:"reconnect_max" env:"RECONNECT_MAX"`
	// 每累计多少次规划失败重连退避多增长一级
	PlannerFailurePenalty int `yaml:"planner_failure_penalty" env:"PLANNER_FAILURE_PENALTY"`
	// 闲聊语句
	ChatLines []string `yaml:"chat_lines" env:"CHAT_LINES"`
}

// PlannerConfig 规划服务配置
type PlannerConfig struct {
	// 类型: http, llm, none
	Kind string `yaml:"kind" env:"KIND"`
	// 规划间隔
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
	// 间隔抖动比例
	Jitter float64 `yaml:"jitter" env:"JITTER"`
	// 单次规划超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// HTTP 规划服务端点
	URL string `yaml:"url" env:"URL"`
	// API Key（http 与 llm 共用）
	APIKey string `yaml:"api_key" env:"API_KEY" json:"-"`
	// LLM 直连配置
	LLM LLMConfig `yaml:"llm" env:"LLM"`
	// 全集群共享的速率限制（每秒请求数，0 表示不限）
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	// 令牌桶容量
	RateBurst int `yaml:"rate_burst" env:"RATE_BURST"`
	// 熔断器
	Breaker circuitbreaker.Config `yaml:"breaker" env:"BREAKER"`
}

// LLMConfig OpenAI 兼容接口配置
type LLMConfig struct {
	// 基础 URL
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 端点路径
	EndpointPath string `yaml:"endpoint_path" env:"ENDPOINT_PATH"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// 温度参数
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 最大 Token 数
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// 是否要求 JSON 输出
	JSONMode bool `yaml:"json_mode" env:"JSON_MODE"`
}

// WorldConfig 世界几何配置
type WorldConfig struct {
	// 世界边长（像素）
	Size float64 `yaml:"size" env:"SIZE"`
	// 边界留白
	Margin float64 `yaml:"margin" env:"MARGIN"`
}

// MetricsConfig 指标端点配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 监听地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "NPCAGENT",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// time.Duration 按时长解析
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 验证配置，收集全部错误后一并返回
func (c *Config) Validate() error {
	var errs []string

	if c.Backend.URI == "" {
		errs = append(errs, "backend.uri is required")
	} else if u, err := url.Parse(c.Backend.URI); err != nil {
		errs = append(errs, "backend.uri is not a valid URL")
	} else {
		switch u.Scheme {
		case "ws", "wss", "http", "https":
		default:
			errs = append(errs, "backend.uri scheme must be ws, wss, http or https")
		}
	}
	if c.Backend.Module == "" {
		errs = append(errs, "backend.module is required")
	}

	if c.Fleet.AgentCount < 0 {
		errs = append(errs, "fleet.agent_count must not be negative")
	}

	if c.Loop.TickRate <= 0 || c.Loop.TickRate > 60 {
		errs = append(errs, "loop.tick_rate must be between 1 and 60")
	}
	if c.Loop.ReconnectMax < c.Loop.ReconnectInitial {
		errs = append(errs, "loop.reconnect_max must not be below loop.reconnect_initial")
	}

	switch c.Planner.Kind {
	case PlannerNone:
	case PlannerHTTP:
		if c.Planner.URL == "" {
			errs = append(errs, "planner.url is required for http planner")
		}
	case PlannerLLM:
		if c.Planner.LLM.BaseURL == "" {
			errs = append(errs, "planner.llm.base_url is required for llm planner")
		}
		if c.Planner.LLM.Model == "" {
			errs = append(errs, "planner.llm.model is required for llm planner")
		}
		if c.Planner.LLM.Temperature < 0 || c.Planner.LLM.Temperature > 2 {
			errs = append(errs, "planner.llm.temperature must be between 0 and 2")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown planner.kind %q", c.Planner.Kind))
	}
	if c.Planner.Interval <= 0 {
		errs = append(errs, "planner.interval must be positive")
	}
	if c.Planner.Jitter < 0 || c.Planner.Jitter >= 1 {
		errs = append(errs, "planner.jitter must be in [0, 1)")
	}
	if c.Planner.RateLimit < 0 {
		errs = append(errs, "planner.rate_limit must not be negative")
	}

	switch c.Tokens.Type {
	case tokenstore.StoreTypeMemory:
	case tokenstore.StoreTypeFile, "":
		if c.Tokens.Dir == "" {
			errs = append(errs, "tokens.dir is required for file store")
		}
	case tokenstore.StoreTypeRedis:
		if c.Tokens.Redis.Addr == "" {
			errs = append(errs, "tokens.redis.addr is required for redis store")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown tokens.type %q", c.Tokens.Type))
	}

	if c.World.Size <= 0 {
		errs = append(errs, "world.size must be positive")
	}
	if c.World.Margin < 0 || c.World.Margin*2 >= c.World.Size {
		errs = append(errs, "world.margin must leave a playable area")
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, "log.format must be json or console")
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}

	if c.RosterPath == "" {
		errs = append(errs, "roster_path is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
