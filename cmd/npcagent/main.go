// =============================================================================
// npcagent 主入口
// =============================================================================
// 运行 NPC 集群，暴露 Prometheus 指标与健康检查
//
// 使用方法:
//
//	npcagent serve                          # 启动集群
//	npcagent serve --config npcagent.yaml   # 指定配置文件
//	npcagent version                        # 显示版本信息
//	npcagent health --addr http://localhost:9091
// =============================================================================

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/npcagent/config"
	"github.com/BaSui01/npcagent/internal/telemetry"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		os.Exit(runServe(os.Args[2:]))
	case "version":
		printVersion(os.Stdout)
	case "health":
		os.Exit(runHealthCheck(os.Args[2:], os.Stdout, os.Stderr))
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	_ = fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		return 1
	}

	roster, err := fleetRoster(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid roster: %v\n", err)
		return 1
	}

	logger, level := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting npcagent",
		zap.String("version", Version),
		zap.String("module_version", telemetry.Version()),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.Int("npcs", len(roster)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := NewApp(cfg, *configPath, roster, logger, level)
	code := 0
	if err := app.Start(ctx); err != nil {
		logger.Error("failed to start", zap.Error(err))
		code = 1
	} else if err := app.Run(ctx); err != nil {
		logger.Error("stopped unexpectedly", zap.Error(err))
		code = 1
	} else {
		logger.Info("received shutdown signal")
	}

	// 关闭不受已取消的信号 ctx 影响
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Fleet.ShutdownTimeout+5*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		code = 1
	}
	return code
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", "http://localhost:9091", "Metrics server address")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/healthz")
	if err != nil {
		fmt.Fprintf(stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "Health check failed: status %d %s\n", resp.StatusCode, body)
		return 1
	}

	fmt.Fprintf(stdout, "OK %s", body)
	return 0
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "npcagent %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `npcagent - autonomous NPC fleet for the survival backend

Usage:
  npcagent <command> [options]

Commands:
  serve     Connect the roster and run every NPC until SIGINT/SIGTERM
  version   Show version information
  health    Query a running fleet's /healthz endpoint
  help      Show this help message

Options for 'serve':
  --config <path>   Path to configuration file (YAML)

Options for 'health':
  --addr <url>      Metrics server base URL (default http://localhost:9091)

Environment:
  NPCAGENT_<SECTION>_<KEY> overrides any config value,
  e.g. NPCAGENT_BACKEND_URI=wss://game.example.com

Examples:
  npcagent serve --config /etc/npcagent/npcagent.yaml
  npcagent health --addr http://localhost:9091
  npcagent version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

// initLogger 构建根 logger，返回的 AtomicLevel 供热加载调整级别
func initLogger(cfg config.LogConfig) (*zap.Logger, zap.AtomicLevel) {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	atom := zap.NewAtomicLevelAt(level)

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:             atom,
		Development:       cfg.Format == "console",
		Encoding:          "json",
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger, atom
}
