package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelReloader 在配置文件变化时重新加载并应用日志级别。
// 其余配置项需要重启才能生效。
type LevelReloader struct {
	loader *Loader
	level  zap.AtomicLevel
	logger *zap.Logger
}

// NewLevelReloader 创建日志级别热加载器
func NewLevelReloader(loader *Loader, level zap.AtomicLevel, logger *zap.Logger) *LevelReloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LevelReloader{
		loader: loader,
		level:  level,
		logger: logger.With(zap.String("component", "config_reload")),
	}
}

// Handle 处理一次文件事件，可直接注册给 FileWatcher.OnChange
func (r *LevelReloader) Handle(event FileEvent) {
	if event.Op == FileOpRemove {
		return
	}
	cfg, err := r.loader.Load()
	if err != nil {
		r.logger.Warn("config reload failed, keeping current level",
			zap.String("path", event.Path), zap.Error(err))
		return
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		r.logger.Warn("invalid log level in reloaded config",
			zap.String("level", cfg.Log.Level))
		return
	}
	if lvl == r.level.Level() {
		return
	}
	r.logger.Info("log level changed",
		zap.Stringer("from", r.level.Level()), zap.Stringer("to", lvl))
	r.level.SetLevel(lvl)
}
