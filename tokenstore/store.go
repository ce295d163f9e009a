// Package tokenstore 持久化每个 NPC 的身份令牌，以显示名称为键，
// 使 NPC 在进程重启后保持同一后端身份。
//
// 支持的后端：
// - Memory: 开发与测试
// - File: 单节点部署（默认），每个 NPC 一个令牌文件
// - Redis: 多进程共享同一批 NPC 身份
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors
var (
	ErrNotFound     = errors.New("token not found")
	ErrStoreClosed  = errors.New("token store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// StoreType 存储后端类型
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeRedis  StoreType = "redis"
)

// Store 令牌存储接口
type Store interface {
	// Load 读取令牌；不存在时返回 ErrNotFound
	Load(ctx context.Context, name string) (string, error)
	// Save 写入（覆盖）令牌
	Save(ctx context.Context, name, token string) error
	// Delete 删除令牌；不存在时不报错
	Delete(ctx context.Context, name string) error
	Close() error
}

// RedisConfig Redis 后端配置
type RedisConfig struct {
	Addr      string        `yaml:"addr" env:"ADDR"`
	Password  string        `yaml:"password" env:"PASSWORD" json:"-"`
	DB        int           `yaml:"db" env:"DB"`
	PoolSize  int           `yaml:"pool_size" env:"POOL_SIZE"`
	KeyPrefix string        `yaml:"key_prefix" env:"KEY_PREFIX"`
	TTL       time.Duration `yaml:"ttl" env:"TTL"`
}

// Config 令牌存储配置
type Config struct {
	Type  StoreType   `yaml:"type" env:"TYPE"`
	Dir   string      `yaml:"dir" env:"DIR"`
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
}

// New 按配置创建 Store
func New(cfg Config) (Store, error) {
	switch cfg.Type {
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeFile, "":
		return NewFileStore(cfg.Dir)
	case StoreTypeRedis:
		return NewRedisStore(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported token store type: %s", cfg.Type)
	}
}

// keyFor 将显示名称规范化为安全的键（小写，非字母数字替换为下划线）
func keyFor(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidInput)
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String(), nil
}
