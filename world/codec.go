package world

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var jsonNull = []byte("null")

// Identity 后端身份（十六进制字符串）。
// 兼容 "0xabc..." 与 {"__identity__": "0xabc..."} 两种编码。
type Identity string

// UnmarshalJSON 实现 json.Unmarshaler
func (id *Identity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, jsonNull) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '{' {
		var wrapped struct {
			Identity string `json:"__identity__"`
		}
		if err := json.Unmarshal(b, &wrapped); err != nil {
			return err
		}
		*id = Identity(normalizeHex(wrapped.Identity))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	*id = Identity(normalizeHex(s))
	return nil
}

func normalizeHex(s string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
}

// Enum 后端枚举的变体名。
// 兼容 "Tool"、{"Tool": []} 与 {"Tool": {...}} 三种编码；携带的负载保存在 Payload。
type Enum struct {
	Tag     string
	Payload json.RawMessage
}

// UnmarshalJSON 实现 json.Unmarshaler
func (e *Enum) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*e = Enum{}
	if bytes.Equal(b, jsonNull) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &e.Tag)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("enum: %w", err)
	}
	if len(m) != 1 {
		return fmt.Errorf("enum: expected one variant, got %d", len(m))
	}
	for k, v := range m {
		e.Tag = k
		e.Payload = v
	}
	return nil
}

// MarshalJSON 输出变体名字符串
func (e Enum) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Tag)
}

// Is 比较变体名（忽略大小写）
func (e Enum) Is(tag string) bool {
	return strings.EqualFold(e.Tag, tag)
}

// Opt 可选字段。兼容 null、{"some": v}、{"none": []} 以及裸值。
type Opt[T any] struct {
	Value T
	Valid bool
}

// Some 构造有值的 Opt
func Some[T any](v T) Opt[T] { return Opt[T]{Value: v, Valid: true} }

// UnmarshalJSON 实现 json.Unmarshaler
func (o *Opt[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*o = Opt[T]{}
	if bytes.Equal(b, jsonNull) {
		return nil
	}
	if len(b) > 0 && b[0] == '{' {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(b, &m); err == nil && len(m) == 1 {
			if raw, ok := m["some"]; ok {
				return o.set(raw)
			}
			if _, ok := m["none"]; ok {
				return nil
			}
		}
	}
	return o.set(b)
}

func (o *Opt[T]) set(raw []byte) error {
	if err := json.Unmarshal(raw, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// MarshalJSON 输出裸值或 null
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return jsonNull, nil
	}
	return json.Marshal(o.Value)
}

// Get 返回值与是否存在
func (o Opt[T]) Get() (T, bool) { return o.Value, o.Valid }

// Timestamp 后端时间戳（Unix 微秒）。
// 兼容整数与 {"__timestamp_micros_since_unix_epoch__": n}。
type Timestamp int64

// UnmarshalJSON 实现 json.Unmarshaler
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, jsonNull) {
		*ts = 0
		return nil
	}
	if len(b) > 0 && b[0] == '{' {
		var wrapped struct {
			Micros int64 `json:"__timestamp_micros_since_unix_epoch__"`
		}
		if err := json.Unmarshal(b, &wrapped); err != nil {
			return err
		}
		*ts = Timestamp(wrapped.Micros)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*ts = Timestamp(n)
	return nil
}

// Time 转换为 time.Time
func (ts Timestamp) Time() time.Time {
	return time.UnixMicro(int64(ts))
}
