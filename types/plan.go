package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ActionTag 计划步骤的动作标签
type ActionTag string

const (
	ActionMove   ActionTag = "move"
	ActionAttack ActionTag = "attack"
	ActionGather ActionTag = "gather"
	ActionCraft  ActionTag = "craft"
	ActionEquip  ActionTag = "equip"
	ActionSay    ActionTag = "say"
	ActionFlee   ActionTag = "flee"
	ActionEat    ActionTag = "eat"
	ActionDrink  ActionTag = "drink"
	ActionIdle   ActionTag = "idle"
)

// Args 是步骤的松散参数包（坐标、ID、文本）。
type Args map[string]any

// Float returns args[key] as a float64. Numeric strings are accepted.
func (a Args) Float(key string) (float64, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// Uint returns args[key] as a uint64 identifier.
func (a Args) Uint(key string) (uint64, bool) {
	f, ok := a.Float(key)
	if !ok || f < 0 {
		return 0, false
	}
	return uint64(f), true
}

// String returns args[key] as a string. Non-string values are formatted.
func (a Args) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// PlanStep 单个计划步骤
type PlanStep struct {
	Action ActionTag `json:"action"`
	Args   Args      `json:"args,omitempty"`
}

// Plan 规划服务返回的计划
type Plan struct {
	Goal      string     `json:"goal"`
	Steps     []PlanStep `json:"steps"`
	CreatedAt time.Time  `json:"-"`
}

// Empty reports whether the plan has no steps.
func (p *Plan) Empty() bool {
	return p == nil || len(p.Steps) == 0
}

// Known reports whether the tag names a supported action.
func (t ActionTag) Known() bool {
	switch t {
	case ActionMove, ActionAttack, ActionGather, ActionCraft, ActionEquip,
		ActionSay, ActionFlee, ActionEat, ActionDrink, ActionIdle:
		return true
	}
	return false
}
