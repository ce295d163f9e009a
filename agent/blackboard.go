package agent

import (
	"time"

	"github.com/BaSui01/npcagent/internal/geom"
	"github.com/BaSui01/npcagent/types"
)

// Mode NPC 当前行为模式
type Mode string

const (
	ModeExplore    Mode = "explore"
	ModeGather     Mode = "gather"
	ModeFlee       Mode = "flee"
	ModeHunt       Mode = "hunt"
	ModeIdle       Mode = "idle"
	ModeBarrel     Mode = "barrel"
	ModeLootCorpse Mode = "loot_corpse"
	ModeFillWater  Mode = "fill_water"
	ModeChopTree   Mode = "chop_tree"
	ModeMineStone  Mode = "mine_stone"
)

// TargetKind 追踪目标类型
type TargetKind string

const (
	TargetNone     TargetKind = ""
	TargetResource TargetKind = "resource"
	TargetDropped  TargetKind = "dropped_item"
	TargetBarrel   TargetKind = "barrel"
	TargetCorpse   TargetKind = "corpse"
	TargetTree     TargetKind = "tree"
	TargetStone    TargetKind = "stone"
	TargetHunt     TargetKind = "hunt"
)

// Target 当前追踪的实体。同一时刻最多一个，由单一字段保证。
type Target struct {
	Kind TargetKind
	ID   uint64
}

// Active reports whether a target is set.
func (t Target) Active() bool { return t.Kind != TargetNone }

// modeFor 目标类型对应的行为模式
func modeFor(k TargetKind) Mode {
	switch k {
	case TargetResource, TargetDropped:
		return ModeGather
	case TargetBarrel:
		return ModeBarrel
	case TargetCorpse:
		return ModeLootCorpse
	case TargetTree:
		return ModeChopTree
	case TargetStone:
		return ModeMineStone
	case TargetHunt:
		return ModeHunt
	}
	return ModeExplore
}

// Timers 黑板上的时间戳
type Timers struct {
	LastGather        time.Time
	LastChat          time.Time
	LastBarrelAttack  time.Time
	LastHarvestHit    time.Time
	LastWaterFill     time.Time
	LastNaturalDrink  time.Time
	LastEquipAttempt  time.Time
	FleeStart         time.Time
	ExploreSetAt      time.Time
	LastPlannerRun    time.Time
	LastSurvivalCheck time.Time
	LastWaterCheck    time.Time
	LastArmingCheck   time.Time
	StepStartedAt     time.Time
}

// 事件队列容量；溢出时保留最新的 eventQueueTrim 条
const (
	eventQueueCap  = 50
	eventQueueTrim = 30
)

// Blackboard 单个 NPC 的可变状态，只由该 NPC 的循环 goroutine 读写。
type Blackboard struct {
	Plan      *types.Plan
	StepIndex int

	MoveTarget    geom.Vec2
	HasMoveTarget bool

	Seeking Target
	Mode    Mode

	Timers

	Ticks           uint64
	PlannerFailures int
	CorpseSlot      int
	StuckCount      int

	// LastRule 最近一次处理 tick 的规则名
	LastRule string

	events    []types.GameEvent
	cooldowns map[string]time.Time

	// 事件检测
	lastHealth      float64
	haveHealth      bool
	lowHealthRaised bool
	lowHungerRaised bool
	lastMentionID   uint64
	mentionsPrimed  bool
	wasDead         bool

	// 最近一次站在水中的位置
	waterPos     geom.Vec2
	haveWaterPos bool

	// 卡住检测
	stuckAnchor     geom.Vec2
	haveStuckAnchor bool
	moveAttempted   bool
	scansPausedTill time.Time

	// 逃跑与战斗
	fleeFrom  uint64
	fleePos   geom.Vec2
	fleeDir   geom.Vec2
	engaged   uint64
	defending bool

	moveSeq uint64
}

// NewBlackboard 创建初始黑板
func NewBlackboard() *Blackboard {
	return &Blackboard{
		Mode:      ModeExplore,
		cooldowns: make(map[string]time.Time),
	}
}

// PushEvent 追加事件；超过上限时裁剪为最新的 30 条
func (b *Blackboard) PushEvent(e types.GameEvent) {
	b.events = append(b.events, e)
	if len(b.events) > eventQueueCap {
		b.events = append(b.events[:0:0], b.events[len(b.events)-eventQueueTrim:]...)
	}
}

// Events 返回待处理事件的副本
func (b *Blackboard) Events() []types.GameEvent {
	return append([]types.GameEvent(nil), b.events...)
}

// ClearEvents 清空事件队列
func (b *Blackboard) ClearEvents() { b.events = nil }

// SetSeeking 切换追踪目标并同步模式。切换到不同的尸体时重置槽位游标。
func (b *Blackboard) SetSeeking(t Target) {
	if t != b.Seeking {
		b.CorpseSlot = 0
	}
	b.Seeking = t
	b.Mode = modeFor(t.Kind)
	b.HasMoveTarget = false
}

// ClearSeeking 清除追踪目标
func (b *Blackboard) ClearSeeking() {
	b.Seeking = Target{}
	b.CorpseSlot = 0
}

// ResetTransient 清除追踪目标与瞬时标志（死亡、卡住时调用）
func (b *Blackboard) ResetTransient() {
	b.ClearSeeking()
	b.HasMoveTarget = false
	b.fleeFrom = 0
	b.fleeDir = geom.Vec2{}
	b.engaged = 0
	b.defending = false
	b.FleeStart = time.Time{}
	b.Mode = ModeExplore
	b.StuckCount = 0
	b.haveStuckAnchor = false
}

// Ready reports whether the named cooldown has elapsed.
func (b *Blackboard) Ready(name string, now time.Time) bool {
	return !now.Before(b.cooldowns[name])
}

// Cooldown 设置冷却，在 now+d 之前 Ready 返回 false
func (b *Blackboard) Cooldown(name string, now time.Time, d time.Duration) {
	b.cooldowns[name] = now.Add(d)
}

// InstallPlan 安装新计划并重置步骤游标
func (b *Blackboard) InstallPlan(p *types.Plan, now time.Time) {
	b.Plan = p
	b.StepIndex = 0
	b.StepStartedAt = now
	b.PlannerFailures = 0
}

// CurrentStep 返回当前计划步骤
func (b *Blackboard) CurrentStep() (types.PlanStep, bool) {
	if b.Plan.Empty() || b.StepIndex >= len(b.Plan.Steps) {
		return types.PlanStep{}, false
	}
	return b.Plan.Steps[b.StepIndex], true
}

// AdvanceStep 前进到下一步；步骤用尽时丢弃整个计划
func (b *Blackboard) AdvanceStep(now time.Time) {
	b.StepIndex++
	b.StepStartedAt = now
	if b.Plan == nil || b.StepIndex >= len(b.Plan.Steps) {
		b.Plan = nil
		b.StepIndex = 0
	}
}

// Goal 当前计划目标
func (b *Blackboard) Goal() string {
	if b.Plan == nil {
		return ""
	}
	return b.Plan.Goal
}
