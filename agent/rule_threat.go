package agent

import (
	"go.uber.org/zap"

	"github.com/BaSui01/npcagent/internal/geom"
	"github.com/BaSui01/npcagent/world"
)

// ruleThreat 每 5 tick 检查 350px 内的敌对动物；逃跑或迎战期间每 tick 检查。
// 战斗型角色迎战，其余角色冲刺逃离至少 4 秒，威胁仍在范围内时继续。
func (a *Agent) ruleThreat(t *tick) bool {
	bb := t.bb
	switch {
	case bb.Mode == ModeFlee:
		return a.keepFleeing(t)
	case bb.defending:
		return a.keepDefending(t)
	case bb.Ticks%threatCheckTicks != 0:
		return false
	}

	m, ok := world.NearestHostile(t.view, t.self.Pos(), threatRadius)
	if !ok {
		return false
	}
	if a.char.Role.Fights() {
		a.logger.Debug("engaging threat", zap.String("species", m.Row.Species.Tag), zap.Float64("distance", m.Distance))
		bb.SetSeeking(Target{Kind: TargetHunt, ID: m.Row.ID})
		bb.defending = true
		return a.keepDefending(t)
	}

	a.logger.Debug("fleeing threat", zap.String("species", m.Row.Species.Tag), zap.Float64("distance", m.Distance))
	bb.ClearSeeking()
	bb.Mode = ModeFlee
	bb.HasMoveTarget = false
	bb.FleeStart = t.now
	bb.fleeFrom, bb.fleePos = m.Row.ID, m.Row.Pos()
	bb.fleeDir = geom.Vec2{}
	a.Flee(t, bb.fleePos)
	return true
}

func (a *Agent) keepFleeing(t *tick) bool {
	bb := t.bb
	m, ok := world.NearestHostile(t.view, t.self.Pos(), threatRadius)
	if ok {
		if m.Row.ID != bb.fleeFrom {
			bb.fleeDir = geom.Vec2{}
		}
		bb.fleeFrom, bb.fleePos = m.Row.ID, m.Row.Pos()
	}
	if !ok && t.now.Sub(bb.FleeStart) >= minFleeDuration {
		a.logger.Debug("threat gone, flee ended")
		bb.Mode = ModeExplore
		bb.fleeFrom = 0
		bb.fleeDir = geom.Vec2{}
		return false
	}
	a.Flee(t, bb.fleePos)
	return true
}

func (a *Agent) keepDefending(t *tick) bool {
	bb := t.bb
	if bb.Seeking.Kind != TargetHunt {
		bb.defending = false
		return false
	}
	an, ok := t.view.Animals().Get(bb.Seeking.ID)
	alive := ok && an.Health > 0
	if alive && geom.Distance(t.self.Pos(), an.Pos()) <= 2*threatRadius {
		a.Attack(t, bb.Seeking.ID)
		return true
	}
	if !alive {
		// 目标已死亡或消失：Attack 只产生 killed 事件，不发出调用
		a.Attack(t, bb.Seeking.ID)
	}
	bb.defending = false
	bb.ClearSeeking()
	bb.Mode = ModeExplore
	return false
}
