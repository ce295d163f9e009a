package agent

import (
	"math"

	"github.com/BaSui01/npcagent/backend"
	"github.com/BaSui01/npcagent/internal/geom"
	"github.com/BaSui01/npcagent/world"
)

// reasonBlocked 所有转向都被碰撞体阻挡
const reasonBlocked = "path blocked"

// 碰撞时依次尝试的转向角（弧度）
var detourHeadings = []float64{
	0,
	math.Pi / 6, -math.Pi / 6,
	math.Pi / 3, -math.Pi / 3,
	math.Pi / 2, -math.Pi / 2,
	2 * math.Pi / 3, -2 * math.Pi / 3,
}

// nextPosition 沿 dir 前进 step 像素，裁剪到世界边界并绕开碰撞体。
// 所有转向都被阻挡时返回 ok=false。
func nextPosition(v world.View, from, dir geom.Vec2, step float64, bounds geom.Bounds) (geom.Vec2, bool) {
	dir = dir.Normalize()
	if dir.IsZero() || step <= 0 {
		return from, false
	}
	obstacles := world.Collidables(v, from, step+selfRadius)
	for _, h := range detourHeadings {
		cand := bounds.Clamp(from.Add(dir.Rotate(h).Scale(step)))
		if geom.Distance(cand, from) < 1e-6 {
			continue
		}
		if !blocked(from, cand, obstacles) {
			return cand, true
		}
	}
	return from, false
}

// blocked 候选点与碰撞体重叠，且没有远离该碰撞体
func blocked(from, cand geom.Vec2, obstacles []world.Obstacle) bool {
	for _, o := range obstacles {
		limit := o.Radius + selfRadius
		d := geom.Distance(cand, o.Pos)
		if d < limit && d < geom.Distance(from, o.Pos) {
			return true
		}
	}
	return false
}

// sendPosition 发出位置更新
func (a *Agent) sendPosition(t *tick, pos geom.Vec2, sprint bool, facing string) Result {
	t.bb.moveSeq++
	return a.call(t, "move", backend.ReducerUpdatePosition,
		pos.X, pos.Y, uint64(t.now.UnixMilli()), sprint, facing, t.bb.moveSeq)
}

// MoveTo 朝 target 走一步。距离不超过 arrive 时直接报告到达，不发出任何调用。
func (a *Agent) MoveTo(t *tick, target geom.Vec2, arrive float64, sprint bool) Result {
	pos := t.self.Pos()
	delta := target.Sub(pos)
	dist := delta.Len()
	if dist <= arrive {
		return Done()
	}
	step := walkStep
	if sprint {
		step = sprintStep
	}
	step = math.Min(step, dist)
	t.bb.moveAttempted = true
	next, ok := nextPosition(t.view, pos, delta, step, a.cfg.Bounds)
	if !ok {
		return Failed(reasonBlocked)
	}
	if res := a.sendPosition(t, next, sprint, geom.Facing(next.Sub(pos))); res.Status == StatusFailed {
		return res
	}
	return InProgress()
}

// MoveAlong 沿方向移动一步（逃跑使用），不设到达条件
func (a *Agent) MoveAlong(t *tick, dir geom.Vec2, sprint bool) Result {
	step := walkStep
	if sprint {
		step = sprintStep
	}
	pos := t.self.Pos()
	t.bb.moveAttempted = true
	next, ok := nextPosition(t.view, pos, dir, step, a.cfg.Bounds)
	if !ok {
		return Failed(reasonBlocked)
	}
	if res := a.sendPosition(t, next, sprint, geom.Facing(next.Sub(pos))); res.Status == StatusFailed {
		return res
	}
	return InProgress()
}

// Face 原地转向 target；已朝向时不发出调用
func (a *Agent) Face(t *tick, target geom.Vec2) {
	facing := geom.Facing(target.Sub(t.self.Pos()))
	if facing == t.self.Direction {
		return
	}
	a.sendPosition(t, t.self.Pos(), false, facing)
}
