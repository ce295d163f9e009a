package agent

import (
	"go.uber.org/zap"

	"github.com/BaSui01/npcagent/internal/geom"
)

// ruleStuck 每 30 tick 采样一次位置。连续 3 次位移不足 40px 时清除追踪目标并换一个探索航点。
// 只要期间尝试过移动或有追踪目标/航点，采样就计入；idle 模式且没有移动时不计。不处理 tick。
func (a *Agent) ruleStuck(t *tick) bool {
	bb := t.bb
	if bb.Ticks%stuckSampleTicks != 0 {
		return false
	}
	pos := t.self.Pos()
	pursuing := bb.moveAttempted ||
		(bb.Mode != ModeIdle && (bb.Seeking.Active() || bb.HasMoveTarget))
	bb.moveAttempted = false

	if !bb.haveStuckAnchor || !pursuing {
		bb.stuckAnchor, bb.haveStuckAnchor = pos, true
		bb.StuckCount = 0
		return false
	}
	if geom.Distance(pos, bb.stuckAnchor) < stuckMinMove {
		bb.StuckCount++
	} else {
		bb.StuckCount = 0
	}
	bb.stuckAnchor = pos
	if bb.StuckCount < stuckSamples {
		return false
	}

	a.logger.Info("stuck, picking a new waypoint",
		zap.String("mode", string(bb.Mode)),
		zap.String("seeking", string(bb.Seeking.Kind)))
	bb.ResetTransient()
	bb.stuckAnchor, bb.haveStuckAnchor = pos, true
	a.pickWaypoint(t)
	bb.scansPausedTill = t.now.Add(stuckScanCooldown)
	return false
}
