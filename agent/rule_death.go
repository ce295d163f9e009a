package agent

import (
	"go.uber.org/zap"

	"github.com/BaSui01/npcagent/types"
)

// ruleDeath 死亡时重置瞬时状态并尝试复活（冷却 5 秒）
func (a *Agent) ruleDeath(t *tick) bool {
	bb := t.bb
	if !t.self.IsDead {
		bb.wasDead = false
		return false
	}
	if !bb.wasDead {
		bb.wasDead = true
		a.emit(t, types.EventDied, "")
		a.logger.Info("npc died", zap.Float64("x", t.self.PositionX), zap.Float64("y", t.self.PositionY))
	}
	bb.ResetTransient()
	a.Respawn(t)
	return true
}
