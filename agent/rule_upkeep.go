package agent

import (
	"go.uber.org/zap"

	"github.com/BaSui01/npcagent/world"
)

// ruleWater 下雨时装备未装满的水容器（后端为手持容器接雨水），约每 5 秒检查一次
func (a *Agent) ruleWater(t *tick) bool {
	bb := t.bb
	if t.now.Sub(bb.LastWaterCheck) < waterCheckInterval {
		return false
	}
	bb.LastWaterCheck = t.now
	if !raining(t.view) {
		return false
	}
	it, ok := unfilledContainer(t)
	if !ok || equippedInstance(t) == it.Item.InstanceID {
		return false
	}
	if res := a.Equip(t, it.Item.InstanceID); res.Status == StatusFailed {
		return false
	}
	bb.LastWaterFill = t.now
	a.logger.Debug("equipped water container for rain", zap.String("item", it.Def.Name))
	return true
}

// ruleArming 约每 5 秒查询装备表；未持武器且距上次尝试超过 10 秒时装备最佳武器。
// 下雨时手持的未满水容器不会被替换。
func (a *Agent) ruleArming(t *tick) bool {
	bb := t.bb
	if t.now.Sub(bb.LastArmingCheck) < armingCheckInterval {
		return false
	}
	bb.LastArmingCheck = t.now

	_, def, ok := world.Equipped(t.view, t.id)
	if ok && world.IsWeapon(def) {
		return false
	}
	if ok && def.IsWaterContainer() && raining(t.view) {
		if it, found := t.view.InventoryItems().Get(equippedInstance(t)); found {
			if l, _ := it.WaterLiters(); l < def.WaterCapacity() {
				return false
			}
		}
	}
	if !bb.LastEquipAttempt.IsZero() && t.now.Sub(bb.LastEquipAttempt) < equipRetryInterval {
		return false
	}
	best, found := world.BestWeapon(t.view, t.id)
	if !found {
		return false
	}
	if res := a.Equip(t, best.Item.InstanceID); res.Status == StatusFailed {
		return false
	}
	a.logger.Debug("equipping weapon", zap.String("item", best.Def.Name))
	return true
}

func raining(v world.View) bool {
	ws, ok := v.WorldState()
	return ok && ws.Raining()
}

// equippedInstance 手持物品实例 id；未装备时为 0
func equippedInstance(t *tick) uint64 {
	eq, ok := t.view.Equipment().Get(t.id)
	if !ok {
		return 0
	}
	id, _ := eq.EquippedItemInstanceID.Get()
	return id
}
