package agent

import (
	"go.uber.org/zap"

	"github.com/BaSui01/npcagent/backend"
	"github.com/BaSui01/npcagent/internal/geom"
	"github.com/BaSui01/npcagent/types"
	"github.com/BaSui01/npcagent/world"
)

// =============================================================================
// 🎯 动作结果
// =============================================================================

// Status 动作状态
type Status int

const (
	// StatusInProgress 尚未完成（通常正在接近目标）
	StatusInProgress Status = iota
	// StatusDone 已完成，或目标已不存在
	StatusDone
	// StatusFailed 前置条件不满足或调用失败
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in_progress"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result 动作结果
type Result struct {
	Status Status
	Reason string
}

// Done 完成
func Done() Result { return Result{Status: StatusDone} }

// InProgress 进行中
func InProgress() Result { return Result{Status: StatusInProgress} }

// Failed 失败并附带原因
func Failed(reason string) Result { return Result{Status: StatusFailed, Reason: reason} }

// Finished reports whether the action no longer needs ticks.
func (r Result) Finished() bool { return r.Status != StatusInProgress }

// call 发出一次 reducer 调用。失败只记录，不升级。
func (a *Agent) call(t *tick, action, reducer string, args ...any) Result {
	if err := t.sess.Call(reducer, args...); err != nil {
		a.callLog.Do(func() {
			a.logger.Warn("reducer call failed",
				zap.String("action", action),
				zap.String("reducer", reducer),
				zap.Error(err))
		})
		a.metrics.IncAction(action, StatusFailed.String())
		return Failed(err.Error())
	}
	a.metrics.IncAction(action, "sent")
	return Done()
}

// approach 距离大于 reach 时移动一步并返回 true
func (a *Agent) approach(t *tick, target geom.Vec2, reach float64, res *Result) bool {
	if geom.Distance(t.self.Pos(), target) <= reach {
		return false
	}
	*res = a.MoveTo(t, target, reach*0.8, false)
	if res.Status == StatusDone {
		*res = InProgress()
	}
	return true
}

// turnToward 需要转向时发出朝向更新并返回 true（本 tick 的唯一调用）
func (a *Agent) turnToward(t *tick, target geom.Vec2) bool {
	facing := geom.Facing(target.Sub(t.self.Pos()))
	if facing == t.self.Direction {
		return false
	}
	a.Face(t, target)
	return true
}

// =============================================================================
// ⚔️ 战斗
// =============================================================================

// Attack 攻击动物：装填好的远程武器在射程内直接射击，否则接近后挥砍。
// 目标消失或死亡时返回 Done。
func (a *Agent) Attack(t *tick, animalID uint64) Result {
	an, ok := t.view.Animals().Get(animalID)
	if !ok || an.Health <= 0 {
		if t.bb.engaged == animalID && animalID != 0 {
			t.bb.PushEvent(types.GameEvent{Type: types.EventKilled, Timestamp: t.now, Detail: an.Species.Tag})
			t.bb.engaged = 0
		}
		return Done()
	}
	pos := an.Pos()
	d := geom.Distance(t.self.Pos(), pos)

	if eq, def, ok := world.Equipped(t.view, t.id); ok && def.Category.Is(world.CategoryRangedWeapon) &&
		eq.IsReadyToFire && eq.LoadedAmmoCount > 0 && d <= rangedRange {
		if !t.bb.Ready(cdFire, t.now) {
			return InProgress()
		}
		t.bb.Cooldown(cdFire, t.now, 2*swingInterval)
		if res := a.call(t, "attack", backend.ReducerFireProjectile, float32(pos.X), float32(pos.Y)); res.Status == StatusFailed {
			return res
		}
		t.bb.engaged = animalID
		return InProgress()
	}

	var res Result
	if a.approach(t, pos, meleeRange, &res) {
		return res
	}
	if a.turnToward(t, pos) || !t.bb.Ready(cdSwing, t.now) {
		return InProgress()
	}
	t.bb.Cooldown(cdSwing, t.now, swingInterval)
	if res := a.call(t, "attack", backend.ReducerUseEquippedItem); res.Status == StatusFailed {
		return res
	}
	t.bb.engaged = animalID
	return InProgress()
}

// Flee 背离威胁冲刺一步。方向在逃跑开始时加入随机偏转后保持不变。
func (a *Agent) Flee(t *tick, threat geom.Vec2) Result {
	if t.bb.fleeDir.IsZero() {
		t.bb.fleeDir = geom.AwayFrom(t.self.Pos(), threat, fleeJitter, a.rnd)
	}
	away := t.self.Pos().Sub(threat).Normalize()
	dir := t.bb.fleeDir
	// 威胁绕到前方时重新取方向
	if !away.IsZero() && dir.X*away.X+dir.Y*away.Y <= 0 {
		dir = geom.AwayFrom(t.self.Pos(), threat, fleeJitter, a.rnd)
		t.bb.fleeDir = dir
	}
	return a.MoveAlong(t, dir, true)
}

// =============================================================================
// 🌿 采集
// =============================================================================

// Gather 采集植物
func (a *Agent) Gather(t *tick, resourceID uint64) Result {
	h, ok := t.view.Resources().Get(resourceID)
	if !ok || !h.Available() {
		return Done()
	}
	var res Result
	if a.approach(t, h.Pos(), interactRange, &res) {
		return res
	}
	if t.now.Sub(t.bb.LastGather) < gatherInterval {
		return InProgress()
	}
	if res := a.call(t, "gather", backend.ReducerInteractHarvestable, resourceID); res.Status == StatusFailed {
		return res
	}
	t.bb.LastGather = t.now
	t.bb.PushEvent(types.GameEvent{Type: types.EventItemGathered, Timestamp: t.now, Detail: h.PlantType.Tag})
	return Done()
}

// Pickup 拾取掉落物
func (a *Agent) Pickup(t *tick, droppedID uint64) Result {
	d, ok := t.view.DroppedItems().Get(droppedID)
	if !ok || d.Quantity == 0 {
		return Done()
	}
	var res Result
	if a.approach(t, d.Pos(), interactRange, &res) {
		return res
	}
	if !t.bb.Ready(cdPickup, t.now) {
		return InProgress()
	}
	t.bb.Cooldown(cdPickup, t.now, gatherInterval)
	if res := a.call(t, "pickup", backend.ReducerPickupDroppedItem, droppedID); res.Status == StatusFailed {
		return res
	}
	detail := ""
	if def, ok := t.view.ItemDefinitions().Get(d.ItemDefID); ok {
		detail = def.Name
	}
	t.bb.PushEvent(types.GameEvent{Type: types.EventItemGathered, Timestamp: t.now, Detail: detail})
	return Done()
}

// HitBarrel 砸木桶直到破碎
func (a *Agent) HitBarrel(t *tick, barrelID uint64) Result {
	b, ok := t.view.Barrels().Get(barrelID)
	if !ok || !b.Intact() {
		return Done()
	}
	var res Result
	if a.approach(t, b.Pos(), meleeRange, &res) {
		return res
	}
	if a.turnToward(t, b.Pos()) || t.now.Sub(t.bb.LastBarrelAttack) < swingInterval {
		return InProgress()
	}
	if res := a.call(t, "barrel", backend.ReducerUseEquippedItem); res.Status == StatusFailed {
		return res
	}
	t.bb.LastBarrelAttack = t.now
	return InProgress()
}

// Harvest 砍树或采石，直到资源耗尽
func (a *Agent) Harvest(t *tick, target Target) Result {
	var (
		pos    geom.Vec2
		alive  bool
		detail string
	)
	switch target.Kind {
	case TargetTree:
		tr, ok := t.view.Trees().Get(target.ID)
		pos, alive, detail = tr.Pos(), ok && tr.Standing(), "wood"
	case TargetStone:
		st, ok := t.view.Stones().Get(target.ID)
		pos, alive, detail = st.Pos(), ok && st.Intact(), "stone"
	default:
		return Failed("not a harvest target")
	}
	if !alive {
		return Done()
	}
	var res Result
	if a.approach(t, pos, meleeRange, &res) {
		return res
	}
	if a.turnToward(t, pos) || t.now.Sub(t.bb.LastHarvestHit) < harvestInterval {
		return InProgress()
	}
	if res := a.call(t, "harvest", backend.ReducerUseEquippedItem); res.Status == StatusFailed {
		return res
	}
	if t.now.Sub(t.bb.LastGather) >= 5*gatherInterval {
		t.bb.PushEvent(types.GameEvent{Type: types.EventItemGathered, Timestamp: t.now, Detail: detail})
		t.bb.LastGather = t.now
	}
	t.bb.LastHarvestHit = t.now
	return InProgress()
}

// LootCorpse 依次把尸体槽位中的物品移入背包
func (a *Agent) LootCorpse(t *tick, corpseID uint64) Result {
	c, ok := t.view.Corpses().Get(corpseID)
	if !ok {
		return Done()
	}
	slot := c.NextSlot(t.bb.CorpseSlot)
	if slot < 0 {
		return Done()
	}
	var res Result
	if a.approach(t, c.Pos(), interactRange, &res) {
		return res
	}
	if !t.bb.Ready(cdLoot, t.now) {
		return InProgress()
	}
	t.bb.Cooldown(cdLoot, t.now, lootInterval)
	if res := a.call(t, "loot", backend.ReducerQuickMoveFromCorpse, uint32(corpseID), uint8(slot)); res.Status == StatusFailed {
		return res
	}
	t.bb.CorpseSlot = slot + 1
	return InProgress()
}

// =============================================================================
// 🍖 生存
// =============================================================================

// Eat 吃指定物品；instanceID 为 0 时挑选最顶饱的食物
func (a *Agent) Eat(t *tick, instanceID uint64) Result {
	var (
		best  world.OwnedItem
		found bool
		score float64
	)
	for _, it := range world.Inventory(t.view, t.id) {
		if instanceID != 0 {
			if it.Item.InstanceID == instanceID {
				best, found = it, true
				break
			}
			continue
		}
		if !it.Def.Food() {
			continue
		}
		v, _ := it.Def.ConsumableHungerSatiated.Get()
		if !found || v > score {
			best, found, score = it, true, v
		}
	}
	if !found {
		return Failed("no food")
	}
	if !t.bb.Ready(cdEat, t.now) {
		return Failed("eat cooldown")
	}
	if res := a.call(t, "eat", backend.ReducerConsumeItem, best.Item.InstanceID); res.Status == StatusFailed {
		return res
	}
	t.bb.Cooldown(cdEat, t.now, consumeCooldown)
	return Done()
}

// Drink 依次尝试：可饮用消耗品、装水容器、脚下的自然水源（每 2 秒一次）
func (a *Agent) Drink(t *tick) Result {
	if !t.bb.Ready(cdDrink, t.now) {
		return Failed("drink cooldown")
	}
	items := world.Inventory(t.view, t.id)
	for _, it := range items {
		if it.Def.Drink() && !it.Def.IsWaterContainer() {
			return a.drinkWith(t, backend.ReducerConsumeItem, it.Item.InstanceID)
		}
	}
	for _, it := range items {
		if !it.Def.IsWaterContainer() {
			continue
		}
		if l, ok := it.Item.WaterLiters(); ok && l > 0 {
			return a.drinkWith(t, backend.ReducerConsumeWaterContainer, it.Item.InstanceID)
		}
	}
	return a.DrinkNatural(t)
}

// nearWater 站在水中，或距最近一次站在水中的位置不超过 waterReach
func nearWater(t *tick) bool {
	if t.self.IsOnWater {
		return true
	}
	return t.bb.haveWaterPos && geom.Distance(t.self.Pos(), t.bb.waterPos) <= waterReach
}

// DrinkNatural 在水中或水边直接饮水，每 2 秒最多一次
func (a *Agent) DrinkNatural(t *tick) Result {
	if !nearWater(t) {
		return Failed("no water")
	}
	if t.now.Sub(t.bb.LastNaturalDrink) < naturalDrinkInterval {
		return Failed("natural drink rate limited")
	}
	if res := a.call(t, "drink", backend.ReducerDrinkWater); res.Status == StatusFailed {
		return res
	}
	t.bb.LastNaturalDrink = t.now
	return Done()
}

func (a *Agent) drinkWith(t *tick, reducer string, instanceID uint64) Result {
	if res := a.call(t, "drink", reducer, instanceID); res.Status == StatusFailed {
		return res
	}
	t.bb.Cooldown(cdDrink, t.now, consumeCooldown)
	return Done()
}

// unfilledContainer 返回未装满的水容器
func unfilledContainer(t *tick) (world.OwnedItem, bool) {
	return world.FindItem(t.view, t.id, func(it world.OwnedItem) bool {
		if !it.Def.IsWaterContainer() {
			return false
		}
		l, _ := it.Item.WaterLiters()
		return l < it.Def.WaterCapacity()
	})
}

// FillFromSource 在水中或水边向未装满的容器灌水 250mL
func (a *Agent) FillFromSource(t *tick) Result {
	if !nearWater(t) {
		return Failed("not near water")
	}
	it, ok := unfilledContainer(t)
	if !ok {
		return Failed("no container to fill")
	}
	if t.now.Sub(t.bb.LastNaturalDrink) < naturalDrinkInterval {
		return Failed("water source rate limited")
	}
	if res := a.call(t, "fill_water", backend.ReducerFillWaterContainer, it.Item.InstanceID, fillAmountML); res.Status == StatusFailed {
		return res
	}
	// 灌水与饮水共享后端冷却
	t.bb.LastNaturalDrink = t.now
	t.bb.LastWaterFill = t.now
	return Done()
}

// =============================================================================
// 🧰 物品
// =============================================================================

// Equip 装备指定物品；instanceID 为 0 时装备最佳武器
func (a *Agent) Equip(t *tick, instanceID uint64) Result {
	if instanceID == 0 {
		best, ok := world.BestWeapon(t.view, t.id)
		if !ok {
			return Failed("no weapon")
		}
		instanceID = best.Item.InstanceID
	}
	if eq, ok := t.view.Equipment().Get(t.id); ok {
		if cur, ok := eq.EquippedItemInstanceID.Get(); ok && cur == instanceID {
			return Done()
		}
	}
	t.bb.LastEquipAttempt = t.now
	return a.call(t, "equip", backend.ReducerSetActiveItem, instanceID)
}

// Craft 开始合成
func (a *Agent) Craft(t *tick, recipeID uint64) Result {
	if !t.bb.Ready(cdCraft, t.now) {
		return InProgress()
	}
	if res := a.call(t, "craft", backend.ReducerStartCrafting, recipeID); res.Status == StatusFailed {
		return res
	}
	t.bb.Cooldown(cdCraft, t.now, gatherInterval)
	t.bb.PushEvent(types.GameEvent{Type: types.EventCrafted, Timestamp: t.now})
	return Done()
}

// Say 发送聊天消息
func (a *Agent) Say(t *tick, text string) Result {
	if text == "" {
		return Failed("empty message")
	}
	if res := a.call(t, "say", backend.ReducerSendMessage, text); res.Status == StatusFailed {
		return res
	}
	t.bb.LastChat = t.now
	return Done()
}

// Respawn 随机复活，每 5 秒最多一次
func (a *Agent) Respawn(t *tick) Result {
	if !t.bb.Ready(cdRespawn, t.now) {
		return InProgress()
	}
	t.bb.Cooldown(cdRespawn, t.now, respawnCooldown)
	return a.call(t, "respawn", backend.ReducerRespawnRandomly)
}
