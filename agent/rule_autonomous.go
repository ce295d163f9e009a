package agent

import (
	"go.uber.org/zap"

	"github.com/BaSui01/npcagent/types"
	"github.com/BaSui01/npcagent/world"
)

// ruleAutonomous 没有计划时的自主行为。空闲时每 ~1 秒扫描一次机会，
// 否则继续当前追踪；都没有时探索。总是处理 tick。
func (a *Agent) ruleAutonomous(t *tick) bool {
	bb := t.bb
	if !bb.Seeking.Active() && bb.Ticks%autonomousEvalTicks == 0 && !t.now.Before(bb.scansPausedTill) {
		if a.seekOpportunity(t) {
			return true
		}
	}
	if bb.Seeking.Active() {
		res := a.pursue(t)
		if res.Finished() {
			if res.Status == StatusFailed {
				a.logger.Debug("pursuit abandoned",
					zap.String("target", string(bb.Seeking.Kind)),
					zap.Uint64("id", bb.Seeking.ID),
					zap.String("reason", res.Reason))
			}
			bb.ClearSeeking()
			bb.Mode = ModeExplore
		}
		return true
	}
	return a.explore(t)
}

// pursue 对当前追踪目标执行对应动作
func (a *Agent) pursue(t *tick) Result {
	s := t.bb.Seeking
	switch s.Kind {
	case TargetResource:
		return a.Gather(t, s.ID)
	case TargetDropped:
		return a.Pickup(t, s.ID)
	case TargetBarrel:
		return a.HitBarrel(t, s.ID)
	case TargetCorpse:
		return a.LootCorpse(t, s.ID)
	case TargetTree, TargetStone:
		return a.Harvest(t, s)
	case TargetHunt:
		return a.Attack(t, s.ID)
	}
	return Done()
}

func (a *Agent) harvester() bool {
	return a.char.Role == types.RoleBuilder || a.char.HasPriority("wood") || a.char.HasPriority("stone")
}

// seekOpportunity 按优先级寻找机会：选中追踪目标时返回 false（由 pursue 继续），
// 执行了一次性动作时返回 true
func (a *Agent) seekOpportunity(t *tick) bool {
	bb, v, pos := t.bb, t.view, t.self.Pos()
	seek := func(kind TargetKind, id uint64) bool {
		bb.SetSeeking(Target{Kind: kind, ID: id})
		return false
	}

	// 角色优先
	switch {
	case a.char.Role.Fights():
		if m, ok := world.NearestPrey(v, pos, huntRadius); ok {
			return seek(TargetHunt, m.Row.ID)
		}
	case a.char.Role.Gathers():
		if m, ok := world.NearestResource(v, pos, resourceRadius, a.char.Prefers); ok {
			return seek(TargetResource, m.Row.ID)
		}
	}

	// 砍树与采石
	reach := shortGatherRadius
	if a.harvester() {
		reach = treeScanRadius
	}
	treeFirst := !a.char.HasPriority("stone") || a.char.HasPriority("wood")
	tree, haveTree := world.NearestTree(v, pos, reach)
	stone, haveStone := world.NearestStone(v, pos, reach)
	switch {
	case haveTree && (treeFirst || !haveStone):
		return seek(TargetTree, tree.Row.ID)
	case haveStone:
		return seek(TargetStone, stone.Row.ID)
	}

	if m, ok := world.NearestBarrel(v, pos, barrelScanRadius); ok {
		return seek(TargetBarrel, m.Row.ID)
	}
	if m, ok := world.NearestCorpse(v, pos, corpseScanRadius, t.id); ok {
		return seek(TargetCorpse, m.Row.ID)
	}

	// 水边顺手饮水、灌水
	if nearWater(t) {
		if t.self.Thirst < 80 && a.DrinkNatural(t).Status == StatusDone {
			return true
		}
		if a.FillFromSource(t).Status == StatusDone {
			return true
		}
	}

	if m, ok := world.NearestResource(v, pos, shortGatherRadius, nil); ok {
		return seek(TargetResource, m.Row.ID)
	}
	if m, ok := world.NearestDroppedItem(v, pos, droppedScanRadius); ok {
		return seek(TargetDropped, m.Row.ID)
	}

	return a.maybeChat(t)
}

// maybeChat 附近有玩家时偶尔闲聊
func (a *Agent) maybeChat(t *tick) bool {
	lines := a.cfg.ChatLines
	if len(lines) == 0 || t.now.Sub(t.bb.LastChat) < chatInterval || a.rnd.Float64() >= chatChance {
		return false
	}
	if _, ok := world.NearestPlayer(t.view, t.self.Pos(), chatRadius, t.id); !ok {
		return false
	}
	line := lines[int(a.rnd.Float64()*float64(len(lines)))%len(lines)]
	return a.Say(t, line).Status == StatusDone
}
