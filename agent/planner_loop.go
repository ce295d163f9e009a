package agent

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/npcagent/internal/geom"
	"github.com/BaSui01/npcagent/types"
	"github.com/BaSui01/npcagent/world"
)

// 快照规模
const (
	nearbyLimit    = 20
	recentChatSize = 5
	// stalePlanIntervals 计划存在超过这么多个规划间隔后重新规划
	stalePlanIntervals = 3
)

type planResult struct {
	plan *types.Plan
	err  error
}

// startPlanning 构建快照并在后台调用规划器，返回取消函数。
// 未连接、自身行缺失或无需规划时返回 nil。事件队列在调用前被消费清空。
func (a *Agent) startPlanning(results chan<- planResult) context.CancelFunc {
	sess := a.Session()
	if sess == nil || a.planner == nil {
		return nil
	}
	now := a.clock.Now()
	bb := a.bb
	if !a.shouldPlan(now) {
		return nil
	}
	snap, ok := a.snapshot(sess.View(), sess.Identity())
	if !ok {
		return nil
	}
	bb.ClearEvents()
	bb.LastPlannerRun = now

	req := types.PlanRequest{Character: a.char, Snapshot: snap}
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.PlannerTimeout)
	go func() {
		plan, err := a.planner.Plan(ctx, req)
		// results 容量为 1 且同时最多一个调用，发送不会阻塞
		results <- planResult{plan: plan, err: err}
	}()
	return cancel
}

// shouldPlan 没有计划、有待处理事件或计划已过期时需要规划
func (a *Agent) shouldPlan(now time.Time) bool {
	bb := a.bb
	if bb.Plan.Empty() || len(bb.events) > 0 {
		return true
	}
	return now.Sub(bb.Plan.CreatedAt) > stalePlanIntervals*a.cfg.PlannerInterval
}

// applyPlan 在循环 goroutine 中安装规划结果
func (a *Agent) applyPlan(r planResult) {
	bb := a.bb
	if r.err != nil || r.plan.Empty() {
		bb.PlannerFailures++
		a.plannerFailures.Store(int64(bb.PlannerFailures))
		if r.err != nil {
			a.logger.Warn("planner call failed", zap.Error(r.err), zap.Int("failures", bb.PlannerFailures))
		} else {
			a.logger.Debug("planner returned no plan", zap.Int("failures", bb.PlannerFailures))
		}
		return
	}
	now := a.clock.Now()
	if r.plan.CreatedAt.IsZero() {
		r.plan.CreatedAt = now
	}
	bb.InstallPlan(r.plan, now)
	a.plannerFailures.Store(0)
	a.metrics.IncPlanInstalled(a.char.Name)
	a.logger.Info("plan installed", zap.String("goal", r.plan.Goal), zap.Int("steps", len(r.plan.Steps)))
}

// snapshot 规划器看到的世界
func (a *Agent) snapshot(v world.View, id world.Identity) (types.Snapshot, bool) {
	self, ok := world.Self(v, id)
	if !ok {
		return types.Snapshot{}, false
	}
	bb := a.bb
	pos := self.Pos()

	snap := types.Snapshot{
		Self: types.SelfStatus{
			X:         self.PositionX,
			Y:         self.PositionY,
			Health:    self.Health,
			Hunger:    self.Hunger,
			Thirst:    self.Thirst,
			Warmth:    self.Warmth,
			Stamina:   self.Stamina,
			IsDead:    self.IsDead,
			IsOnWater: self.IsOnWater,
			Mode:      string(bb.Mode),
		},
		Events:      bb.Events(),
		CurrentGoal: bb.Goal(),
	}
	if _, def, ok := world.Equipped(v, id); ok {
		snap.Self.Equipped = def.Name
	}

	for _, m := range world.Hostiles(v, pos, snapshotRadius) {
		snap.Threats = append(snap.Threats, summary("animal", m.Row.ID, m.Row.Species.Tag, m.Row.Pos(), m.Distance))
	}
	sortByDistance(snap.Threats)

	nearby := collect(nil, v.Animals(), pos, func(an world.WildAnimal) (types.EntitySummary, bool) {
		return summary("animal", an.ID, an.Species.Tag, an.Pos(), 0), an.Health > 0 && !an.Hostile()
	})
	nearby = collect(nearby, v.Resources(), pos, func(h world.HarvestableResource) (types.EntitySummary, bool) {
		return summary("resource", h.ID, h.PlantType.Tag, h.Pos(), 0), h.Available()
	})
	nearby = collect(nearby, v.Trees(), pos, func(tr world.Tree) (types.EntitySummary, bool) {
		return summary("tree", tr.ID, tr.TreeType.Tag, tr.Pos(), 0), tr.Standing()
	})
	nearby = collect(nearby, v.Stones(), pos, func(st world.Stone) (types.EntitySummary, bool) {
		return summary("stone", st.ID, st.OreType.Tag, st.Pos(), 0), st.Intact()
	})
	nearby = collect(nearby, v.Barrels(), pos, func(b world.Barrel) (types.EntitySummary, bool) {
		return summary("barrel", b.ID, "", b.Pos(), 0), b.Intact()
	})
	nearby = collect(nearby, v.Corpses(), pos, func(c world.PlayerCorpse) (types.EntitySummary, bool) {
		return summary("corpse", c.ID, c.Username, c.Pos(), 0), c.HasItems()
	})
	nearby = collect(nearby, v.DroppedItems(), pos, func(d world.DroppedItem) (types.EntitySummary, bool) {
		name := ""
		if def, ok := v.ItemDefinitions().Get(d.ItemDefID); ok {
			name = def.Name
		}
		return summary("dropped_item", d.ID, name, d.Pos(), 0), d.Quantity > 0
	})
	nearby = collect(nearby, v.Players(), pos, func(p world.Player) (types.EntitySummary, bool) {
		s := summary("player", 0, p.Username, p.Pos(), 0)
		s.ID = string(p.Identity)
		return s, p.Identity != id && p.IsOnline && !p.IsDead
	})
	sortByDistance(nearby)
	if len(nearby) > nearbyLimit {
		nearby = nearby[:nearbyLimit]
	}
	snap.Nearby = nearby

	for _, it := range world.Inventory(v, id) {
		snap.Inventory = append(snap.Inventory, types.InventoryEntry{
			InstanceID: it.Item.InstanceID,
			Name:       it.Def.Name,
			Category:   it.Def.Category.Tag,
			Quantity:   it.Item.Quantity,
		})
	}
	for _, m := range world.RecentMessages(v, recentChatSize) {
		snap.RecentChat = append(snap.RecentChat, types.ChatLine{From: m.SenderUsername, Text: m.Text})
	}
	if ws, ok := v.WorldState(); ok {
		snap.Environment = types.Environment{
			Weather:       ws.CurrentWeather.Tag,
			RainIntensity: ws.RainIntensity,
			TimeOfDay:     ws.TimeOfDay.Tag,
		}
	}
	return snap, true
}

func summary(kind string, id uint64, name string, p geom.Vec2, d float64) types.EntitySummary {
	return types.EntitySummary{Kind: kind, ID: strconv.FormatUint(id, 10), Name: name, X: p.X, Y: p.Y, Distance: d}
}

// collect 追加 snapshotRadius 内满足条件的行
func collect[K comparable, T any](out []types.EntitySummary, r world.Reader[K, T], from geom.Vec2, describe func(T) (types.EntitySummary, bool)) []types.EntitySummary {
	r.Each(func(row T) bool {
		s, keep := describe(row)
		if !keep {
			return true
		}
		d := geom.Distance(from, geom.Vec2{X: s.X, Y: s.Y})
		if d <= snapshotRadius {
			s.Distance = d
			out = append(out, s)
		}
		return true
	})
	return out
}

func sortByDistance(s []types.EntitySummary) {
	slices.SortStableFunc(s, func(a, b types.EntitySummary) int { return cmp.Compare(a.Distance, b.Distance) })
}
