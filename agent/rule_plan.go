package agent

import (
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/npcagent/internal/geom"
	"github.com/BaSui01/npcagent/types"
	"github.com/BaSui01/npcagent/world"
)

// rulePlan 每 tick 执行当前计划的一步。完成、失败或超时都前进到下一步。
func (a *Agent) rulePlan(t *tick) bool {
	bb := t.bb
	step, ok := bb.CurrentStep()
	if !ok {
		return false
	}
	if bb.StepStartedAt.IsZero() {
		bb.StepStartedAt = t.now
	}
	if t.now.Sub(bb.StepStartedAt) > stepTimeout {
		a.logger.Info("plan step timed out", zap.String("action", string(step.Action)), zap.Int("step", bb.StepIndex))
		a.advance(t)
		return true
	}

	res := a.execStep(t, step)
	switch res.Status {
	case StatusDone:
		a.advance(t)
	case StatusFailed:
		a.logger.Debug("plan step failed",
			zap.String("action", string(step.Action)),
			zap.Int("step", bb.StepIndex),
			zap.String("reason", res.Reason))
		a.advance(t)
	}
	return true
}

func (a *Agent) advance(t *tick) {
	goal := t.bb.Goal()
	t.bb.AdvanceStep(t.now)
	if t.bb.Plan == nil {
		a.logger.Info("plan finished", zap.String("goal", goal))
	}
}

// execStep 把计划步骤映射到动作
func (a *Agent) execStep(t *tick, step types.PlanStep) Result {
	args := step.Args
	switch step.Action {
	case types.ActionMove:
		x, okX := args.Float("x")
		y, okY := args.Float("y")
		if !okX || !okY {
			return Failed("move needs x and y")
		}
		sprint, _ := args.String("sprint")
		return a.MoveTo(t, a.cfg.Bounds.Clamp(geom.Vec2{X: x, Y: y}), moveArrival, sprint == "true")

	case types.ActionAttack:
		id, ok := args.Uint("target_id")
		if !ok {
			m, found := world.NearestPrey(t.view, t.self.Pos(), huntRadius)
			if !found {
				return Failed("no target")
			}
			id = m.Row.ID
		}
		t.bb.SetSeeking(Target{Kind: TargetHunt, ID: id})
		res := a.Attack(t, id)
		if res.Finished() {
			t.bb.ClearSeeking()
		}
		return res

	case types.ActionGather:
		id, ok := args.Uint("resource_id")
		if !ok {
			m, found := world.NearestResource(t.view, t.self.Pos(), resourceRadius, nil)
			if !found {
				return Failed("no resource")
			}
			id = m.Row.ID
		}
		return a.Gather(t, id)

	case types.ActionCraft:
		id, ok := args.Uint("recipe_id")
		if !ok {
			return Failed("craft needs recipe_id")
		}
		return a.Craft(t, id)

	case types.ActionEquip:
		id, _ := args.Uint("item_instance_id")
		return a.Equip(t, id)

	case types.ActionSay:
		text, _ := args.String("text")
		return a.Say(t, text)

	case types.ActionFlee:
		m, ok := world.NearestHostile(t.view, t.self.Pos(), 2*threatRadius)
		if !ok || t.now.Sub(t.bb.StepStartedAt) >= minFleeDuration {
			t.bb.fleeDir = geom.Vec2{}
			return Done()
		}
		return a.Flee(t, m.Row.Pos())

	case types.ActionEat:
		id, _ := args.Uint("item_instance_id")
		return a.Eat(t, id)

	case types.ActionDrink:
		return a.Drink(t)

	case types.ActionIdle:
		return a.Idle(t, args)
	}
	return Failed("unknown action " + string(step.Action))
}

// Idle 原地等待 seconds 秒（默认 3 秒）
func (a *Agent) Idle(t *tick, args types.Args) Result {
	secs, ok := args.Float("seconds")
	if !ok || secs <= 0 {
		secs = 3
	}
	t.bb.Mode = ModeIdle
	if t.now.Sub(t.bb.StepStartedAt) >= time.Duration(secs*float64(time.Second)) {
		t.bb.Mode = ModeExplore
		return Done()
	}
	return InProgress()
}
