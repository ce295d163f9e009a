package agent

import (
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/npcagent/world"
)

// tick 单次快循环的只读上下文
type tick struct {
	now  time.Time
	id   world.Identity
	self world.Player
	view world.View
	sess Session
	bb   *Blackboard
}

// rule 决策级联中的一条规则。返回 true 表示本 tick 已处理。
type rule struct {
	name string
	run  func(a *Agent, t *tick) bool
}

// ruleSelf 自身行缺失时记录的规则名
const ruleSelf = "self"

// cascade 固定顺序的规则列表
var cascade = []rule{
	{"death", (*Agent).ruleDeath},
	{"stuck", (*Agent).ruleStuck},
	{"threat", (*Agent).ruleThreat},
	{"survival", (*Agent).ruleSurvival},
	{"water", (*Agent).ruleWater},
	{"arming", (*Agent).ruleArming},
	{"plan", (*Agent).rulePlan},
	{"autonomous", (*Agent).ruleAutonomous},
}

// runTick 执行一次快循环。未连接时不做任何事。
func (a *Agent) runTick(now time.Time) {
	sess := a.Session()
	if sess == nil {
		return
	}
	started := time.Now()
	bb := a.bb
	bb.Ticks++
	bb.LastRule = ""

	id := sess.Identity()
	view := sess.View()
	self, ok := world.Self(view, id)
	if !ok {
		bb.LastRule = ruleSelf
		a.selfLog.Do(func() {
			a.logger.Debug("self row not yet available", zap.String("identity", string(id)))
		})
		return
	}

	t := &tick{now: now, id: id, self: self, view: view, sess: sess, bb: bb}
	a.detect(t)
	for _, r := range cascade {
		if a.runRule(r, t) {
			bb.LastRule = r.name
			a.metrics.IncRule(r.name)
			break
		}
	}
	a.metrics.ObserveTick(a.char.Name, time.Since(started))
}

// runRule 单条规则 panic 时记录并结束本 tick
func (a *Agent) runRule(r rule, t *tick) (handled bool) {
	defer func() {
		if p := recover(); p != nil {
			a.ruleLog.Do(func() {
				a.logger.Error("rule panicked",
					zap.String("rule", r.name),
					zap.Any("panic", p),
					zap.Stack("stack"))
			})
			handled = true
		}
	}()
	return r.run(a, t)
}
