package agent

import "go.uber.org/zap"

// ruleSurvival 饥饿或口渴低于 20 时立即进食/饮水；低于 40 时每 3 秒处理一次。
// 只有成功发出调用才处理 tick。
func (a *Agent) ruleSurvival(t *tick) bool {
	bb, s := t.bb, t.self
	threshold := criticalNeed
	if s.Hunger >= criticalNeed && s.Thirst >= criticalNeed {
		if t.now.Sub(bb.LastSurvivalCheck) < lowNeedInterval {
			return false
		}
		bb.LastSurvivalCheck = t.now
		threshold = lowNeed
	}

	needs := []string{"hunger", "thirst"}
	if s.Thirst < s.Hunger {
		needs[0], needs[1] = needs[1], needs[0]
	}
	for _, need := range needs {
		var res Result
		switch {
		case need == "hunger" && s.Hunger < threshold:
			res = a.Eat(t, 0)
		case need == "thirst" && s.Thirst < threshold:
			res = a.Drink(t)
		default:
			continue
		}
		if res.Status == StatusDone {
			a.logger.Debug("survival need handled",
				zap.String("need", need),
				zap.Float64("hunger", s.Hunger),
				zap.Float64("thirst", s.Thirst))
			return true
		}
	}
	return false
}
