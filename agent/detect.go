package agent

import (
	"fmt"

	"github.com/BaSui01/npcagent/types"
	"github.com/BaSui01/npcagent/world"
)

// emit 记录事件，供下一次规划使用
func (a *Agent) emit(t *tick, typ types.EventType, detail string) {
	t.bb.PushEvent(types.GameEvent{Type: typ, Timestamp: t.now, Detail: detail})
	a.metrics.IncEvent(string(typ))
}

// detect 比较相邻 tick 的自身状态与聊天记录，产生事件
func (a *Agent) detect(t *tick) {
	bb, s := t.bb, t.self

	if s.IsDead {
		bb.haveHealth = false
	} else {
		if bb.haveHealth && s.Health < bb.lastHealth {
			a.emit(t, types.EventAttacked, fmt.Sprintf("lost %.0f health", bb.lastHealth-s.Health))
		}
		bb.lastHealth, bb.haveHealth = s.Health, true

		switch {
		case s.Health < lowHealthThreshold && !bb.lowHealthRaised:
			a.emit(t, types.EventLowHealth, fmt.Sprintf("health %.0f", s.Health))
			bb.lowHealthRaised = true
		case s.Health >= lowHealthThreshold:
			bb.lowHealthRaised = false
		}
		switch {
		case s.Hunger < criticalNeed && !bb.lowHungerRaised:
			a.emit(t, types.EventLowHunger, fmt.Sprintf("hunger %.0f", s.Hunger))
			bb.lowHungerRaised = true
		case s.Hunger >= criticalNeed:
			bb.lowHungerRaised = false
		}
	}

	if s.IsOnWater {
		bb.waterPos, bb.haveWaterPos = s.Pos(), true
	}

	a.detectMentions(t)
}

// detectMentions 首个 tick 只记录水位线，之后的新提及变为 chat_mention
func (a *Agent) detectMentions(t *tick) {
	bb := t.bb
	if !bb.mentionsPrimed {
		if last := world.RecentMessages(t.view, 1); len(last) == 1 {
			bb.lastMentionID = last[0].ID
		}
		bb.mentionsPrimed = true
		return
	}
	for _, m := range world.Mentions(t.view, a.char.Name, t.id, bb.lastMentionID) {
		a.emit(t, types.EventChatMention, m.SenderUsername+": "+m.Text)
		if m.ID > bb.lastMentionID {
			bb.lastMentionID = m.ID
		}
	}
}
