package types

import "time"

// EventType 游戏事件类型
type EventType string

const (
	EventAttacked     EventType = "attacked"
	EventKilled       EventType = "killed"
	EventItemGathered EventType = "item_gathered"
	EventChatMention  EventType = "chat_mention"
	EventLowHealth    EventType = "low_health"
	EventLowHunger    EventType = "low_hunger"
	EventCrafted      EventType = "crafted"
	EventDied         EventType = "died"
)

// GameEvent 由快循环产生、规划循环消费的事件
type GameEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}
