package types

// SelfStatus 自身状态
type SelfStatus struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Health    float64 `json:"health"`
	Hunger    float64 `json:"hunger"`
	Thirst    float64 `json:"thirst"`
	Warmth    float64 `json:"warmth"`
	Stamina   float64 `json:"stamina"`
	IsDead    bool    `json:"is_dead"`
	IsOnWater bool    `json:"is_on_water"`
	Equipped  string  `json:"equipped,omitempty"`
	Mode      string  `json:"mode"`
}

// EntitySummary 附近实体摘要
type EntitySummary struct {
	Kind     string  `json:"kind"`
	ID       string  `json:"id"`
	Name     string  `json:"name,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Distance float64 `json:"distance"`
}

// InventoryEntry 背包条目摘要
type InventoryEntry struct {
	InstanceID uint64 `json:"instance_id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Quantity   uint32 `json:"quantity"`
}

// ChatLine 最近聊天
type ChatLine struct {
	From string `json:"from"`
	Text string `json:"text"`
}

// Environment 环境信息
type Environment struct {
	Weather       string  `json:"weather"`
	RainIntensity float64 `json:"rain_intensity"`
	TimeOfDay     string  `json:"time_of_day"`
}

// Snapshot 发送给规划服务的世界快照
type Snapshot struct {
	Self        SelfStatus       `json:"self"`
	Nearby      []EntitySummary  `json:"nearby"`
	Threats     []EntitySummary  `json:"threats"`
	Inventory   []InventoryEntry `json:"inventory"`
	RecentChat  []ChatLine       `json:"recent_chat"`
	Events      []GameEvent      `json:"events"`
	Environment Environment      `json:"environment"`
	CurrentGoal string           `json:"current_goal,omitempty"`
}

// PlanRequest 规划请求
type PlanRequest struct {
	RequestID string    `json:"request_id"`
	Character Character `json:"character"`
	Snapshot  Snapshot  `json:"snapshot"`
}
