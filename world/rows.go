package world

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/BaSui01/npcagent/internal/geom"
)

// =============================================================================
// 📦 行结构
// =============================================================================
// 所有坐标为世界像素。缺失的可选字段按零值处理，
// Player 的数值属性缺失时默认为满值，避免误触发生存逻辑。

// Player 玩家表行
type Player struct {
	Identity    Identity `json:"identity"`
	Username    string   `json:"username"`
	PositionX   float64  `json:"position_x"`
	PositionY   float64  `json:"position_y"`
	Direction   string   `json:"direction"`
	Health      float64  `json:"health"`
	Stamina     float64  `json:"stamina"`
	Thirst      float64  `json:"thirst"`
	Hunger      float64  `json:"hunger"`
	Warmth      float64  `json:"warmth"`
	IsSprinting bool     `json:"is_sprinting"`
	IsDead      bool     `json:"is_dead"`
	IsOnline    bool     `json:"is_online"`
	IsOnWater   bool     `json:"is_on_water"`
	IsNPC       bool     `json:"is_npc"`
}

func (p Player) Pos() geom.Vec2 { return geom.Vec2{X: p.PositionX, Y: p.PositionY} }

const fullStat = 100

func decodePlayer(raw json.RawMessage) (Player, error) {
	p := Player{Health: fullStat, Stamina: fullStat, Thirst: fullStat, Hunger: fullStat, Warmth: fullStat}
	if err := json.Unmarshal(raw, &p); err != nil {
		return Player{}, err
	}
	if p.Identity == "" {
		return Player{}, errMissingKey("identity")
	}
	return p, nil
}

// WildAnimal 野生动物表行
type WildAnimal struct {
	ID             uint64        `json:"id"`
	Species        Enum          `json:"species"`
	PosX           float64       `json:"pos_x"`
	PosY           float64       `json:"pos_y"`
	State          Enum          `json:"state"`
	Health         float64       `json:"health"`
	TargetPlayerID Opt[Identity] `json:"target_player_id"`
}

func (a WildAnimal) Pos() geom.Vec2 { return geom.Vec2{X: a.PosX, Y: a.PosY} }

var hostileSpecies = map[string]bool{
	"tundrawolf": true, "cableviper": true, "wolverine": true, "salmonshark": true,
	"shorebound": true, "shardkin": true, "drownedwatch": true, "bee": true,
	"polarbear": true,
}

var preySpecies = map[string]bool{
	"caribou": true, "vole": true, "beachcrab": true, "tern": true,
	"crow": true, "cinderfox": true, "arctichare": true,
}

// Hostile reports whether the animal is a threat: an aggressive species, or
// any animal currently chasing or attacking.
func (a WildAnimal) Hostile() bool {
	if a.Health <= 0 {
		return false
	}
	if a.State.Is("Chasing") || a.State.Is("Attacking") {
		return true
	}
	return hostileSpecies[strings.ToLower(a.Species.Tag)]
}

// Prey reports whether the animal is huntable game.
func (a WildAnimal) Prey() bool {
	return a.Health > 0 && preySpecies[strings.ToLower(a.Species.Tag)]
}

// Barrel 木桶表行
type Barrel struct {
	ID        uint64         `json:"id"`
	PosX      float64        `json:"pos_x"`
	PosY      float64        `json:"pos_y"`
	Health    float64        `json:"health"`
	Variant   uint8          `json:"variant"`
	RespawnAt Opt[Timestamp] `json:"respawn_at"`
}

func (b Barrel) Pos() geom.Vec2 { return geom.Vec2{X: b.PosX, Y: b.PosY} }
func (b Barrel) Intact() bool   { return b.Health > 0 && !b.RespawnAt.Valid }

// Tree 树木表行
type Tree struct {
	ID                uint64  `json:"id"`
	PosX              float64 `json:"pos_x"`
	PosY              float64 `json:"pos_y"`
	Health            float64 `json:"health"`
	ResourceRemaining uint32  `json:"resource_remaining"`
	TreeType          Enum    `json:"tree_type"`
}

func (t Tree) Pos() geom.Vec2 { return geom.Vec2{X: t.PosX, Y: t.PosY} }
func (t Tree) Standing() bool { return t.Health > 0 && t.ResourceRemaining > 0 }

// Stone 石头表行
type Stone struct {
	ID                uint64  `json:"id"`
	PosX              float64 `json:"pos_x"`
	PosY              float64 `json:"pos_y"`
	Health            float64 `json:"health"`
	ResourceRemaining uint32  `json:"resource_remaining"`
	OreType           Enum    `json:"ore_type"`
}

func (s Stone) Pos() geom.Vec2 { return geom.Vec2{X: s.PosX, Y: s.PosY} }
func (s Stone) Intact() bool   { return s.Health > 0 && s.ResourceRemaining > 0 }

// CorpseSlots 尸体最大物品槽数
const CorpseSlots = 35

// PlayerCorpse 玩家尸体表行；Slots[i] 为第 i 槽的物品实例 ID
type PlayerCorpse struct {
	ID             uint64
	PlayerIdentity Identity
	Username       string
	PosX           float64
	PosY           float64
	Health         float64
	Slots          [CorpseSlots]Opt[uint64]
}

func (c PlayerCorpse) Pos() geom.Vec2 { return geom.Vec2{X: c.PosX, Y: c.PosY} }

// NextSlot returns the first occupied slot at or after from, or -1.
func (c PlayerCorpse) NextSlot(from int) int {
	for i := max(from, 0); i < CorpseSlots; i++ {
		if c.Slots[i].Valid {
			return i
		}
	}
	return -1
}

// HasItems reports whether any slot is occupied.
func (c PlayerCorpse) HasItems() bool { return c.NextSlot(0) >= 0 }

const corpseSlotPrefix = "slot_instance_id_"

// UnmarshalJSON 解析固定字段与 slot_instance_id_N 槽位字段
func (c *PlayerCorpse) UnmarshalJSON(b []byte) error {
	var head struct {
		ID             uint64   `json:"id"`
		PlayerIdentity Identity `json:"player_identity"`
		Username       string   `json:"username"`
		PosX           float64  `json:"pos_x"`
		PosY           float64  `json:"pos_y"`
		Health         float64  `json:"health"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	*c = PlayerCorpse{
		ID: head.ID, PlayerIdentity: head.PlayerIdentity, Username: head.Username,
		PosX: head.PosX, PosY: head.PosY, Health: head.Health,
	}
	for k, raw := range fields {
		if !strings.HasPrefix(k, corpseSlotPrefix) {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimPrefix(k, corpseSlotPrefix))
		if err != nil || idx < 0 || idx >= CorpseSlots {
			continue
		}
		var slot Opt[uint64]
		if err := json.Unmarshal(raw, &slot); err != nil {
			continue
		}
		c.Slots[idx] = slot
	}
	return nil
}

// DroppedItem 掉落物表行
type DroppedItem struct {
	ID        uint64  `json:"id"`
	ItemDefID uint64  `json:"item_def_id"`
	Quantity  uint32  `json:"quantity"`
	PosX      float64 `json:"pos_x"`
	PosY      float64 `json:"pos_y"`
}

func (d DroppedItem) Pos() geom.Vec2 { return geom.Vec2{X: d.PosX, Y: d.PosY} }

// HarvestableResource 可采集植物表行
type HarvestableResource struct {
	ID        uint64         `json:"id"`
	PlantType Enum           `json:"plant_type"`
	PosX      float64        `json:"pos_x"`
	PosY      float64        `json:"pos_y"`
	RespawnAt Opt[Timestamp] `json:"respawn_at"`
}

func (h HarvestableResource) Pos() geom.Vec2  { return geom.Vec2{X: h.PosX, Y: h.PosY} }
func (h HarvestableResource) Available() bool { return !h.RespawnAt.Valid }

// 物品类别
const (
	CategoryTool         = "Tool"
	CategoryMaterial     = "Material"
	CategoryPlaceable    = "Placeable"
	CategoryArmor        = "Armor"
	CategoryConsumable   = "Consumable"
	CategoryAmmunition   = "Ammunition"
	CategoryWeapon       = "Weapon"
	CategoryRangedWeapon = "RangedWeapon"
)

// ItemDefinition 物品定义表行
type ItemDefinition struct {
	ID                       uint64       `json:"id"`
	Name                     string       `json:"name"`
	Description              string       `json:"description"`
	Category                 Enum         `json:"category"`
	IsEquippable             bool         `json:"is_equippable"`
	PrimaryTargetDamageMax   Opt[uint32]  `json:"primary_target_damage_max"`
	ConsumableHealthGain     Opt[float64] `json:"consumable_health_gain"`
	ConsumableHungerSatiated Opt[float64] `json:"consumable_hunger_satiated"`
	ConsumableThirstQuenched Opt[float64] `json:"consumable_thirst_quenched"`
}

// IsWaterContainer 按名称识别水容器
func (d ItemDefinition) IsWaterContainer() bool {
	n := strings.ToLower(d.Name)
	return strings.Contains(n, "water bottle") || strings.Contains(n, "water jug")
}

// WaterCapacity 水容器容量（升），非水容器返回 0
func (d ItemDefinition) WaterCapacity() float64 {
	n := strings.ToLower(d.Name)
	switch {
	case strings.Contains(n, "water jug"):
		return 5.0
	case strings.Contains(n, "water bottle"):
		return 2.0
	}
	return 0
}

// Food reports whether eating the item reduces hunger.
func (d ItemDefinition) Food() bool {
	v, ok := d.ConsumableHungerSatiated.Get()
	return d.Category.Is(CategoryConsumable) && ok && v > 0
}

// Drink reports whether consuming the item quenches thirst.
func (d ItemDefinition) Drink() bool {
	v, ok := d.ConsumableThirstQuenched.Get()
	return d.Category.Is(CategoryConsumable) && ok && v > 0
}

// ItemLocation 物品位置（变体 + 所有者）
type ItemLocation struct {
	Kind    string
	OwnerID Identity
}

// UnmarshalJSON 解析 {"Inventory": {"owner_id": ..., "slot_index": n}} 等编码
func (l *ItemLocation) UnmarshalJSON(b []byte) error {
	var e Enum
	if err := json.Unmarshal(b, &e); err != nil {
		return err
	}
	*l = ItemLocation{Kind: e.Tag}
	if len(e.Payload) == 0 {
		return nil
	}
	var data struct {
		OwnerID Identity `json:"owner_id"`
	}
	// 容器/掉落位置没有 owner_id，忽略解析失败
	if err := json.Unmarshal(e.Payload, &data); err == nil {
		l.OwnerID = data.OwnerID
	}
	return nil
}

// PlayerBound reports whether the item is carried (inventory, hotbar or
// equipped) by the given player.
func (l ItemLocation) PlayerBound(owner Identity) bool {
	switch l.Kind {
	case "Inventory", "Hotbar", "Equipped":
		return owner != "" && l.OwnerID == owner
	}
	return false
}

// InventoryItem 物品实例表行
type InventoryItem struct {
	InstanceID uint64       `json:"instance_id"`
	ItemDefID  uint64       `json:"item_def_id"`
	Quantity   uint32       `json:"quantity"`
	Location   ItemLocation `json:"location"`
	ItemData   Opt[string]  `json:"item_data"`
}

// WaterLiters 读取 item_data 中的 water_liters（JSON 对象或纯数字）
func (i InventoryItem) WaterLiters() (float64, bool) {
	raw, ok := i.ItemData.Get()
	if !ok || raw == "" {
		return 0, false
	}
	var data struct {
		WaterLiters *float64 `json:"water_liters"`
	}
	if err := json.Unmarshal([]byte(raw), &data); err == nil && data.WaterLiters != nil {
		return *data.WaterLiters, true
	}
	// 旧格式：纯数字字符串
	if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return f, true
	}
	return 0, false
}

// ActiveEquipment 玩家当前装备表行
type ActiveEquipment struct {
	PlayerIdentity         Identity    `json:"player_identity"`
	EquippedItemDefID      Opt[uint64] `json:"equipped_item_def_id"`
	EquippedItemInstanceID Opt[uint64] `json:"equipped_item_instance_id"`
	LoadedAmmoCount        uint8       `json:"loaded_ammo_count"`
	IsReadyToFire          bool        `json:"is_ready_to_fire"`
}

// ChatMessage 聊天表行
type ChatMessage struct {
	ID             uint64    `json:"id"`
	Sender         Identity  `json:"sender"`
	SenderUsername string    `json:"sender_username"`
	Text           string    `json:"text"`
	Sent           Timestamp `json:"sent"`
}

// 天气
const (
	WeatherClear        = "Clear"
	WeatherLightRain    = "LightRain"
	WeatherModerateRain = "ModerateRain"
	WeatherHeavyRain    = "HeavyRain"
	WeatherHeavyStorm   = "HeavyStorm"
)

// WorldState 世界状态表行（单行）
type WorldState struct {
	ID             uint64  `json:"id"`
	TimeOfDay      Enum    `json:"time_of_day"`
	CurrentWeather Enum    `json:"current_weather"`
	RainIntensity  float64 `json:"rain_intensity"`
}

// Raining reports whether any rain weather is active.
func (w WorldState) Raining() bool {
	return w.CurrentWeather.Tag != "" && !w.CurrentWeather.Is(WeatherClear)
}

// Obstacle 可碰撞地形（玄武岩柱、石冢、海蚀柱等）
type Obstacle struct {
	Key    string
	Pos    geom.Vec2
	Radius float64
}

type errMissingKey string

func (e errMissingKey) Error() string { return "missing key field " + string(e) }
