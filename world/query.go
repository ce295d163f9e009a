package world

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/BaSui01/npcagent/internal/geom"
)

// =============================================================================
// 🔍 最近实体查询
// =============================================================================
// 所有查询都是线性扫描，只返回 maxDist 以内最近的匹配项。
// 距离相等时以遍历顺序为准。

// Match 查询结果
type Match[T any] struct {
	Row      T
	Distance float64
}

// Nearest 在 r 中查找距离 from 最近、满足 keep 的行
func Nearest[K comparable, T any](r Reader[K, T], from geom.Vec2, maxDist float64, pos func(T) geom.Vec2, keep func(T) bool) (Match[T], bool) {
	best := Match[T]{Distance: math.Inf(1)}
	found := false
	r.Each(func(row T) bool {
		if keep != nil && !keep(row) {
			return true
		}
		p := pos(row)
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			return true
		}
		d := geom.Distance(from, p)
		if d <= maxDist && d < best.Distance {
			best = Match[T]{Row: row, Distance: d}
			found = true
		}
		return true
	})
	return best, found
}

// Self 按身份查找自身行
func Self(v View, id Identity) (Player, bool) {
	if id == "" {
		return Player{}, false
	}
	return v.Players().Get(id)
}

// NearestHostile 最近的敌对动物
func NearestHostile(v View, from geom.Vec2, radius float64) (Match[WildAnimal], bool) {
	return Nearest(v.Animals(), from, radius, WildAnimal.Pos, WildAnimal.Hostile)
}

// NearestPrey 最近的可狩猎动物
func NearestPrey(v View, from geom.Vec2, radius float64) (Match[WildAnimal], bool) {
	return Nearest(v.Animals(), from, radius, WildAnimal.Pos, WildAnimal.Prey)
}

// NearestResource 最近的可采集植物；prefer 为 nil 时不过滤类型
func NearestResource(v View, from geom.Vec2, radius float64, prefer func(plantType string) bool) (Match[HarvestableResource], bool) {
	return Nearest(v.Resources(), from, radius, HarvestableResource.Pos, func(h HarvestableResource) bool {
		return h.Available() && (prefer == nil || prefer(h.PlantType.Tag))
	})
}

// NearestDroppedItem 最近的掉落物
func NearestDroppedItem(v View, from geom.Vec2, radius float64) (Match[DroppedItem], bool) {
	return Nearest(v.DroppedItems(), from, radius, DroppedItem.Pos, func(d DroppedItem) bool {
		return d.Quantity > 0
	})
}

// NearestTree 最近的可砍伐树木
func NearestTree(v View, from geom.Vec2, radius float64) (Match[Tree], bool) {
	return Nearest(v.Trees(), from, radius, Tree.Pos, Tree.Standing)
}

// NearestStone 最近的可开采石头
func NearestStone(v View, from geom.Vec2, radius float64) (Match[Stone], bool) {
	return Nearest(v.Stones(), from, radius, Stone.Pos, Stone.Intact)
}

// NearestBarrel 最近的完好木桶
func NearestBarrel(v View, from geom.Vec2, radius float64) (Match[Barrel], bool) {
	return Nearest(v.Barrels(), from, radius, Barrel.Pos, Barrel.Intact)
}

// NearestCorpse 最近的、仍有物品的尸体（排除自己的尸体）
func NearestCorpse(v View, from geom.Vec2, radius float64, self Identity) (Match[PlayerCorpse], bool) {
	return Nearest(v.Corpses(), from, radius, PlayerCorpse.Pos, func(c PlayerCorpse) bool {
		return c.PlayerIdentity != self && c.HasItems()
	})
}

// NearestPlayer 最近的在线存活玩家（排除自己）
func NearestPlayer(v View, from geom.Vec2, radius float64, self Identity) (Match[Player], bool) {
	return Nearest(v.Players(), from, radius, Player.Pos, func(p Player) bool {
		return p.Identity != self && p.IsOnline && !p.IsDead
	})
}

// Hostiles 返回半径内所有敌对动物（用于快照）
func Hostiles(v View, from geom.Vec2, radius float64) []Match[WildAnimal] {
	var out []Match[WildAnimal]
	v.Animals().Each(func(a WildAnimal) bool {
		if !a.Hostile() {
			return true
		}
		if d := geom.Distance(from, a.Pos()); d <= radius {
			out = append(out, Match[WildAnimal]{Row: a, Distance: d})
		}
		return true
	})
	return out
}

// =============================================================================
// 🎒 背包与装备
// =============================================================================

// OwnedItem 物品实例及其定义
type OwnedItem struct {
	Item InventoryItem
	Def  ItemDefinition
}

// Inventory 返回 owner 随身携带的物品（定义缺失的物品被跳过）
func Inventory(v View, owner Identity) []OwnedItem {
	defs := v.ItemDefinitions()
	var out []OwnedItem
	v.InventoryItems().Each(func(it InventoryItem) bool {
		if !it.Location.PlayerBound(owner) || it.Quantity == 0 {
			return true
		}
		def, ok := defs.Get(it.ItemDefID)
		if !ok {
			return true
		}
		out = append(out, OwnedItem{Item: it, Def: def})
		return true
	})
	return out
}

// FindItem 返回第一个满足条件的随身物品
func FindItem(v View, owner Identity, keep func(OwnedItem) bool) (OwnedItem, bool) {
	for _, it := range Inventory(v, owner) {
		if keep(it) {
			return it, true
		}
	}
	return OwnedItem{}, false
}

// Equipped 返回 owner 当前手持物品的定义
func Equipped(v View, owner Identity) (ActiveEquipment, ItemDefinition, bool) {
	eq, ok := v.Equipment().Get(owner)
	if !ok {
		return ActiveEquipment{}, ItemDefinition{}, false
	}
	defID, ok := eq.EquippedItemDefID.Get()
	if !ok {
		return eq, ItemDefinition{}, false
	}
	def, ok := v.ItemDefinitions().Get(defID)
	return eq, def, ok
}

// IsWeapon reports whether the definition can be used to attack.
func IsWeapon(d ItemDefinition) bool {
	return d.Category.Is(CategoryWeapon) || d.Category.Is(CategoryRangedWeapon) || d.Category.Is(CategoryTool)
}

// weaponRank 近战 > 远程 > 工具；同类按伤害
func weaponRank(it OwnedItem, ammo bool) float64 {
	dmg := 0.0
	if v, ok := it.Def.PrimaryTargetDamageMax.Get(); ok {
		dmg = float64(v)
	}
	switch {
	case it.Def.Category.Is(CategoryWeapon):
		return 3000 + dmg
	case it.Def.Category.Is(CategoryRangedWeapon):
		if ammo {
			return 2500 + dmg
		}
		return 2000 + dmg
	case it.Def.Category.Is(CategoryTool):
		return 1000 + dmg
	}
	return -1
}

// BestWeapon 选择最佳可装备武器：近战优先于（无弹药）远程，再优先于工具
func BestWeapon(v View, owner Identity) (OwnedItem, bool) {
	items := Inventory(v, owner)
	ammo := false
	for _, it := range items {
		if it.Def.Category.Is(CategoryAmmunition) {
			ammo = true
			break
		}
	}
	var (
		best     OwnedItem
		bestRank = -1.0
	)
	for _, it := range items {
		r := weaponRank(it, ammo)
		if r > bestRank {
			best, bestRank = it, r
		}
	}
	return best, bestRank >= 0
}

// Collidables 返回 center 附近 radius 内的碰撞体（树、石头、木桶、地形）
func Collidables(v View, center geom.Vec2, radius float64) []Obstacle {
	var out []Obstacle
	add := func(key string, p geom.Vec2, r float64) {
		if r > 0 && geom.Distance(center, p) <= radius+r {
			out = append(out, Obstacle{Key: key, Pos: p, Radius: r})
		}
	}
	v.Trees().Each(func(t Tree) bool {
		if t.Health > 0 {
			add("tree", t.Pos(), TreeRadius)
		}
		return true
	})
	v.Stones().Each(func(s Stone) bool {
		if s.Health > 0 {
			add("stone", s.Pos(), StoneRadius)
		}
		return true
	})
	v.Barrels().Each(func(b Barrel) bool {
		if b.Intact() {
			add("barrel", b.Pos(), BarrelRadius)
		}
		return true
	})
	v.Obstacles().Each(func(o Obstacle) bool {
		add(o.Key, o.Pos, o.Radius)
		return true
	})
	return out
}

// Mentions 返回 id 大于 after、文本包含 name 且非自己发送的聊天消息
func Mentions(v View, name string, self Identity, after uint64) []ChatMessage {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}
	var out []ChatMessage
	v.Messages().Each(func(m ChatMessage) bool {
		if m.ID > after && m.Sender != self && strings.Contains(strings.ToLower(m.Text), needle) {
			out = append(out, m)
		}
		return true
	})
	return out
}

// RecentMessages 返回 id 最大的 n 条消息（按 id 升序）
func RecentMessages(v View, n int) []ChatMessage {
	if n <= 0 {
		return nil
	}
	var all []ChatMessage
	v.Messages().Each(func(m ChatMessage) bool {
		all = append(all, m)
		return true
	})
	slices.SortFunc(all, func(a, b ChatMessage) int { return cmp.Compare(a.ID, b.ID) })
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all
}
