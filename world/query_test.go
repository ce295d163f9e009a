package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/npcagent/internal/geom"
)

const me = Identity("aa")

func carried(id, def uint64, qty uint32) InventoryItem {
	return InventoryItem{InstanceID: id, ItemDefID: def, Quantity: qty, Location: ItemLocation{Kind: "Inventory", OwnerID: me}}
}

func TestNearest_PicksClosestWithinRadius(t *testing.T) {
	c := NewCache()
	c.AnimalTable.Put(WildAnimal{ID: 1, Species: Enum{Tag: "TundraWolf"}, PosX: 300, PosY: 0, Health: 100})
	c.AnimalTable.Put(WildAnimal{ID: 2, Species: Enum{Tag: "TundraWolf"}, PosX: 100, PosY: 0, Health: 100})
	c.AnimalTable.Put(WildAnimal{ID: 3, Species: Enum{Tag: "TundraWolf"}, PosX: 50, PosY: 0, Health: 0})
	c.AnimalTable.Put(WildAnimal{ID: 4, Species: Enum{Tag: "Caribou"}, PosX: 10, PosY: 0, Health: 100})

	m, ok := NearestHostile(c, geom.Vec2{}, 350)
	require.True(t, ok)
	assert.Equal(t, uint64(2), m.Row.ID)
	assert.InDelta(t, 100, m.Distance, 1e-9)

	_, ok = NearestHostile(c, geom.Vec2{}, 99)
	assert.False(t, ok)

	prey, ok := NearestPrey(c, geom.Vec2{}, 500)
	require.True(t, ok)
	assert.Equal(t, uint64(4), prey.Row.ID)

	assert.Len(t, Hostiles(c, geom.Vec2{}, 350), 2)
}

func TestNearest_EmptyAndNaN(t *testing.T) {
	c := NewCache()
	_, ok := NearestTree(c, geom.Vec2{}, 1e9)
	assert.False(t, ok)

	c.TreeTable.Put(Tree{ID: 1, PosX: nanValue(), PosY: 0, Health: 10, ResourceRemaining: 1})
	_, ok = NearestTree(c, geom.Vec2{}, 1e9)
	assert.False(t, ok, "rows with NaN positions are skipped")
}

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}

func TestNearest_Filters(t *testing.T) {
	c := NewCache()
	c.TreeTable.Put(Tree{ID: 1, PosX: 10, Health: 0, ResourceRemaining: 10})
	c.TreeTable.Put(Tree{ID: 2, PosX: 20, Health: 50, ResourceRemaining: 10})
	c.StoneTable.Put(Stone{ID: 3, PosX: 10, Health: 50, ResourceRemaining: 0})
	c.BarrelTable.Put(Barrel{ID: 4, PosX: 5, Health: 0})
	c.BarrelTable.Put(Barrel{ID: 5, PosX: 30, Health: 20})
	c.ResourceTable.Put(HarvestableResource{ID: 6, PlantType: Enum{Tag: "Hemp"}, PosX: 5, RespawnAt: Some(Timestamp(1))})
	c.ResourceTable.Put(HarvestableResource{ID: 7, PlantType: Enum{Tag: "Hemp"}, PosX: 50})
	c.ResourceTable.Put(HarvestableResource{ID: 8, PlantType: Enum{Tag: "Mushroom"}, PosX: 40})
	c.DroppedTable.Put(DroppedItem{ID: 9, Quantity: 0, PosX: 1})
	c.CorpseTable.Put(PlayerCorpse{ID: 10, PlayerIdentity: me, PosX: 1, Slots: [CorpseSlots]Opt[uint64]{0: Some[uint64](1)}})
	c.CorpseTable.Put(PlayerCorpse{ID: 11, PlayerIdentity: "bb", PosX: 2})
	c.CorpseTable.Put(PlayerCorpse{ID: 12, PlayerIdentity: "bb", PosX: 3, Slots: [CorpseSlots]Opt[uint64]{5: Some[uint64](1)}})

	tree, ok := NearestTree(c, geom.Vec2{}, 100)
	require.True(t, ok)
	assert.Equal(t, uint64(2), tree.Row.ID)

	_, ok = NearestStone(c, geom.Vec2{}, 100)
	assert.False(t, ok)

	barrel, ok := NearestBarrel(c, geom.Vec2{}, 100)
	require.True(t, ok)
	assert.Equal(t, uint64(5), barrel.Row.ID)

	res, ok := NearestResource(c, geom.Vec2{}, 100, nil)
	require.True(t, ok)
	assert.Equal(t, uint64(8), res.Row.ID)

	res, ok = NearestResource(c, geom.Vec2{}, 100, func(p string) bool { return p == "Hemp" })
	require.True(t, ok)
	assert.Equal(t, uint64(7), res.Row.ID)

	_, ok = NearestDroppedItem(c, geom.Vec2{}, 100)
	assert.False(t, ok)

	corpse, ok := NearestCorpse(c, geom.Vec2{}, 100, me)
	require.True(t, ok)
	assert.Equal(t, uint64(12), corpse.Row.ID)
}

func TestNearestPlayer_ExcludesSelfAndDead(t *testing.T) {
	c := NewCache()
	c.PlayerTable.Put(Player{Identity: me, IsOnline: true})
	c.PlayerTable.Put(Player{Identity: "bb", IsOnline: true, IsDead: true, PositionX: 1})
	c.PlayerTable.Put(Player{Identity: "cc", IsOnline: true, PositionX: 50})

	m, ok := NearestPlayer(c, geom.Vec2{}, 100, me)
	require.True(t, ok)
	assert.Equal(t, Identity("cc"), m.Row.Identity)

	self, ok := Self(c, me)
	assert.True(t, ok)
	assert.Equal(t, me, self.Identity)
	_, ok = Self(c, "")
	assert.False(t, ok)
}

func TestInventoryAndBestWeapon(t *testing.T) {
	c := NewCache()
	c.ItemDefTable.Put(ItemDefinition{ID: 1, Name: "Stone Hatchet", Category: Enum{Tag: CategoryTool}})
	c.ItemDefTable.Put(ItemDefinition{ID: 2, Name: "Hunting Bow", Category: Enum{Tag: CategoryRangedWeapon}})
	c.ItemDefTable.Put(ItemDefinition{ID: 3, Name: "Stone Spear", Category: Enum{Tag: CategoryWeapon}})
	c.ItemDefTable.Put(ItemDefinition{ID: 4, Name: "Cooked Mushroom", Category: Enum{Tag: CategoryConsumable}, ConsumableHungerSatiated: Some(10.0)})

	c.InventoryTable.Put(carried(100, 1, 1))
	c.InventoryTable.Put(carried(101, 2, 1))
	c.InventoryTable.Put(carried(103, 4, 2))
	c.InventoryTable.Put(InventoryItem{InstanceID: 104, ItemDefID: 3, Quantity: 1, Location: ItemLocation{Kind: "Inventory", OwnerID: "bb"}})
	c.InventoryTable.Put(carried(105, 999, 1))

	items := Inventory(c, me)
	assert.Len(t, items, 3, "foreign and undefined items are skipped")

	best, ok := BestWeapon(c, me)
	require.True(t, ok)
	assert.Equal(t, uint64(101), best.Item.InstanceID, "ranged beats tool")

	c.InventoryTable.Put(carried(106, 3, 1))
	best, _ = BestWeapon(c, me)
	assert.Equal(t, uint64(106), best.Item.InstanceID, "melee beats ranged")

	food, ok := FindItem(c, me, func(it OwnedItem) bool { return it.Def.Food() })
	require.True(t, ok)
	assert.Equal(t, uint64(103), food.Item.InstanceID)
}

func TestBestWeapon_None(t *testing.T) {
	c := NewCache()
	c.ItemDefTable.Put(ItemDefinition{ID: 4, Name: "Rope", Category: Enum{Tag: CategoryMaterial}})
	c.InventoryTable.Put(carried(1, 4, 1))
	_, ok := BestWeapon(c, me)
	assert.False(t, ok)
}

func TestEquipped(t *testing.T) {
	c := NewCache()
	_, _, ok := Equipped(c, me)
	assert.False(t, ok)

	c.EquipmentTable.Put(ActiveEquipment{PlayerIdentity: me})
	_, _, ok = Equipped(c, me)
	assert.False(t, ok, "empty hands")

	c.ItemDefTable.Put(ItemDefinition{ID: 3, Name: "Stone Spear", Category: Enum{Tag: CategoryWeapon}})
	c.EquipmentTable.Put(ActiveEquipment{PlayerIdentity: me, EquippedItemDefID: Some[uint64](3)})
	_, def, ok := Equipped(c, me)
	require.True(t, ok)
	assert.True(t, IsWeapon(def))
}

func TestCollidables(t *testing.T) {
	c := NewCache()
	c.TreeTable.Put(Tree{ID: 1, PosX: 50, Health: 10})
	c.StoneTable.Put(Stone{ID: 1, PosX: 1000, Health: 10})
	c.BarrelTable.Put(Barrel{ID: 1, PosX: 70, Health: 0})
	c.ObstacleTable.Put(Obstacle{Key: "cairn:1", Pos: geom.Vec2{X: 0, Y: 80}, Radius: 30})

	obs := Collidables(c, geom.Vec2{}, 60)
	require.Len(t, obs, 2)
}

func TestMentionsAndRecent(t *testing.T) {
	c := NewCache()
	c.MessageTable.Put(ChatMessage{ID: 1, Sender: "bb", Text: "hey MIRA come here"})
	c.MessageTable.Put(ChatMessage{ID: 2, Sender: me, Text: "mira here"})
	c.MessageTable.Put(ChatMessage{ID: 3, Sender: "cc", Text: "nothing"})
	c.MessageTable.Put(ChatMessage{ID: 4, Sender: "cc", Text: "mira?"})

	got := Mentions(c, "Mira", me, 1)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(4), got[0].ID)
	assert.Nil(t, Mentions(c, "  ", me, 0))

	recent := RecentMessages(c, 2)
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(3), recent[0].ID)
	assert.Equal(t, uint64(4), recent[1].ID)
}
