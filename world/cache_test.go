package world

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raws(rows ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(rows))
	for i, r := range rows {
		out[i] = json.RawMessage(r)
	}
	return out
}

func TestCache_ApplyPlayers(t *testing.T) {
	c := NewCache()

	errs := c.Apply(TablePlayer, nil, raws(
		`{"identity":{"__identity__":"0xABCDEF"},"username":"Mira","position_x":100,"position_y":200,"hunger":15}`,
		`{"identity":"0x0102","username":"Bob"}`,
		`{"username":"no identity"}`,
		`not json`,
	))

	require.Len(t, errs, 2)
	assert.Equal(t, TablePlayer, errs[0].Table)
	assert.Equal(t, 2, c.PlayerTable.Len())

	mira, ok := c.Players().Get("abcdef")
	require.True(t, ok)
	assert.Equal(t, "Mira", mira.Username)
	assert.Equal(t, 15.0, mira.Hunger)
	assert.Equal(t, 100.0, mira.Thirst, "missing stats default to full")
	assert.Equal(t, 100.0, mira.Health)

	c.Apply(TablePlayer, raws(`{"identity":"0x0102"}`), nil)
	_, ok = c.Players().Get("0102")
	assert.False(t, ok)
}

func TestCache_UpdateIsDeleteThenInsert(t *testing.T) {
	c := NewCache()
	c.Apply(TableTree, nil, raws(`{"id":1,"pos_x":10,"pos_y":10,"health":100,"resource_remaining":50}`))
	c.Apply(TableTree,
		raws(`{"id":1,"pos_x":10,"pos_y":10,"health":100,"resource_remaining":50}`),
		raws(`{"id":1,"pos_x":10,"pos_y":10,"health":40,"resource_remaining":20}`))

	tree, ok := c.Trees().Get(1)
	require.True(t, ok)
	assert.Equal(t, 40.0, tree.Health)
}

func TestCache_EnumAndOptionEncodings(t *testing.T) {
	c := NewCache()
	c.Apply(TableWildAnimal, nil, raws(
		`{"id":7,"species":{"TundraWolf":[]},"pos_x":1,"pos_y":2,"state":"Patrolling","health":80,"target_player_id":{"none":[]}}`,
		`{"id":8,"species":"Caribou","pos_x":1,"pos_y":2,"state":{"Chasing":{}},"health":50,"target_player_id":{"some":"0xaa"}}`,
	))

	wolf, ok := c.Animals().Get(7)
	require.True(t, ok)
	assert.Equal(t, "TundraWolf", wolf.Species.Tag)
	assert.False(t, wolf.TargetPlayerID.Valid)
	assert.True(t, wolf.Hostile())

	caribou, ok := c.Animals().Get(8)
	require.True(t, ok)
	assert.True(t, caribou.Hostile(), "chasing animals count as hostile")
	target, ok := caribou.TargetPlayerID.Get()
	assert.True(t, ok)
	assert.Equal(t, Identity("aa"), target)
}

func TestCache_InventoryLocationAndWater(t *testing.T) {
	c := NewCache()
	c.Apply(TableInventoryItem, nil, raws(
		`{"instance_id":1,"item_def_id":10,"quantity":1,"location":{"Hotbar":{"owner_id":"0xaa","slot_index":2}},"item_data":{"some":"{\"water_liters\":1.5}"}}`,
		`{"instance_id":2,"item_def_id":11,"quantity":3,"location":{"Container":{"container_id":9,"slot_index":0}},"item_data":null}`,
		`{"instance_id":3,"item_def_id":11,"quantity":3,"location":"Unknown"}`,
	))

	bottle, ok := c.InventoryItems().Get(1)
	require.True(t, ok)
	assert.True(t, bottle.Location.PlayerBound("aa"))
	assert.False(t, bottle.Location.PlayerBound("bb"))
	liters, ok := bottle.WaterLiters()
	assert.True(t, ok)
	assert.Equal(t, 1.5, liters)

	boxed, _ := c.InventoryItems().Get(2)
	assert.Equal(t, "Container", boxed.Location.Kind)
	assert.False(t, boxed.Location.PlayerBound(""))
	_, ok = boxed.WaterLiters()
	assert.False(t, ok)

	unknown, _ := c.InventoryItems().Get(3)
	assert.Equal(t, "Unknown", unknown.Location.Kind)
}

func TestCache_CorpseSlots(t *testing.T) {
	c := NewCache()
	c.Apply(TablePlayerCorpse, nil, raws(
		`{"id":4,"player_identity":"0xcc","username":"Old","pos_x":5,"pos_y":5,"health":100,
		  "slot_instance_id_0":null,"slot_instance_id_3":{"some":77},"slot_instance_id_34":88,"slot_instance_id_99":1}`,
	))

	corpse, ok := c.Corpses().Get(4)
	require.True(t, ok)
	assert.Equal(t, 3, corpse.NextSlot(0))
	assert.Equal(t, 34, corpse.NextSlot(4))
	assert.Equal(t, -1, corpse.NextSlot(35))
	assert.Equal(t, uint64(77), corpse.Slots[3].Value)
	assert.True(t, corpse.HasItems())
}

func TestCache_ObstaclesAndWorldState(t *testing.T) {
	c := NewCache()
	c.Apply("basalt_column", nil, raws(`{"id":3,"pos_x":50,"pos_y":60}`))
	c.Apply(TableWorldState, nil, raws(`{"id":1,"time_of_day":{"Night":[]},"current_weather":{"HeavyRain":[]},"rain_intensity":0.8}`))
	c.Apply("unknown_table", nil, raws(`garbage`))

	o, ok := c.Obstacles().Get("basalt_column:3")
	require.True(t, ok)
	assert.Equal(t, 35.0, o.Radius)

	ws, ok := c.WorldState()
	require.True(t, ok)
	assert.True(t, ws.Raining())
	assert.Equal(t, "Night", ws.TimeOfDay.Tag)

	assert.True(t, c.Known(TableBarrel))
	assert.False(t, c.Known("unknown_table"))
}

func TestSubscribedTables(t *testing.T) {
	tables := SubscribedTables()
	c := NewCache()
	for _, name := range tables {
		assert.True(t, c.Known(name), name)
	}
	assert.Contains(t, tables, TablePlayer)
	assert.Contains(t, tables, "sea_stack")
}

func TestWorldState_ClearIsNotRain(t *testing.T) {
	assert.False(t, WorldState{CurrentWeather: Enum{Tag: WeatherClear}}.Raining())
	assert.False(t, WorldState{}.Raining())
	assert.True(t, WorldState{CurrentWeather: Enum{Tag: WeatherLightRain}}.Raining())
}

func TestItemDefinition_WaterCapacity(t *testing.T) {
	assert.Equal(t, 2.0, ItemDefinition{Name: "Reed Water Bottle"}.WaterCapacity())
	assert.Equal(t, 5.0, ItemDefinition{Name: "Plastic Water Jug"}.WaterCapacity())
	assert.Zero(t, ItemDefinition{Name: "Stone Hatchet"}.WaterCapacity())
}

func TestInventoryItem_WaterLitersLegacyFormat(t *testing.T) {
	legacy := InventoryItem{ItemData: Some("2.0")}
	liters, ok := legacy.WaterLiters()
	assert.True(t, ok)
	assert.Equal(t, 2.0, liters)

	_, ok = InventoryItem{ItemData: Some("{}")}.WaterLiters()
	assert.False(t, ok)
}
