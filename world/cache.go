package world

import (
	"encoding/json"
	"fmt"

	"github.com/BaSui01/npcagent/internal/geom"
)

// 订阅表名
const (
	TablePlayer          = "player"
	TableWorldState      = "world_state"
	TableItemDefinition  = "item_definition"
	TableInventoryItem   = "inventory_item"
	TableActiveEquipment = "active_equipment"
	TableHarvestable     = "harvestable_resource"
	TableWildAnimal      = "wild_animal"
	TableMessage         = "message"
	TableDroppedItem     = "dropped_item"
	TablePlayerCorpse    = "player_corpse"
	TableBarrel          = "barrel"
	TableTree            = "tree"
	TableStone           = "stone"
)

// ObstacleRadii 额外订阅的可碰撞地形表及其碰撞半径
var ObstacleRadii = map[string]float64{
	"basalt_column":      35,
	"cairn":              30,
	"sea_stack":          60,
	"rune_stone":         40,
	"wooden_storage_box": 18,
}

// 树、石头、木桶的碰撞半径
const (
	TreeRadius   = 24.0
	StoneRadius  = 40.0
	BarrelRadius = 25.0
)

// SubscribedTables 返回连接时需要订阅的全部表名
func SubscribedTables() []string {
	tables := []string{
		TablePlayer, TableWorldState, TableItemDefinition, TableInventoryItem,
		TableActiveEquipment, TableHarvestable, TableWildAnimal, TableMessage,
		TableDroppedItem, TablePlayerCorpse, TableBarrel, TableTree, TableStone,
	}
	for name := range ObstacleRadii {
		tables = append(tables, name)
	}
	return tables
}

// View 世界缓存的只读端口集合
type View interface {
	Players() Reader[Identity, Player]
	Animals() Reader[uint64, WildAnimal]
	Barrels() Reader[uint64, Barrel]
	Trees() Reader[uint64, Tree]
	Stones() Reader[uint64, Stone]
	Corpses() Reader[uint64, PlayerCorpse]
	DroppedItems() Reader[uint64, DroppedItem]
	Resources() Reader[uint64, HarvestableResource]
	ItemDefinitions() Reader[uint64, ItemDefinition]
	InventoryItems() Reader[uint64, InventoryItem]
	Equipment() Reader[Identity, ActiveEquipment]
	Messages() Reader[uint64, ChatMessage]
	Obstacles() Reader[string, Obstacle]
	WorldState() (WorldState, bool)
}

// Cache 单个 agent 的订阅缓存，实现 View。
type Cache struct {
	PlayerTable    *Table[Identity, Player]
	AnimalTable    *Table[uint64, WildAnimal]
	BarrelTable    *Table[uint64, Barrel]
	TreeTable      *Table[uint64, Tree]
	StoneTable     *Table[uint64, Stone]
	CorpseTable    *Table[uint64, PlayerCorpse]
	DroppedTable   *Table[uint64, DroppedItem]
	ResourceTable  *Table[uint64, HarvestableResource]
	ItemDefTable   *Table[uint64, ItemDefinition]
	InventoryTable *Table[uint64, InventoryItem]
	EquipmentTable *Table[Identity, ActiveEquipment]
	MessageTable   *Table[uint64, ChatMessage]
	ObstacleTable  *Table[string, Obstacle]
	WorldTable     *Table[uint64, WorldState]

	appliers map[string]applier
}

type applier struct {
	insert func(json.RawMessage) error
	delete func(json.RawMessage) error
}

// NewCache 创建空缓存
func NewCache() *Cache {
	c := &Cache{
		PlayerTable:    NewTable(func(p Player) Identity { return p.Identity }),
		AnimalTable:    NewTable(func(a WildAnimal) uint64 { return a.ID }),
		BarrelTable:    NewTable(func(b Barrel) uint64 { return b.ID }),
		TreeTable:      NewTable(func(t Tree) uint64 { return t.ID }),
		StoneTable:     NewTable(func(s Stone) uint64 { return s.ID }),
		CorpseTable:    NewTable(func(c PlayerCorpse) uint64 { return c.ID }),
		DroppedTable:   NewTable(func(d DroppedItem) uint64 { return d.ID }),
		ResourceTable:  NewTable(func(h HarvestableResource) uint64 { return h.ID }),
		ItemDefTable:   NewTable(func(d ItemDefinition) uint64 { return d.ID }),
		InventoryTable: NewTable(func(i InventoryItem) uint64 { return i.InstanceID }),
		EquipmentTable: NewTable(func(e ActiveEquipment) Identity { return e.PlayerIdentity }),
		MessageTable:   NewTable(func(m ChatMessage) uint64 { return m.ID }),
		ObstacleTable:  NewTable(func(o Obstacle) string { return o.Key }),
		WorldTable:     NewTable(func(w WorldState) uint64 { return w.ID }),
	}

	c.appliers = map[string]applier{
		TablePlayer:          {insert: putWith(c.PlayerTable, decodePlayer), delete: deleteWith(c.PlayerTable, decodePlayer)},
		TableWildAnimal:      rowApplier(c.AnimalTable),
		TableBarrel:          rowApplier(c.BarrelTable),
		TableTree:            rowApplier(c.TreeTable),
		TableStone:           rowApplier(c.StoneTable),
		TablePlayerCorpse:    rowApplier(c.CorpseTable),
		TableDroppedItem:     rowApplier(c.DroppedTable),
		TableHarvestable:     rowApplier(c.ResourceTable),
		TableItemDefinition:  rowApplier(c.ItemDefTable),
		TableInventoryItem:   rowApplier(c.InventoryTable),
		TableActiveEquipment: rowApplier(c.EquipmentTable),
		TableMessage:         rowApplier(c.MessageTable),
		TableWorldState:      rowApplier(c.WorldTable),
	}
	for name, radius := range ObstacleRadii {
		decode := obstacleDecoder(name, radius)
		c.appliers[name] = applier{insert: putWith(c.ObstacleTable, decode), delete: deleteWith(c.ObstacleTable, decode)}
	}
	return c
}

func decodeJSON[T any](raw json.RawMessage) (T, error) {
	var row T
	err := json.Unmarshal(raw, &row)
	return row, err
}

func rowApplier[K comparable, T any](t *Table[K, T]) applier {
	return applier{insert: putWith(t, decodeJSON[T]), delete: deleteWith(t, decodeJSON[T])}
}

func putWith[K comparable, T any](t *Table[K, T], decode func(json.RawMessage) (T, error)) func(json.RawMessage) error {
	return func(raw json.RawMessage) error {
		row, err := decode(raw)
		if err != nil {
			return err
		}
		t.Put(row)
		return nil
	}
}

func deleteWith[K comparable, T any](t *Table[K, T], decode func(json.RawMessage) (T, error)) func(json.RawMessage) error {
	return func(raw json.RawMessage) error {
		row, err := decode(raw)
		if err != nil {
			return err
		}
		t.Delete(row)
		return nil
	}
}

func obstacleDecoder(table string, radius float64) func(json.RawMessage) (Obstacle, error) {
	return func(raw json.RawMessage) (Obstacle, error) {
		var row struct {
			ID          json.Number `json:"id"`
			PosX        float64     `json:"pos_x"`
			PosY        float64     `json:"pos_y"`
			IsDestroyed bool        `json:"is_destroyed"`
		}
		if err := json.Unmarshal(raw, &row); err != nil {
			return Obstacle{}, err
		}
		if row.ID == "" {
			return Obstacle{}, errMissingKey("id")
		}
		r := radius
		if row.IsDestroyed {
			r = 0
		}
		return Obstacle{
			Key:    table + ":" + row.ID.String(),
			Pos:    geom.Vec2{X: row.PosX, Y: row.PosY},
			Radius: r,
		}, nil
	}
}

// RowError 单行解析失败
type RowError struct {
	Table string
	Index int
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("table %s row %d: %v", e.Table, e.Index, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Apply 应用一次表更新：先删除后插入。无法解析的行被跳过并在返回值中报告。
// 未知表名被忽略。
func (c *Cache) Apply(table string, deletes, inserts []json.RawMessage) []RowError {
	a, ok := c.appliers[table]
	if !ok {
		return nil
	}
	var errs []RowError
	for i, raw := range deletes {
		if err := a.delete(raw); err != nil {
			errs = append(errs, RowError{Table: table, Index: i, Err: err})
		}
	}
	for i, raw := range inserts {
		if err := a.insert(raw); err != nil {
			errs = append(errs, RowError{Table: table, Index: i, Err: err})
		}
	}
	return errs
}

// Known reports whether the table is tracked by the cache.
func (c *Cache) Known(table string) bool {
	_, ok := c.appliers[table]
	return ok
}

func (c *Cache) Players() Reader[Identity, Player]                { return c.PlayerTable }
func (c *Cache) Animals() Reader[uint64, WildAnimal]              { return c.AnimalTable }
func (c *Cache) Barrels() Reader[uint64, Barrel]                  { return c.BarrelTable }
func (c *Cache) Trees() Reader[uint64, Tree]                      { return c.TreeTable }
func (c *Cache) Stones() Reader[uint64, Stone]                    { return c.StoneTable }
func (c *Cache) Corpses() Reader[uint64, PlayerCorpse]            { return c.CorpseTable }
func (c *Cache) DroppedItems() Reader[uint64, DroppedItem]        { return c.DroppedTable }
func (c *Cache) Resources() Reader[uint64, HarvestableResource]   { return c.ResourceTable }
func (c *Cache) ItemDefinitions() Reader[uint64, ItemDefinition]  { return c.ItemDefTable }
func (c *Cache) InventoryItems() Reader[uint64, InventoryItem]    { return c.InventoryTable }
func (c *Cache) Equipment() Reader[Identity, ActiveEquipment]     { return c.EquipmentTable }
func (c *Cache) Messages() Reader[uint64, ChatMessage]            { return c.MessageTable }
func (c *Cache) Obstacles() Reader[string, Obstacle]              { return c.ObstacleTable }

// WorldState 返回任意一行世界状态（表中通常只有一行）
func (c *Cache) WorldState() (WorldState, bool) {
	var (
		ws    WorldState
		found bool
	)
	c.WorldTable.Each(func(w WorldState) bool {
		ws, found = w, true
		return false
	})
	return ws, found
}
