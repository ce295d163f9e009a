package agent

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BaSui01/npcagent/backend"
	"github.com/BaSui01/npcagent/internal/scheduler"
	"github.com/BaSui01/npcagent/tokenstore"
	"github.com/BaSui01/npcagent/types"
	"github.com/BaSui01/npcagent/world"
)

const selfID world.Identity = "aa"

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type recordedCall struct {
	Reducer string
	Args    []any
}

// fakeSession 记录 reducer 调用的会话，视图是真实的 world.Cache
type fakeSession struct {
	id    world.Identity
	token string
	cache *world.Cache

	mu      sync.Mutex
	calls   []recordedCall
	tables  []string
	callErr error
	closed  bool

	done chan struct{}
	once sync.Once
}

func newFakeSession() *fakeSession {
	return &fakeSession{id: selfID, token: "issued-token", cache: world.NewCache(), done: make(chan struct{})}
}

func (s *fakeSession) Identity() world.Identity { return s.id }
func (s *fakeSession) Token() string            { return s.token }
func (s *fakeSession) View() world.View         { return s.cache }
func (s *fakeSession) Done() <-chan struct{}    { return s.done }

func (s *fakeSession) Err() error {
	select {
	case <-s.done:
		return errors.New("connection lost")
	default:
		return nil
	}
}

func (s *fakeSession) Call(reducer string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, recordedCall{Reducer: reducer, Args: args})
	return s.callErr
}

func (s *fakeSession) Subscribe(tables []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = append(s.tables, tables...)
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.drop()
	return nil
}

// drop 模拟连接断开
func (s *fakeSession) drop() { s.once.Do(func() { close(s.done) }) }

func (s *fakeSession) Calls() []recordedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedCall(nil), s.calls...)
}

func (s *fakeSession) CallsTo(reducer string) []recordedCall {
	var out []recordedCall
	for _, c := range s.Calls() {
		if c.Reducer == reducer {
			out = append(out, c)
		}
	}
	return out
}

func (s *fakeSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// put 以后端行格式写入缓存
func (s *fakeSession) put(t *testing.T, table string, row map[string]any) {
	t.Helper()
	raw, err := json.Marshal(row)
	require.NoError(t, err)
	require.Empty(t, s.cache.Apply(table, nil, []json.RawMessage{raw}))
}

func (s *fakeSession) remove(t *testing.T, table string, row map[string]any) {
	t.Helper()
	raw, err := json.Marshal(row)
	require.NoError(t, err)
	require.Empty(t, s.cache.Apply(table, []json.RawMessage{raw}, nil))
}

// putSelf 写入自身行；mods 覆盖默认字段
func (s *fakeSession) putSelf(t *testing.T, mods map[string]any) {
	t.Helper()
	row := map[string]any{
		"identity": "0x" + string(selfID), "username": "Mira",
		"position_x": 1000.0, "position_y": 1000.0, "direction": "down",
		"health": 100.0, "hunger": 100.0, "thirst": 100.0, "warmth": 100.0, "stamina": 100.0,
		"is_online": true,
	}
	for k, v := range mods {
		row[k] = v
	}
	s.put(t, world.TablePlayer, row)
}

func (s *fakeSession) putItem(t *testing.T, instanceID, defID uint64, data any) {
	t.Helper()
	row := map[string]any{
		"instance_id": instanceID, "item_def_id": defID, "quantity": 1,
		"location": map[string]any{"Inventory": map[string]any{"owner_id": "0x" + string(selfID), "slot_index": instanceID % 24}},
		"item_data": data,
	}
	s.put(t, world.TableInventoryItem, row)
}

func (s *fakeSession) putDef(t *testing.T, id uint64, name, category string, extra map[string]any) {
	t.Helper()
	row := map[string]any{"id": id, "name": name, "category": category}
	for k, v := range extra {
		row[k] = v
	}
	s.put(t, world.TableItemDefinition, row)
}

func (s *fakeSession) equip(t *testing.T, instanceID, defID uint64) {
	t.Helper()
	s.put(t, world.TableActiveEquipment, map[string]any{
		"player_identity":           "0x" + string(selfID),
		"equipped_item_def_id":      defID,
		"equipped_item_instance_id": instanceID,
	})
}

// followMoves 把最后一次位置更新应用到自身行（模拟后端接受移动）
func (s *fakeSession) followMoves(t *testing.T) {
	t.Helper()
	moves := s.CallsTo(backend.ReducerUpdatePosition)
	if len(moves) == 0 {
		return
	}
	last := moves[len(moves)-1]
	self, ok := world.Self(s.cache, s.id)
	require.True(t, ok)
	s.putSelf(t, map[string]any{
		"position_x": last.Args[0], "position_y": last.Args[1], "direction": last.Args[4],
		"health": self.Health, "hunger": self.Hunger, "thirst": self.Thirst,
		"is_dead": self.IsDead, "is_on_water": self.IsOnWater,
	})
}

type testAgent struct {
	*Agent
	sess  *fakeSession
	clock *scheduler.ManualClock
}

func mira() types.Character {
	return types.Character{Name: "Mira", Role: types.RoleScout, Personality: "curious"}
}

// newTestAgent 已连接的 Agent（未启动循环）
func newTestAgent(t *testing.T, char types.Character, opts ...Option) *testAgent {
	t.Helper()
	sess := newFakeSession()
	clock := scheduler.NewManualClock(testStart)
	opts = append([]Option{WithClock(clock), WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	a := New(char, DefaultConfig(), DialerFunc(func(context.Context, string) (Session, error) {
		return sess, nil
	}), tokenstore.NewMemoryStore(), opts...)
	require.NoError(t, a.Connect(context.Background()))
	sess.Reset()
	t.Cleanup(a.Disconnect)
	return &testAgent{Agent: a, sess: sess, clock: clock}
}

// step 推进 100ms 并执行一次 tick
func (ta *testAgent) step() {
	ta.clock.Advance(ta.cfg.TickInterval())
	ta.runTick(ta.clock.Now())
}

func (ta *testAgent) steps(n int) {
	for i := 0; i < n; i++ {
		ta.step()
	}
}

// newTick 为直接测试动作构造 tick
func (ta *testAgent) newTick(t *testing.T) *tick {
	t.Helper()
	self, ok := world.Self(ta.sess.cache, selfID)
	require.True(t, ok, "self row must be present")
	return &tick{now: ta.clock.Now(), id: selfID, self: self, view: ta.sess.cache, sess: ta.sess, bb: ta.bb}
}

func wolfRow(id uint64, x, y float64) map[string]any {
	return map[string]any{"id": id, "species": "TundraWolf", "pos_x": x, "pos_y": y, "state": "Patrolling", "health": 100.0}
}

func caribouRow(id uint64, x, y float64) map[string]any {
	return map[string]any{"id": id, "species": "Caribou", "pos_x": x, "pos_y": y, "state": "Grazing", "health": 60.0}
}
