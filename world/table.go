package world

import "sync"

// Reader 单表只读端口
type Reader[K comparable, T any] interface {
	Get(key K) (T, bool)
	// Each 遍历所有行，fn 返回 false 时停止。遍历期间持有读锁，fn 不得写回本表。
	Each(fn func(T) bool)
	Len() int
}

// Table 按主键索引的行集合，读写由 RWMutex 保护。
// 写入方是后端会话的读 goroutine，读取方是 agent 的循环 goroutine。
type Table[K comparable, T any] struct {
	mu   sync.RWMutex
	rows map[K]T
	key  func(T) K
}

// NewTable 创建表
func NewTable[K comparable, T any](key func(T) K) *Table[K, T] {
	return &Table[K, T]{rows: make(map[K]T), key: key}
}

// Put 插入或覆盖一行
func (t *Table[K, T]) Put(row T) {
	k := t.key(row)
	t.mu.Lock()
	t.rows[k] = row
	t.mu.Unlock()
}

// Delete 按行的主键删除
func (t *Table[K, T]) Delete(row T) {
	k := t.key(row)
	t.mu.Lock()
	delete(t.rows, k)
	t.mu.Unlock()
}

// Clear 清空
func (t *Table[K, T]) Clear() {
	t.mu.Lock()
	t.rows = make(map[K]T)
	t.mu.Unlock()
}

// Get 实现 Reader.Get
func (t *Table[K, T]) Get(key K) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[key]
	return row, ok
}

// Each 实现 Reader.Each
func (t *Table[K, T]) Each(fn func(T) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, row := range t.rows {
		if !fn(row) {
			return
		}
	}
}

// Len 实现 Reader.Len
func (t *Table[K, T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
