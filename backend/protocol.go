package backend

import (
	"bytes"
	"encoding/json"

	"github.com/BaSui01/npcagent/world"
)

// Subprotocol WebSocket 子协议
const Subprotocol = "v1.json.spacetimedb"

// =============================================================================
// 📥 服务端消息
// =============================================================================

// ServerMessage 服务端消息（单键标签联合）
type ServerMessage struct {
	IdentityToken       *IdentityToken       `json:"IdentityToken,omitempty"`
	InitialSubscription *InitialSubscription `json:"InitialSubscription,omitempty"`
	TransactionUpdate   *TransactionUpdate   `json:"TransactionUpdate,omitempty"`
}

// IdentityToken 连接后下发的身份与令牌
type IdentityToken struct {
	Identity     world.Identity  `json:"identity"`
	Token        string          `json:"token"`
	ConnectionID json.RawMessage `json:"connection_id,omitempty"`
}

// DatabaseUpdate 多表更新
type DatabaseUpdate struct {
	Tables []TableUpdate `json:"tables"`
}

// TableUpdate 单表更新
type TableUpdate struct {
	TableID   uint32        `json:"table_id"`
	TableName string        `json:"table_name"`
	Updates   []QueryUpdate `json:"updates"`
}

// QueryUpdate 行的删除与插入
type QueryUpdate struct {
	Deletes []json.RawMessage `json:"deletes"`
	Inserts []json.RawMessage `json:"inserts"`
}

// InitialSubscription 订阅后的全量数据
type InitialSubscription struct {
	DatabaseUpdate DatabaseUpdate `json:"database_update"`
	RequestID      uint32         `json:"request_id"`
}

// TransactionUpdate 一次事务的结果
type TransactionUpdate struct {
	Status         UpdateStatus    `json:"status"`
	CallerIdentity world.Identity  `json:"caller_identity"`
	ReducerCall    ReducerCallInfo `json:"reducer_call"`
}

// UpdateStatus 事务状态：Committed 携带表更新，Failed 携带拒绝原因
type UpdateStatus struct {
	Committed   *DatabaseUpdate `json:"Committed,omitempty"`
	Failed      *string         `json:"Failed,omitempty"`
	OutOfEnergy json.RawMessage `json:"OutOfEnergy,omitempty"`
}

// ReducerCallInfo 触发事务的 reducer 调用
type ReducerCallInfo struct {
	ReducerName string `json:"reducer_name"`
	RequestID   uint32 `json:"request_id"`
}

// =============================================================================
// 📤 客户端消息
// =============================================================================

// ClientMessage 客户端消息（单键标签联合）
type ClientMessage struct {
	Subscribe   *Subscribe   `json:"Subscribe,omitempty"`
	CallReducer *CallReducer `json:"CallReducer,omitempty"`
}

// Subscribe 订阅查询
type Subscribe struct {
	QueryStrings []string `json:"query_strings"`
	RequestID    uint32   `json:"request_id"`
}

// CallReducer reducer 调用；Args 为 JSON 数组字符串
type CallReducer struct {
	Reducer   string `json:"reducer"`
	Args      string `json:"args"`
	RequestID uint32 `json:"request_id"`
	Flags     uint8  `json:"flags"`
}

// EncodeReducerCall 编码 CallReducer 消息
func EncodeReducerCall(reducer string, requestID uint32, args ...any) ([]byte, error) {
	if args == nil {
		args = []any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ClientMessage{CallReducer: &CallReducer{
		Reducer:   reducer,
		Args:      string(encoded),
		RequestID: requestID,
	}})
}

// EncodeSubscribe 编码 Subscribe 消息（每张表一条 SELECT *）
func EncodeSubscribe(tables []string, requestID uint32) ([]byte, error) {
	queries := make([]string, 0, len(tables))
	for _, t := range tables {
		queries = append(queries, "SELECT * FROM "+t)
	}
	return json.Marshal(ClientMessage{Subscribe: &Subscribe{QueryStrings: queries, RequestID: requestID}})
}

// rowJSON 行可能以 JSON 字符串形式嵌套编码，解开一层
func rowJSON(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return trimmed
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return trimmed
	}
	return json.RawMessage(s)
}

func rowsJSON(raws []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(raws))
	for i, r := range raws {
		out[i] = rowJSON(r)
	}
	return out
}
