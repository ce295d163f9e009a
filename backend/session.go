package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/npcagent/internal/tlsutil"
	"github.com/BaSui01/npcagent/types"
	"github.com/BaSui01/npcagent/world"
)

// Config 会话配置
type Config struct {
	URI              string        // 后端地址，例如 ws://localhost:3000
	Module           string        // 数据库模块名
	SendQueueSize    int           // 发送队列容量，满时 Call 立即返回 SEND_QUEUE_FULL
	HandshakeTimeout time.Duration // 拨号到收到 IdentityToken 的最长时间
	WriteTimeout     time.Duration // 单条消息写超时
	ReadLimit        int64         // 单条消息最大字节数（初始订阅可能很大）
	HTTPClient       *http.Client  // 可选，用于 TLS 配置
}

// DefaultConfig 返回默认会话配置
func DefaultConfig() Config {
	return Config{
		URI:              "ws://localhost:3000",
		Module:           "broth-bullets-local",
		SendQueueSize:    256,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReadLimit:        64 << 20,
	}
}

// ReducerResult 自己发起的 reducer 调用的结果
type ReducerResult struct {
	Reducer string
	OK      bool
	Message string
}

// DialerOption 拨号器选项
type DialerOption func(*Dialer)

// WithReducerResultHook 注册 reducer 结果回调（在会话读 goroutine 中调用）
func WithReducerResultHook(fn func(ReducerResult)) DialerOption {
	return func(d *Dialer) { d.onResult = fn }
}

// WithRowErrorHook 注册行解析失败回调
func WithRowErrorHook(fn func(world.RowError)) DialerOption {
	return func(d *Dialer) { d.onRowError = fn }
}

// Dialer 会话工厂
type Dialer struct {
	cfg        Config
	logger     *zap.Logger
	onResult   func(ReducerResult)
	onRowError func(world.RowError)
}

// NewDialer 创建拨号器
func NewDialer(cfg Config, logger *zap.Logger, opts ...DialerOption) *Dialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = def.SendQueueSize
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = tlsutil.BackendDialClient()
	}
	d := &Dialer{cfg: cfg, logger: logger.With(zap.String("component", "backend"))}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SubscribeURL 构造订阅端点
func (d *Dialer) SubscribeURL() (string, error) {
	u, err := url.Parse(strings.TrimRight(d.cfg.URI, "/"))
	if err != nil {
		return "", fmt.Errorf("parse backend uri: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported backend scheme %q", u.Scheme)
	}
	u.Path = u.Path + "/v1/database/" + url.PathEscape(d.cfg.Module) + "/subscribe"
	return u.String(), nil
}

// Dial 建立会话并等待 IdentityToken。token 为空时后端分配新身份。
func (d *Dialer) Dial(ctx context.Context, token string) (*Session, error) {
	target, err := d.SubscribeURL()
	if err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, "backend uri").WithCause(err)
	}

	hsCtx, cancel := context.WithTimeout(ctx, d.cfg.HandshakeTimeout)
	defer cancel()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.Dial(hsCtx, target, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
		HTTPHeader:   header,
		HTTPClient:   d.cfg.HTTPClient,
	})
	if err != nil {
		return nil, types.NewError(types.ErrNotConnected, "dial backend").WithCause(err).WithRetryable(true)
	}
	conn.SetReadLimit(d.cfg.ReadLimit)

	s := newSession(conn, d)
	go s.readLoop()
	go s.writeLoop()

	select {
	case <-s.ready:
		return s, nil
	case <-s.done:
		return nil, types.NewError(types.ErrNotConnected, "connection closed during handshake").WithCause(s.Err()).WithRetryable(true)
	case <-hsCtx.Done():
		s.fail(hsCtx.Err())
		return nil, types.NewError(types.ErrNotConnected, "handshake timeout").WithCause(hsCtx.Err()).WithRetryable(true)
	}
}

// ErrSessionClosed 会话被主动关闭
var ErrSessionClosed = errors.New("session closed")

// Session 单连接会话。读 goroutine 写入 cache，写 goroutine 消费发送队列。
type Session struct {
	conn   *websocket.Conn
	cache  *world.Cache
	logger *zap.Logger
	cfg    Config

	onResult   func(ReducerResult)
	onRowError func(world.RowError)
	rowLog     rate.Sometimes

	ctx    context.Context
	cancel context.CancelFunc
	sendCh chan []byte
	nextID atomic.Uint32
	synced atomic.Bool

	mu       sync.RWMutex
	identity world.Identity
	token    string

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once
	err       error
}

func newSession(conn *websocket.Conn, d *Dialer) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		conn:       conn,
		cache:      world.NewCache(),
		logger:     d.logger,
		cfg:        d.cfg,
		onResult:   d.onResult,
		onRowError: d.onRowError,
		rowLog:     rate.Sometimes{Interval: 10 * time.Second},
		ctx:        ctx,
		cancel:     cancel,
		sendCh:     make(chan []byte, d.cfg.SendQueueSize),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Identity 返回后端分配的身份
func (s *Session) Identity() world.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Token 返回最新的身份令牌
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// View 返回订阅缓存的只读视图
func (s *Session) View() world.View { return s.cache }

// Synced reports whether the initial subscription has been applied.
func (s *Session) Synced() bool { return s.synced.Load() }

// Done 在会话结束时关闭
func (s *Session) Done() <-chan struct{} { return s.done }

// Err 返回会话结束原因
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Call 将 reducer 调用放入发送队列，不等待结果。
func (s *Session) Call(reducer string, args ...any) error {
	select {
	case <-s.done:
		return types.NewError(types.ErrNotConnected, "call "+reducer).WithCause(s.err)
	default:
	}
	b, err := EncodeReducerCall(reducer, s.nextID.Add(1), args...)
	if err != nil {
		return types.NewError(types.ErrInternalError, "encode "+reducer).WithCause(err)
	}
	return s.enqueue(reducer, b)
}

// Subscribe 订阅给定表
func (s *Session) Subscribe(tables []string) error {
	b, err := EncodeSubscribe(tables, s.nextID.Add(1))
	if err != nil {
		return types.NewError(types.ErrInternalError, "encode subscribe").WithCause(err)
	}
	return s.enqueue("subscribe", b)
}

func (s *Session) enqueue(what string, b []byte) error {
	select {
	case <-s.done:
		return types.NewError(types.ErrNotConnected, what).WithCause(s.err)
	case s.sendCh <- b:
		return nil
	default:
		return types.NewError(types.ErrSendQueueFull, what).WithRetryable(true)
	}
}

// Close 正常关闭会话；重复调用安全
func (s *Session) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		s.err = ErrSessionClosed
		close(s.done)
		s.cancel()
		closeErr = s.conn.Close(websocket.StatusNormalClosure, "npc disconnect")
	})
	return closeErr
}

func (s *Session) fail(err error) {
	s.closeOnce.Do(func() {
		s.err = err
		close(s.done)
		s.cancel()
		_ = s.conn.CloseNow()
		s.logger.Warn("backend session ended", zap.Error(err))
	})
}

func (s *Session) readLoop() {
	for {
		typ, data, err := s.conn.Read(s.ctx)
		if err != nil {
			s.fail(fmt.Errorf("read: %w", err))
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		s.handle(data)
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case b := <-s.sendCh:
			wctx, cancel := context.WithTimeout(s.ctx, s.cfg.WriteTimeout)
			err := s.conn.Write(wctx, websocket.MessageText, b)
			cancel()
			if err != nil {
				s.fail(fmt.Errorf("write: %w", err))
				return
			}
		}
	}
}

func (s *Session) handle(data []byte) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Debug("undecodable server message", zap.Error(err), zap.Int("bytes", len(data)))
		return
	}

	switch {
	case msg.IdentityToken != nil:
		s.mu.Lock()
		s.identity = msg.IdentityToken.Identity
		s.token = msg.IdentityToken.Token
		s.mu.Unlock()
		s.readyOnce.Do(func() { close(s.ready) })

	case msg.InitialSubscription != nil:
		s.apply(msg.InitialSubscription.DatabaseUpdate)
		s.synced.Store(true)
		s.logger.Debug("initial subscription applied",
			zap.Int("tables", len(msg.InitialSubscription.DatabaseUpdate.Tables)))

	case msg.TransactionUpdate != nil:
		s.handleTransaction(msg.TransactionUpdate)
	}
}

func (s *Session) handleTransaction(tx *TransactionUpdate) {
	if tx.Status.Committed != nil {
		s.apply(*tx.Status.Committed)
	}

	mine := tx.CallerIdentity != "" && tx.CallerIdentity == s.Identity()
	if !mine || tx.ReducerCall.ReducerName == "" {
		return
	}

	res := ReducerResult{Reducer: tx.ReducerCall.ReducerName, OK: true}
	switch {
	case tx.Status.Failed != nil:
		res.OK = false
		res.Message = *tx.Status.Failed
	case len(tx.Status.OutOfEnergy) > 0:
		res.OK = false
		res.Message = "out of energy"
	}
	if !res.OK {
		s.logger.Info("reducer rejected",
			zap.String("reducer", res.Reducer),
			zap.String("reason", res.Message))
	}
	if s.onResult != nil {
		s.onResult(res)
	}
}

func (s *Session) apply(db DatabaseUpdate) {
	for _, t := range db.Tables {
		for _, u := range t.Updates {
			errs := s.cache.Apply(t.TableName, rowsJSON(u.Deletes), rowsJSON(u.Inserts))
			for _, e := range errs {
				if s.onRowError != nil {
					s.onRowError(e)
				}
				s.rowLog.Do(func() {
					s.logger.Debug("skipped malformed row", zap.Error(e))
				})
			}
		}
	}
}
