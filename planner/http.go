package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/npcagent/internal/tlsutil"
	"github.com/BaSui01/npcagent/types"
)

// HTTPConfig 规划服务 HTTP 客户端配置
type HTTPConfig struct {
	// URL 完整的规划端点，例如 http://localhost:8787/plan
	URL string
	// APIKey 可选，作为 Bearer 令牌发送
	APIKey string
	// Timeout HTTP 客户端超时，默认 15s
	Timeout time.Duration
}

// HTTPPlanner 通过 HTTP 调用外部规划服务
type HTTPPlanner struct {
	cfg    HTTPConfig
	client *http.Client
	guard  *Guard
	logger *zap.Logger
	now    func() time.Time
}

// HTTPOption HTTPPlanner 选项
type HTTPOption func(*HTTPPlanner)

// WithHTTPClient 替换 HTTP 客户端
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *HTTPPlanner) { p.client = c }
}

// WithGuard 设置保护层
func WithGuard(g *Guard) HTTPOption {
	return func(p *HTTPPlanner) { p.guard = g }
}

// NewHTTPPlanner 创建 HTTP 规划器
func NewHTTPPlanner(cfg HTTPConfig, logger *zap.Logger, opts ...HTTPOption) *HTTPPlanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	p := &HTTPPlanner{
		cfg:    cfg,
		client: tlsutil.PlannerClient(cfg.Timeout, 0),
		logger: logger.With(zap.String("component", "planner"), zap.String("planner", "http")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// planResponse 规划服务响应体
type planResponse struct {
	Plan  *types.Plan `json:"plan"`
	Error string      `json:"error,omitempty"`
}

// Plan 请求一个计划。返回 (nil, nil) 表示服务没有给出计划。
func (p *HTTPPlanner) Plan(ctx context.Context, req types.PlanRequest) (*types.Plan, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	return p.guard.Do(ctx, "http", req, func(ctx context.Context) (*types.Plan, error) {
		return p.do(ctx, req)
	})
}

func (p *HTTPPlanner) do(ctx context.Context, req types.PlanRequest) (*types.Plan, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "marshal plan request").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, "planner url").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", req.RequestID)
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrPlannerUnavailable, "planner request").
			WithCause(err).WithHTTPStatus(http.StatusBadGateway).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode >= 400 {
		return nil, mapHTTPError(resp.StatusCode, readErrorMessage(resp.Body))
	}

	var body planResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, types.NewError(types.ErrPlannerBadResponse, "decode plan response").
			WithCause(err).WithHTTPStatus(resp.StatusCode)
	}
	if body.Error != "" {
		return nil, types.NewError(types.ErrPlannerBadResponse, body.Error)
	}

	plan := Normalize(body.Plan, p.now())
	if body.Plan != nil && plan == nil {
		p.logger.Debug("planner returned no usable steps",
			zap.String("request_id", req.RequestID),
			zap.Int("raw_steps", len(body.Plan.Steps)))
	}
	return plan, nil
}

const maxResponseBytes = 1 << 20

// mapHTTPError 将 HTTP 状态码映射为带重试标记的 *types.Error
func mapHTTPError(status int, msg string) *types.Error {
	switch {
	case status == http.StatusTooManyRequests:
		return types.NewError(types.ErrRateLimited, msg).WithHTTPStatus(status).WithRetryable(true)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return types.NewError(types.ErrInvalidConfig, msg).WithHTTPStatus(status)
	case status >= 500:
		return types.NewError(types.ErrPlannerUnavailable, msg).WithHTTPStatus(status).WithRetryable(true)
	default:
		return types.NewError(types.ErrPlannerBadResponse, msg).WithHTTPStatus(status)
	}
}

// readErrorMessage 读取错误响应体：优先解析 {"error": ...}，否则回退到原始文本
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return "failed to read error response"
	}

	var withObject struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &withObject) == nil && withObject.Error.Message != "" {
		if withObject.Error.Type != "" {
			return fmt.Sprintf("%s (type: %s)", withObject.Error.Message, withObject.Error.Type)
		}
		return withObject.Error.Message
	}
	var withString struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &withString) == nil && withString.Error != "" {
		return withString.Error
	}
	return strings.TrimSpace(string(data))
}

func normalizeTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
