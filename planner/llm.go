package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/npcagent/internal/tlsutil"
	"github.com/BaSui01/npcagent/types"
)

// LLMConfig OpenAI 兼容接口配置
type LLMConfig struct {
	BaseURL      string // 例如 https://api.deepseek.com
	EndpointPath string // 默认 /v1/chat/completions
	APIKey       string
	Model        string
	Temperature  float32
	MaxTokens    int           // 默认 600
	Timeout      time.Duration // 默认 30s
	JSONMode     bool          // 发送 response_format=json_object
}

// chatMessage OpenAI 兼容消息
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatRequest OpenAI 兼容请求
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float32         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// chatResponse OpenAI 兼容响应（只取需要的字段）
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		FinishReason string      `json:"finish_reason"`
		Message      chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
}

// LLMPlanner 直接使用大模型生成计划
type LLMPlanner struct {
	cfg    LLMConfig
	client *http.Client
	guard  *Guard
	logger *zap.Logger
	now    func() time.Time
}

// LLMOption LLMPlanner 选项
type LLMOption func(*LLMPlanner)

// WithLLMHTTPClient 替换 HTTP 客户端
func WithLLMHTTPClient(c *http.Client) LLMOption {
	return func(p *LLMPlanner) { p.client = c }
}

// WithLLMGuard 设置保护层
func WithLLMGuard(g *Guard) LLMOption {
	return func(p *LLMPlanner) { p.guard = g }
}

// NewLLMPlanner 创建 LLM 规划器
func NewLLMPlanner(cfg LLMConfig, logger *zap.Logger, opts ...LLMOption) *LLMPlanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 600
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	p := &LLMPlanner{
		cfg:    cfg,
		client: tlsutil.PlannerClient(cfg.Timeout, 0),
		logger: logger.With(zap.String("component", "planner"), zap.String("planner", "llm")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan 实现 agent.Planner
func (p *LLMPlanner) Plan(ctx context.Context, req types.PlanRequest) (*types.Plan, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	return p.guard.Do(ctx, "llm", req, func(ctx context.Context) (*types.Plan, error) {
		return p.do(ctx, req)
	})
}

func (p *LLMPlanner) do(ctx context.Context, req types.PlanRequest) (*types.Plan, error) {
	user, err := userPrompt(req)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "build prompt").WithCause(err)
	}
	body := chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user},
		},
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
	}
	if p.cfg.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "marshal chat request").WithCause(err)
	}
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + p.cfg.EndpointPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrInvalidConfig, "llm endpoint").WithCause(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrPlannerUnavailable, "llm request").
			WithCause(err).WithHTTPStatus(http.StatusBadGateway).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, mapHTTPError(resp.StatusCode, readErrorMessage(resp.Body))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, types.NewError(types.ErrPlannerBadResponse, "decode chat response").WithCause(err)
	}
	if len(cr.Choices) == 0 {
		return nil, types.NewError(types.ErrPlannerBadResponse, "chat response has no choices")
	}
	if cr.Usage != nil {
		p.logger.Debug("llm usage",
			zap.String("request_id", req.RequestID),
			zap.Int("prompt_tokens", cr.Usage.PromptTokens),
			zap.Int("completion_tokens", cr.Usage.CompletionTokens))
	}

	raw, err := ExtractPlan(cr.Choices[0].Message.Content)
	if err != nil {
		return nil, types.NewError(types.ErrPlannerBadResponse, "parse plan from reply").WithCause(err)
	}
	return Normalize(raw, p.now()), nil
}

// ExtractPlan 从模型回复中提取 JSON 计划。
// 接受裸对象、```json 代码块，以及 {"plan": {...}} 包装；{"plan": null} 表示无计划。
func ExtractPlan(reply string) (*types.Plan, error) {
	text := strings.TrimSpace(reply)
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			text = rest[:j]
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no json object in reply")
	}
	obj := []byte(text[start : end+1])

	var wrapped struct {
		Plan json.RawMessage `json:"plan"`
	}
	if err := json.Unmarshal(obj, &wrapped); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if wrapped.Plan != nil {
		if string(wrapped.Plan) == "null" {
			return nil, nil
		}
		obj = wrapped.Plan
	}

	var plan types.Plan
	if err := json.Unmarshal(obj, &plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &plan, nil
}

const systemPrompt = `You plan short-term goals for an NPC in a multiplayer survival game.
Reply with a single JSON object: {"goal": string, "steps": [{"action": string, "args": object}]}.
Allowed actions and args:
- move {"x": number, "y": number}
- attack {"target_id": number} (wild animal id)
- gather {"resource_id": number}
- craft {"recipe_id": number}
- equip {"item_instance_id": number}
- say {"text": string}
- flee {}
- eat {"item_instance_id": number} (optional)
- drink {}
- idle {"seconds": number}
Use at most 6 steps. Reply {"plan": null} when the NPC should keep doing what it does.`

// userPrompt 人设 + 快照
func userPrompt(req types.PlanRequest) (string, error) {
	snap, err := json.Marshal(req.Snapshot)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %s. %s\n", req.Character.Name, req.Character.Role, req.Character.Personality)
	if len(req.Character.Priorities) > 0 {
		fmt.Fprintf(&b, "Priorities: %s\n", strings.Join(req.Character.Priorities, ", "))
	}
	b.WriteString("World snapshot:\n")
	b.Write(snap)
	return b.String(), nil
}
