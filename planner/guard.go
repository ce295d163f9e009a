package planner

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/BaSui01/npcagent/internal/circuitbreaker"
	"github.com/BaSui01/npcagent/types"
)

const tracerName = "github.com/BaSui01/npcagent/planner"

// 规划调用结果标签
const (
	OutcomeOK          = "ok"
	OutcomeNoPlan      = "no_plan"
	OutcomeError       = "error"
	OutcomeCircuitOpen = "circuit_open"
	OutcomeRateLimited = "rate_limited"
)

// MaxSteps 单个计划保留的最大步骤数
const MaxSteps = 12

// Observer 接收规划调用的统计
type Observer interface {
	ObservePlannerCall(kind, outcome string, d time.Duration)
}

// Guard 规划调用的公共保护层，可在多个规划器之间共享。
type Guard struct {
	limiter  *rate.Limiter
	breaker  *circuitbreaker.Breaker
	observer Observer
	tracer   trace.Tracer
}

// NewGuard 创建保护层。limiter/breaker/observer 均可为 nil。
func NewGuard(limiter *rate.Limiter, breaker *circuitbreaker.Breaker, observer Observer) *Guard {
	return &Guard{
		limiter:  limiter,
		breaker:  breaker,
		observer: observer,
		tracer:   otel.Tracer(tracerName),
	}
}

// Do 在速率限制、熔断与 span 下执行 fn。
func (g *Guard) Do(ctx context.Context, kind string, req types.PlanRequest, fn func(ctx context.Context) (*types.Plan, error)) (*types.Plan, error) {
	if g == nil {
		g = NewGuard(nil, nil, nil)
	}
	ctx, span := g.tracer.Start(ctx, "planner."+kind, trace.WithAttributes(
		attribute.String("npc.name", req.Character.Name),
		attribute.String("npc.role", string(req.Character.Role)),
		attribute.String("planner.request_id", req.RequestID),
		attribute.Int("planner.events", len(req.Snapshot.Events)),
	))
	defer span.End()

	start := time.Now()
	plan, err := g.call(ctx, fn)
	outcome := outcomeOf(plan, err)
	if g.observer != nil {
		g.observer.ObservePlannerCall(kind, outcome, time.Since(start))
	}

	span.SetAttributes(attribute.String("planner.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if plan != nil {
		span.SetAttributes(
			attribute.String("plan.goal", plan.Goal),
			attribute.Int("plan.steps", len(plan.Steps)),
		)
	}
	return plan, nil
}

func (g *Guard) call(ctx context.Context, fn func(ctx context.Context) (*types.Plan, error)) (*types.Plan, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, types.NewError(types.ErrRateLimited, "planner rate limit").WithCause(err).WithRetryable(true)
		}
	}
	if g.breaker == nil {
		return fn(ctx)
	}
	var plan *types.Plan
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		plan, err = fn(ctx)
		return err
	})
	return plan, err
}

func outcomeOf(plan *types.Plan, err error) string {
	switch {
	case err == nil && plan.Empty():
		return OutcomeNoPlan
	case err == nil:
		return OutcomeOK
	case types.IsErrorCode(err, types.ErrCircuitOpen):
		return OutcomeCircuitOpen
	case types.IsErrorCode(err, types.ErrRateLimited):
		return OutcomeRateLimited
	default:
		return OutcomeError
	}
}

// Normalize 去除未知动作与过多步骤；无有效步骤时返回 nil。
func Normalize(p *types.Plan, now time.Time) *types.Plan {
	if p == nil {
		return nil
	}
	steps := make([]types.PlanStep, 0, len(p.Steps))
	for _, s := range p.Steps {
		s.Action = types.ActionTag(normalizeTag(string(s.Action)))
		if !s.Action.Known() {
			continue
		}
		if s.Args == nil {
			s.Args = types.Args{}
		}
		steps = append(steps, s)
		if len(steps) == MaxSteps {
			break
		}
	}
	if len(steps) == 0 {
		return nil
	}
	return &types.Plan{Goal: p.Goal, Steps: steps, CreatedAt: now}
}
