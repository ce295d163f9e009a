// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package planner 提供 NPC 规划服务客户端。

两种实现共享同一层保护（见 Guard）：

  - HTTPPlanner：将 types.PlanRequest 以 JSON POST 到规划服务，
    服务返回 {"plan": {...}} 或 204 表示无计划。
  - LLMPlanner：直接调用 OpenAI 兼容的 chat completion 接口，
    从回复文本中提取 JSON 计划。

Guard 依次施加集群级速率限制（golang.org/x/time/rate）、熔断
（internal/circuitbreaker）和 OpenTelemetry span。返回的计划经过
Normalize 清洗：去除未知动作、截断过长的步骤列表。
*/
package planner
