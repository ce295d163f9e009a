// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的 NPC 集群指标采集能力，覆盖
快循环、后端连接与规划服务三个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
工厂注册到指定的 Registerer（默认全局注册表）。所有指标按
namespace 隔离，由 internal/server 在 /metrics 暴露。

# 核心类型

  - Collector：指标收集器，同时满足 agent.Metrics 与
    planner.Observer，整个集群共享一个实例。

# 主要能力

  - 快循环：tick 耗时、规则命中、动作结果、事件计数。
  - 连接：在线状态 Gauge、重连调度、reducer 结果、行解析失败。
  - 规划：调用结果与耗时、计划安装数、熔断器状态。
*/
package metrics
