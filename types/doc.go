// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package types 提供 npcagent 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent、planner、backend、
config 等上层模块提供统一的类型契约。跨包共享的结构体、枚举和错误码
均定义于此，以避免循环依赖。

# 核心类型

  - Character        ：NPC 人设（名称、角色、性格种子、优先级、偏好资源）
  - Plan / PlanStep  ：规划服务返回的目标与有序步骤
  - GameEvent        ：供规划器消费的游戏事件（受击、击杀、聊天提及等）
  - Snapshot         ：发送给规划服务的世界快照
  - Error / ErrorCode：结构化错误体系，含 Retryable 标记与 Cause 链
*/
package types
