// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 npcagent 可执行入口。

# 概述

cmd/npcagent 读取配置与 NPC 名册，为每个角色创建一个自主 Agent，
按交错延迟连接游戏后端，直到收到 SIGINT/SIGTERM 后在
fleet.shutdown_timeout 内优雅关闭。

# 核心类型

  - App：组装遥测、指标、令牌存储、共享规划器与集群，管理启动与关闭

# 主要能力

  - 子命令：serve、version、health
  - Metrics 服务器：/metrics（Prometheus）与 /healthz（在线比例）
  - 日志级别热加载：轮询配置文件，变更后应用 log.level
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
