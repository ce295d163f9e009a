// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供指标与健康检查 HTTP 端点的生命周期管理。

# 概述

本包通过 Manager 封装 net/http.Server，统一管理监听、服务、
关闭与错误传播流程；NewHandler 挂载 Prometheus /metrics 与
集群 /healthz 路由。

# 核心类型

  - Manager：HTTP 服务器管理器，提供 Start/Shutdown/Errors/Addr。
  - Config：监听地址、读写超时、空闲超时、最大请求头与关闭超时。
  - Health：/healthz 响应，按在线 NPC 比例给出 ok/degraded/down。
  - Middleware：Recovery 与 RequestLogger，抓取请求只记 debug 日志。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务。
  - 优雅关闭：Shutdown 在配置的超时内完成请求排空。
  - 错误传播：Errors() 返回异步错误通道。
  - 健康检查：全部离线时返回 503，供编排系统探活。
*/
package server
