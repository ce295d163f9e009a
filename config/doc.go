// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// Package config 提供 npcagent 的配置管理功能。
//
// 包含配置加载（默认值、YAML 文件、NPCAGENT_ 环境变量）、
// 校验、NPC 名册解析，以及基于文件轮询的日志级别热加载。
package config
