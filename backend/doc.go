// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package backend 实现与权威游戏后端之间的 WebSocket JSON 协议会话。

# 概述

每个 NPC 持有一个 Session：连接建立后服务端下发 IdentityToken，
客户端发送 Subscribe 订阅世界表，随后 InitialSubscription 与
TransactionUpdate 持续把表的增删写入该 NPC 独占的 world.Cache。

# 核心类型

  - Dialer     ：会话工厂（URI、模块名、发送队列容量、握手超时）
  - Session    ：单连接会话，读写各一个 goroutine，Call 永不阻塞
  - TokenClaims：身份令牌的 JWT 声明（未校验签名，仅读取身份与过期时间）

# 协议

服务端消息：IdentityToken / InitialSubscription / TransactionUpdate。
客户端消息：Subscribe / CallReducer。Reducer 以名称加位置参数调用，
参数编码为 JSON 数组字符串。被拒绝的调用以 Failed 状态回传，
由 Session 记录日志并通过 OnReducerResult 回调上报。
*/
package backend
