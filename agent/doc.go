// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package agent 实现 NPC 的自主控制核心。

每个 Agent 独占一个 goroutine 与一块 Blackboard：

  - 快循环（默认 10 Hz）按固定顺序评估规则：自身查找、死亡、卡住检测、
    威胁响应、关键生存、被动取水、主动武装、计划执行、自主行为。
    每条规则要么处理本 tick 并返回，要么交给下一条。
  - 规划循环以 interval ±20% 的抖动自我重排，构造世界快照交给 Planner，
    成功时安装计划，失败时累加失败计数。
  - 动作库中的每个动作先校验本地前置条件，必要时先移动（InProgress），
    再发出恰好一次 reducer 调用，结果以 Result 返回。

连接管理：Connect 读取持久化令牌、拨号、注册 NPC 并订阅全部表；
会话断开后按 5s 起步、翻倍、封顶 60s 的退避重连。

Fleet 负责错峰启动多个 Agent、随机化循环抖动，并在关闭时并发停止。
*/
package agent
