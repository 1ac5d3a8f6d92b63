// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP、技能入站请求、
根端转发、会话状态与流式连接几个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离。
Collector 的记录方法对 nil 接收者安全。

# 主要能力

  - HTTP 指标：请求总数、耗时、请求/响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - 技能请求指标：按 method/route/status 统计入站活动请求，控制事件分发结果。
  - 转发指标：按 skill_id 统计转发次数与耗时，技能会话状态转换。
  - 会话状态指标：落盘成功/失败计数，各后端操作耗时。
  - 流式连接：活跃 websocket 连接数 Gauge。
  - 数据库指标：活跃/空闲连接数。
*/
package metrics
