// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 管理 Redis 会话状态后端所用的连接，支持连接池、TLS
与后台健康检查。

# 概述

本包封装 go-redis 客户端。Manager 负责连接的初始化、健康检查
与优雅关闭，并通过 Client() 把客户端交给 state.RedisStorage。

# 核心类型

  - Manager：持有 Redis 客户端，提供 Client/Ping/Stats/Close。
  - Config：地址、密码、库号、会话状态键前缀与 TTL、连接池大小、
    TLS 开关与健康检查间隔。
  - Stats：连接池统计（命中、未命中、超时、总连接与空闲连接）。

# 主要能力

  - 连接校验：NewManager 在返回前 Ping 一次，失败即关闭客户端。
  - 健康检查：后台定时 Ping，异常时通过 zap 日志告警，Close 时停止。
  - TLS：开启后使用 tlsutil 的加固配置。
*/
package cache
