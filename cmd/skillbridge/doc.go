// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 skillbridge 程序入口。

# 概述

cmd/skillbridge 既可作为技能宿主运行（serve），对外提供活动端点；
也可作为根机器人的调试工具（invoke），把终端输入逐轮转发给远端技能。
程序支持 YAML 配置、结构化日志（zap）、Prometheus 指标以及日志级别热重载。

# 核心类型

  - Server      — 技能宿主，管理活动端口与 Metrics 端口及优雅关闭
  - Middleware  — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - hostTurn    — 宿主轮次，把投递的活动按 id 持久化到会话状态存储
  - invoker     — 根端会话循环，驱动 SkillDialog

# 主要能力

  - 子命令：serve、invoke、migrate、version、health
  - 路由：/activities/{activityId}（HTTP）、/ws（websocket）、
    /health、/healthz、/ready、/version；/metrics 在独立端口
  - 中间件链：Recovery、RequestID、OTelTracing、SecurityHeaders、
    RequestLogger、Metrics、RateLimiter（基于 IP）、JWT 鉴权（探活路径除外）
  - 状态后端：memory、redis、sql（postgres/mysql/sqlite）、mongo
  - 优雅关闭：信号监听 → 停止监听配置 → 关闭 HTTP → 等待 websocket 请求 →
    关闭 Metrics → 关闭状态后端 → flush 遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
