// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 skillbridge HTTP 端点的请求处理器实现。

# 概述

handlers 包把 net/http 请求适配到技能侧的 protocol.RequestHandler，
并提供探活、版本以及统一的 JSON 响应/错误输出。

# 核心类型

  - ActivityHandler  — /activities/{activityId} 的 HTTP 适配器，状态码与响应体由活动处理器决定
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready, /version）
  - HealthCheck      — 可插拔健康检查接口（Database、Redis、Mongo 等）
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - 请求体上限：MaxBytesReader，超限返回 400
  - ErrorCode → HTTP 状态码映射见 api.ErrorCode.HTTPStatus
*/
package handlers
