// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 auth 提供根机器人与技能之间调用的身份凭证。

# 概述

根端通过 Issuer 为每次转发签发 HS256 JWT，声明中携带调用方
appid、目标技能 app id（aud）、签发方（iss）与过期时间（exp）。
技能端通过 Verifier 或 Middleware 校验 Authorization: Bearer 头，
并把调用方身份写入请求上下文。

# 主要能力

  - Issuer：按技能受众签发短期令牌。
  - Verifier：校验签名、算法、签发方、受众与过期时间。
  - Middleware：HTTP 中间件，跳过健康检查等路径。
*/
package auth
