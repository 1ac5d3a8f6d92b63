// Package api 定义 skillbridge HTTP 接口共用的响应结构与错误码。
//
// # 接口概览
//
// 技能宿主进程对外提供：
//   - POST/PUT/DELETE /activities/{activityId}：活动请求（HTTP 传输）
//   - GET /ws：websocket 流式传输，帧内承载同样的活动请求
//   - /health、/healthz、/ready、/version：探活与版本
//   - /metrics（独立端口）：Prometheus 指标
//
// # 鉴权
//
// 开启 auth 后，除探活路径外的请求必须携带
//
//	Authorization: Bearer <HS256 JWT>
//
// 令牌由根端按技能的 app id 作为 audience 签发。
package api
