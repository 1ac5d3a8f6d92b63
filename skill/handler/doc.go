// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package handler 实现技能端的活动请求处理器。

# 概述

Handler 在 /activities/{activityId} 上注册 POST、PUT、DELETE 三条路由：

  - POST：重组请求体并解析为活动，按活动形态分发。
    tokens/request 事件、fallbackEvent 事件与 handoff 活动交给 Callbacks
    中对应的回调，响应体为 {"id":""}；未注册回调属于配置错误，返回 500。
    其余活动投递到当前轮次，响应体为投递结果。
  - PUT：解析后更新当前轮次中的活动，结果被丢弃，返回 200 空响应体。
  - DELETE：不读取请求体，按路径中的 activityId 删除活动。

# 错误处理

未匹配路由返回 404。请求体解析失败、缺失回调、轮次错误以及 panic
都会上报给 telemetry.ExceptionReporter 并转换为 500，不会传播到传输层。
*/
package handler
