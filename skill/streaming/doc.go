// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 streaming 提供根端与技能之间的 websocket 双向传输。

# 概述

每条 websocket 文本消息是一个 JSON 帧。请求帧携带 id、verb、path
与若干内容流；响应帧携带相同 id、状态码与响应体。Server 将请求帧
交给 protocol.RequestHandler 处理，Client 按请求 id 关联响应，
并把超过 MaxChunkSize 的请求体拆分为多个内容流。

# 主要能力

  - Server：接受连接，并发处理请求帧，写操作串行化。
  - Client：拨号、请求/响应关联、请求体分块、关闭后返回 ErrClosed。
*/
package streaming
