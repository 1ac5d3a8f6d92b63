// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 client 实现根端向技能转发活动的出站客户端。

# 概述

HTTPClient 以 POST <技能端点>/activities/<活动 id> 的方式转发，
StreamClient 通过 websocket 请求帧转发。两者都在发送前补齐路由
字段（serviceUrl、from、recipient），附带根机器人的 Bearer JWT，
并按客户端限流。客户端只负责传输：非 2xx 状态原样返回给调用方。
*/
package client
