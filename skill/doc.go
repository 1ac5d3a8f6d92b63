// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package skill 描述被根机器人调用的远程技能。

# 概述

Skill 记录技能身份（ID、应用 ID、端点）；Catalog 是按 ID 索引的技能目录，
通常由配置文件构建；InvokeResponse 是一次转发调用的原始结果，
状态码位于 200-299 之间视为被技能接受。

具体的传输实现位于 skill/client（HTTP 与 websocket），
入站路由与分发位于 skill/protocol 与 skill/handler，
根端会话状态机位于 skill/dialog。
*/
package skill
