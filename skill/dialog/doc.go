// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package dialog 实现根端的技能调用状态机 SkillDialog。

# 概述

一次技能接入（Engagement）的生命周期为 Idle → Active → Ended：

  - BeginDialog：按 Args 构造 event 或 message 活动，复制触发活动的
    relatesTo 与 channelData，进入 Active 并转发给技能
  - ContinueDialog：本地收到 endOfConversation 时结束并返回其 value，
    否则原样转发入站活动
  - ResumeDialog：子对话结束后技能仍在主导，直接结束本轮
  - EndDialog：仅在取消或替换时向技能发送一次 endOfConversation

# 转发

每次带对话上下文的转发都先强制落盘会话状态，再调用 SkillClient；
拆除阶段（EndDialog）的转发不落盘。技能返回 200-299 以外的状态码时
返回 *InvokeError，包含技能 ID、端点、状态码与响应体。

Engagement 由编排层持有并传入；状态存储支持属性写入时，
每次状态转换都会把 Engagement 写入 EngagementProperty。
*/
package dialog
