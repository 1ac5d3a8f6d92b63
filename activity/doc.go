// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 activity 定义 root 与 skill 之间交换的活动（Activity）记录。

# 概述

Activity 是会话事件的结构化表示：普通消息、控制事件（令牌请求、
回退）、转交（handoff）以及会话结束信号。字段命名遵循 Bot Framework
活动模式，JSON 使用 camelCase。

# 核心类型

  - Activity：活动记录，包含 type、name、value、relatesTo、channelData 等字段。
  - Kind：活动形态的标签联合 {Message, Event(name), Handoff,
    EndOfConversation, Other}，由 Classify 生成，供分发逻辑穷举匹配。
  - ConversationReference：跨进程关联同一会话的引用。

# 主要能力

  - 构造：NewMessage / NewEvent / NewHandoff / NewEndOfConversation / NewTrace。
  - 关联：ApplyParent 复制父活动的 relatesTo 与 channelData。
  - 解析：Parse 拒绝空文档与 JSON null。
*/
package activity
