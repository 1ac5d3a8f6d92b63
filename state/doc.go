// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package state 提供按会话隔离的会话状态与可插拔存储后端。

# 概述

ConversationState 是每个会话一份的属性包，键由轮次入站活动的
channelId 与 conversation.id 推导。属性以 JSON 形式缓存，
SaveChanges 在属性变化或 force 时写回 Storage。缓存不会自动淘汰，
会话结束并保存后由调用方 Forget，下次访问重新从 Storage 读取。

# 存储后端

  - MemoryStorage：进程内 map，测试与单机部署使用
  - RedisStorage：go-redis，WATCH/MULTI 实现 e-tag 乐观并发
  - SQLStorage：gorm，支持 postgres、mysql、sqlite
  - MongoStorage：mongo-driver v2，条件 upsert

# 乐观并发

写入携带的 e-tag 为空或 "*" 时无条件覆盖；否则当已存储 e-tag 与之
不同时返回 ErrETagConflict。键不存在时写入总是成功。
*/
package state
