// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理 SQL 会话状态后端的 Schema 版本，支持 PostgreSQL、
MySQL 与 SQLite，基于 golang-migrate 实现。

# 概述

各方言的 conversation_states 建表语句以 embed.FS 内嵌在二进制中，
版本号在三种方言之间保持一致。迁移完成后 state.SQLStorage 即可直接使用。

# 核心类型

  - Migrator / DefaultMigrator：Up/Down/DownAll/Steps/Goto/Force/
    Version/Status/Info/Close。
  - Config：方言、连接串、版本表名、锁超时与日志。
  - CLI：skillbridge migrate 子命令的输出层，Run 按名称分发。

# 工厂函数

NewMigratorFromConfig 与 NewMigratorFromDatabaseConfig 读取
config.DatabaseConfig，NewMigratorFromURL 直接接收驱动名和连接串。
SQLite 方言走 mattn/go-sqlite3，需要 CGO。
*/
package migration
