// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 为 SQL 会话状态后端提供基于 GORM 的连接打开与连接池管理，
支持 postgres、mysql 与 sqlite 三种驱动、健康检查、指标上报与事务重试。

# 概述

Open 按驱动名选择 GORM dialector（sqlite 使用纯 Go 的 glebarez 驱动），
并把连接交给 PoolManager。PoolManager 统一管理连接生命周期、空闲回收
与最大连接数限制，后台健康检查定时探活并把连接数写入 Prometheus。

# 核心类型

  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 DB/SQLDB/Ping/Stats/Close
    以及 WithTransaction。
  - PoolConfig：最大空闲/打开连接数、生命周期、事务最大尝试次数与健康检查间隔。
  - PoolStats：连接池统计信息。

# 主要能力

  - 驱动选择：Dialector 支持 postgres、mysql、sqlite。
  - 健康检查：后台 PingContext 探活，成功后上报 db_connections_open/idle。
  - 事务重试：WithTransaction 对死锁、序列化失败等错误指数退避重试，
    state.SQLStorage 通过它执行带 e-tag 校验的写入。
*/
package database
