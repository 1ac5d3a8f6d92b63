// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 config 提供 skillbridge 的配置加载、校验与热重载。

# 概述

Loader 按 默认值 → YAML 文件 → 环境变量 的顺序构造 Config，
环境变量键名为 SKILLBRIDGE_<段>_<字段>，例如 SKILLBRIDGE_AUTH_SECRET。
技能列表只能通过 YAML 配置。

# 主要能力

  - Validate 检查端口、状态后端、转发传输方式、鉴权密钥与技能列表。
  - DatabaseConfig.DSN 供 gorm 使用，DatabaseConfig.URL 供 golang-migrate 使用。
  - Reloader 轮询配置文件，校验通过后替换当前配置并回调订阅者，
    serve 子命令用它在运行时调整日志级别。
*/
package config
