// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package protocol 定义技能端接收请求所用的路由表与请求/响应信封。

# 概述

根机器人通过流式通道或 HTTP 向技能发送 create/update/delete 活动操作。
本包把这些操作抽象为 ReceiveRequest（方法、路径、有序内容流），
并由 Table 按注册顺序匹配路由模板、提取占位符参数。

# 路由规则

  - 方法精确匹配，区分大小写
  - 路径按 "/" 切分，字面量段区分大小写
  - {name} 占位符匹配恰好一个非空段
  - 段数必须一致，不做尾斜杠或通配宽容
  - 按注册顺序第一条完整匹配胜出

未匹配不是错误，调用方应返回 404。
*/
package protocol
