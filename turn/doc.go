// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package turn 定义"当前会话轮次"的投递接口。

# 概述

技能端处理器把普通活动投递到当前轮次，根端技能会话从当前轮次读取
入站活动并发送跟踪活动。Context 是两端共享的最小协作者接口：

  - Activity：本轮入站活动
  - SendActivity：向会话投递一条活动，返回资源标识
  - UpdateActivity：更新已投递的活动
  - DeleteActivity：按 ID 删除已投递的活动

Transcript 是 Context 的内存实现，记录每次投递、更新与删除，
可注册 Listener 观察操作，用于技能宿主进程与测试。
*/
package turn
