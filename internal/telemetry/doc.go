// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 skillbridge 提供集中式的 TracerProvider 和 MeterProvider 配置，
// 以及把被处理器吞掉的错误记录到 span、计数器和日志的 ExceptionReporter。
// 当遥测功能禁用时，使用 noop 实现，不连接任何外部服务。
package telemetry
