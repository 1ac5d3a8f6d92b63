package handler

import "errors"

// 处理器错误.
var (
	// ErrMissingCallback 表示收到控制事件但宿主未注册对应回调.
	ErrMissingCallback = errors.New("handler: missing callback")
	// ErrInvalidActivity 表示请求体不是合法的活动.
	ErrInvalidActivity = errors.New("handler: invalid activity")
	// ErrPanic 表示处理过程中发生 panic.
	ErrPanic = errors.New("handler: panic while processing request")
	// ErrMissingTurn 表示构造处理器时未提供轮次.
	ErrMissingTurn = errors.New("handler: missing turn context")
)
