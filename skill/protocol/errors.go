package protocol

import "errors"

// 路由模板错误.
var (
	// ErrInvalidTemplate 表示路由模板在构建路由表时未通过校验.
	ErrInvalidTemplate = errors.New("route: invalid template")
)
