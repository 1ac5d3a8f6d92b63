package activity

import "errors"

var (
	// ErrEmptyActivity 表示活动内容为空（null 或缺失）。
	ErrEmptyActivity = errors.New("activity: empty activity")
)
