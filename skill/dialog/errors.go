package dialog

import (
	"errors"
	"fmt"
)

// 技能会话错误.
var (
	// ErrInvalidArgs 表示 BeginDialog 参数或对话上下文无效.
	ErrInvalidArgs = errors.New("skill dialog: invalid arguments")
	// ErrInvalidConfig 表示构造参数缺失或无效.
	ErrInvalidConfig = errors.New("skill dialog: invalid configuration")
	// ErrNotActive 表示在未开始或已结束的接入上继续对话.
	ErrNotActive = errors.New("skill dialog: engagement is not active")
	// ErrAlreadyStarted 表示对已开始的接入再次调用 BeginDialog.
	ErrAlreadyStarted = errors.New("skill dialog: engagement already started")
)

// InvokeError is returned when a skill answers a forward with a status
// outside 200-299.
type InvokeError struct {
	SkillID  string
	Endpoint string
	Status   int
	Body     string
}

func (e *InvokeError) Error() string {
	return fmt.Sprintf("error invoking the skill id: \"%s\" at \"%s\" (status is %d).\r\n%s",
		e.SkillID, e.Endpoint, e.Status, e.Body)
}
