package dialog

import (
	"context"

	"github.com/BaSui01/skillbridge/activity"
	"github.com/BaSui01/skillbridge/skill"
	"github.com/BaSui01/skillbridge/turn"
)

// Args 开始技能会话的参数
type Args struct {
	// SkillID, when set, must name the dialog's skill.
	SkillID string
	// ActivityType is activity.TypeEvent or activity.TypeMessage.
	ActivityType activity.Type
	// Name of the event. Ignored for messages.
	Name string
	// Value is attached to the outbound activity when non-nil.
	Value any
}

// Context is the live dialog context of a turn.
type Context struct {
	Turn turn.Context
}

// TurnStatus 轮次结果状态
type TurnStatus int

const (
	// StatusWaiting means end of turn: the dialog stays active awaiting the next turn.
	StatusWaiting TurnStatus = iota
	// StatusComplete means the dialog ended and Result holds its outcome.
	StatusComplete
)

func (s TurnStatus) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// TurnResult is the outcome of a dialog step.
type TurnResult struct {
	Status TurnStatus
	Result any
}

// EndOfTurn is returned after every successful forward.
var EndOfTurn = TurnResult{Status: StatusWaiting}

// EndReason 对话结束原因
type EndReason int

const (
	ReasonBeginCalled EndReason = iota
	ReasonContinueCalled
	ReasonEndCalled
	ReasonReplaceCalled
	ReasonCancelCalled
	ReasonNextCalled
)

func (r EndReason) String() string {
	switch r {
	case ReasonBeginCalled:
		return "beginCalled"
	case ReasonContinueCalled:
		return "continueCalled"
	case ReasonEndCalled:
		return "endCalled"
	case ReasonReplaceCalled:
		return "replaceCalled"
	case ReasonCancelCalled:
		return "cancelCalled"
	case ReasonNextCalled:
		return "nextCalled"
	default:
		return "unknown"
	}
}

// notifiesSkill reports whether ending for r must tell the skill.
func (r EndReason) notifiesSkill() bool {
	return r == ReasonCancelCalled || r == ReasonReplaceCalled
}

// SkillClient forwards one activity to a skill.
type SkillClient interface {
	PostToSkill(ctx context.Context, botID string, sk skill.Skill, hostEndpoint string, act *activity.Activity) (*skill.InvokeResponse, error)
}

// StateSaver flushes conversation state.
type StateSaver interface {
	SaveChanges(ctx context.Context, tc turn.Context, force bool) error
}
