package turn

import (
	"context"
	"errors"

	"github.com/BaSui01/skillbridge/activity"
)

// ErrActivityNotFound 表示要更新或删除的活动不存在.
var ErrActivityNotFound = errors.New("turn: activity not found")

// Context is the current conversation turn.
type Context interface {
	// Activity returns the inbound activity of this turn.
	Activity() *activity.Activity
	SendActivity(ctx context.Context, act *activity.Activity) (*activity.ResourceResponse, error)
	UpdateActivity(ctx context.Context, act *activity.Activity) (*activity.ResourceResponse, error)
	DeleteActivity(ctx context.Context, activityID string) error
}

// SendTrace sends a trace activity into the turn.
func SendTrace(ctx context.Context, tc Context, name, label string, value any) error {
	_, err := tc.SendActivity(ctx, activity.NewTrace(name, label, value))
	return err
}

// ConversationID returns the conversation id of the inbound activity, or "".
func ConversationID(tc Context) string {
	if tc == nil {
		return ""
	}
	act := tc.Activity()
	if act == nil || act.Conversation == nil {
		return ""
	}
	return act.Conversation.ID
}
