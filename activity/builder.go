package activity

import (
	"time"

	"github.com/google/uuid"
)

func newActivity(t Type) *Activity {
	now := time.Now().UTC()
	return &Activity{
		Type:      t,
		ID:        uuid.New().String(),
		Timestamp: &now,
	}
}

// NewMessage 创建消息活动
func NewMessage(text string) *Activity {
	a := newActivity(TypeMessage)
	a.Text = text
	return a
}

// NewEvent 创建事件活动
func NewEvent(name string, value any) *Activity {
	a := newActivity(TypeEvent)
	a.Name = name
	a.Value = value
	return a
}

// NewHandoff 创建转人工/转交活动
func NewHandoff(value any) *Activity {
	a := newActivity(TypeHandoff)
	a.Value = value
	return a
}

// NewEndOfConversation 创建会话结束活动
func NewEndOfConversation(code EndOfConversationCode, value any) *Activity {
	a := newActivity(TypeEndOfConversation)
	a.Code = code
	a.Value = value
	return a
}

// NewTrace creates a trace activity. Traces are only shown by debugging channels.
func NewTrace(name, label string, value any) *Activity {
	a := newActivity(TypeTrace)
	a.Name = name
	a.Label = label
	a.Value = value
	return a
}

// ApplyParent copies correlation (relatesTo) and channel passthrough data from
// parent onto a. The channel data is copied, not shared.
func ApplyParent(a, parent *Activity) {
	if a == nil || parent == nil {
		return
	}
	if parent.RelatesTo != nil {
		ref := *parent.RelatesTo
		a.RelatesTo = &ref
	} else {
		a.RelatesTo = nil
	}
	if parent.ChannelData != nil {
		a.ChannelData = append(a.ChannelData[:0:0], parent.ChannelData...)
	} else {
		a.ChannelData = nil
	}
}

// CreateReply builds a message addressed back to the sender of a.
func (a *Activity) CreateReply(text string) *Activity {
	reply := NewMessage(text)
	if a == nil {
		return reply
	}
	reply.ReplyToID = a.ID
	reply.ChannelID = a.ChannelID
	reply.ServiceURL = a.ServiceURL
	if a.Recipient != nil {
		from := *a.Recipient
		reply.From = &from
	}
	if a.From != nil {
		to := *a.From
		reply.Recipient = &to
	}
	if a.Conversation != nil {
		conv := *a.Conversation
		reply.Conversation = &conv
	}
	return reply
}
