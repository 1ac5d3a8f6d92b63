package activity

import (
	"encoding/json"
	"time"
)

// Type 活动类型.
type Type string

const (
	TypeMessage           Type = "message"
	TypeEvent             Type = "event"
	TypeHandoff           Type = "handoff"
	TypeEndOfConversation Type = "endOfConversation"
	TypeTrace             Type = "trace"
	TypeTyping            Type = "typing"
)

// String 返回活动类型的字符串表示。
func (t Type) String() string {
	return string(t)
}

// Role of a channel account in a conversation.
type Role string

const (
	RoleUser  Role = "user"
	RoleBot   Role = "bot"
	RoleSkill Role = "skill"
)

// EndOfConversationCode 会话结束代码.
type EndOfConversationCode string

const (
	EndOfConversationUnknown          EndOfConversationCode = "unknown"
	EndOfConversationCompleted        EndOfConversationCode = "completedSuccessfully"
	EndOfConversationUserCancelled    EndOfConversationCode = "userCancelled"
	EndOfConversationBotTimedOut      EndOfConversationCode = "botTimedOut"
	EndOfConversationBotIssuedInvalid EndOfConversationCode = "botIssuedInvalidMessage"
	EndOfConversationChannelFailed    EndOfConversationCode = "channelFailed"
)

// ChannelAccount identifies a participant.
type ChannelAccount struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Role Role   `json:"role,omitempty"`
}

// ConversationAccount identifies a conversation on a channel.
type ConversationAccount struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	IsGroup bool   `json:"isGroup,omitempty"`
}

// ConversationReference 会话引用，用于跨进程关联同一会话。
type ConversationReference struct {
	ActivityID   string               `json:"activityId,omitempty"`
	User         *ChannelAccount      `json:"user,omitempty"`
	Bot          *ChannelAccount      `json:"bot,omitempty"`
	Conversation *ConversationAccount `json:"conversation,omitempty"`
	ChannelID    string               `json:"channelId,omitempty"`
	ServiceURL   string               `json:"serviceUrl,omitempty"`
}

// Activity is a structured conversational event exchanged between a root and
// its skills. Field names follow the Bot Framework activity schema.
//
// Activities are values: once handed to a sender the sender owns it, and the
// caller must not rely on seeing later mutations.
type Activity struct {
	Type         Type                   `json:"type"`
	ID           string                 `json:"id,omitempty"`
	Timestamp    *time.Time             `json:"timestamp,omitempty"`
	ServiceURL   string                 `json:"serviceUrl,omitempty"`
	ChannelID    string                 `json:"channelId,omitempty"`
	From         *ChannelAccount        `json:"from,omitempty"`
	Recipient    *ChannelAccount        `json:"recipient,omitempty"`
	Conversation *ConversationAccount   `json:"conversation,omitempty"`
	ReplyToID    string                 `json:"replyToId,omitempty"`
	Name         string                 `json:"name,omitempty"`
	Text         string                 `json:"text,omitempty"`
	Label        string                 `json:"label,omitempty"`
	ValueType    string                 `json:"valueType,omitempty"`
	Value        any                    `json:"value,omitempty"`
	Code         EndOfConversationCode  `json:"code,omitempty"`
	RelatesTo    *ConversationReference `json:"relatesTo,omitempty"`
	ChannelData  json.RawMessage        `json:"channelData,omitempty"`
}

// Kind classifies the activity. See Classify.
func (a *Activity) Kind() Kind {
	return Classify(a)
}

// IsType reports whether the activity has type t.
func (a *Activity) IsType(t Type) bool {
	return a != nil && a.Type == t
}

// Clone returns a shallow copy with its own pointer fields, so callers can
// adjust routing fields without touching the original.
func (a *Activity) Clone() *Activity {
	if a == nil {
		return nil
	}
	c := *a
	if a.Timestamp != nil {
		ts := *a.Timestamp
		c.Timestamp = &ts
	}
	if a.From != nil {
		from := *a.From
		c.From = &from
	}
	if a.Recipient != nil {
		rcpt := *a.Recipient
		c.Recipient = &rcpt
	}
	if a.Conversation != nil {
		conv := *a.Conversation
		c.Conversation = &conv
	}
	if a.RelatesTo != nil {
		ref := *a.RelatesTo
		c.RelatesTo = &ref
	}
	if a.ChannelData != nil {
		c.ChannelData = append(json.RawMessage(nil), a.ChannelData...)
	}
	return &c
}

// ConversationReference builds a reference pointing back at this activity.
func (a *Activity) ConversationReference() *ConversationReference {
	if a == nil {
		return nil
	}
	ref := &ConversationReference{
		ActivityID: a.ID,
		ChannelID:  a.ChannelID,
		ServiceURL: a.ServiceURL,
	}
	if a.From != nil {
		user := *a.From
		ref.User = &user
	}
	if a.Recipient != nil {
		bot := *a.Recipient
		ref.Bot = &bot
	}
	if a.Conversation != nil {
		conv := *a.Conversation
		ref.Conversation = &conv
	}
	return ref
}

// Parse decodes a JSON activity. A JSON null or an empty document is an error.
func Parse(data []byte) (*Activity, error) {
	var act *Activity
	if err := json.Unmarshal(data, &act); err != nil {
		return nil, err
	}
	if act == nil {
		return nil, ErrEmptyActivity
	}
	return act, nil
}

// ResourceResponse 是发送活动后返回的资源标识.
type ResourceResponse struct {
	ID string `json:"id"`
}
