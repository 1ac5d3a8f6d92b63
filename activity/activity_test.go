package activity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		act      *Activity
		expected Kind
	}{
		{"nil", nil, Kind{Tag: KindOther}},
		{"message", &Activity{Type: TypeMessage, Name: "ignored"}, Kind{Tag: KindMessage}},
		{"event", &Activity{Type: TypeEvent, Name: "tokens/request"}, Kind{Tag: KindEvent, Name: "tokens/request"}},
		{"handoff", &Activity{Type: TypeHandoff}, Kind{Tag: KindHandoff}},
		{"eoc", &Activity{Type: TypeEndOfConversation}, Kind{Tag: KindEndOfConversation}},
		{"typing", &Activity{Type: TypeTyping}, Kind{Tag: KindOther}},
		{"unknown", &Activity{Type: "invoke"}, Kind{Tag: KindOther}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.act))
		})
	}
}

func TestKind_ControlEvents(t *testing.T) {
	assert.True(t, Classify(&Activity{Type: TypeEvent, Name: TokenRequestEventName}).IsTokenRequest())
	assert.True(t, Classify(&Activity{Type: TypeEvent, Name: FallbackEventName}).IsFallback())

	// 名称只对 event 有意义
	msg := Classify(&Activity{Type: TypeMessage, Name: TokenRequestEventName})
	assert.False(t, msg.IsTokenRequest())
	assert.Equal(t, "message", msg.String())
	assert.Equal(t, "event(fallbackEvent)", Classify(&Activity{Type: TypeEvent, Name: FallbackEventName}).String())
}

func TestParse(t *testing.T) {
	act, err := Parse([]byte(`{"type":"event","name":"tokens/request","value":{"a":1},"channelData":{"x":true}}`))
	require.NoError(t, err)
	assert.Equal(t, TypeEvent, act.Type)
	assert.Equal(t, "tokens/request", act.Name)
	assert.JSONEq(t, `{"x":true}`, string(act.ChannelData))

	_, err = Parse([]byte(`null`))
	assert.ErrorIs(t, err, ErrEmptyActivity)

	_, err = Parse([]byte(``))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestActivity_JSONFieldNames(t *testing.T) {
	act := &Activity{
		Type:      TypeEndOfConversation,
		ReplyToID: "r1",
		RelatesTo: &ConversationReference{ActivityID: "a1", ChannelID: "test"},
		Code:      EndOfConversationCompleted,
	}
	data, err := json.Marshal(act)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type":"endOfConversation",
		"replyToId":"r1",
		"code":"completedSuccessfully",
		"relatesTo":{"activityId":"a1","channelId":"test"}
	}`, string(data))
}

func TestApplyParent(t *testing.T) {
	parent := &Activity{
		Type:        TypeMessage,
		RelatesTo:   &ConversationReference{ActivityID: "root-1"},
		ChannelData: json.RawMessage(`{"tenant":"t1"}`),
	}
	child := NewEvent("skillBegin", nil)

	ApplyParent(child, parent)

	require.NotNil(t, child.RelatesTo)
	assert.Equal(t, "root-1", child.RelatesTo.ActivityID)
	assert.JSONEq(t, `{"tenant":"t1"}`, string(child.ChannelData))

	// 修改子活动不影响父活动
	child.RelatesTo.ActivityID = "changed"
	child.ChannelData[0] = ' '
	assert.Equal(t, "root-1", parent.RelatesTo.ActivityID)
	assert.JSONEq(t, `{"tenant":"t1"}`, string(parent.ChannelData))

	ApplyParent(child, &Activity{Type: TypeMessage})
	assert.Nil(t, child.RelatesTo)
	assert.Nil(t, child.ChannelData)
}

func TestBuilders(t *testing.T) {
	msg := NewMessage("hi")
	assert.Equal(t, TypeMessage, msg.Type)
	assert.NotEmpty(t, msg.ID)
	assert.NotNil(t, msg.Timestamp)

	eoc := NewEndOfConversation(EndOfConversationUserCancelled, map[string]string{"k": "v"})
	assert.Equal(t, TypeEndOfConversation, eoc.Type)
	assert.Equal(t, EndOfConversationUserCancelled, eoc.Code)

	trace := NewTrace("SkillDialog.onBeginDialog()", "Using activity of type: event", nil)
	assert.Equal(t, TypeTrace, trace.Type)
	assert.NotEqual(t, msg.ID, eoc.ID)
}

func TestActivity_CloneAndReply(t *testing.T) {
	orig := &Activity{
		Type:         TypeMessage,
		ID:           "m1",
		From:         &ChannelAccount{ID: "user"},
		Recipient:    &ChannelAccount{ID: "bot"},
		Conversation: &ConversationAccount{ID: "c1"},
	}
	clone := orig.Clone()
	clone.From.ID = "other"
	assert.Equal(t, "user", orig.From.ID)

	reply := orig.CreateReply("pong")
	assert.Equal(t, "m1", reply.ReplyToID)
	assert.Equal(t, "bot", reply.From.ID)
	assert.Equal(t, "user", reply.Recipient.ID)
	assert.Equal(t, "c1", reply.Conversation.ID)

	ref := orig.ConversationReference()
	assert.Equal(t, "m1", ref.ActivityID)
	assert.Equal(t, "c1", ref.Conversation.ID)
}
