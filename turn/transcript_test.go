package turn

import (
	"context"
	"testing"

	"github.com/BaSui01/skillbridge/activity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscript_SendUpdateDelete(t *testing.T) {
	ctx := context.Background()
	var seen []Op
	tr := NewTranscript(activity.NewMessage("hi"), func(_ context.Context, e Entry) {
		seen = append(seen, e.Op)
	})

	msg := &activity.Activity{Type: activity.TypeMessage, Text: "one"}
	rr, err := tr.SendActivity(ctx, msg)
	require.NoError(t, err)
	require.NotEmpty(t, rr.ID)
	assert.Equal(t, rr.ID, msg.ID)

	updated := &activity.Activity{Type: activity.TypeMessage, ID: rr.ID, Text: "two"}
	_, err = tr.UpdateActivity(ctx, updated)
	require.NoError(t, err)
	got, ok := tr.Lookup(rr.ID)
	require.True(t, ok)
	assert.Equal(t, "two", got.Text)

	require.NoError(t, tr.DeleteActivity(ctx, rr.ID))
	_, ok = tr.Lookup(rr.ID)
	assert.False(t, ok)

	assert.Equal(t, []Op{OpSend, OpUpdate, OpDelete}, seen)
	assert.Len(t, tr.Entries(), 3)
}

func TestTranscript_NotFound(t *testing.T) {
	ctx := context.Background()
	tr := NewTranscript(nil)

	_, err := tr.UpdateActivity(ctx, &activity.Activity{ID: "missing"})
	assert.ErrorIs(t, err, ErrActivityNotFound)

	err = tr.DeleteActivity(ctx, "missing")
	assert.ErrorIs(t, err, ErrActivityNotFound)

	_, err = tr.SendActivity(ctx, nil)
	assert.Error(t, err)
}

func TestTranscript_SentFilterAndTrace(t *testing.T) {
	ctx := context.Background()
	tr := NewTranscript(&activity.Activity{
		Type:         activity.TypeMessage,
		Conversation: &activity.ConversationAccount{ID: "conv-1"},
	})

	require.NoError(t, SendTrace(ctx, tr, "SkillDialog.onBeginDialog()", "Using activity of type: message", nil))
	_, err := tr.SendActivity(ctx, activity.NewMessage("reply"))
	require.NoError(t, err)

	assert.Len(t, tr.Sent(), 2)
	traces := tr.Sent(activity.TypeTrace)
	require.Len(t, traces, 1)
	assert.Equal(t, "SkillDialog.onBeginDialog()", traces[0].Name)
	assert.Equal(t, "conv-1", ConversationID(tr))

	tr.SetActivity(nil)
	assert.Equal(t, "", ConversationID(tr))
	assert.Equal(t, "", ConversationID(nil))
}

func TestTranscript_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewTranscript(nil)
	_, err := tr.SendActivity(ctx, activity.NewMessage("x"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, tr.Entries())
}
