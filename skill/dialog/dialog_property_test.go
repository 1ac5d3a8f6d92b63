package dialog

import (
	"context"
	"testing"

	"github.com/BaSui01/skillbridge/activity"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// 生命周期属性：任意操作序列下，最多发送一次 endOfConversation，
// 且只在 Active 状态下因取消或替换而发送.
func TestProperty_AtMostOneEndOfConversation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		ctx := context.Background()
		expectEOC := 0

		ops := rapid.SliceOfN(rapid.IntRange(0, 4), 1, 12).Draw(rt, "ops")
		for _, op := range ops {
			wasActive := f.dialog.Engagement().IsActive()
			wasIdle := f.dialog.Engagement().State == StateIdle

			switch op {
			case 0:
				_, err := f.dialog.BeginDialog(ctx, &Context{Turn: inboundTurn(triggering())}, &Args{ActivityType: activity.TypeEvent, Name: "go"})
				assert.Equal(rt, wasIdle, err == nil)
			case 1:
				_, err := f.dialog.ContinueDialog(ctx, &Context{Turn: inboundTurn(triggering())})
				assert.Equal(rt, wasActive, err == nil)
			case 2:
				_, err := f.dialog.ContinueDialog(ctx, &Context{Turn: inboundTurn(&activity.Activity{Type: activity.TypeEndOfConversation})})
				assert.Equal(rt, wasActive, err == nil)
			case 3:
				reason := rapid.SampledFrom([]EndReason{ReasonCancelCalled, ReasonReplaceCalled, ReasonEndCalled}).Draw(rt, "reason")
				if wasActive && reason.notifiesSkill() {
					expectEOC++
				}
				assert.NoError(rt, f.dialog.EndDialog(ctx, inboundTurn(triggering()), reason))
				assert.Equal(rt, StateEnded, f.dialog.Engagement().State)
			case 4:
				_, err := f.dialog.ResumeDialog(ctx, nil, ReasonEndCalled, nil)
				assert.NoError(rt, err)
			}
		}

		eoc := f.client.postsOfType(activity.TypeEndOfConversation)
		assert.LessOrEqual(rt, eoc, 1)
		assert.Equal(rt, expectEOC, eoc)
	})
}
