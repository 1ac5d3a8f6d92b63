package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	tests := []struct {
		name string
		set  func(context.Context, string) context.Context
		get  func(context.Context) (string, bool)
	}{
		{"trace", WithTraceID, TraceID},
		{"request", WithRequestID, RequestID},
		{"conversation", WithConversationID, ConversationID},
		{"skill", WithSkillID, SkillID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			_, ok := tt.get(ctx)
			assert.False(t, ok)

			v, ok := tt.get(tt.set(ctx, "v1"))
			assert.True(t, ok)
			assert.Equal(t, "v1", v)

			_, ok = tt.get(tt.set(ctx, ""))
			assert.False(t, ok, "empty values are treated as absent")
		})
	}

	// 不同键互不干扰
	ctx := WithTraceID(context.Background(), "t")
	_, ok := SkillID(ctx)
	assert.False(t, ok)
}
