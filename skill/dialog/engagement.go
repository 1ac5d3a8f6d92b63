package dialog

import (
	"context"
	"time"

	"github.com/BaSui01/skillbridge/skill"
	"github.com/BaSui01/skillbridge/turn"
)

// EngagementProperty is the conversation state property an engagement is stored under.
const EngagementProperty = "skillbridge.engagement"

// State is the lifecycle state of an engagement.
type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
	StateEnded  State = "ended"
)

// Engagement 记录一次技能接入：目标技能、回调端点与生命周期状态。
type Engagement struct {
	SkillID        string     `json:"skillId"`
	SkillAppID     string     `json:"skillAppId,omitempty"`
	SkillEndpoint  string     `json:"skillEndpoint"`
	HostEndpoint   string     `json:"hostEndpoint,omitempty"`
	ConversationID string     `json:"conversationId,omitempty"`
	State          State      `json:"state"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	EndedAt        *time.Time `json:"endedAt,omitempty"`
}

// NewEngagement creates an idle engagement with sk.
func NewEngagement(sk skill.Skill, hostEndpoint string) *Engagement {
	return &Engagement{
		SkillID:       sk.ID,
		SkillAppID:    sk.AppID,
		SkillEndpoint: sk.Endpoint,
		HostEndpoint:  hostEndpoint,
		State:         StateIdle,
	}
}

// IsActive reports whether turns are being forwarded to the skill.
func (e *Engagement) IsActive() bool {
	return e != nil && e.State == StateActive
}

// propertyStore is implemented by state.ConversationState.
type propertyStore interface {
	Get(ctx context.Context, tc turn.Context, name string, out any) (bool, error)
	Set(ctx context.Context, tc turn.Context, name string, v any) error
	Delete(ctx context.Context, tc turn.Context, name string) error
}

// LoadEngagement reads the engagement stored for the conversation of tc.
func LoadEngagement(ctx context.Context, store propertyStore, tc turn.Context) (*Engagement, bool, error) {
	var e Engagement
	ok, err := store.Get(ctx, tc, EngagementProperty, &e)
	if err != nil || !ok {
		return nil, false, err
	}
	return &e, true, nil
}

// SaveEngagement stores e for the conversation of tc. It is persisted with the
// next state flush.
func SaveEngagement(ctx context.Context, store propertyStore, tc turn.Context, e *Engagement) error {
	return store.Set(ctx, tc, EngagementProperty, e)
}

// ClearEngagement removes the stored engagement.
func ClearEngagement(ctx context.Context, store propertyStore, tc turn.Context) error {
	return store.Delete(ctx, tc, EngagementProperty)
}
