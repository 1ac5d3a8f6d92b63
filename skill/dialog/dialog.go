package dialog

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/skillbridge/activity"
	"github.com/BaSui01/skillbridge/internal/ctxkeys"
	"github.com/BaSui01/skillbridge/internal/metrics"
	"github.com/BaSui01/skillbridge/internal/telemetry"
	"github.com/BaSui01/skillbridge/skill"
	"github.com/BaSui01/skillbridge/turn"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const dialogName = "SkillDialog"

// Options configures a SkillDialog.
type Options struct {
	// BotID is the root bot's app id, sent with every forward.
	BotID  string
	Client SkillClient
	Skill  skill.Skill
	// HostEndpoint is where the skill calls back to.
	HostEndpoint string
	State        StateSaver
	// Engagement is owned by the caller. A nil engagement starts idle.
	Engagement *Engagement
	Metrics    *metrics.Collector
	Logger     *zap.Logger
}

// SkillDialog forwards the turns of one conversation to a remote skill.
// A SkillDialog serves a single engagement and is not safe for concurrent turns.
type SkillDialog struct {
	botID        string
	client       SkillClient
	skill        skill.Skill
	hostEndpoint string
	state        StateSaver
	engagement   *Engagement
	metrics      *metrics.Collector
	logger       *zap.Logger
}

// New validates opts and creates a SkillDialog.
func New(opts Options) (*SkillDialog, error) {
	if opts.BotID == "" {
		return nil, fmt.Errorf("%w: the bot ID is not in configuration", ErrInvalidConfig)
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("%w: skill client has no value", ErrInvalidConfig)
	}
	if err := opts.Skill.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if opts.State == nil {
		return nil, fmt.Errorf("%w: conversation state has no value", ErrInvalidConfig)
	}

	e := opts.Engagement
	if e == nil {
		e = NewEngagement(opts.Skill, opts.HostEndpoint)
	} else if e.SkillID != opts.Skill.ID {
		return nil, fmt.Errorf("%w: engagement is for skill %q, not %q", ErrInvalidConfig, e.SkillID, opts.Skill.ID)
	}
	if e.State == "" {
		e.State = StateIdle
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SkillDialog{
		botID:        opts.BotID,
		client:       opts.Client,
		skill:        opts.Skill,
		hostEndpoint: opts.HostEndpoint,
		state:        opts.State,
		engagement:   e,
		metrics:      opts.Metrics,
		logger:       logger.With(zap.String("component", "skill_dialog"), zap.String("skill_id", opts.Skill.ID)),
	}, nil
}

// Engagement returns the engagement driven by this dialog.
func (d *SkillDialog) Engagement() *Engagement {
	return d.engagement
}

// =============================================================================
// 🎬 生命周期
// =============================================================================

// BeginDialog sends the first activity to the skill and returns end of turn.
func (d *SkillDialog) BeginDialog(ctx context.Context, dc *Context, args *Args) (TurnResult, error) {
	if dc == nil || dc.Turn == nil {
		return TurnResult{}, fmt.Errorf("%w: missing dialog context", ErrInvalidArgs)
	}
	if args == nil {
		return TurnResult{}, fmt.Errorf("%w: missing args", ErrInvalidArgs)
	}
	if args.SkillID != "" && args.SkillID != d.skill.ID {
		return TurnResult{}, fmt.Errorf("%w: args name skill %q, dialog serves %q", ErrInvalidArgs, args.SkillID, d.skill.ID)
	}
	if d.engagement.State != StateIdle {
		return TurnResult{}, fmt.Errorf("%w: state is %s", ErrAlreadyStarted, d.engagement.State)
	}

	inbound := dc.Turn.Activity()
	if inbound == nil {
		return TurnResult{}, fmt.Errorf("%w: turn has no activity", ErrInvalidArgs)
	}

	var out *activity.Activity
	switch args.ActivityType {
	case activity.TypeEvent:
		out = activity.NewEvent(args.Name, nil)
	case activity.TypeMessage:
		out = activity.NewMessage(inbound.Text)
	default:
		return TurnResult{}, fmt.Errorf("%w: invalid activity type %q", ErrInvalidArgs, args.ActivityType)
	}

	ctx, span := d.startSpan(ctx, "skill.BeginDialog")
	defer span.End()

	if err := turn.SendTrace(ctx, dc.Turn, dialogName+".onBeginDialog()", "Using activity of type: "+string(args.ActivityType), nil); err != nil {
		return TurnResult{}, err
	}

	d.applyParent(out, inbound)
	if args.Value != nil {
		out.Value = args.Value
	}

	if err := d.transition(ctx, dc.Turn, StateActive); err != nil {
		return TurnResult{}, err
	}
	d.logger.Info("skill engagement started",
		zap.String("activity_type", string(args.ActivityType)),
		zap.String("conversation_id", d.engagement.ConversationID),
	)

	return d.sendToSkill(ctx, out, dc)
}

// ContinueDialog forwards the turn's activity, or completes the dialog when
// the turn carries an end of conversation.
func (d *SkillDialog) ContinueDialog(ctx context.Context, dc *Context) (TurnResult, error) {
	if dc == nil || dc.Turn == nil {
		return TurnResult{}, fmt.Errorf("%w: missing dialog context", ErrInvalidArgs)
	}
	if !d.engagement.IsActive() {
		return TurnResult{}, ErrNotActive
	}
	inbound := dc.Turn.Activity()
	if inbound == nil {
		return TurnResult{}, fmt.Errorf("%w: turn has no activity", ErrInvalidArgs)
	}

	ctx, span := d.startSpan(ctx, "skill.ContinueDialog")
	defer span.End()

	if err := turn.SendTrace(ctx, dc.Turn, dialogName+".onContinueDialog()", "ActivityType: "+string(inbound.Type), nil); err != nil {
		return TurnResult{}, err
	}

	if activity.Classify(inbound).Tag == activity.KindEndOfConversation {
		if err := turn.SendTrace(ctx, dc.Turn, dialogName+".onContinueDialog()", "Got EndOfConversation", nil); err != nil {
			return TurnResult{}, err
		}
		if err := d.transition(ctx, dc.Turn, StateEnded); err != nil {
			return TurnResult{}, err
		}
		d.logger.Info("skill ended the engagement")
		return TurnResult{Status: StatusComplete, Result: inbound.Value}, nil
	}

	return d.sendToSkill(ctx, inbound.Clone(), dc)
}

// ResumeDialog is called when a child dialog ends while the skill is engaged.
// The skill stays in charge, so the turn just ends.
func (d *SkillDialog) ResumeDialog(_ context.Context, _ *Context, _ EndReason, _ any) (TurnResult, error) {
	return EndOfTurn, nil
}

// EndDialog ends the engagement. On cancellation or replacement of an active
// engagement the skill is sent one end of conversation, without a state flush.
// Ending an already ended engagement does nothing.
func (d *SkillDialog) EndDialog(ctx context.Context, tc turn.Context, reason EndReason) error {
	if d.engagement.State == StateEnded {
		return nil
	}

	var sendErr error
	if reason.notifiesSkill() && d.engagement.IsActive() {
		ctx, span := d.startSpan(ctx, "skill.EndDialog")
		defer span.End()
		sendErr = d.notifyEnd(ctx, tc)
	}

	if err := d.transition(ctx, tc, StateEnded); err != nil && sendErr == nil {
		sendErr = err
	}
	d.logger.Info("skill engagement ended", zap.Stringer("reason", reason))
	return sendErr
}

func (d *SkillDialog) notifyEnd(ctx context.Context, tc turn.Context) error {
	eoc := activity.NewEndOfConversation("", nil)
	if tc != nil {
		inbound := tc.Activity()
		label := "ActivityType: "
		if inbound != nil {
			label += string(inbound.Type)
		}
		if err := turn.SendTrace(ctx, tc, dialogName+".endDialog()", label, nil); err != nil {
			return err
		}
		d.applyParent(eoc, inbound)
	}
	_, err := d.sendToSkill(ctx, eoc, nil)
	return err
}

// =============================================================================
// 🚀 转发
// =============================================================================

// sendToSkill flushes conversation state when dc is set, then posts act once.
func (d *SkillDialog) sendToSkill(ctx context.Context, act *activity.Activity, dc *Context) (TurnResult, error) {
	if dc != nil {
		if err := d.state.SaveChanges(ctx, dc.Turn, true); err != nil {
			return TurnResult{}, fmt.Errorf("flush conversation state: %w", err)
		}
	}

	ctx = ctxkeys.WithSkillID(ctx, d.skill.ID)
	start := time.Now()
	resp, err := d.client.PostToSkill(ctx, d.botID, d.skill, d.hostEndpoint, act)
	if err != nil {
		d.metrics.RecordForward(d.skill.ID, 0, time.Since(start))
		return TurnResult{}, fmt.Errorf("forward to skill %q at %q: %w", d.skill.ID, d.skill.Endpoint, err)
	}
	d.metrics.RecordForward(d.skill.ID, resp.Status, time.Since(start))

	if !resp.IsSuccess() {
		d.logger.Warn("skill rejected activity",
			zap.Int("status", resp.Status),
			zap.String("activity_type", string(act.Type)),
		)
		return TurnResult{}, &InvokeError{
			SkillID:  d.skill.ID,
			Endpoint: d.skill.Endpoint,
			Status:   resp.Status,
			Body:     string(resp.Body),
		}
	}

	d.logger.Debug("activity forwarded",
		zap.String("activity_type", string(act.Type)),
		zap.String("activity_id", act.ID),
		zap.Int("status", resp.Status),
	)
	return EndOfTurn, nil
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// applyParent copies correlation, channel data and conversation routing from
// the turn's inbound activity.
func (d *SkillDialog) applyParent(out, inbound *activity.Activity) {
	if inbound == nil {
		return
	}
	activity.ApplyParent(out, inbound)
	out.ChannelID = inbound.ChannelID
	if inbound.Conversation != nil {
		conv := *inbound.Conversation
		out.Conversation = &conv
	}
}

func (d *SkillDialog) transition(ctx context.Context, tc turn.Context, to State) error {
	from := d.engagement.State
	now := time.Now().UTC()
	d.engagement.State = to
	switch to {
	case StateActive:
		d.engagement.StartedAt = &now
		d.engagement.ConversationID = turn.ConversationID(tc)
	case StateEnded:
		d.engagement.EndedAt = &now
	}
	d.metrics.RecordDialogTransition(d.skill.ID, string(from), string(to))

	if store, ok := d.state.(propertyStore); ok && tc != nil && turn.ConversationID(tc) != "" {
		if err := SaveEngagement(ctx, store, tc, d.engagement); err != nil {
			return fmt.Errorf("record engagement: %w", err)
		}
	}
	return nil
}

func (d *SkillDialog) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return telemetry.Tracer().Start(ctx, name, trace.WithAttributes(
		attribute.String("skill.id", d.skill.ID),
		attribute.String("skill.endpoint", d.skill.Endpoint),
	))
}
