package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/skillbridge/activity"
	"github.com/BaSui01/skillbridge/skill/handler"
	"github.com/BaSui01/skillbridge/state"
	"github.com/BaSui01/skillbridge/turn"
)

const activityKeyPrefix = "activities/"

// =============================================================================
// 📥 宿主轮次
// =============================================================================

// hostTurn 是宿主进程的轮次：投递来的活动按 id 持久化到会话状态存储，
// 以便之后的 PUT/DELETE 找到它们
type hostTurn struct {
	storage state.Storage
	logger  *zap.Logger
}

var _ turn.Context = (*hostTurn)(nil)

func newHostTurn(storage state.Storage, logger *zap.Logger) *hostTurn {
	return &hostTurn{
		storage: storage,
		logger:  logger.With(zap.String("component", "host_turn")),
	}
}

func activityKey(id string) string {
	return activityKeyPrefix + id
}

// Activity 宿主轮次没有入站活动
func (t *hostTurn) Activity() *activity.Activity {
	return nil
}

func (t *hostTurn) SendActivity(ctx context.Context, act *activity.Activity) (*activity.ResourceResponse, error) {
	if act == nil {
		return nil, errors.New("host: nil activity")
	}
	if act.ID == "" {
		act.ID = uuid.NewString()
	}
	if err := t.put(ctx, act, state.AnyETag); err != nil {
		return nil, err
	}

	t.logger.Info("activity received",
		zap.String("activity_id", act.ID),
		zap.String("type", string(act.Type)),
		zap.String("conversation_id", conversationID(act)),
		zap.String("text", act.Text),
	)
	return &activity.ResourceResponse{ID: act.ID}, nil
}

func (t *hostTurn) UpdateActivity(ctx context.Context, act *activity.Activity) (*activity.ResourceResponse, error) {
	if act == nil || act.ID == "" {
		return nil, errors.New("host: update needs an activity id")
	}
	item, err := t.storage.Read(ctx, activityKey(act.ID))
	if errors.Is(err, state.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", turn.ErrActivityNotFound, act.ID)
	}
	if err != nil {
		return nil, err
	}
	if err := t.put(ctx, act, item.ETag); err != nil {
		return nil, err
	}

	t.logger.Info("activity updated", zap.String("activity_id", act.ID))
	return &activity.ResourceResponse{ID: act.ID}, nil
}

func (t *hostTurn) DeleteActivity(ctx context.Context, activityID string) error {
	key := activityKey(activityID)
	if _, err := t.storage.Read(ctx, key); err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return fmt.Errorf("%w: %s", turn.ErrActivityNotFound, activityID)
		}
		return err
	}
	if err := t.storage.Delete(ctx, key); err != nil {
		return err
	}

	t.logger.Info("activity deleted", zap.String("activity_id", activityID))
	return nil
}

func (t *hostTurn) put(ctx context.Context, act *activity.Activity, etag string) error {
	data, err := json.Marshal(act)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	_, err = t.storage.Write(ctx, activityKey(act.ID), &state.Item{Data: data, ETag: etag})
	return err
}

// lookup 读取已持久化的活动
func (t *hostTurn) lookup(ctx context.Context, id string) (*activity.Activity, error) {
	item, err := t.storage.Read(ctx, activityKey(id))
	if err != nil {
		return nil, err
	}
	return activity.Parse(item.Data)
}

func conversationID(act *activity.Activity) string {
	if act == nil || act.Conversation == nil {
		return ""
	}
	return act.Conversation.ID
}

// =============================================================================
// 🎛️ 控制事件
// =============================================================================

// hostCallbacks 宿主对控制事件只记录日志；宿主本身不做 OAuth 或转人工
func hostCallbacks(logger *zap.Logger) handler.Callbacks {
	logControl := func(kind string) handler.Callback {
		return func(_ context.Context, act *activity.Activity) error {
			logger.Info("control activity received",
				zap.String("kind", kind),
				zap.String("activity_id", act.ID),
				zap.String("conversation_id", conversationID(act)),
			)
			return nil
		}
	}
	return handler.Callbacks{
		TokenRequest: logControl("tokens/request"),
		Fallback:     logControl("fallback"),
		Handoff:      logControl("handoff"),
	}
}
