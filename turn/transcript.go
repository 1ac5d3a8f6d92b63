package turn

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/skillbridge/activity"
	"github.com/google/uuid"
)

// Op is a recorded transcript operation.
type Op string

const (
	OpSend   Op = "send"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Entry 一条转录记录
type Entry struct {
	Op         Op
	ActivityID string
	Activity   *activity.Activity
}

// Listener observes transcript operations. It runs synchronously under no lock.
type Listener func(ctx context.Context, e Entry)

// Transcript is an in-memory turn Context that records everything it is sent.
type Transcript struct {
	mu        sync.Mutex
	inbound   *activity.Activity
	entries   []Entry
	live      map[string]*activity.Activity
	listeners []Listener
}

// NewTranscript creates a transcript whose inbound activity is inbound.
func NewTranscript(inbound *activity.Activity, listeners ...Listener) *Transcript {
	return &Transcript{
		inbound:   inbound,
		live:      make(map[string]*activity.Activity),
		listeners: listeners,
	}
}

var _ Context = (*Transcript)(nil)

// Activity implements Context.
func (t *Transcript) Activity() *activity.Activity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inbound
}

// SetActivity replaces the inbound activity, starting a new turn on the same transcript.
func (t *Transcript) SetActivity(act *activity.Activity) {
	t.mu.Lock()
	t.inbound = act
	t.mu.Unlock()
}

// SendActivity implements Context. Activities without an id get one.
func (t *Transcript) SendActivity(ctx context.Context, act *activity.Activity) (*activity.ResourceResponse, error) {
	if act == nil {
		return nil, fmt.Errorf("turn: nil activity")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if act.ID == "" {
		act.ID = uuid.New().String()
	}

	e := Entry{Op: OpSend, ActivityID: act.ID, Activity: act}
	t.mu.Lock()
	t.entries = append(t.entries, e)
	t.live[act.ID] = act
	t.mu.Unlock()

	t.notify(ctx, e)
	return &activity.ResourceResponse{ID: act.ID}, nil
}

// UpdateActivity implements Context.
func (t *Transcript) UpdateActivity(ctx context.Context, act *activity.Activity) (*activity.ResourceResponse, error) {
	if act == nil {
		return nil, fmt.Errorf("turn: nil activity")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e := Entry{Op: OpUpdate, ActivityID: act.ID, Activity: act}
	t.mu.Lock()
	if _, ok := t.live[act.ID]; !ok {
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrActivityNotFound, act.ID)
	}
	t.live[act.ID] = act
	t.entries = append(t.entries, e)
	t.mu.Unlock()

	t.notify(ctx, e)
	return &activity.ResourceResponse{ID: act.ID}, nil
}

// DeleteActivity implements Context.
func (t *Transcript) DeleteActivity(ctx context.Context, activityID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := Entry{Op: OpDelete, ActivityID: activityID}
	t.mu.Lock()
	if _, ok := t.live[activityID]; !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrActivityNotFound, activityID)
	}
	delete(t.live, activityID)
	t.entries = append(t.entries, e)
	t.mu.Unlock()

	t.notify(ctx, e)
	return nil
}

func (t *Transcript) notify(ctx context.Context, e Entry) {
	for _, l := range t.listeners {
		l(ctx, e)
	}
}

// Entries returns a copy of every recorded operation in order.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Sent returns the sent activities, optionally filtered by type.
func (t *Transcript) Sent(types ...activity.Type) []*activity.Activity {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*activity.Activity
	for _, e := range t.entries {
		if e.Op != OpSend {
			continue
		}
		if len(types) == 0 || containsType(types, e.Activity.Type) {
			out = append(out, e.Activity)
		}
	}
	return out
}

// Lookup returns the live (sent, not deleted) activity with the given id.
func (t *Transcript) Lookup(id string) (*activity.Activity, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	act, ok := t.live[id]
	return act, ok
}

func containsType(types []activity.Type, t activity.Type) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}
