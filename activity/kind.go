package activity

// Well-known event names carried by control events.
const (
	// TokenRequestEventName is sent by a skill that needs an OAuth token from its caller.
	TokenRequestEventName = "tokens/request"
	// TokenResponseEventName carries the token back.
	TokenResponseEventName = "tokens/response"
	// FallbackEventName is sent by a skill that cannot handle the utterance.
	FallbackEventName = "fallbackEvent"
)

// KindTag 活动形态标签
type KindTag int

const (
	KindOther KindTag = iota
	KindMessage
	KindEvent
	KindHandoff
	KindEndOfConversation
)

func (k KindTag) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindEvent:
		return "event"
	case KindHandoff:
		return "handoff"
	case KindEndOfConversation:
		return "endOfConversation"
	default:
		return "other"
	}
}

// Kind is the shape of an activity: Message, Event(name), Handoff,
// EndOfConversation or Other. Name is only set for events.
type Kind struct {
	Tag  KindTag
	Name string
}

// Classify maps an activity onto its Kind. A nil activity is Other.
func Classify(a *Activity) Kind {
	if a == nil {
		return Kind{Tag: KindOther}
	}
	switch a.Type {
	case TypeMessage:
		return Kind{Tag: KindMessage}
	case TypeEvent:
		return Kind{Tag: KindEvent, Name: a.Name}
	case TypeHandoff:
		return Kind{Tag: KindHandoff}
	case TypeEndOfConversation:
		return Kind{Tag: KindEndOfConversation}
	default:
		return Kind{Tag: KindOther}
	}
}

// IsEvent reports whether k is an event named name.
func (k Kind) IsEvent(name string) bool {
	return k.Tag == KindEvent && k.Name == name
}

// IsTokenRequest reports whether k is the token request control event.
func (k Kind) IsTokenRequest() bool {
	return k.IsEvent(TokenRequestEventName)
}

// IsFallback reports whether k is the fallback control event.
func (k Kind) IsFallback() bool {
	return k.IsEvent(FallbackEventName)
}

func (k Kind) String() string {
	if k.Tag == KindEvent {
		return "event(" + k.Name + ")"
	}
	return k.Tag.String()
}
