package events

// Package events defines the session event stream. The session controller
// publishes these instead of exposing reactive bindings; UIs subscribe to the
// topic and redraw from what they receive.

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/kendrekaran/AI-Chatbots/pkg/conversation"
)

// DefaultTopic is the topic session events are published on.
const DefaultTopic = "chat.session"

type EventType string

const (
	EventTypeStateChanged      EventType = "state-changed"
	EventTypeMessageAppended   EventType = "message-appended"
	EventTypeRevealDelta       EventType = "reveal-delta"
	EventTypeRevealDone        EventType = "reveal-done"
	EventTypeError             EventType = "error"
	EventTypeErrorCleared      EventType = "error-cleared"
	EventTypeSessionCleared    EventType = "session-cleared"
	EventTypeResponseDiscarded EventType = "response-discarded"
)

type Event interface {
	Type() EventType
}

type EventImpl struct {
	Type_ EventType `json:"type"`
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

// EventStateChanged reports Idle/Sending transitions of the controller.
type EventStateChanged struct {
	EventImpl
	State string `json:"state"`
}

func NewStateChangedEvent(state string) *EventStateChanged {
	return &EventStateChanged{
		EventImpl: EventImpl{Type_: EventTypeStateChanged},
		State:     state,
	}
}

type EventMessageAppended struct {
	EventImpl
	Message *conversation.Message `json:"message"`
}

func NewMessageAppendedEvent(msg *conversation.Message) *EventMessageAppended {
	return &EventMessageAppended{
		EventImpl: EventImpl{Type_: EventTypeMessageAppended},
		Message:   msg,
	}
}

// EventRevealDelta carries the currently displayed prefix of a revealing
// message.
type EventRevealDelta struct {
	EventImpl
	MessageID conversation.MessageID `json:"messageId"`
	Displayed string                 `json:"displayed"`
}

func NewRevealDeltaEvent(id conversation.MessageID, displayed string) *EventRevealDelta {
	return &EventRevealDelta{
		EventImpl: EventImpl{Type_: EventTypeRevealDelta},
		MessageID: id,
		Displayed: displayed,
	}
}

type EventRevealDone struct {
	EventImpl
	MessageID conversation.MessageID `json:"messageId"`
}

func NewRevealDoneEvent(id conversation.MessageID) *EventRevealDone {
	return &EventRevealDone{
		EventImpl: EventImpl{Type_: EventTypeRevealDone},
		MessageID: id,
	}
}

type EventError struct {
	EventImpl
	Message string `json:"message"`
}

func NewErrorEvent(message string) *EventError {
	return &EventError{
		EventImpl: EventImpl{Type_: EventTypeError},
		Message:   message,
	}
}

type EventErrorCleared struct {
	EventImpl
}

func NewErrorClearedEvent() *EventErrorCleared {
	return &EventErrorCleared{EventImpl: EventImpl{Type_: EventTypeErrorCleared}}
}

type EventSessionCleared struct {
	EventImpl
}

func NewSessionClearedEvent() *EventSessionCleared {
	return &EventSessionCleared{EventImpl: EventImpl{Type_: EventTypeSessionCleared}}
}

// EventResponseDiscarded is published when a completion resolves after the
// session that issued it was cleared.
type EventResponseDiscarded struct {
	EventImpl
	Reason string `json:"reason"`
}

func NewResponseDiscardedEvent(reason string) *EventResponseDiscarded {
	return &EventResponseDiscarded{
		EventImpl: EventImpl{Type_: EventTypeResponseDiscarded},
		Reason:    reason,
	}
}

// NewEventFromJSON decodes a published payload back into its concrete event
// type.
func NewEventFromJSON(b []byte) (Event, error) {
	var peek struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(b, &peek); err != nil {
		return nil, err
	}

	var ret Event
	switch peek.Type {
	case EventTypeStateChanged:
		ret = &EventStateChanged{}
	case EventTypeMessageAppended:
		ret = &EventMessageAppended{}
	case EventTypeRevealDelta:
		ret = &EventRevealDelta{}
	case EventTypeRevealDone:
		ret = &EventRevealDone{}
	case EventTypeError:
		ret = &EventError{}
	case EventTypeErrorCleared:
		ret = &EventErrorCleared{}
	case EventTypeSessionCleared:
		ret = &EventSessionCleared{}
	case EventTypeResponseDiscarded:
		ret = &EventResponseDiscarded{}
	default:
		return nil, errors.Errorf("unknown event type %q", peek.Type)
	}

	if err := json.Unmarshal(b, ret); err != nil {
		return nil, err
	}
	return ret, nil
}
