package conversation

// Package conversation provides the message data model and the persisted
// message store for a chat session.
//
// A session is an ordered sequence of messages; insertion order is
// conversation order and is never reordered. The sequence usually alternates
// user -> assistant but this is not enforced: regenerating or importing a
// session may produce any shape, and consumers must not assume strict
// alternation.

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kendrekaran/AI-Chatbots/pkg/classify"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// RevealState tracks the progressive-reveal lifecycle of a message. Only
// assistant messages ever pass through RevealRevealing.
type RevealState string

const (
	RevealImmediate RevealState = "immediate"
	RevealRevealing RevealState = "revealing"
	RevealRevealed  RevealState = "revealed"
)

type MessageID uuid.UUID

func NewMessageID() MessageID {
	return MessageID(uuid.New())
}

func (id MessageID) String() string {
	return uuid.UUID(id).String()
}

func (id MessageID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uuid.UUID(id))
}

func (id *MessageID) UnmarshalJSON(data []byte) error {
	var u uuid.UUID
	if err := json.Unmarshal(data, &u); err != nil {
		return err
	}
	*id = MessageID(u)
	return nil
}

// Message is one turn in the conversation. Content is the canonical text
// payload; for code-classified messages it is the code body only, fences
// already stripped.
type Message struct {
	ID          MessageID            `json:"id"`
	Role        Role                 `json:"role"`
	Content     string               `json:"content"`
	Kind        classify.ContentKind `json:"contentType"`
	Language    string               `json:"language,omitempty"`
	Time        time.Time            `json:"timestamp"`
	RevealState RevealState          `json:"revealState"`
}

type MessageOption func(*Message)

func WithID(id MessageID) MessageOption {
	return func(m *Message) {
		m.ID = id
	}
}

func WithTime(t time.Time) MessageOption {
	return func(m *Message) {
		m.Time = t
	}
}

func WithRevealState(state RevealState) MessageOption {
	return func(m *Message) {
		m.RevealState = state
	}
}

func NewMessage(role Role, content string, options ...MessageOption) *Message {
	ret := &Message{
		ID:          NewMessageID(),
		Role:        role,
		Content:     content,
		Kind:        classify.ContentKindText,
		Time:        time.Now(),
		RevealState: RevealImmediate,
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

func NewUserMessage(content string, options ...MessageOption) *Message {
	return NewMessage(RoleUser, content, options...)
}

// NewAssistantMessage builds an assistant message from a classified
// completion. The classifier decides content kind and language.
func NewAssistantMessage(c classify.Classification, options ...MessageOption) *Message {
	ret := NewMessage(RoleAssistant, c.Content, options...)
	ret.Kind = c.Kind
	ret.Language = c.Language
	return ret
}
