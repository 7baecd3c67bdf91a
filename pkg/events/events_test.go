package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/require"

	"github.com/kendrekaran/AI-Chatbots/pkg/conversation"
)

func TestEventJSONRoundTrip(t *testing.T) {
	msg := conversation.NewUserMessage("hi")
	b, err := json.Marshal(NewMessageAppendedEvent(msg))
	require.NoError(t, err)

	e, err := NewEventFromJSON(b)
	require.NoError(t, err)

	appended, ok := e.(*EventMessageAppended)
	require.True(t, ok)
	require.Equal(t, EventTypeMessageAppended, appended.Type())
	require.Equal(t, "hi", appended.Message.Content)
	require.Equal(t, msg.ID, appended.Message.ID)
}

func TestNewEventFromJSONUnknownType(t *testing.T) {
	_, err := NewEventFromJSON([]byte(`{"type":"bogus"}`))
	require.Error(t, err)
}

func TestPublisherManagerSequenceNumbers(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 16,
	}, watermill.NopLogger{})

	messages, err := pubSub.Subscribe(context.Background(), "test-topic")
	require.NoError(t, err)

	pm := NewPublisherManager()
	pm.SubscribePublisher("test-topic", pubSub)

	pm.PublishBlind(NewErrorEvent("boom"))
	pm.PublishBlind(NewErrorClearedEvent())

	first := <-messages
	first.Ack()
	require.Equal(t, "0", first.Metadata.Get("sequence_number"))

	e, err := NewEventFromJSON(first.Payload)
	require.NoError(t, err)
	require.Equal(t, EventTypeError, e.Type())

	second := <-messages
	second.Ack()
	require.Equal(t, "1", second.Metadata.Get("sequence_number"))
}
