package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kendrekaran/AI-Chatbots/pkg/chat"
	"github.com/kendrekaran/AI-Chatbots/pkg/classify"
	"github.com/kendrekaran/AI-Chatbots/pkg/conversation"
	"github.com/kendrekaran/AI-Chatbots/pkg/helpers"
	"github.com/kendrekaran/AI-Chatbots/pkg/persistence"
)

type fakeClient struct {
	response string
	err      error
	hook     func(c *fakeClient)

	histories []([]chat.Turn)
	contexts  []chat.RequestContext
}

func (f *fakeClient) Complete(_ context.Context, history []chat.Turn, rc chat.RequestContext) (string, error) {
	turns := make([]chat.Turn, len(history))
	copy(turns, history)
	f.histories = append(f.histories, turns)
	f.contexts = append(f.contexts, rc)
	if f.hook != nil {
		f.hook(f)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newTestController(t *testing.T, client chat.Client) (*Controller, *helpers.ManualScheduler) {
	t.Helper()
	scheduler := helpers.NewManualScheduler()
	store := conversation.NewStore(persistence.NewInMemoryStore())
	return NewController(store, client, WithScheduler(scheduler)), scheduler
}

func TestSendAppendsUserAndAssistantMessages(t *testing.T) {
	client := &fakeClient{response: "hello there"}
	c, scheduler := newTestController(t, client)

	require.NoError(t, c.SendText(context.Background(), "  hi  "))

	msgs := c.Store().Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, conversation.RoleUser, msgs[0].Role)
	require.Equal(t, "hi", msgs[0].Content)
	require.Equal(t, conversation.RoleAssistant, msgs[1].Role)
	require.Equal(t, "hello there", msgs[1].Content)
	require.Equal(t, conversation.RevealRevealing, msgs[1].RevealState)

	// the request history includes the new user turn, role/content only
	require.Len(t, client.histories, 1)
	require.Equal(t, []chat.Turn{{Role: "user", Content: "hi"}}, client.histories[0])

	// reveal completes after length * interval
	scheduler.Advance(time.Duration(len("hello there")) * 30 * time.Millisecond)
	require.Equal(t, conversation.RevealRevealed, c.Store().Messages()[1].RevealState)
	require.Equal(t, StateIdle, c.State())
}

func TestSendEmptyInputIsNoOp(t *testing.T) {
	client := &fakeClient{response: "unused"}
	c, _ := newTestController(t, client)

	err := c.SendText(context.Background(), "   \n\t ")
	require.ErrorIs(t, err, ErrEmptyInput)
	require.Equal(t, 0, c.Store().Len())
	require.Empty(t, client.histories)

	_, visible := c.CurrentError()
	require.False(t, visible)
}

func TestSendWhileSendingIsRejected(t *testing.T) {
	c := (*Controller)(nil)
	var innerErr error
	client := &fakeClient{
		response: "ok",
		hook: func(*fakeClient) {
			innerErr = c.SendText(context.Background(), "second")
		},
	}
	c, _ = newTestController(t, client)

	require.NoError(t, c.SendText(context.Background(), "first"))
	require.ErrorIs(t, innerErr, ErrRequestInFlight)

	// only the first exchange made it into the session
	require.Equal(t, 2, c.Store().Len())
	require.Len(t, client.histories, 1)
}

func TestSendFailureKeepsUserMessage(t *testing.T) {
	client := &fakeClient{err: chat.NewCompletionError(chat.ErrorKindRateLimited, "slow down")}
	c, scheduler := newTestController(t, client)

	err := c.SendText(context.Background(), "hi")
	require.Error(t, err)

	msgs := c.Store().Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, conversation.RoleUser, msgs[0].Role)

	msg, visible := c.CurrentError()
	require.True(t, visible)
	require.Contains(t, msg, "Rate limit")

	scheduler.Advance(ErrorDisplayDuration)
	_, visible = c.CurrentError()
	require.False(t, visible)
	require.Equal(t, StateIdle, c.State())
}

func TestSendClassifiesCodeResponses(t *testing.T) {
	client := &fakeClient{response: "```python\nprint(1)\n```"}
	c, _ := newTestController(t, client)

	require.NoError(t, c.SendText(context.Background(), "write code"))

	msgs := c.Store().Messages()
	require.Equal(t, classify.ContentKindCode, msgs[1].Kind)
	require.Equal(t, "python", msgs[1].Language)
	require.Equal(t, "print(1)", msgs[1].Content)
}

func TestSendUsesPendingBuffer(t *testing.T) {
	client := &fakeClient{response: "ok"}
	c, _ := newTestController(t, client)

	c.SetPending("from buffer")
	require.NoError(t, c.Send(context.Background()))
	require.Equal(t, "", c.Pending())
	require.Equal(t, "from buffer", c.Store().Messages()[0].Content)
}

func TestRegenerateLastReplaysLastUserTurn(t *testing.T) {
	client := &fakeClient{response: "hello"}
	c, _ := newTestController(t, client)

	require.NoError(t, c.SendText(context.Background(), "hi"))
	require.Equal(t, 2, c.Store().Len())

	client.response = "hello again"
	require.NoError(t, c.RegenerateLast(context.Background()))

	// exactly one new request, replaying "hi" against the truncated session
	require.Len(t, client.histories, 2)
	require.Equal(t, []chat.Turn{{Role: "user", Content: "hi"}}, client.histories[1])

	// the replayed user turn is recorded again, followed by the new answer
	msgs := c.Store().Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "hi", msgs[0].Content)
	require.Equal(t, conversation.RoleUser, msgs[0].Role)
	require.Equal(t, "hello again", msgs[1].Content)
}

func TestRegenerateLastNoOpWithTooFewMessages(t *testing.T) {
	client := &fakeClient{response: "unused"}
	c, _ := newTestController(t, client)

	require.NoError(t, c.RegenerateLast(context.Background()))
	require.Empty(t, client.histories)

	require.NoError(t, c.Store().Append(conversation.NewUserMessage("alone")))
	require.NoError(t, c.RegenerateLast(context.Background()))
	require.Empty(t, client.histories)
	require.Equal(t, 1, c.Store().Len())
}

func TestClearEmptiesSession(t *testing.T) {
	client := &fakeClient{response: "hello"}
	c, _ := newTestController(t, client)

	require.NoError(t, c.SendText(context.Background(), "hi"))
	require.NoError(t, c.Clear())
	require.Equal(t, 0, c.Store().Len())
}

func TestResponseAfterClearIsDiscarded(t *testing.T) {
	c := (*Controller)(nil)
	client := &fakeClient{
		response: "late answer",
		hook: func(*fakeClient) {
			require.NoError(t, c.Clear())
		},
	}
	c, _ = newTestController(t, client)

	require.NoError(t, c.SendText(context.Background(), "hi"))

	// the late response must not repopulate the cleared session
	require.Equal(t, 0, c.Store().Len())
	_, visible := c.CurrentError()
	require.False(t, visible)
	require.Equal(t, StateIdle, c.State())
}

func TestClearCancelsInFlightReveal(t *testing.T) {
	client := &fakeClient{response: "a long answer"}
	c, scheduler := newTestController(t, client)

	require.NoError(t, c.SendText(context.Background(), "hi"))
	scheduler.Advance(60 * time.Millisecond)

	require.NoError(t, c.Clear())
	scheduler.Advance(time.Second)
	require.Equal(t, 0, c.Store().Len())
	require.Equal(t, 0, scheduler.Pending())
}

func TestExportImportRoundTrip(t *testing.T) {
	client := &fakeClient{response: "hello"}
	c, scheduler := newTestController(t, client)

	require.NoError(t, c.SendText(context.Background(), "hi"))
	scheduler.Advance(time.Second)

	data, err := c.Export()
	require.NoError(t, err)

	other, _ := newTestController(t, &fakeClient{})
	require.NoError(t, other.Import(data))

	want := c.Store().Messages()
	got := other.Store().Messages()
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].ID, got[i].ID)
		require.Equal(t, want[i].Content, got[i].Content)
		require.Equal(t, want[i].RevealState, got[i].RevealState)
	}
}

func TestImportMalformedSnapshotLeavesSessionUntouched(t *testing.T) {
	client := &fakeClient{response: "hello"}
	c, _ := newTestController(t, client)
	require.NoError(t, c.SendText(context.Background(), "hi"))

	err := c.Import([]byte(`{"messages":"broken"}`))
	require.ErrorIs(t, err, conversation.ErrMalformedSnapshot)

	require.Equal(t, 2, c.Store().Len())
	_, visible := c.CurrentError()
	require.True(t, visible)
}

func TestRequestContextCarriesSettings(t *testing.T) {
	client := &fakeClient{response: "ok"}
	c, _ := newTestController(t, client)

	st := c.Store().Settings()
	st.Chat.Model = "gpt-4"
	st.Chat.SystemPrompt = "be terse"
	require.NoError(t, c.Store().UpdateSettings(st))

	require.NoError(t, c.SendText(context.Background(), "hi"))
	require.Len(t, client.contexts, 1)
	require.Equal(t, "gpt-4", client.contexts[0].Model)
	require.Equal(t, "be terse", client.contexts[0].SystemPrompt)
}
