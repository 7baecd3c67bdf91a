package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kendrekaran/AI-Chatbots/pkg/classify"
	"github.com/kendrekaran/AI-Chatbots/pkg/persistence"
	"github.com/kendrekaran/AI-Chatbots/pkg/settings"
)

func newTestStore(t *testing.T) (*Store, *persistence.InMemoryStore) {
	t.Helper()
	backend := persistence.NewInMemoryStore()
	return NewStore(backend), backend
}

func TestAppendPersists(t *testing.T) {
	store, backend := newTestStore(t)

	require.NoError(t, store.Append(NewUserMessage("hi")))
	require.Equal(t, 1, store.Len())

	data, err := backend.Get(DefaultStorageKey)
	require.NoError(t, err)

	snapshot, err := ParseSnapshot(data)
	require.NoError(t, err)
	require.Len(t, snapshot.Messages, 1)
	require.Equal(t, "hi", snapshot.Messages[0].Content)
	require.Equal(t, RoleUser, snapshot.Messages[0].Role)
}

func TestTruncateFrom(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Append(
		NewUserMessage("one"),
		NewAssistantMessage(classify.Classify("two")),
		NewUserMessage("three"),
	))

	require.NoError(t, store.TruncateFrom(1))
	msgs := store.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "one", msgs[0].Content)

	// out of range indices are clamped
	require.NoError(t, store.TruncateFrom(5))
	require.Equal(t, 1, store.Len())
	require.NoError(t, store.TruncateFrom(-1))
	require.Equal(t, 0, store.Len())
}

func TestClear(t *testing.T) {
	store, backend := newTestStore(t)
	require.NoError(t, store.Append(NewUserMessage("hi")))
	require.NoError(t, store.Clear())
	require.Equal(t, 0, store.Len())

	data, err := backend.Get(DefaultStorageKey)
	require.NoError(t, err)
	snapshot, err := ParseSnapshot(data)
	require.NoError(t, err)
	require.Empty(t, snapshot.Messages)
}

func TestRestoreAtStartup(t *testing.T) {
	backend := persistence.NewInMemoryStore()
	first := NewStore(backend)
	require.NoError(t, first.Append(NewUserMessage("hello"), NewAssistantMessage(classify.Classify("world"))))

	second := NewStore(backend)
	msgs := second.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "hello", msgs[0].Content)
	require.Equal(t, "world", msgs[1].Content)
}

func TestRestoreKeepsConfiguredCredential(t *testing.T) {
	backend := persistence.NewInMemoryStore()
	first := NewStore(backend)
	require.NoError(t, first.Append(NewUserMessage("hello")))

	st := settings.NewSettings()
	st.Client.APIKey = "sk-test"
	second := NewStore(backend, WithSettings(st))
	require.Equal(t, "sk-test", second.Settings().Client.APIKey)
}

func TestExportImportRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(
		NewUserMessage("write me a loop", WithTime(ts)),
		NewAssistantMessage(classify.Classify("```python\nfor i in range(3):\n    print(i)\n```"),
			WithTime(ts.Add(time.Second)), WithRevealState(RevealRevealed)),
	))

	data, err := store.Snapshot().Marshal()
	require.NoError(t, err)

	snapshot, err := ParseSnapshot(data)
	require.NoError(t, err)

	other, _ := newTestStore(t)
	require.NoError(t, other.Restore(snapshot))

	want := store.Messages()
	got := other.Messages()
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].ID, got[i].ID)
		require.Equal(t, want[i].Role, got[i].Role)
		require.Equal(t, want[i].Content, got[i].Content)
		require.Equal(t, want[i].Kind, got[i].Kind)
		require.Equal(t, want[i].Language, got[i].Language)
		require.True(t, want[i].Time.Equal(got[i].Time))
		require.Equal(t, want[i].RevealState, got[i].RevealState)
	}
	require.Equal(t, store.Settings().Chat, other.Settings().Chat)
	require.Equal(t, store.Settings().UI, other.Settings().UI)
}

func TestParseSnapshotMissingFields(t *testing.T) {
	_, err := ParseSnapshot([]byte(`{"settings":{}}`))
	require.ErrorIs(t, err, ErrMalformedSnapshot)

	_, err = ParseSnapshot([]byte(`{"messages":[]}`))
	require.ErrorIs(t, err, ErrMalformedSnapshot)

	_, err = ParseSnapshot([]byte(`{"messages":"nope","settings":{}}`))
	require.ErrorIs(t, err, ErrMalformedSnapshot)

	_, err = ParseSnapshot([]byte(`not json`))
	require.ErrorIs(t, err, ErrMalformedSnapshot)
}

func TestParseSnapshotUnknownRole(t *testing.T) {
	payload := `{"messages":[{"id":"5bff1f21-4b9d-4e4c-9b6d-6c2f1a6b2e11","role":"robot","content":"x","contentType":"text","timestamp":"2024-03-01T12:00:00Z","revealState":"immediate"}],"settings":{}}`
	_, err := ParseSnapshot([]byte(payload))
	require.ErrorIs(t, err, ErrMalformedSnapshot)
}

func TestRestoreRejectsNil(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Append(NewUserMessage("keep me")))

	require.ErrorIs(t, store.Restore(nil), ErrMalformedSnapshot)
	require.Equal(t, 1, store.Len())
}

func TestSetRevealState(t *testing.T) {
	store, _ := newTestStore(t)
	msg := NewAssistantMessage(classify.Classify("hi"), WithRevealState(RevealRevealing))
	require.NoError(t, store.Append(msg))

	require.NoError(t, store.SetRevealState(msg.ID, RevealRevealed))
	require.Equal(t, RevealRevealed, store.Messages()[0].RevealState)

	err := store.SetRevealState(NewMessageID(), RevealRevealed)
	require.Error(t, err)
}
