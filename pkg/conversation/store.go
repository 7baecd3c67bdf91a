package conversation

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/kendrekaran/AI-Chatbots/pkg/persistence"
	"github.com/kendrekaran/AI-Chatbots/pkg/settings"
)

// DefaultStorageKey is the fixed namespace under which the session state is
// auto-persisted.
const DefaultStorageKey = "ai-chatbot-session"

// Store owns the ordered message sequence and the active settings. Every
// mutating operation synchronously persists the full state through the
// persistence backend as one atomic write; no partial writes are observable.
type Store struct {
	mu       sync.Mutex
	messages []*Message
	settings *settings.Settings

	backend persistence.Store
	key     string
}

type StoreOption func(*Store)

func WithStorageKey(key string) StoreOption {
	return func(s *Store) {
		s.key = key
	}
}

func WithSettings(st *settings.Settings) StoreOption {
	return func(s *Store) {
		s.settings = st
	}
}

// NewStore creates a store backed by the given persistence backend and
// restores any previously persisted session once, at creation time. A corrupt
// persisted value is logged and ignored rather than failing startup.
func NewStore(backend persistence.Store, options ...StoreOption) *Store {
	ret := &Store{
		backend:  backend,
		key:      DefaultStorageKey,
		settings: settings.NewSettings(),
	}

	for _, option := range options {
		option(ret)
	}

	data, err := backend.Get(ret.key)
	if err != nil {
		if !errors.Is(err, persistence.ErrKeyNotFound) {
			log.Warn().Err(err).Str("key", ret.key).Msg("could not load persisted session")
		}
		return ret
	}

	snapshot, err := ParseSnapshot(data)
	if err != nil {
		log.Warn().Err(err).Str("key", ret.key).Msg("ignoring corrupt persisted session")
		return ret
	}

	ret.messages = snapshot.Messages
	// the client section is never persisted, keep the configured one
	client := ret.settings.Client
	ret.settings = snapshot.Settings
	ret.settings.Client = client

	log.Debug().Int("messages", len(ret.messages)).Msg("restored persisted session")
	return ret
}

// Messages returns a copy of the current message sequence.
func (s *Store) Messages() []*Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := make([]*Message, len(s.messages))
	copy(ret, s.messages)
	return ret
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Settings returns a deep copy of the active settings; callers mutate it
// freely and apply changes through UpdateSettings.
func (s *Store) Settings() *settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Clone()
}

func (s *Store) Append(msgs ...*Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msgs...)
	return s.persist()
}

// TruncateFrom drops all messages at and after index. Out-of-range indices
// are clamped.
func (s *Store) TruncateFrom(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 {
		index = 0
	}
	if index >= len(s.messages) {
		return nil
	}
	s.messages = s.messages[:index]
	return s.persist()
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	return s.persist()
}

// SetRevealState updates the reveal state of a single message and persists.
func (s *Store) SetRevealState(id MessageID, state RevealState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages {
		if m.ID == id {
			m.RevealState = state
			return s.persist()
		}
	}
	return errors.Errorf("no message with id %s", id)
}

func (s *Store) UpdateSettings(st *settings.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = st.Normalize()
	return s.persist()
}

// Snapshot captures the current session and settings for export.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Restore replaces the session and settings from a snapshot atomically. The
// snapshot is expected to have passed ParseSnapshot validation; the current
// state is only touched once nothing can fail anymore.
func (s *Store) Restore(snapshot *Snapshot) error {
	if snapshot == nil || snapshot.Messages == nil || snapshot.Settings == nil {
		return ErrMalformedSnapshot
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	client := s.settings.Client
	s.messages = snapshot.Messages
	s.settings = snapshot.Settings.Normalize()
	s.settings.Client = client
	return s.persist()
}

func (s *Store) snapshot() *Snapshot {
	msgs := make([]*Message, len(s.messages))
	copy(msgs, s.messages)
	return &Snapshot{
		Messages:   msgs,
		Settings:   s.settings,
		ExportedAt: time.Now(),
	}
}

// persist writes the full state under the storage key. Callers hold the lock.
func (s *Store) persist() error {
	data, err := s.snapshot().Marshal()
	if err != nil {
		return errors.Wrap(err, "could not serialize session")
	}
	if err := s.backend.Set(s.key, data); err != nil {
		return errors.Wrap(err, "could not persist session")
	}
	return nil
}
