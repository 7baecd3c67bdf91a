package session

// Package session implements the conversation session engine: it owns the
// send / regenerate / clear lifecycle, keeps at most one completion request
// in flight, classifies responses, drives the progressive reveal of assistant
// replies and surfaces failures through the error reporter.

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/kendrekaran/AI-Chatbots/pkg/chat"
	"github.com/kendrekaran/AI-Chatbots/pkg/classify"
	"github.com/kendrekaran/AI-Chatbots/pkg/conversation"
	"github.com/kendrekaran/AI-Chatbots/pkg/events"
	"github.com/kendrekaran/AI-Chatbots/pkg/helpers"
	"github.com/kendrekaran/AI-Chatbots/pkg/reveal"
)

// State of the controller: Idle, or Sending while a completion request is
// outstanding. Concurrent sends while Sending are rejected, not queued.
type State string

const (
	StateIdle    State = "idle"
	StateSending State = "sending"
)

var (
	// ErrEmptyInput is returned when the effective input is empty or
	// whitespace-only. Callers treat it as a silent no-op.
	ErrEmptyInput = errors.New("empty input")
	// ErrRequestInFlight is returned when a send or regenerate is attempted
	// while a request is already outstanding.
	ErrRequestInFlight = errors.New("a request is already in flight")
)

type Controller struct {
	store     *conversation.Store
	client    chat.Client
	animator  *reveal.Animator
	reporter  *Reporter
	publisher *events.PublisherManager
	scheduler helpers.Scheduler

	mu      sync.Mutex
	pending string
	sending bool
	// epoch is bumped on Clear; a completion that resolves under an older
	// epoch is discarded instead of appending to the cleared session
	epoch uint64
}

type ControllerOption func(*Controller)

// WithScheduler replaces the real-time scheduler driving the reveal animator
// and the error reporter. Tests pass a manual scheduler here.
func WithScheduler(s helpers.Scheduler) ControllerOption {
	return func(c *Controller) {
		c.scheduler = s
	}
}

func WithPublisherManager(pm *events.PublisherManager) ControllerOption {
	return func(c *Controller) {
		c.publisher = pm
	}
}

func NewController(store *conversation.Store, client chat.Client, options ...ControllerOption) *Controller {
	ret := &Controller{
		store:     store,
		client:    client,
		scheduler: helpers.NewTimerScheduler(),
		publisher: events.NewPublisherManager(),
	}

	for _, option := range options {
		option(ret)
	}

	ret.animator = reveal.NewAnimator(ret.scheduler)
	ret.reporter = NewReporter(ret.scheduler, WithOnChange(func(message string, visible bool) {
		if visible {
			ret.publisher.PublishBlind(events.NewErrorEvent(message))
		} else {
			ret.publisher.PublishBlind(events.NewErrorClearedEvent())
		}
	}))

	return ret
}

func (c *Controller) Store() *conversation.Store {
	return c.store
}

func (c *Controller) Publisher() *events.PublisherManager {
	return c.publisher
}

// CurrentError returns the visible error, if any.
func (c *Controller) CurrentError() (string, bool) {
	return c.reporter.Current()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sending {
		return StateSending
	}
	return StateIdle
}

// SetPending replaces the pending input buffer used by Send.
func (c *Controller) SetPending(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = content
}

func (c *Controller) Pending() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Send submits the pending input buffer as the next user turn and clears it
// on acceptance.
func (c *Controller) Send(ctx context.Context) error {
	c.mu.Lock()
	content := c.pending
	c.mu.Unlock()

	err := c.send(ctx, content, false)
	if err == nil || errors.Is(err, ErrEmptyInput) {
		c.mu.Lock()
		c.pending = ""
		c.mu.Unlock()
	}
	return err
}

// SendText submits content directly, bypassing the pending buffer.
func (c *Controller) SendText(ctx context.Context, content string) error {
	return c.send(ctx, content, false)
}

// RegenerateLast redoes the last exchange: it finds the most recent user
// message, truncates the session back to just before it and replays its
// content. The replayed user turn goes through the regular send path, so it
// is appended to the session again and stays durably recorded.
//
// A no-op when fewer than two messages exist or a request is in flight.
func (c *Controller) RegenerateLast(ctx context.Context) error {
	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return ErrRequestInFlight
	}
	c.mu.Unlock()

	msgs := c.store.Messages()
	if len(msgs) < 2 {
		log.Debug().Int("messages", len(msgs)).Msg("not enough messages to regenerate")
		return nil
	}

	idx := -1
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == conversation.RoleUser {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	content := msgs[idx].Content
	if err := c.store.TruncateFrom(idx); err != nil {
		return err
	}

	log.Debug().Int("truncated_to", idx).Msg("regenerating last exchange")
	return c.send(ctx, content, true)
}

// Clear empties the session unconditionally; gating behind a confirmation is
// the caller's concern. Any in-flight reveal is torn down, and a completion
// request still outstanding will have its late response discarded.
func (c *Controller) Clear() error {
	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()

	c.animator.CancelAll()
	c.reporter.Clear()

	if err := c.store.Clear(); err != nil {
		return err
	}

	c.publisher.PublishBlind(events.NewSessionClearedEvent())
	log.Info().Msg("session cleared")
	return nil
}

// Export serializes the current session and settings.
func (c *Controller) Export() ([]byte, error) {
	return c.store.Snapshot().Marshal()
}

// Import validates and restores a snapshot. A malformed snapshot is surfaced
// through the error reporter and leaves the current session untouched.
func (c *Controller) Import(data []byte) error {
	snapshot, err := conversation.ParseSnapshot(data)
	if err != nil {
		c.reporter.Report("Could not import conversation: invalid file format.")
		return err
	}

	c.animator.CancelAll()
	if err := c.store.Restore(snapshot); err != nil {
		c.reporter.Report("Could not import conversation: invalid file format.")
		return err
	}

	c.publisher.PublishBlind(events.NewSessionClearedEvent())
	for _, msg := range c.store.Messages() {
		c.publisher.PublishBlind(events.NewMessageAppendedEvent(msg))
	}
	log.Info().Int("messages", len(snapshot.Messages)).Msg("imported session")
	return nil
}

func (c *Controller) send(ctx context.Context, content string, replay bool) error {
	trimmed := strings.TrimSpace(content)

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return ErrRequestInFlight
	}
	if trimmed == "" && !replay {
		c.mu.Unlock()
		return ErrEmptyInput
	}
	c.sending = true
	epoch := c.epoch
	c.mu.Unlock()

	c.reporter.Clear()
	c.publisher.PublishBlind(events.NewStateChangedEvent(string(StateSending)))
	defer func() {
		c.mu.Lock()
		c.sending = false
		c.mu.Unlock()
		c.publisher.PublishBlind(events.NewStateChangedEvent(string(StateIdle)))
	}()

	userMsg := conversation.NewUserMessage(trimmed)
	if err := c.store.Append(userMsg); err != nil {
		return err
	}
	c.publisher.PublishBlind(events.NewMessageAppendedEvent(userMsg))

	st := c.store.Settings()
	rc := chat.RequestContextFromSettings(st)
	history := c.historyTurns()

	text, err := c.client.Complete(ctx, history, rc)

	c.mu.Lock()
	stale := epoch != c.epoch
	c.mu.Unlock()
	if stale {
		log.Info().Msg("discarding completion that resolved after clear")
		c.publisher.PublishBlind(events.NewResponseDiscardedEvent("session cleared while request was in flight"))
		return nil
	}

	if err != nil {
		c.reporter.Report(userFacingError(err))
		return errors.Wrap(err, "completion failed")
	}

	classification := classify.Classify(text)
	assistantMsg := conversation.NewAssistantMessage(
		classification,
		conversation.WithRevealState(conversation.RevealRevealing),
	)
	if err := c.store.Append(assistantMsg); err != nil {
		return err
	}
	c.publisher.PublishBlind(events.NewMessageAppendedEvent(assistantMsg))

	c.startReveal(assistantMsg, st.UI.TypingSpeedMs)
	return nil
}

func (c *Controller) startReveal(msg *conversation.Message, typingSpeedMs int) {
	if typingSpeedMs <= 0 {
		typingSpeedMs = 1
	}
	interval := time.Duration(typingSpeedMs) * time.Millisecond
	id := msg.ID

	c.animator.Start(msg.Content, interval, reveal.Callbacks{
		OnProgress: func(displayed string) {
			c.publisher.PublishBlind(events.NewRevealDeltaEvent(id, displayed))
		},
		OnDone: func() {
			if err := c.store.SetRevealState(id, conversation.RevealRevealed); err != nil {
				// the message may be gone if the session was cleared mid-reveal
				log.Debug().Err(err).Str("message_id", id.String()).Msg("could not mark message revealed")
				return
			}
			c.publisher.PublishBlind(events.NewRevealDoneEvent(id))
		},
	})
}

// historyTurns maps the session to outbound {role, content} pairs. Ids,
// timestamps and reveal state never go over the wire.
func (c *Controller) historyTurns() []chat.Turn {
	msgs := c.store.Messages()
	turns := make([]chat.Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, chat.Turn{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return turns
}

func userFacingError(err error) string {
	var completionErr *chat.CompletionError
	if errors.As(err, &completionErr) {
		return completionErr.UserMessage()
	}
	return err.Error()
}
