package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kendrekaran/AI-Chatbots/pkg/helpers"
)

// ErrorDisplayDuration is how long a reported error stays visible before it
// clears itself.
const ErrorDisplayDuration = 5 * time.Second

// Reporter holds the single user-visible error. Reporting a new error
// replaces the previous one and restarts the auto-clear countdown.
type Reporter struct {
	mu        sync.Mutex
	scheduler helpers.Scheduler
	current   string
	visible   bool
	cancel    helpers.CancelFunc
	onChange  func(message string, visible bool)
}

type ReporterOption func(*Reporter)

// WithOnChange registers a callback fired whenever the visible error changes:
// with the message on report, with visible=false on clear.
func WithOnChange(fn func(message string, visible bool)) ReporterOption {
	return func(r *Reporter) {
		r.onChange = fn
	}
}

func NewReporter(scheduler helpers.Scheduler, options ...ReporterOption) *Reporter {
	ret := &Reporter{
		scheduler: scheduler,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Report makes message the visible error and (re)starts the auto-clear timer.
func (r *Reporter) Report(message string) {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.current = message
	r.visible = true
	r.cancel = r.scheduler.Schedule(ErrorDisplayDuration, r.expire)
	onChange := r.onChange
	r.mu.Unlock()

	log.Debug().Str("message", message).Msg("reporting error")
	if onChange != nil {
		onChange(message, true)
	}
}

// Clear cancels the timer and hides the error immediately.
func (r *Reporter) Clear() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	wasVisible := r.visible
	r.current = ""
	r.visible = false
	onChange := r.onChange
	r.mu.Unlock()

	if wasVisible && onChange != nil {
		onChange("", false)
	}
}

// Current returns the visible error, if any.
func (r *Reporter) Current() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.visible
}

func (r *Reporter) expire() {
	r.mu.Lock()
	r.cancel = nil
	wasVisible := r.visible
	r.current = ""
	r.visible = false
	onChange := r.onChange
	r.mu.Unlock()

	if wasVisible && onChange != nil {
		onChange("", false)
	}
}
