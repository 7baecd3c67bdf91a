package reveal

// Package reveal simulates incremental arrival of an already fully received
// assistant reply, one character at a fixed interval. Each reveal is an
// independent timer chain; tearing one down mid-flight cancels the chain and
// leaves whatever prefix was last shown.

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kendrekaran/AI-Chatbots/pkg/helpers"
)

// Animator starts reveals and keeps track of the in-flight ones so a session
// teardown can cancel them all.
type Animator struct {
	mu        sync.Mutex
	scheduler helpers.Scheduler
	nextID    int
	active    map[int]*Reveal
}

func NewAnimator(scheduler helpers.Scheduler) *Animator {
	return &Animator{
		scheduler: scheduler,
		active:    make(map[int]*Reveal),
	}
}

// Callbacks receive reveal progress. OnProgress gets the currently displayed
// prefix after every step; OnDone fires exactly once, when the full content
// is shown. Both are optional.
type Callbacks struct {
	OnProgress func(displayed string)
	OnDone     func()
}

// Start begins revealing content at one rune per interval. The displayed
// value grows monotonically from the empty string to the full content.
func (a *Animator) Start(content string, interval time.Duration, cb Callbacks) *Reveal {
	a.mu.Lock()
	id := a.nextID
	a.nextID++

	r := &Reveal{
		runes:    []rune(content),
		interval: interval,
		cb:       cb,
		remove: func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			delete(a.active, id)
		},
		scheduler: a.scheduler,
	}
	a.active[id] = r
	a.mu.Unlock()

	log.Trace().Int("length", len(r.runes)).Dur("interval", interval).Msg("starting reveal")

	if len(r.runes) == 0 {
		r.finish()
		return r
	}
	r.scheduleNext()
	return r
}

// CancelAll tears down every in-flight reveal. Messages are left in whatever
// state they last reached.
func (a *Animator) CancelAll() {
	a.mu.Lock()
	reveals := make([]*Reveal, 0, len(a.active))
	for _, r := range a.active {
		reveals = append(reveals, r)
	}
	a.mu.Unlock()

	for _, r := range reveals {
		r.Cancel()
	}
}

// Reveal is one in-progress progressive disclosure.
type Reveal struct {
	mu        sync.Mutex
	runes     []rune
	pos       int
	interval  time.Duration
	cb        Callbacks
	cancel    helpers.CancelFunc
	done      bool
	cancelled bool
	remove    func()
	scheduler helpers.Scheduler
}

// Displayed returns the currently visible prefix.
func (r *Reveal) Displayed() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.runes[:r.pos])
}

// Done reports whether the full content has been revealed.
func (r *Reveal) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Cancel stops the reveal. No further callbacks fire. Cancelling a finished
// or already cancelled reveal is a no-op.
func (r *Reveal) Cancel() {
	r.mu.Lock()
	if r.done || r.cancelled {
		r.mu.Unlock()
		return
	}
	r.cancelled = true
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.remove()
}

func (r *Reveal) scheduleNext() {
	r.mu.Lock()
	r.cancel = r.scheduler.Schedule(r.interval, r.step)
	r.mu.Unlock()
}

func (r *Reveal) step() {
	r.mu.Lock()
	if r.done || r.cancelled {
		r.mu.Unlock()
		return
	}
	r.pos++
	displayed := string(r.runes[:r.pos])
	finished := r.pos == len(r.runes)
	r.mu.Unlock()

	if r.cb.OnProgress != nil {
		r.cb.OnProgress(displayed)
	}

	if finished {
		r.finish()
		return
	}
	r.scheduleNext()
}

func (r *Reveal) finish() {
	r.mu.Lock()
	if r.done || r.cancelled {
		r.mu.Unlock()
		return
	}
	r.done = true
	r.mu.Unlock()

	r.remove()
	if r.cb.OnDone != nil {
		r.cb.OnDone()
	}
}
