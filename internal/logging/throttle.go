package logging

import (
	"sync"
	"time"
)

// Signal is the refresh hint delivered to UI observers.
type Signal string

const (
	// SignalUpdate asks observers to re-read the log buffer and progress.
	SignalUpdate Signal = "update"
	// SignalError reports that an error-level message was appended.
	SignalError Signal = "error"
)

// Observer receives throttled signals. Observers run on their own goroutine
// and never hold up the logger.
type Observer func(Signal)

// DefaultNotifyInterval is the minimum spacing between update signals.
const DefaultNotifyInterval = 500 * time.Millisecond

// Throttle is a LogEventSink that turns a stream of log events into at most one
// update signal per interval. A burst inside the window is coalesced into a
// single trailing signal. Error events additionally emit SignalError at once.
type Throttle struct {
	interval time.Duration

	mu        sync.Mutex
	observers map[int]Observer
	nextID    int
	lastFire  time.Time
	timer     *time.Timer
	closed    bool
}

// NewThrottle creates a throttle; a non-positive interval falls back to the default.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultNotifyInterval
	}
	return &Throttle{interval: interval, observers: make(map[int]Observer)}
}

// Subscribe registers an observer and returns a function that removes it.
func (t *Throttle) Subscribe(obs Observer) func() {
	if t == nil || obs == nil {
		return func() {}
	}
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.observers[id] = obs
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.observers, id)
		t.mu.Unlock()
	}
}

// Append implements LogEventSink.
func (t *Throttle) Append(evt LogEvent) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if evt.IsError() {
		t.dispatchLocked(SignalError)
	}
	if t.timer != nil {
		// a trailing update is already scheduled
		return
	}
	now := time.Now()
	wait := t.interval - now.Sub(t.lastFire)
	if wait <= 0 {
		t.lastFire = now
		t.dispatchLocked(SignalUpdate)
		return
	}
	t.timer = time.AfterFunc(wait, t.fireTrailing)
}

func (t *Throttle) fireTrailing() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = nil
	if t.closed {
		return
	}
	t.lastFire = time.Now()
	t.dispatchLocked(SignalUpdate)
}

func (t *Throttle) dispatchLocked(sig Signal) {
	if len(t.observers) == 0 {
		return
	}
	observers := make([]Observer, 0, len(t.observers))
	for _, obs := range t.observers {
		observers = append(observers, obs)
	}
	go func() {
		for _, obs := range observers {
			obs(sig)
		}
	}()
}

// Close stops any pending trailing signal.
func (t *Throttle) Close() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
