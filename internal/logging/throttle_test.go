package logging

import (
	"sync"
	"testing"
	"time"
)

type signalRecorder struct {
	mu      sync.Mutex
	signals []Signal
}

func (r *signalRecorder) observe(sig Signal) {
	r.mu.Lock()
	r.signals = append(r.signals, sig)
	r.mu.Unlock()
}

func (r *signalRecorder) count(sig Signal) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.signals {
		if s == sig {
			n++
		}
	}
	return n
}

func TestThrottleCoalescesBurst(t *testing.T) {
	throttle := NewThrottle(50 * time.Millisecond)
	defer throttle.Close()
	rec := &signalRecorder{}
	throttle.Subscribe(rec.observe)

	for range 20 {
		throttle.Append(LogEvent{Level: "INFO", Message: "tick"})
	}
	time.Sleep(150 * time.Millisecond)

	got := rec.count(SignalUpdate)
	if got != 2 {
		t.Fatalf("expected leading and trailing update only, got %d", got)
	}
}

func TestThrottleSignalsErrors(t *testing.T) {
	throttle := NewThrottle(time.Hour)
	defer throttle.Close()
	rec := &signalRecorder{}
	throttle.Subscribe(rec.observe)

	throttle.Append(LogEvent{Level: "ERROR", Message: "boom"})
	deadline := time.Now().Add(time.Second)
	for rec.count(SignalError) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rec.count(SignalError) != 1 {
		t.Fatalf("expected one error signal, got %d", rec.count(SignalError))
	}
}

func TestThrottleAppendDoesNotBlockOnSlowObserver(t *testing.T) {
	throttle := NewThrottle(time.Millisecond)
	defer throttle.Close()
	release := make(chan struct{})
	defer close(release)
	throttle.Subscribe(func(Signal) { <-release })

	done := make(chan struct{})
	go func() {
		for range 10 {
			throttle.Append(LogEvent{Level: "ERROR"})
			time.Sleep(2 * time.Millisecond)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Append blocked on observer")
	}
}

func TestThrottleUnsubscribe(t *testing.T) {
	throttle := NewThrottle(time.Millisecond)
	defer throttle.Close()
	rec := &signalRecorder{}
	cancel := throttle.Subscribe(rec.observe)
	cancel()

	throttle.Append(LogEvent{Level: "ERROR"})
	time.Sleep(20 * time.Millisecond)
	if len(rec.signals) != 0 {
		t.Fatalf("expected no signals after unsubscribe, got %v", rec.signals)
	}
}

func TestStreamHubFeedsThrottle(t *testing.T) {
	hub := NewStreamHub(4)
	throttle := NewThrottle(time.Millisecond)
	defer throttle.Close()
	hub.AddSink(throttle)
	rec := &signalRecorder{}
	throttle.Subscribe(rec.observe)

	hub.Publish(LogEvent{Level: "INFO", Message: "one"})
	deadline := time.Now().Add(time.Second)
	for rec.count(SignalUpdate) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rec.count(SignalUpdate) == 0 {
		t.Fatal("expected update signal from hub publish")
	}
}
