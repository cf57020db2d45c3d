package chat

import (
	"sync"
	"time"
)

const (
	// DefaultNotifyDelay is how long the widget stays closed before the
	// help prompt appears.
	DefaultNotifyDelay = 3 * time.Second

	// DefaultNotifyCooldown suppresses the prompt after a dismissal.
	DefaultNotifyCooldown = 10 * time.Minute
)

// Notifier drives the "need help?" prompt shown while the widget is closed.
// It owns at most one timer; every state change replaces it, and a timer
// that fires after being superseded is ignored.
type Notifier struct {
	delay    time.Duration
	cooldown time.Duration
	onChange func(visible bool)
	now      func() time.Time

	mu          sync.Mutex
	open        bool
	visible     bool
	dismissedAt time.Time
	timer       *time.Timer
	gen         uint64
	stopped     bool
}

// NewNotifier creates a notifier for a closed widget. Nothing is scheduled
// until WidgetClosed is called. onChange may be nil and is called without
// the notifier lock held.
func NewNotifier(delay, cooldown time.Duration, onChange func(visible bool)) *Notifier {
	if delay <= 0 {
		delay = DefaultNotifyDelay
	}
	if cooldown <= 0 {
		cooldown = DefaultNotifyCooldown
	}
	return &Notifier{
		delay:    delay,
		cooldown: cooldown,
		onChange: onChange,
		now:      time.Now,
	}
}

// Visible reports whether the prompt is shown.
func (n *Notifier) Visible() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.visible
}

// WidgetOpened hides the prompt and cancels any pending show.
func (n *Notifier) WidgetOpened() {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return
	}
	n.open = true
	n.cancelLocked()
	changed := n.setLocked(false)
	n.mu.Unlock()

	n.emit(changed, false)
}

// WidgetClosed schedules the prompt. Within the cooldown of a dismissal it
// is scheduled for the end of the cooldown instead.
func (n *Notifier) WidgetClosed() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return
	}
	n.open = false
	n.cancelLocked()

	wait := n.delay
	if !n.dismissedAt.IsZero() {
		if remaining := n.dismissedAt.Add(n.cooldown).Sub(n.now()); remaining > wait {
			wait = remaining
		}
	}
	n.scheduleLocked(wait)
}

// Dismiss hides the prompt and suppresses it for the cooldown.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return
	}
	n.cancelLocked()
	n.dismissedAt = n.now()
	changed := n.setLocked(false)
	if !n.open {
		n.scheduleLocked(n.cooldown)
	}
	n.mu.Unlock()

	n.emit(changed, false)
}

// Stop cancels the pending timer. The notifier is inert afterwards.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped = true
	n.cancelLocked()
}

func (n *Notifier) scheduleLocked(wait time.Duration) {
	gen := n.gen
	n.timer = time.AfterFunc(wait, func() { n.show(gen) })
}

func (n *Notifier) cancelLocked() {
	n.gen++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *Notifier) show(gen uint64) {
	n.mu.Lock()
	if n.stopped || gen != n.gen || n.open {
		n.mu.Unlock()
		return
	}
	n.timer = nil
	changed := n.setLocked(true)
	n.mu.Unlock()

	n.emit(changed, true)
}

func (n *Notifier) setLocked(visible bool) bool {
	if n.visible == visible {
		return false
	}
	n.visible = visible
	return true
}

func (n *Notifier) emit(changed, visible bool) {
	if changed && n.onChange != nil {
		n.onChange(visible)
	}
}
