package machine

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// machineState is the single mutable value guarded by Controller.mu.
// mode == Closed <=> enteredAt.IsZero() <=> pending == nil.
type machineState struct {
	mode      Mode
	enteredAt time.Time
	pending   *pendingRevert
}

// pendingRevert is the auto-revert armed for one state entry, identified by seq.
type pendingRevert struct {
	seq   uint64
	timer clockwork.Timer
}

func (p *pendingRevert) cancel() {
	if p != nil {
		p.timer.Stop()
	}
}

// Controller owns the dispenser mode and the auto-revert back to Closed.
// It is safe for concurrent use.
type Controller struct {
	clock   clockwork.Clock
	windows Windows

	mu        sync.Mutex
	state     machineState
	seq       uint64
	observers []func(Transition)
}

// NewController creates a controller in the Closed mode. A nil clock uses the
// wall clock; zero windows fall back to the defaults.
func NewController(clock clockwork.Clock, windows Windows) *Controller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Controller{
		clock:   clock,
		windows: windows.withDefaults(),
		state:   machineState{mode: Closed},
	}
}

// Windows returns the configured windows.
func (c *Controller) Windows() Windows {
	return c.windows
}

// OnTransition registers fn to be called after every state entry. Observers run
// outside the controller lock, on the goroutine that caused the transition.
func (c *Controller) OnTransition(fn func(Transition)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// SetState moves the machine to target, cancelling any pending revert and arming a
// new one for Open and Denied.
func (c *Controller) SetState(target Mode) (Snapshot, error) {
	if !target.Valid() {
		return Snapshot{}, fmt.Errorf("set state %s: %w", target, ErrInvalidMode)
	}

	c.mu.Lock()
	now := c.clock.Now()
	t, changed := c.enterLocked(target, CauseCommand, now)
	snap := c.snapshotLocked(now)
	observers := c.observers
	c.mu.Unlock()

	if changed {
		t.Snapshot = snap
		notify(observers, t)
	}
	return snap, nil
}

// GetState reports the current snapshot. A mode whose window has fully elapsed is
// reverted to Closed here, whether or not its timer has fired.
func (c *Controller) GetState() Snapshot {
	c.mu.Lock()
	now := c.clock.Now()
	var (
		t       Transition
		changed bool
	)
	if c.state.mode != Closed && c.remainingLocked(now) == 0 {
		t, changed = c.enterLocked(Closed, CauseDeadline, now)
	}
	snap := c.snapshotLocked(now)
	observers := c.observers
	c.mu.Unlock()

	if changed {
		log.Printf("Window elapsed for %s entered at %s, reverted to closed", t.From, t.At.Format(time.RFC3339))
		t.Snapshot = snap
		notify(observers, t)
	}
	return snap
}

// Close stops the pending timer, if any. The mode is left untouched and still
// reverts lazily on the next GetState.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.pending.cancel()
}

// expire is the body of the auto-revert timer armed for entry seq. It is a no-op
// once that entry has been superseded.
func (c *Controller) expire(seq uint64) {
	c.mu.Lock()
	if c.state.pending == nil || c.state.pending.seq != seq {
		c.mu.Unlock()
		return
	}
	now := c.clock.Now()
	t, changed := c.enterLocked(Closed, CauseTimer, now)
	snap := c.snapshotLocked(now)
	observers := c.observers
	c.mu.Unlock()

	if changed {
		log.Printf("Auto-revert fired for %s, machine closed", t.From)
		t.Snapshot = snap
		notify(observers, t)
	}
}

// enterLocked replaces the whole state in one step. It reports false for a
// Closed -> Closed request, which has nothing to announce.
func (c *Controller) enterLocked(target Mode, cause Cause, now time.Time) (Transition, bool) {
	from := c.state.mode
	c.state.pending.cancel()
	c.seq++
	seq := c.seq

	if target == Closed {
		c.state = machineState{mode: Closed}
	} else {
		c.state = machineState{
			mode:      target,
			enteredAt: now,
			pending: &pendingRevert{
				seq:   seq,
				timer: c.clock.AfterFunc(c.windows.For(target), func() { c.expire(seq) }),
			},
		}
	}

	if from == Closed && target == Closed {
		return Transition{}, false
	}
	return Transition{Seq: seq, From: from, To: target, Cause: cause, At: now}, true
}

func (c *Controller) remainingLocked(now time.Time) time.Duration {
	left := c.windows.For(c.state.mode) - now.Sub(c.state.enteredAt)
	if left < 0 {
		return 0
	}
	return left
}

func (c *Controller) snapshotLocked(now time.Time) Snapshot {
	snap := Snapshot{Mode: c.state.mode, At: now}
	if c.state.mode == Closed {
		return snap
	}
	enteredAt := c.state.enteredAt
	remaining := ceilMillis(c.remainingLocked(now))
	snap.EnteredAt = &enteredAt
	snap.Remaining = &remaining
	return snap
}

// ceilMillis rounds up so that an active window never reports 0ms left.
func ceilMillis(d time.Duration) time.Duration {
	if r := d % time.Millisecond; r != 0 {
		d += time.Millisecond - r
	}
	return d
}

func notify(observers []func(Transition), t Transition) {
	for _, fn := range observers {
		fn(t)
	}
}
