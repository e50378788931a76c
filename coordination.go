package heartbeat

import "sync"

// pauseGate is the counter + bit + condition backing the worker's pause
// check and PauseOperation/ResumeOperation (§4.5). The worker blocks in
// waitWhileRequested while pauseWaiters > 0; callers of PauseOperation block
// in awaitIdle until the worker reports paused == true, which it only does
// once it is not mid-RPC.
type pauseGate struct {
	mu           sync.Mutex
	cond         *sync.Cond
	pauseWaiters int
	paused       bool
}

func newPauseGate() *pauseGate {
	g := &pauseGate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// requestPause is PauseOperation's first half: register a waiter.
func (g *pauseGate) requestPause() {
	g.mu.Lock()
	g.pauseWaiters++
	g.mu.Unlock()
}

// awaitIdle is PauseOperation's second half: block until the worker reports
// idle (paused == true). Combined with requestPause this gives PauseOperation
// its guarantee that no registration RPC is in flight once it returns.
func (g *pauseGate) awaitIdle() {
	g.mu.Lock()
	for !g.paused {
		g.cond.Wait()
	}
	g.mu.Unlock()
}

// resume is ResumeOperation's body: decrement the waiter count and wake
// anything blocked on it (the worker's waitWhileRequested).
func (g *pauseGate) resume() {
	g.mu.Lock()
	if g.pauseWaiters > 0 {
		g.pauseWaiters--
	}
	g.cond.Broadcast()
	g.mu.Unlock()
}

// waitWhileRequested is the worker's step 1: block while callers are holding
// a pause request. done, when closed, is treated as an interrupt: the
// caller should set quit and exit.
func (g *pauseGate) waitWhileRequested(done <-chan struct{}) (interrupted bool) {
	g.mu.Lock()
	if g.pauseWaiters == 0 {
		g.mu.Unlock()
		return false
	}

	woken := make(chan struct{})
	go func() {
		g.mu.Lock()
		for g.pauseWaiters > 0 {
			g.cond.Wait()
		}
		g.mu.Unlock()
		close(woken)
	}()
	g.mu.Unlock()

	select {
	case <-woken:
		return false
	case <-done:
		return true
	}
}

// setPaused sets the idle bit the worker reports at step 2/6 and wakes any
// PauseOperation callers waiting in awaitIdle.
func (g *pauseGate) setPaused(v bool) {
	g.mu.Lock()
	g.paused = v
	g.cond.Broadcast()
	g.mu.Unlock()
}

// wakeCondition is the notifier backing the update-interval sleep. It is
// deliberately distinct from pauseGate and the renewal flag (§9 "Monitor
// consolidation"): collapsing them would let RenewAddressMappings spuriously
// unblock a pause waiter.
type wakeCondition struct {
	mu sync.Mutex
	ch chan struct{}
}

func newWakeCondition() *wakeCondition {
	return &wakeCondition{ch: make(chan struct{}, 1)}
}

// wake is non-blocking: if a wake is already pending, this is a no-op.
func (w *wakeCondition) wake() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

func (w *wakeCondition) channel() <-chan struct{} {
	return w.ch
}

// renewalFlag is the atomic boolean set by RenewAddressMappings() or the
// OS-signal handler and cleared by the worker when it begins handling the
// renewal (§4.5).
type renewalFlag struct {
	mu  sync.Mutex
	set bool
}

func (f *renewalFlag) arm() {
	f.mu.Lock()
	f.set = true
	f.mu.Unlock()
}

// takeIfSet atomically reads and clears the flag, returning whether it had
// been set.
func (f *renewalFlag) takeIfSet() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.set {
		return false
	}
	f.set = false
	return true
}

func (f *renewalFlag) isSet() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set
}

// quitFlag is a single-writer/multi-reader boolean checked after any wait.
type quitFlag struct {
	mu     sync.Mutex
	quit   bool
}

func (q *quitFlag) trigger() {
	q.mu.Lock()
	q.quit = true
	q.mu.Unlock()
}

func (q *quitFlag) isSet() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.quit
}
