// Package dispatch provides the single sequential context that owns all
// navigation and companion state. Transport callbacks arrive on arbitrary
// goroutines and must hop here before touching shared state; once a
// submitted function starts it runs to completion.
package dispatch

import "sync"

type Loop struct {
	calls chan func()
	done  chan struct{}
	once  sync.Once
}

func NewLoop() *Loop {
	l := &Loop{
		calls: make(chan func(), 64),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	for {
		select {
		case fn := <-l.calls:
			fn()
		case <-l.done:
			return
		}
	}
}

// Submit schedules fn without waiting for it. Submissions after Close are
// dropped.
func (l *Loop) Submit(fn func()) {
	select {
	case l.calls <- fn:
	case <-l.done:
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(fn func()) {
	finished := make(chan struct{})
	l.Submit(func() {
		fn()
		close(finished)
	})
	select {
	case <-finished:
	case <-l.done:
	}
}

func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}
