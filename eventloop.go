package mpv

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// EventLoop pulls events from libmpv and hands them to a callback.
//
// Start and Stop must not be called concurrently with each other.
// Stop is idempotent. Stop must not be called from the event callback,
// because it waits for the loop to exit.
type EventLoop interface {
	Start() error
	Stop() error
}

// LoopKind selects an EventLoop implementation.
type LoopKind string

const (
	// LoopGoroutine blocks in mpv_wait_event on a dedicated goroutine.
	LoopGoroutine LoopKind = "goroutine"
	// LoopThread is LoopGoroutine locked to its own OS thread.
	LoopThread LoopKind = "thread"
	// LoopWakeup drains events when libmpv calls the wakeup callback.
	LoopWakeup LoopKind = "wakeup"
)

// eventSource is the part of the native handle an EventLoop needs.
type eventSource interface {
	// waitEvent waits up to timeout seconds (negative: forever, zero:
	// poll) and returns EventNone when nothing arrived.
	waitEvent(timeout float64) Event
	// wakeup interrupts a blocked waitEvent.
	wakeup()
	// setWakeupCallback installs fn to be called from any thread when
	// events are pending. A nil fn removes it.
	setWakeupCallback(fn func()) error
}

const (
	loopNotStarted int32 = iota
	loopRunning
	loopStopped
)

var errLoopStarted = errors.New("mpv: event loop already started")

func newEventLoop(kind LoopKind, src eventSource, cb func(Event), log *zap.Logger) (EventLoop, error) {
	switch kind {
	case LoopGoroutine, "":
		return newPollLoop(src, cb, false), nil
	case LoopThread:
		return newPollLoop(src, cb, true), nil
	case LoopWakeup:
		return newWakeupLoop(src, cb, log), nil
	default:
		return nil, invalidArgument("event loop", fmt.Sprintf("unknown kind %q", kind))
	}
}

// pollLoop blocks on waitEvent(-1) and dispatches on its own goroutine.
type pollLoop struct {
	src        eventSource
	cb         func(Event)
	lockThread bool

	state atomic.Int32
	done  chan struct{}
}

func newPollLoop(src eventSource, cb func(Event), lockThread bool) *pollLoop {
	return &pollLoop{
		src:        src,
		cb:         cb,
		lockThread: lockThread,
		done:       make(chan struct{}),
	}
}

func (l *pollLoop) Start() error {
	if !l.state.CompareAndSwap(loopNotStarted, loopRunning) {
		return errLoopStarted
	}
	go l.run()
	return nil
}

func (l *pollLoop) run() {
	defer close(l.done)
	if l.lockThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	for l.state.Load() == loopRunning {
		ev := l.src.waitEvent(-1)
		if ev.ID == EventNone {
			continue
		}
		l.cb(ev)
	}
}

func (l *pollLoop) Stop() error {
	if !l.state.CompareAndSwap(loopRunning, loopStopped) {
		l.state.CompareAndSwap(loopNotStarted, loopStopped)
		return nil
	}
	l.src.wakeup()
	<-l.done
	return nil
}

// wakeupLoop never runs user code on the thread libmpv calls the wakeup
// callback from: the callback only signals wake, and a drain goroutine
// polls the queue empty.
type wakeupLoop struct {
	src eventSource
	cb  func(Event)
	log *zap.Logger

	state atomic.Int32
	wake  chan struct{}
	quit  chan struct{}
	done  chan struct{}

	// mu serializes drains.
	mu sync.Mutex
}

func newWakeupLoop(src eventSource, cb func(Event), log *zap.Logger) *wakeupLoop {
	return &wakeupLoop{
		src:  src,
		cb:   cb,
		log:  loggerOrNop(log),
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (l *wakeupLoop) Start() error {
	if !l.state.CompareAndSwap(loopNotStarted, loopRunning) {
		return errLoopStarted
	}
	if err := l.src.setWakeupCallback(l.notify); err != nil {
		l.state.Store(loopNotStarted)
		return err
	}
	go l.run()
	// Events queued before the callback was installed never trigger it.
	l.notify()
	return nil
}

// notify may be called from any thread.
func (l *wakeupLoop) notify() {
	l.log.Debug("mpv wakeup")
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *wakeupLoop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case <-l.wake:
			l.drain()
		}
	}
}

func (l *wakeupLoop) drain() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.state.Load() == loopRunning {
		ev := l.src.waitEvent(0)
		if ev.ID == EventNone {
			return
		}
		l.cb(ev)
	}
}

func (l *wakeupLoop) Stop() error {
	if !l.state.CompareAndSwap(loopRunning, loopStopped) {
		l.state.CompareAndSwap(loopNotStarted, loopStopped)
		return nil
	}
	err := l.src.setWakeupCallback(nil)
	close(l.quit)
	<-l.done
	return err
}
