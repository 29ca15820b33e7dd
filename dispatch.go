package mpv

import (
	"sync"

	"go.uber.org/zap"
)

type handlerEntry struct {
	id uint64
	fn func(Event)
}

// handlerRegistry holds event subscribers in subscription order.
type handlerRegistry struct {
	mu   sync.RWMutex
	next uint64
	byID map[EventID][]handlerEntry
}

func newHandlerRegistry() *handlerRegistry {
	return &handlerRegistry{byID: make(map[EventID][]handlerEntry)}
}

// add subscribes fn to id and returns a func that removes it again.
func (r *handlerRegistry) add(id EventID, fn func(Event)) (cancel func()) {
	r.mu.Lock()
	r.next++
	token := r.next
	r.byID[id] = append(r.byID[id], handlerEntry{id: token, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id, token) })
	}
}

func (r *handlerRegistry) remove(id EventID, token uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.byID[id]
	for i, e := range entries {
		if e.id == token {
			// Copy so a concurrent emit keeps iterating its own snapshot.
			next := make([]handlerEntry, 0, len(entries)-1)
			next = append(next, entries[:i]...)
			r.byID[id] = append(next, entries[i+1:]...)
			return
		}
	}
}

// emit calls every handler for ev.ID. Handlers may subscribe or cancel
// from inside the call.
func (r *handlerRegistry) emit(ev Event) {
	r.mu.RLock()
	entries := r.byID[ev.ID]
	r.mu.RUnlock()
	for _, e := range entries {
		e.fn(ev)
	}
}

// dispatchTable routes each event kind. Kinds missing here are logged
// and dropped.
var dispatchTable = map[EventID]func(*core, Event){
	EventShutdown:         (*core).emit,
	EventLogMessage:       (*core).onLogMessage,
	EventGetPropertyReply: (*core).onReply,
	EventSetPropertyReply: (*core).onReply,
	EventCommandReply:     (*core).onReply,
	EventStartFile:        (*core).emit,
	EventEndFile:          (*core).emit,
	EventFileLoaded:       (*core).emit,
	EventIdle:             (*core).emit,
	EventTick:             (*core).emit,
	EventClientMessage:    (*core).emit,
	EventVideoReconfig:    (*core).emit,
	EventAudioReconfig:    (*core).emit,
	EventSeek:             (*core).emit,
	EventPlaybackRestart:  (*core).emit,
	EventPropertyChange:   (*core).onPropertyChange,
	EventQueueOverflow:    (*core).onQueueOverflow,
	EventHook:             (*core).onHook,
}

// dispatch runs on the event loop goroutine.
func (c *core) dispatch(ev Event) {
	route, ok := dispatchTable[ev.ID]
	if !ok {
		c.log.Debug("dropping unhandled mpv event",
			zap.Stringer("event", ev.ID),
			zap.Int32("id", int32(ev.ID)))
		return
	}
	route(c, ev)
}

func (c *core) emit(ev Event) {
	c.handlers.emit(ev)
}

func (c *core) onReply(ev Event) {
	if ev.ReplyUserData != 0 && !c.replies.deliver(ev) {
		c.log.Warn("dropping late mpv reply",
			zap.Stringer("event", ev.ID),
			zap.Uint64("request_id", ev.ReplyUserData))
	}
	c.emit(ev)
}

func (c *core) onPropertyChange(ev Event) {
	prop, _ := ev.Data.(*Property)
	c.obsMu.Lock()
	obs, ok := c.observed[ev.ReplyUserData]
	c.obsMu.Unlock()
	if !ok || prop == nil || obs.Name != prop.Name {
		c.log.Debug("dropping change for unobserved property",
			zap.Uint64("observer_id", ev.ReplyUserData))
		return
	}
	c.emit(ev)
}

func (c *core) onLogMessage(ev Event) {
	msg, ok := ev.Data.(*LogMessage)
	if !ok {
		return
	}
	c.logMu.Lock()
	mirror := c.logLevel != LogLevelNone && msg.LogLevel <= c.logLevel
	c.logMu.Unlock()
	if mirror {
		if ce := c.log.Check(msg.LogLevel.zapLevel(), trimNewline(msg.Text)); ce != nil {
			ce.Write(
				zap.String("prefix", msg.Prefix),
				zap.String("level", msg.Level))
		}
	}
	c.emit(ev)
}

func (c *core) onQueueOverflow(ev Event) {
	c.log.Warn("mpv event queue overflowed, events were lost")
	c.emit(ev)
}

// onHook runs the registered handler and then lets libmpv continue.
// libmpv stalls the hooked operation until mpv_hook_continue is called.
func (c *core) onHook(ev Event) {
	hook, ok := ev.Data.(*Hook)
	if !ok {
		return
	}
	c.hooksMu.Lock()
	entry, found := c.hooks[ev.ReplyUserData]
	c.hooksMu.Unlock()
	if found {
		entry.fn(*hook)
	}
	c.emit(ev)
	if c.lib.hookContinue != nil {
		if err := c.lib.errorFor("hook continue", c.lib.hookContinue(c.handle, hook.ID)); err != nil {
			c.log.Warn("mpv hook continue failed", zap.String("hook", hook.Name), zap.Error(err))
		}
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
