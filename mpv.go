package mpv

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mpv is one libmpv player instance.
//
// Methods are safe for concurrent use; libmpv serializes access to the
// player core itself. Event handlers run on the event loop goroutine, in
// the order libmpv produced the events. They must not call Close, and must
// not block on Request.Wait, WaitReply or GetPropertyValue: replies are
// dispatched by the same goroutine. Start the request and wait for it
// from another goroutine instead.
type Mpv struct {
	*core
}

// core is everything the event loop needs. The loop holds only a
// reference to core, so an unreachable *Mpv can still be finalized.
type core struct {
	lib    *libmpv
	handle uintptr
	alloc  Allocator
	log    *zap.Logger

	// owner is true for handles from mpv_create, false for clients made
	// with CreateClient.
	owner bool

	closeMu sync.Mutex
	closed  atomic.Bool

	loop         EventLoop
	replies      *replyQueue
	nextID       atomic.Uint64
	asyncTimeout time.Duration

	handlers *handlerRegistry

	obsMu    sync.Mutex
	observed map[uint64]ObservedProperty

	hooksMu sync.Mutex
	hooks   map[uint64]hookEntry

	logMu    sync.Mutex
	logLevel LogLevel

	renderMu sync.Mutex
	render   *RenderContext

	wakeupMu sync.Mutex
	wakeupCB uintptr
	wakeupFn atomic.Pointer[func()]
}

// Create loads libmpv, creates an uninitialized player and starts its
// event loop. Options that must be set before initialization go in
// cfg.Options; call Initialize when done configuring.
func Create(cfg Config) (*Mpv, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := cfg.Resolver
	if r == nil {
		r = NewResolver(cfg.resolverConfig())
	}
	lib, err := bindLibmpv(r)
	if err != nil {
		return nil, err
	}
	alloc := cfg.Allocator
	if alloc == nil {
		if alloc, err = newLibcAllocator(r); err != nil {
			return nil, err
		}
	}
	return newMpv(cfg, lib, alloc)
}

// New is Create followed by Initialize.
func New(cfg Config) (*Mpv, error) {
	m, err := Create(cfg)
	if err != nil {
		return nil, err
	}
	if err := m.Initialize(); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func newMpv(cfg Config, lib *libmpv, alloc Allocator) (*Mpv, error) {
	log := loggerOrNop(cfg.Logger)
	h := lib.create()
	if h == 0 {
		return nil, &Error{Kind: KindCommand, Op: "mpv_create", Code: ErrorNoMem, Detail: "libmpv returned no handle"}
	}
	c := newCore(lib, h, alloc, log, cfg.asyncTimeout())
	c.owner = true

	if err := c.configure(cfg); err != nil {
		lib.destroy(h)
		return nil, err
	}
	m, err := c.start(cfg.EventLoop)
	if err != nil {
		lib.destroy(h)
		return nil, err
	}
	log.Debug("mpv created",
		zap.String("event_loop", string(cfg.EventLoop)),
		zap.Uint32("api_version", lib.clientAPIVersion()))
	return m, nil
}

func newCore(lib *libmpv, h uintptr, alloc Allocator, log *zap.Logger, timeout time.Duration) *core {
	return &core{
		lib:          lib,
		handle:       h,
		alloc:        alloc,
		log:          log,
		replies:      newReplyQueue(),
		asyncTimeout: timeout,
		handlers:     newHandlerRegistry(),
		observed:     make(map[uint64]ObservedProperty),
		hooks:        make(map[uint64]hookEntry),
	}
}

// configure applies options, the config file and the log level.
func (c *core) configure(cfg Config) error {
	names := make([]string, 0, len(cfg.Options))
	for name := range cfg.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.setOptionString(name, cfg.Options[name]); err != nil {
			return err
		}
	}
	if cfg.ConfigFile != "" {
		if err := c.loadConfigFile(cfg.ConfigFile); err != nil {
			return err
		}
	}
	if cfg.LogLevel != "" {
		lvl, _ := ParseLogLevel(cfg.LogLevel)
		if err := c.requestLogMessages(lvl); err != nil {
			return err
		}
	}
	return nil
}

func (c *core) start(kind LoopKind) (*Mpv, error) {
	loop, err := newEventLoop(kind, c, c.dispatch, c.log)
	if err != nil {
		return nil, err
	}
	c.loop = loop
	if err := loop.Start(); err != nil {
		return nil, fmt.Errorf("start event loop: %w", err)
	}
	m := &Mpv{core: c}
	runtime.SetFinalizer(m, (*Mpv).finalize)
	return m, nil
}

func (m *Mpv) finalize() {
	m.log.Warn("mpv handle garbage collected without Close")
	m.Close()
}

// Initialize starts the player. Most options can still be changed
// afterwards as properties.
func (m *Mpv) Initialize() error {
	if err := m.check("initialize"); err != nil {
		return err
	}
	return m.lib.errorFor("initialize", m.lib.initialize(m.handle))
}

// Close stops the event loop, frees the render context and destroys the
// handle. Pending waits fail with KindObjectDisposed. Calling Close again
// does nothing.
func (m *Mpv) Close() error {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()
	if m.closed.Load() {
		return nil
	}
	m.closed.Store(true)
	runtime.SetFinalizer(m, nil)

	err := m.loop.Stop()

	m.renderMu.Lock()
	rc := m.render
	m.renderMu.Unlock()
	if rc != nil {
		rc.Free()
	}

	m.replies.close()
	if m.owner {
		m.lib.terminateDestroy(m.handle)
	} else {
		m.lib.destroy(m.handle)
	}
	m.log.Debug("mpv closed")
	return err
}

// check fails once the handle has been closed.
func (c *core) check(op string) error {
	if c.closed.Load() {
		return disposed(op)
	}
	return nil
}

func (c *core) arena() *Arena {
	return newArena(c.alloc)
}

// waitEvent, wakeup and setWakeupCallback make core the eventSource of
// its loop.

func (c *core) waitEvent(timeout float64) Event {
	return c.lib.decodeEvent(unsafe.Pointer(c.lib.waitEvent(c.handle, timeout)))
}

func (c *core) wakeup() {
	c.lib.wakeup(c.handle)
}

// setWakeupCallback binds one native callback per handle for its whole
// lifetime, since native callback slots are never reclaimed. fn is
// swapped behind it.
func (c *core) setWakeupCallback(fn func()) error {
	c.wakeupMu.Lock()
	defer c.wakeupMu.Unlock()
	if fn == nil {
		c.wakeupFn.Store(nil)
		c.lib.setWakeupCallback(c.handle, 0, 0)
		return nil
	}
	c.wakeupFn.Store(&fn)
	if c.wakeupCB == 0 {
		c.wakeupCB = c.lib.newCallback(func(_ uintptr) uintptr {
			if f := c.wakeupFn.Load(); f != nil {
				(*f)()
			}
			return 0
		})
	}
	c.lib.setWakeupCallback(c.handle, c.wakeupCB, 0)
	return nil
}

// OnEvent subscribes fn to every event with the given id. The returned
// func cancels the subscription.
func (m *Mpv) OnEvent(id EventID, fn func(Event)) (cancel func()) {
	return m.handlers.add(id, fn)
}

// OnShutdown runs fn when the player is shutting down.
func (m *Mpv) OnShutdown(fn func()) (cancel func()) {
	return m.OnEvent(EventShutdown, func(Event) { fn() })
}

// OnStartFile runs fn before a playlist entry starts loading.
func (m *Mpv) OnStartFile(fn func(StartFile)) (cancel func()) {
	return m.OnEvent(EventStartFile, func(ev Event) {
		if sf, ok := ev.Data.(*StartFile); ok {
			fn(*sf)
		}
	})
}

// OnEndFile runs fn when playback of a file ends or fails.
func (m *Mpv) OnEndFile(fn func(EndFile)) (cancel func()) {
	return m.OnEvent(EventEndFile, func(ev Event) {
		if ef, ok := ev.Data.(*EndFile); ok {
			fn(*ef)
		}
	})
}

// OnFileLoaded runs fn once a file is opened and playback starts.
func (m *Mpv) OnFileLoaded(fn func()) (cancel func()) {
	return m.OnEvent(EventFileLoaded, func(Event) { fn() })
}

// OnIdle runs fn when the player enters idle mode.
func (m *Mpv) OnIdle(fn func()) (cancel func()) {
	return m.OnEvent(EventIdle, func(Event) { fn() })
}

// OnSeek runs fn when a seek starts.
func (m *Mpv) OnSeek(fn func()) (cancel func()) {
	return m.OnEvent(EventSeek, func(Event) { fn() })
}

// OnPlaybackRestart runs fn when playback resumes after a seek or load.
func (m *Mpv) OnPlaybackRestart(fn func()) (cancel func()) {
	return m.OnEvent(EventPlaybackRestart, func(Event) { fn() })
}

// OnClientMessage runs fn for script-message commands sent to this client.
func (m *Mpv) OnClientMessage(fn func(ClientMessage)) (cancel func()) {
	return m.OnEvent(EventClientMessage, func(ev Event) {
		if cm, ok := ev.Data.(*ClientMessage); ok {
			fn(*cm)
		}
	})
}

// OnLogMessage subscribes to log messages enabled with RequestLogMessages.
func (m *Mpv) OnLogMessage(fn func(LogMessage)) (cancel func()) {
	return m.OnEvent(EventLogMessage, func(ev Event) {
		if msg, ok := ev.Data.(*LogMessage); ok {
			fn(*msg)
		}
	})
}

// RequestLogMessages enables log messages at level and above. Messages
// are delivered as EventLogMessage and written to the configured logger.
// LogLevelNone turns them off.
func (m *Mpv) RequestLogMessages(level LogLevel) error {
	if err := m.check("request log messages"); err != nil {
		return err
	}
	return m.requestLogMessages(level)
}

func (c *core) requestLogMessages(level LogLevel) error {
	a := c.arena()
	defer a.Release()
	if err := c.lib.errorFor("request log messages", c.lib.requestLogMessages(c.handle, a.CString(level.String()))); err != nil {
		return err
	}
	c.logMu.Lock()
	c.logLevel = level
	c.logMu.Unlock()
	return nil
}

// RequestEvent enables or disables delivery of one event kind.
func (m *Mpv) RequestEvent(id EventID, enable bool) error {
	if err := m.check("request event"); err != nil {
		return err
	}
	var on int32
	if enable {
		on = 1
	}
	return m.lib.errorFor("request event "+id.String(), m.lib.requestEvent(m.handle, int32(id), on))
}

// APIVersion returns the client API version of the loaded libmpv, as
// (major << 16) | minor.
func (m *Mpv) APIVersion() uint32 {
	return m.lib.clientAPIVersion()
}

// ClientName returns the name of this client handle.
func (m *Mpv) ClientName() (string, error) {
	if err := m.check("client name"); err != nil {
		return "", err
	}
	return goStringFromPtr(m.lib.clientName(m.handle)), nil
}

// ClientID returns the id of this client handle.
func (m *Mpv) ClientID() (int64, error) {
	if err := m.check("client id"); err != nil {
		return 0, err
	}
	if err := requireFn(m.lib.clientID != nil, "mpv_client_id"); err != nil {
		return 0, err
	}
	return m.lib.clientID(m.handle), nil
}

// TimeUs returns libmpv's internal monotonic clock in microseconds.
func (m *Mpv) TimeUs() (int64, error) {
	if err := m.check("time"); err != nil {
		return 0, err
	}
	if err := requireFn(m.lib.getTimeUs != nil, "mpv_get_time_us"); err != nil {
		return 0, err
	}
	return m.lib.getTimeUs(m.handle), nil
}

// EventName returns libmpv's name for id.
func (m *Mpv) EventName(id EventID) string {
	if p := m.lib.eventName(int32(id)); p != 0 {
		return goStringFromPtr(p)
	}
	return id.String()
}

// LoadConfigFile loads an mpv.conf style file.
func (m *Mpv) LoadConfigFile(path string) error {
	if err := m.check("load config file"); err != nil {
		return err
	}
	return m.loadConfigFile(path)
}

func (c *core) loadConfigFile(path string) error {
	if path == "" {
		return invalidArgument("load config file", "empty path")
	}
	if err := requireFn(c.lib.loadConfigFile != nil, "mpv_load_config_file"); err != nil {
		return err
	}
	a := c.arena()
	defer a.Release()
	return c.lib.errorFor("load config file "+path, c.lib.loadConfigFile(c.handle, a.CString(path)))
}

// CreateClient creates another client handle on the same player core,
// with its own event queue and event loop. An empty name gets a unique
// generated one. Closing a client does not stop the player.
func (m *Mpv) CreateClient(name string, cfg Config) (*Mpv, error) {
	if err := m.check("create client"); err != nil {
		return nil, err
	}
	if err := requireFn(m.lib.createClient != nil, "mpv_create_client"); err != nil {
		return nil, err
	}
	if name == "" {
		name = "go-" + uuid.NewString()
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := m.arena()
	defer a.Release()
	h := m.lib.createClient(m.handle, a.CString(name))
	if h == 0 {
		return nil, &Error{Kind: KindCommand, Op: "create client", Code: ErrorGeneric, Detail: "libmpv returned no handle for " + name}
	}
	log := m.log
	if cfg.Logger != nil {
		log = cfg.Logger
	}
	c := newCore(m.lib, h, m.alloc, log.With(zap.String("client", name)), cfg.asyncTimeout())
	client, err := c.start(cfg.EventLoop)
	if err != nil {
		m.lib.destroy(h)
		return nil, err
	}
	return client, nil
}

// WaitAsyncRequests blocks until every outstanding asynchronous request
// on this handle has been answered.
func (m *Mpv) WaitAsyncRequests() error {
	if err := m.check("wait async requests"); err != nil {
		return err
	}
	if err := requireFn(m.lib.waitAsyncRequests != nil, "mpv_wait_async_requests"); err != nil {
		return err
	}
	m.lib.waitAsyncRequests(m.handle)
	return nil
}
