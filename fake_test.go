package mpv

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unsafe"
)

// trackingAllocator hands out Go memory and records every Alloc and Free
// so tests can check that scopes release exactly what they allocated.
type trackingAllocator struct {
	mu         sync.Mutex
	live       map[unsafe.Pointer][]uint64
	allocs     int
	frees      int
	badFrees   int
	panicAfter int
}

func newTrackingAllocator() *trackingAllocator {
	return &trackingAllocator{live: make(map[unsafe.Pointer][]uint64)}
}

func (a *trackingAllocator) Alloc(size uintptr) unsafe.Pointer {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.panicAfter > 0 && a.allocs >= a.panicAfter {
		panic("allocation limit reached")
	}
	// []uint64 keeps every block 8-byte aligned.
	words := (size + 7) / 8
	if words == 0 {
		words = 1
	}
	buf := make([]uint64, words)
	p := unsafe.Pointer(&buf[0])
	a.live[p] = buf
	a.allocs++
	return p
}

func (a *trackingAllocator) Free(p unsafe.Pointer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.live[p]; !ok {
		a.badFrees++
		return
	}
	delete(a.live, p)
	a.frees++
}

func (a *trackingAllocator) outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

var (
	cstrMu   sync.Mutex
	cstrKeep [][]byte
)

// cstr returns a NUL-terminated copy of s in Go memory. The copy is
// kept reachable for the whole test binary, since it may be referenced
// only from memory the garbage collector does not scan.
func cstr(s string) unsafe.Pointer {
	b := append([]byte(s), 0)
	cstrMu.Lock()
	cstrKeep = append(cstrKeep, b)
	cstrMu.Unlock()
	return unsafe.Pointer(&b[0])
}

// cArgv reads a NULL-terminated char* array.
func cArgv(p unsafe.Pointer) []string {
	var out []string
	for i := 0; ; i++ {
		s := *(*unsafe.Pointer)(unsafe.Add(p, uintptr(i)*unsafe.Sizeof(p)))
		if s == nil {
			return out
		}
		out = append(out, goString(s))
	}
}

type fakeObserver struct {
	name   string
	format Format
}

// fakeMpv is an in-process stand-in for libmpv. It keeps properties in a
// map, answers async calls through its event queue and builds events in
// Go memory with the native layouts.
type fakeMpv struct {
	mu   sync.Mutex
	cond *sync.Cond

	props     map[string]any
	options   map[string]string
	observers map[uint64]fakeObserver
	hooks     map[string]uint64
	calls     map[string]int
	commands  [][]string

	// Events go to the main handle only; other handles just block.
	queue     []*mpvEvent
	delivered []*mpvEvent
	woken     map[uintptr]bool
	none      *mpvEvent

	callbacks []func(uintptr) uintptr
	wakeupCB  func(uintptr) uintptr
	updateCB  func(uintptr) uintptr

	// manualReplies stops async calls from answering themselves.
	manualReplies bool

	logLevel      string
	initialized   bool
	destroyed     int
	freed         int
	nodesFreed    int
	hookContinued []uint64
	aborted       []uint64

	renderParams  []RenderParamType
	renderCalls   int
	renderFreed   int
	renderUpdates uint64

	strings map[string][]byte
}

func newFakeMpv() *fakeMpv {
	f := &fakeMpv{
		props:     make(map[string]any),
		options:   make(map[string]string),
		observers: make(map[uint64]fakeObserver),
		hooks:     make(map[string]uint64),
		calls:     make(map[string]int),
		none:      &mpvEvent{},
		woken:     make(map[uintptr]bool),
		strings:   make(map[string][]byte),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *fakeMpv) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeMpv) record(name string) {
	f.calls[name]++
}

// staticString returns a C string that stays valid for the fake's life.
func (f *fakeMpv) staticString(s string) uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.strings[s]
	if !ok {
		b = append([]byte(s), 0)
		f.strings[s] = b
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

func (f *fakeMpv) prop(name string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.props[name]
}

func (f *fakeMpv) setProp(name string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setPropLocked(name, v)
}

func (f *fakeMpv) setPropLocked(name string, v any) {
	f.props[name] = v
	for id, o := range f.observers {
		if o.name == name {
			f.pushLocked(f.propertyEvent(EventPropertyChange, id, 0, name, o.format, v))
		}
	}
}

// push queues an event and fires the wakeup callback.
func (f *fakeMpv) push(ev *mpvEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushLocked(ev)
}

func (f *fakeMpv) pushLocked(ev *mpvEvent) {
	f.queue = append(f.queue, ev)
	f.cond.Broadcast()
	if cb := f.wakeupCB; cb != nil {
		// libmpv calls the wakeup callback from its own threads.
		go cb(0)
	}
}

const fakeMainHandle uintptr = 1

func (f *fakeMpv) waitEvent(h uintptr, timeout float64) uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	pending := func() bool { return h == fakeMainHandle && len(f.queue) > 0 }
	for !pending() && !f.woken[h] {
		if timeout == 0 {
			return uintptr(unsafe.Pointer(f.none))
		}
		f.cond.Wait()
	}
	if !pending() {
		f.woken[h] = false
		return uintptr(unsafe.Pointer(f.none))
	}
	ev := f.queue[0]
	f.queue = f.queue[1:]
	f.delivered = append(f.delivered, ev)
	return uintptr(unsafe.Pointer(ev))
}

func (f *fakeMpv) wakeup(h uintptr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.woken[h] = true
	f.cond.Broadcast()
}

func (f *fakeMpv) newCallback(fn any) uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks = append(f.callbacks, fn.(func(uintptr) uintptr))
	return uintptr(len(f.callbacks))
}

func (f *fakeMpv) callback(cb uintptr) func(uintptr) uintptr {
	if cb == 0 {
		return nil
	}
	return f.callbacks[cb-1]
}

// valueData lays v out in Go memory as format.
func valueData(format Format, v any) unsafe.Pointer {
	if v == nil {
		return nil
	}
	switch format {
	case FormatFlag:
		var flag int32
		if asBool(v) {
			flag = 1
		}
		return unsafe.Pointer(&flag)
	case FormatInt64:
		i := int64(asFloat(v))
		return unsafe.Pointer(&i)
	case FormatDouble:
		d := asFloat(v)
		return unsafe.Pointer(&d)
	case FormatString, FormatOSDString:
		p := cstr(asString(v))
		return unsafe.Pointer(&p)
	case FormatNode:
		n := &mpvNode{}
		switch x := v.(type) {
		case string:
			n.format = int32(FormatString)
			n.setPtr(cstr(x))
		case bool:
			n.format = int32(FormatFlag)
			if x {
				n.u = 1
			}
		case int64:
			n.format, n.u = int32(FormatInt64), uint64(x)
		case float64:
			d := x
			n.format, n.u = int32(FormatDouble), *(*uint64)(unsafe.Pointer(&d))
		}
		return unsafe.Pointer(n)
	default:
		return nil
	}
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x == "yes"
	}
	return false
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	case bool:
		if x {
			return 1
		}
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	}
	return 0
}

func asString(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "yes"
		}
		return "no"
	case float64:
		return strconv.FormatFloat(x, 'f', 6, 64)
	default:
		return fmt.Sprint(x)
	}
}

func (f *fakeMpv) propertyEvent(id EventID, userdata uint64, code int32, name string, format Format, v any) *mpvEvent {
	prop := &mpvEventProperty{name: cstr(name), format: int32(format), data: valueData(format, v)}
	if prop.data == nil {
		prop.format = int32(FormatNone)
	}
	return &mpvEvent{eventID: int32(id), err: code, replyUserdata: userdata, data: unsafe.Pointer(prop)}
}

func replyEvent(id EventID, userdata uint64, code int32) *mpvEvent {
	return &mpvEvent{eventID: int32(id), err: code, replyUserdata: userdata}
}

func commandReply(userdata uint64, code int32) *mpvEvent {
	return &mpvEvent{
		eventID:       int32(EventCommandReply),
		err:           code,
		replyUserdata: userdata,
		data:          unsafe.Pointer(&mpvEventCommand{}),
	}
}

func logEvent(prefix, level, text string, lvl LogLevel) *mpvEvent {
	msg := &mpvEventLogMessage{prefix: cstr(prefix), level: cstr(level), text: cstr(text), logLevel: int32(lvl)}
	return &mpvEvent{eventID: int32(EventLogMessage), data: unsafe.Pointer(msg)}
}

func endFileEvent(reason EndFileReason, code int32) *mpvEvent {
	ef := &mpvEventEndFile{reason: int32(reason), err: code, playlistEntryID: 1}
	return &mpvEvent{eventID: int32(EventEndFile), data: unsafe.Pointer(ef)}
}

func simpleEvent(id EventID) *mpvEvent {
	return &mpvEvent{eventID: int32(id)}
}

// runCommand executes args and returns a libmpv status code.
func (f *fakeMpv) runCommandLocked(args []string) int32 {
	f.commands = append(f.commands, args)
	switch args[0] {
	case "add":
		if len(args) < 3 {
			return int32(ErrorInvalidParameter)
		}
		delta, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return int32(ErrorInvalidParameter)
		}
		switch cur := f.props[args[1]].(type) {
		case int64:
			f.setPropLocked(args[1], cur+int64(delta))
		case float64:
			f.setPropLocked(args[1], cur+delta)
		default:
			return int32(ErrorPropertyUnavailable)
		}
	case "set":
		if len(args) < 3 {
			return int32(ErrorInvalidParameter)
		}
		f.setPropLocked(args[1], args[2])
	case "cycle":
		f.setPropLocked(args[1], !asBool(f.props[args[1]]))
	case "loadfile":
		f.props["path"] = args[1]
		f.pushLocked(&mpvEvent{eventID: int32(EventStartFile), data: unsafe.Pointer(&mpvEventStartFile{playlistEntryID: 1})})
		f.pushLocked(simpleEvent(EventFileLoaded))
	case "stop":
		delete(f.props, "path")
		f.pushLocked(endFileEvent(EndFileStop, 0))
	case "script-message":
		argv := make([]unsafe.Pointer, len(args)-1)
		for i, a := range args[1:] {
			argv[i] = cstr(a)
		}
		cm := &mpvEventClientMessage{numArgs: int32(len(argv))}
		if len(argv) > 0 {
			cm.args = unsafe.Pointer(&argv[0])
		}
		f.pushLocked(&mpvEvent{eventID: int32(EventClientMessage), data: unsafe.Pointer(cm)})
	case "seek", "echo":
	case "fail":
		return int32(ErrorCommandFailed)
	default:
		return int32(ErrorInvalidParameter)
	}
	return 0
}

func (f *fakeMpv) writeValue(format Format, v any, data unsafe.Pointer) int32 {
	switch format {
	case FormatFlag:
		var flag int32
		if asBool(v) {
			flag = 1
		}
		*(*int32)(data) = flag
	case FormatInt64:
		*(*int64)(data) = int64(asFloat(v))
	case FormatDouble:
		*(*float64)(data) = asFloat(v)
	case FormatString, FormatOSDString:
		*(*unsafe.Pointer)(data) = cstr(asString(v))
	case FormatNode:
		*(*mpvNode)(data) = *(*mpvNode)(valueData(FormatNode, v))
	default:
		return int32(ErrorPropertyFormat)
	}
	return 0
}

// lib builds the function table backed by f.
func (f *fakeMpv) lib() *libmpv {
	return &libmpv{
		clientAPIVersion: func() uint32 { return 2<<16 | 1 },
		errorString: func(code int32) uintptr {
			return f.staticString(fmt.Sprintf("fake error %d", code))
		},
		free: func(unsafe.Pointer) {
			f.mu.Lock()
			f.freed++
			f.mu.Unlock()
		},
		freeNodeContents: func(unsafe.Pointer) {
			f.mu.Lock()
			f.nodesFreed++
			f.mu.Unlock()
		},
		eventName: func(id int32) uintptr { return f.staticString(EventID(id).String()) },

		create: func() uintptr { return fakeMainHandle },
		initialize: func(uintptr) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.initialized = true
			return 0
		},
		destroy: func(uintptr) {
			f.mu.Lock()
			f.destroyed++
			f.mu.Unlock()
		},
		terminateDestroy: func(uintptr) {
			f.mu.Lock()
			f.destroyed++
			f.mu.Unlock()
		},
		createClient: func(uintptr, unsafe.Pointer) uintptr { return 2 },
		clientName:   func(uintptr) uintptr { return f.staticString("main") },
		clientID:     func(uintptr) int64 { return 1 },
		loadConfigFile: func(_ uintptr, name unsafe.Pointer) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.record("mpv_load_config_file")
			f.options["config-file"] = goString(name)
			return 0
		},
		getTimeUs: func(uintptr) int64 { return 42 },

		setOption: func(_ uintptr, name unsafe.Pointer, format int32, data unsafe.Pointer) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.options[goString(name)] = asString(decodeValue(Format(format), data))
			return 0
		},
		setOptionString: func(_ uintptr, name, data unsafe.Pointer) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.options[goString(name)] = goString(data)
			return 0
		},

		command: func(_ uintptr, args unsafe.Pointer) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.record("mpv_command")
			return f.runCommandLocked(cArgv(args))
		},
		commandRet: func(_ uintptr, args unsafe.Pointer, result unsafe.Pointer) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.record("mpv_command_ret")
			argv := cArgv(args)
			if rc := f.runCommandLocked(argv); rc < 0 {
				return rc
			}
			*(*mpvNode)(result) = *(*mpvNode)(valueData(FormatNode, strings.Join(argv[1:], " ")))
			return 0
		},
		commandString: func(_ uintptr, args unsafe.Pointer) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.record("mpv_command_string")
			return f.runCommandLocked(strings.Fields(goString(args)))
		},
		commandAsync: func(_ uintptr, userdata uint64, args unsafe.Pointer) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.record("mpv_command_async")
			rc := f.runCommandLocked(cArgv(args))
			if userdata != 0 && !f.manualReplies {
				f.pushLocked(commandReply(userdata, rc))
			}
			return 0
		},
		abortAsyncCommand: func(_ uintptr, userdata uint64) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.aborted = append(f.aborted, userdata)
		},

		setProperty: func(_ uintptr, name unsafe.Pointer, format int32, data unsafe.Pointer) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.record("mpv_set_property")
			v := decodeValue(Format(format), data)
			if v == nil {
				return int32(ErrorPropertyFormat)
			}
			f.setPropLocked(goString(name), v)
			return 0
		},
		setPropertyString: func(_ uintptr, name, data unsafe.Pointer) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.setPropLocked(goString(name), goString(data))
			return 0
		},
		delProperty: func(_ uintptr, name unsafe.Pointer) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.props[goString(name)]; !ok {
				return int32(ErrorPropertyNotFound)
			}
			delete(f.props, goString(name))
			return 0
		},
		setPropertyAsync: func(_ uintptr, userdata uint64, name unsafe.Pointer, format int32, data unsafe.Pointer) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.setPropLocked(goString(name), decodeValue(Format(format), data))
			if userdata != 0 && !f.manualReplies {
				f.pushLocked(replyEvent(EventSetPropertyReply, userdata, 0))
			}
			return 0
		},
		getProperty: func(_ uintptr, name unsafe.Pointer, format int32, data unsafe.Pointer) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.record("mpv_get_property")
			v, ok := f.props[goString(name)]
			if !ok {
				return int32(ErrorPropertyUnavailable)
			}
			return f.writeValue(Format(format), v, data)
		},
		getPropertyString: func(_ uintptr, name unsafe.Pointer) uintptr {
			v := f.prop(goString(name))
			if v == nil {
				return 0
			}
			return f.staticString(asString(v))
		},
		getPropertyOSDString: func(_ uintptr, name unsafe.Pointer) uintptr {
			v := f.prop(goString(name))
			if v == nil {
				return 0
			}
			return f.staticString(asString(v))
		},
		getPropertyAsync: func(_ uintptr, userdata uint64, name unsafe.Pointer, format int32) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			n := goString(name)
			v, ok := f.props[n]
			code := int32(0)
			if !ok {
				code = int32(ErrorPropertyUnavailable)
			}
			if !f.manualReplies {
				f.pushLocked(f.propertyEvent(EventGetPropertyReply, userdata, code, n, Format(format), v))
			}
			return 0
		},
		observeProperty: func(_ uintptr, userdata uint64, name unsafe.Pointer, format int32) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			n := goString(name)
			f.observers[userdata] = fakeObserver{name: n, format: Format(format)}
			// libmpv always reports the current value once.
			f.pushLocked(f.propertyEvent(EventPropertyChange, userdata, 0, n, Format(format), f.props[n]))
			return 0
		},
		unobserveProperty: func(_ uintptr, userdata uint64) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.observers[userdata]; !ok {
				return 0
			}
			delete(f.observers, userdata)
			return 1
		},

		requestEvent: func(uintptr, int32, int32) int32 { return 0 },
		requestLogMessages: func(_ uintptr, level unsafe.Pointer) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.logLevel = goString(level)
			return 0
		},
		waitEvent: f.waitEvent,
		wakeup:    f.wakeup,
		setWakeupCallback: func(h uintptr, cb uintptr, _ uintptr) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if h == fakeMainHandle {
				f.wakeupCB = f.callback(cb)
			}
		},
		waitAsyncRequests: func(uintptr) {},

		hookAdd: func(_ uintptr, userdata uint64, name unsafe.Pointer, _ int32) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.hooks[goString(name)] = userdata
			return 0
		},
		hookContinue: func(_ uintptr, id uint64) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.hookContinued = append(f.hookContinued, id)
			return 0
		},

		renderContextCreate: func(res unsafe.Pointer, _ uintptr, params unsafe.Pointer) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			for i := 0; ; i++ {
				p := (*mpvRenderParam)(unsafe.Add(params, uintptr(i)*unsafe.Sizeof(mpvRenderParam{})))
				if p.typ == 0 {
					break
				}
				f.renderParams = append(f.renderParams, RenderParamType(p.typ))
			}
			*(*uintptr)(res) = 7
			return 0
		},
		renderContextSetParameter: func(uintptr, uintptr, unsafe.Pointer) int32 { return 0 },
		renderContextGetInfo: func(_ uintptr, _ uintptr, data unsafe.Pointer) int32 {
			*(*mpvRenderFrameInfo)(data) = mpvRenderFrameInfo{flags: FramePresent | FrameRedraw, targetTime: 1000}
			return 0
		},
		renderContextSetUpdateCallback: func(_ uintptr, cb uintptr, _ uintptr) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.updateCB = f.callback(cb)
		},
		renderContextUpdate: func(uintptr) uint64 {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.renderUpdates++
			return RenderUpdateFrame
		},
		renderContextRender: func(uintptr, unsafe.Pointer) int32 {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.renderCalls++
			return 0
		},
		renderContextReportSwap: func(uintptr) {},
		renderContextFree: func(uintptr) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.renderFreed++
		},

		newCallback: f.newCallback,
	}
}

// fireHook simulates libmpv reaching a hook point.
func (f *fakeMpv) fireHook(name string, id uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	userdata, ok := f.hooks[name]
	if !ok {
		return false
	}
	h := &mpvEventHook{name: cstr(name), id: id}
	f.pushLocked(&mpvEvent{eventID: int32(EventHook), replyUserdata: userdata, data: unsafe.Pointer(h)})
	return true
}

// fireUpdate simulates the render thread asking for a redraw.
func (f *fakeMpv) fireUpdate() {
	f.mu.Lock()
	cb := f.updateCB
	f.mu.Unlock()
	if cb != nil {
		cb(0)
	}
}
