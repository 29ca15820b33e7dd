package mpv

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"
)

// RenderParam is one mpv_render_param. The concrete types below cover
// the parameters libmpv documents.
type RenderParam interface {
	marshal(a *Arena) (RenderParamType, unsafe.Pointer)
}

// RenderAPIType selects the rendering backend.
type RenderAPIType string

const (
	RenderAPIOpenGL RenderAPIType = "opengl"
	RenderAPISW     RenderAPIType = "sw"
)

func (t RenderAPIType) marshal(a *Arena) (RenderParamType, unsafe.Pointer) {
	return RenderParamAPIType, a.CString(string(t))
}

// OpenGLInitParams passes the host's GL loader. GetProcAddress is a C
// function pointer, e.g. from purego.NewCallback.
type OpenGLInitParams struct {
	GetProcAddress uintptr
	Ctx            uintptr
}

func (p OpenGLInitParams) marshal(a *Arena) (RenderParamType, unsafe.Pointer) {
	n := arenaNew[mpvOpenGLInitParams](a)
	n.getProcAddress = p.GetProcAddress
	n.getProcAddressCtx = p.Ctx
	return RenderParamOpenGLInitParams, unsafe.Pointer(n)
}

// OpenGLFBO is the framebuffer Render draws into. FBO 0 is the default
// framebuffer.
type OpenGLFBO struct {
	FBO            int
	W, H           int
	InternalFormat int
}

func (f OpenGLFBO) marshal(a *Arena) (RenderParamType, unsafe.Pointer) {
	n := arenaNew[mpvOpenGLFBO](a)
	n.fbo = int32(f.FBO)
	n.w = int32(f.W)
	n.h = int32(f.H)
	n.internalFormat = int32(f.InternalFormat)
	return RenderParamOpenGLFBO, unsafe.Pointer(n)
}

// FlipY draws the frame upside down, as OpenGL framebuffers expect.
type FlipY bool

func (f FlipY) marshal(a *Arena) (RenderParamType, unsafe.Pointer) {
	return RenderParamFlipY, boolParam(a, bool(f))
}

// Depth is the bit depth of the target surface, used for dithering.
type Depth int

func (d Depth) marshal(a *Arena) (RenderParamType, unsafe.Pointer) {
	return RenderParamDepth, intParam(a, int(d))
}

// AdvancedControl enables the render API's extended frame timing.
type AdvancedControl bool

func (c AdvancedControl) marshal(a *Arena) (RenderParamType, unsafe.Pointer) {
	return RenderParamAdvancedControl, boolParam(a, bool(c))
}

// BlockForTargetTime makes Render wait until the frame's display time.
type BlockForTargetTime bool

func (b BlockForTargetTime) marshal(a *Arena) (RenderParamType, unsafe.Pointer) {
	return RenderParamBlockForTargetTime, boolParam(a, bool(b))
}

// SkipRendering advances the frame without drawing it.
type SkipRendering bool

func (s SkipRendering) marshal(a *Arena) (RenderParamType, unsafe.Pointer) {
	return RenderParamSkipRendering, boolParam(a, bool(s))
}

// AmbientLight is the ambient brightness in lux.
type AmbientLight int

func (l AmbientLight) marshal(a *Arena) (RenderParamType, unsafe.Pointer) {
	return RenderParamAmbientLight, intParam(a, int(l))
}

// ICCProfile is the raw ICC profile of the target display.
type ICCProfile []byte

func (p ICCProfile) marshal(a *Arena) (RenderParamType, unsafe.Pointer) {
	ba := arenaNew[mpvByteArray](a)
	if len(p) > 0 {
		ba.data = a.Alloc(uintptr(len(p)))
		copy(unsafe.Slice((*byte)(ba.data), len(p)), p)
	}
	ba.size = uintptr(len(p))
	return RenderParamICCProfile, unsafe.Pointer(ba)
}

// X11Display passes a Display* for hardware decoding interop.
type X11Display struct {
	Display unsafe.Pointer
}

func (d X11Display) marshal(*Arena) (RenderParamType, unsafe.Pointer) {
	return RenderParamX11Display, d.Display
}

// WaylandDisplay passes a wl_display* for hardware decoding interop.
type WaylandDisplay struct {
	Display unsafe.Pointer
}

func (d WaylandDisplay) marshal(*Arena) (RenderParamType, unsafe.Pointer) {
	return RenderParamWLDisplay, d.Display
}

// SWSize is the size of the software render target in pixels.
type SWSize struct {
	W, H int
}

func (s SWSize) marshal(a *Arena) (RenderParamType, unsafe.Pointer) {
	p := a.Alloc(2 * unsafe.Sizeof(int32(0)))
	dims := unsafe.Slice((*int32)(p), 2)
	dims[0], dims[1] = int32(s.W), int32(s.H)
	return RenderParamSWSize, p
}

// SWFormat is the software render pixel format, e.g. "rgb0" or "bgra".
type SWFormat string

func (f SWFormat) marshal(a *Arena) (RenderParamType, unsafe.Pointer) {
	return RenderParamSWFormat, a.CString(string(f))
}

// SWStride is the byte distance between rows of the software target.
type SWStride uintptr

func (s SWStride) marshal(a *Arena) (RenderParamType, unsafe.Pointer) {
	p := arenaNew[uintptr](a)
	*p = uintptr(s)
	return RenderParamSWStride, unsafe.Pointer(p)
}

// SWPointer passes the software target's pixel memory. Go memory must be
// pinned for the duration of Render.
type SWPointer struct {
	Pixels unsafe.Pointer
}

func (s SWPointer) marshal(*Arena) (RenderParamType, unsafe.Pointer) {
	return RenderParamSWPointer, s.Pixels
}

func boolParam(a *Arena, v bool) unsafe.Pointer {
	p := arenaNew[int32](a)
	if v {
		*p = 1
	}
	return unsafe.Pointer(p)
}

func intParam(a *Arena, v int) unsafe.Pointer {
	p := arenaNew[int32](a)
	*p = int32(v)
	return unsafe.Pointer(p)
}

// marshalRenderParams builds the zero-terminated mpv_render_param array.
func marshalRenderParams(a *Arena, params []RenderParam) unsafe.Pointer {
	arr := a.Alloc(unsafe.Sizeof(mpvRenderParam{}) * uintptr(len(params)+1))
	slots := unsafe.Slice((*mpvRenderParam)(arr), len(params)+1)
	for i, p := range params {
		typ, data := p.marshal(a)
		slots[i] = mpvRenderParam{typ: int32(typ), data: data}
	}
	slots[len(params)] = mpvRenderParam{}
	return arr
}

// RenderUpdateFrame is set in Update's result when a new frame should be
// rendered.
const RenderUpdateFrame uint64 = 1

// RenderFrameInfo describes the next frame, see NextFrameInfo.
type RenderFrameInfo struct {
	Flags      uint64
	TargetTime int64
}

// RenderFrameInfo.Flags bits.
const (
	FramePresent    uint64 = 1 << 0
	FrameRedraw     uint64 = 1 << 1
	FrameRepeat     uint64 = 1 << 2
	FrameBlockVSync uint64 = 1 << 3
)

// RenderContext draws video into a surface owned by the host
// application. libmpv allows one per player.
type RenderContext struct {
	c      *core
	handle uintptr

	mu    sync.Mutex
	freed bool
	cb    uintptr
	quit  chan struct{}
	done  chan struct{}

	// wake is read from libmpv threads without r.mu: libmpv holds its own
	// lock while calling the update callback.
	wake atomic.Pointer[chan struct{}]
}

// NewRenderContext creates the render context. RenderAPIType is
// required; OpenGL additionally needs OpenGLInitParams.
func (m *Mpv) NewRenderContext(params ...RenderParam) (*RenderContext, error) {
	if err := m.check("render context create"); err != nil {
		return nil, err
	}
	if err := requireFn(m.lib.renderContextCreate != nil, "mpv_render_context_create"); err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return nil, invalidArgument("render context create", "no render parameters")
	}

	m.renderMu.Lock()
	defer m.renderMu.Unlock()
	if m.render != nil {
		return nil, invalidArgument("render context create", "a render context already exists")
	}

	a := m.arena()
	defer a.Release()
	out := arenaNew[uintptr](a)
	rc := m.lib.renderContextCreate(unsafe.Pointer(out), m.handle, marshalRenderParams(a, params))
	if err := m.lib.errorFor("render context create", rc); err != nil {
		return nil, err
	}
	r := &RenderContext{c: m.core, handle: *out}
	m.render = r
	m.log.Debug("mpv render context created")
	return r, nil
}

func (r *RenderContext) check(op string) error {
	if r.freed {
		return &Error{Kind: KindObjectDisposed, Op: op, Detail: "render context has been freed"}
	}
	return nil
}

// Render draws the current frame using params, typically OpenGLFBO and
// FlipY, or the SW* set.
func (r *RenderContext) Render(params ...RenderParam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("render"); err != nil {
		return err
	}
	a := r.c.arena()
	defer a.Release()
	return r.c.lib.errorFor("render", r.c.lib.renderContextRender(r.handle, marshalRenderParams(a, params)))
}

// Update must be called after the update callback fired. It returns a
// bit set; RenderUpdateFrame means Render should be called.
func (r *RenderContext) Update() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.freed {
		return 0
	}
	return r.c.lib.renderContextUpdate(r.handle)
}

// ReportSwap tells libmpv a frame was presented, for timing.
func (r *RenderContext) ReportSwap() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.freed {
		r.c.lib.renderContextReportSwap(r.handle)
	}
}

// SetParameter changes a parameter at runtime, e.g. AmbientLight or
// ICCProfile.
func (r *RenderContext) SetParameter(p RenderParam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("render set parameter"); err != nil {
		return err
	}
	if err := requireFn(r.c.lib.renderContextSetParameter != nil, "mpv_render_context_set_parameter"); err != nil {
		return err
	}
	a := r.c.arena()
	defer a.Release()
	typ, data := p.marshal(a)
	return r.c.lib.errorFor("render set parameter", r.c.lib.renderContextSetParameter(r.handle, uintptr(typ), data))
}

// NextFrameInfo reports when and how the next frame is due. It needs
// AdvancedControl.
func (r *RenderContext) NextFrameInfo() (RenderFrameInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("render get info"); err != nil {
		return RenderFrameInfo{}, err
	}
	if err := requireFn(r.c.lib.renderContextGetInfo != nil, "mpv_render_context_get_info"); err != nil {
		return RenderFrameInfo{}, err
	}
	a := r.c.arena()
	defer a.Release()
	info := arenaNew[mpvRenderFrameInfo](a)
	rc := r.c.lib.renderContextGetInfo(r.handle, uintptr(RenderParamNextFrameInfo), unsafe.Pointer(info))
	if err := r.c.lib.errorFor("render get info", rc); err != nil {
		return RenderFrameInfo{}, err
	}
	return RenderFrameInfo{Flags: info.flags, TargetTime: info.targetTime}, nil
}

// SetUpdateCallback registers fn to be told that Update should be
// called. fn runs on a goroutine of its own, never on a libmpv thread,
// and must not call Render itself when the GL context is bound
// elsewhere. A nil fn removes the callback.
func (r *RenderContext) SetUpdateCallback(fn func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("render set update callback"); err != nil {
		return err
	}
	r.stopUpdatesLocked()
	if err := r.check("render set update callback"); err != nil {
		return err
	}
	if fn == nil {
		return nil
	}

	wake := make(chan struct{}, 1)
	r.wake.Store(&wake)
	r.quit = make(chan struct{})
	r.done = make(chan struct{})
	if r.cb == 0 {
		// The native callback outlives any one fn; it signals whatever
		// wake channel is current.
		r.cb = r.c.lib.newCallback(func(_ uintptr) uintptr {
			r.notify()
			return 0
		})
	}
	go runUpdates(fn, wake, r.quit, r.done)
	r.c.lib.renderContextSetUpdateCallback(r.handle, r.cb, 0)
	return nil
}

// notify runs on a libmpv thread.
func (r *RenderContext) notify() {
	wake := r.wake.Load()
	if wake == nil {
		return
	}
	select {
	case *wake <- struct{}{}:
	default:
	}
}

func runUpdates(fn func(), wake, quit, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-quit:
			return
		case <-wake:
			fn()
		}
	}
}

// stopUpdatesLocked releases r.mu while it waits for the update
// goroutine, since the handler may be blocked on r.mu in Update.
func (r *RenderContext) stopUpdatesLocked() {
	for r.quit != nil {
		r.c.lib.renderContextSetUpdateCallback(r.handle, 0, 0)
		r.wake.Store(nil)
		close(r.quit)
		done := r.done
		r.quit, r.done = nil, nil
		r.mu.Unlock()
		<-done
		r.mu.Lock()
	}
}

// Free destroys the render context. It must be called before the GL
// context it was created with goes away. Calling Free again does nothing.
func (r *RenderContext) Free() {
	r.mu.Lock()
	if r.freed {
		r.mu.Unlock()
		return
	}
	r.freed = true
	r.stopUpdatesLocked()
	r.c.lib.renderContextFree(r.handle)
	r.mu.Unlock()

	r.c.renderMu.Lock()
	if r.c.render == r {
		r.c.render = nil
	}
	r.c.renderMu.Unlock()
	r.c.log.Debug("mpv render context freed", zap.Uintptr("handle", r.handle))
}
