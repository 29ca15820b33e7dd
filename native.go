package mpv

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// libmpv holds the bound libmpv entry points. Handles and returned C
// pointers are uintptr; pointers we pass in are unsafe.Pointer.
// Optional entry points are nil when the loaded libmpv does not export
// them.
type libmpv struct {
	clientAPIVersion func() uint32
	errorString      func(code int32) uintptr
	free             func(p unsafe.Pointer)
	freeNodeContents func(node unsafe.Pointer)
	eventName        func(id int32) uintptr

	create           func() uintptr
	initialize       func(h uintptr) int32
	destroy          func(h uintptr)
	terminateDestroy func(h uintptr)
	createClient     func(h uintptr, name unsafe.Pointer) uintptr
	clientName       func(h uintptr) uintptr
	clientID         func(h uintptr) int64
	loadConfigFile   func(h uintptr, filename unsafe.Pointer) int32
	getTimeUs        func(h uintptr) int64

	setOption       func(h uintptr, name unsafe.Pointer, format int32, data unsafe.Pointer) int32
	setOptionString func(h uintptr, name, data unsafe.Pointer) int32

	command           func(h uintptr, args unsafe.Pointer) int32
	commandRet        func(h uintptr, args unsafe.Pointer, result unsafe.Pointer) int32
	commandString     func(h uintptr, args unsafe.Pointer) int32
	commandAsync      func(h uintptr, userdata uint64, args unsafe.Pointer) int32
	abortAsyncCommand func(h uintptr, userdata uint64)

	setProperty          func(h uintptr, name unsafe.Pointer, format int32, data unsafe.Pointer) int32
	setPropertyString    func(h uintptr, name, data unsafe.Pointer) int32
	delProperty          func(h uintptr, name unsafe.Pointer) int32
	setPropertyAsync     func(h uintptr, userdata uint64, name unsafe.Pointer, format int32, data unsafe.Pointer) int32
	getProperty          func(h uintptr, name unsafe.Pointer, format int32, data unsafe.Pointer) int32
	getPropertyString    func(h uintptr, name unsafe.Pointer) uintptr
	getPropertyOSDString func(h uintptr, name unsafe.Pointer) uintptr
	getPropertyAsync     func(h uintptr, userdata uint64, name unsafe.Pointer, format int32) int32
	observeProperty      func(h uintptr, userdata uint64, name unsafe.Pointer, format int32) int32
	unobserveProperty    func(h uintptr, userdata uint64) int32

	requestEvent       func(h uintptr, id int32, enable int32) int32
	requestLogMessages func(h uintptr, minLevel unsafe.Pointer) int32
	waitEvent          func(h uintptr, timeout float64) uintptr
	wakeup             func(h uintptr)
	setWakeupCallback  func(h uintptr, cb uintptr, d uintptr)
	waitAsyncRequests  func(h uintptr)

	hookAdd      func(h uintptr, userdata uint64, name unsafe.Pointer, priority int32) int32
	hookContinue func(h uintptr, id uint64) int32

	renderContextCreate            func(res unsafe.Pointer, h uintptr, params unsafe.Pointer) int32
	renderContextSetParameter      func(rc uintptr, typ uintptr, data unsafe.Pointer) int32
	renderContextGetInfo           func(rc uintptr, typ uintptr, data unsafe.Pointer) int32
	renderContextSetUpdateCallback func(rc uintptr, cb uintptr, d uintptr)
	renderContextUpdate            func(rc uintptr) uint64
	renderContextRender            func(rc uintptr, params unsafe.Pointer) int32
	renderContextReportSwap        func(rc uintptr)
	renderContextFree              func(rc uintptr)

	// newCallback turns a Go func into a C function pointer.
	newCallback func(fn any) uintptr
}

type binding struct {
	fn       any
	symbol   string
	required bool
}

// splitStructArgs lists functions taking an mpv_render_param by value,
// declared here as its two register-sized halves.
var splitStructArgs = map[string]bool{
	"mpv_render_context_set_parameter": true,
	"mpv_render_context_get_info":      true,
}

func (l *libmpv) bindings() []binding {
	return []binding{
		{&l.clientAPIVersion, "mpv_client_api_version", true},
		{&l.errorString, "mpv_error_string", true},
		{&l.free, "mpv_free", true},
		{&l.freeNodeContents, "mpv_free_node_contents", true},
		{&l.eventName, "mpv_event_name", true},

		{&l.create, "mpv_create", true},
		{&l.initialize, "mpv_initialize", true},
		{&l.destroy, "mpv_destroy", true},
		{&l.terminateDestroy, "mpv_terminate_destroy", true},
		{&l.createClient, "mpv_create_client", false},
		{&l.clientName, "mpv_client_name", true},
		{&l.clientID, "mpv_client_id", false},
		{&l.loadConfigFile, "mpv_load_config_file", false},
		{&l.getTimeUs, "mpv_get_time_us", false},

		{&l.setOption, "mpv_set_option", true},
		{&l.setOptionString, "mpv_set_option_string", true},

		{&l.command, "mpv_command", true},
		{&l.commandRet, "mpv_command_ret", false},
		{&l.commandString, "mpv_command_string", false},
		{&l.commandAsync, "mpv_command_async", true},
		{&l.abortAsyncCommand, "mpv_abort_async_command", false},

		{&l.setProperty, "mpv_set_property", true},
		{&l.setPropertyString, "mpv_set_property_string", true},
		{&l.delProperty, "mpv_del_property", false},
		{&l.setPropertyAsync, "mpv_set_property_async", true},
		{&l.getProperty, "mpv_get_property", true},
		{&l.getPropertyString, "mpv_get_property_string", true},
		{&l.getPropertyOSDString, "mpv_get_property_osd_string", true},
		{&l.getPropertyAsync, "mpv_get_property_async", true},
		{&l.observeProperty, "mpv_observe_property", true},
		{&l.unobserveProperty, "mpv_unobserve_property", true},

		{&l.requestEvent, "mpv_request_event", true},
		{&l.requestLogMessages, "mpv_request_log_messages", true},
		{&l.waitEvent, "mpv_wait_event", true},
		{&l.wakeup, "mpv_wakeup", true},
		{&l.setWakeupCallback, "mpv_set_wakeup_callback", true},
		{&l.waitAsyncRequests, "mpv_wait_async_requests", false},

		{&l.hookAdd, "mpv_hook_add", false},
		{&l.hookContinue, "mpv_hook_continue", false},

		{&l.renderContextCreate, "mpv_render_context_create", false},
		{&l.renderContextSetParameter, "mpv_render_context_set_parameter", false},
		{&l.renderContextGetInfo, "mpv_render_context_get_info", false},
		{&l.renderContextSetUpdateCallback, "mpv_render_context_set_update_callback", false},
		{&l.renderContextUpdate, "mpv_render_context_update", false},
		{&l.renderContextRender, "mpv_render_context_render", false},
		{&l.renderContextReportSwap, "mpv_render_context_report_swap", false},
		{&l.renderContextFree, "mpv_render_context_free", false},
	}
}

// bindLibmpv resolves every libmpv entry point through r.
func bindLibmpv(r *Resolver) (*libmpv, error) {
	l := &libmpv{newCallback: purego.NewCallback}
	for _, b := range l.bindings() {
		// The Windows x64 ABI passes 16-byte structs by reference, so the
		// split declaration only matches System V and AAPCS64.
		if splitStructArgs[b.symbol] && runtime.GOOS == "windows" {
			continue
		}
		addr, err := r.Resolve(libmpvName, b.symbol, b.required)
		if err != nil {
			return nil, fmt.Errorf("bind libmpv: %w", err)
		}
		if addr == 0 {
			continue
		}
		purego.RegisterFunc(b.fn, addr)
	}
	return l, nil
}

// requireFn reports KindEntryPointNotFound for optional entry points the
// loaded libmpv does not provide.
func requireFn(present bool, symbol string) error {
	if present {
		return nil
	}
	return &Error{
		Kind:   KindEntryPointNotFound,
		Op:     symbol,
		Detail: "not exported by the loaded libmpv",
	}
}

// errorFor converts a libmpv status code into an error, or nil for
// non-negative codes.
func (l *libmpv) errorFor(op string, code int32) error {
	if code >= 0 {
		return nil
	}
	return &Error{
		Kind:   KindCommand,
		Op:     op,
		Code:   ErrorCode(code),
		Detail: goStringFromPtr(l.errorString(code)),
	}
}
