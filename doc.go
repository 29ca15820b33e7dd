// Package mpv binds the libmpv client API, loading the native library at
// runtime through purego.
//
// Key pieces include:
//   - Mpv: one player handle with typed property and option access
//   - Synchronous and asynchronous commands with reply correlation
//   - Property observation and an ordered event stream
//   - RenderContext for drawing video into a host-owned surface
//   - Resolver: per-platform shared library loading with caching
//
// # Architecture
//
//	Calls:  Mpv -> Arena (native memory) -> libmpv function table -> libmpv
//	Events: libmpv -> EventLoop -> dispatch table -> handlers / reply queue
//
// Asynchronous calls return a Request. Its reply travels through the same
// event queue as everything else and is matched by request id.
//
// # Native Libraries
//
// libmpv is looked up in Config.LibraryRoot, then in the platform's usual
// directories, then by bare name through the system loader. Set
// MPV_LIB_PATH to the directory containing libmpv to override the root.
// No cgo is needed; CGO_ENABLED=0 builds work.
//
// # Event Loops
//
// Config.EventLoop picks how events are pulled:
//   - goroutine: blocks in mpv_wait_event on a goroutine (default)
//   - thread: the same, locked to its own OS thread
//   - wakeup: drains the queue when libmpv signals new events
//
// Handlers always run on a Go-owned goroutine, one event at a time, in
// the order libmpv produced them.
package mpv
