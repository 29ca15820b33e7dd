package mpv

import (
	"context"
	"strconv"
	"time"
	"unsafe"
)

// Command runs a command synchronously, e.g. Command("loadfile", path).
// An empty argument list fails with KindInvalidArgument without reaching
// libmpv.
func (m *Mpv) Command(args ...string) error {
	if len(args) == 0 {
		return invalidArgument("command", "empty argument list")
	}
	if err := m.check("command"); err != nil {
		return err
	}
	a := m.arena()
	defer a.Release()
	return m.lib.errorFor("command "+args[0], m.lib.command(m.handle, a.CStringArray(args)))
}

// CommandRet runs a command synchronously and returns its decoded result
// node.
func (m *Mpv) CommandRet(args ...string) (any, error) {
	if len(args) == 0 {
		return nil, invalidArgument("command", "empty argument list")
	}
	if err := m.check("command"); err != nil {
		return nil, err
	}
	if err := requireFn(m.lib.commandRet != nil, "mpv_command_ret"); err != nil {
		return nil, err
	}
	a := m.arena()
	defer a.Release()
	result := arenaNew[mpvNode](a)
	rc := m.lib.commandRet(m.handle, a.CStringArray(args), unsafe.Pointer(result))
	if err := m.lib.errorFor("command "+args[0], rc); err != nil {
		return nil, err
	}
	a.Own(unsafe.Pointer(result), m.lib.freeNodeContents)
	return decodeNode(result), nil
}

// CommandString runs a command given in input.conf syntax, e.g.
// "seek 10 relative".
func (m *Mpv) CommandString(cmd string) error {
	if cmd == "" {
		return invalidArgument("command", "empty command string")
	}
	if err := m.check("command"); err != nil {
		return err
	}
	if err := requireFn(m.lib.commandString != nil, "mpv_command_string"); err != nil {
		return err
	}
	a := m.arena()
	defer a.Release()
	return m.lib.errorFor("command "+cmd, m.lib.commandString(m.handle, a.CString(cmd)))
}

// newRequest takes the next free request id and registers it as pending.
func (c *core) newRequest(command string) (*Request, error) {
	for {
		id := c.nextID.Add(1)
		err := c.replies.register(c.pendingRequest(id, command))
		if err == nil {
			return &Request{ID: id, Command: command, q: c.replies, timeout: c.asyncTimeout}, nil
		}
		// Skip ids claimed with CommandAsyncID.
		if !isKind(err, KindInvalidArgument) {
			return nil, err
		}
	}
}

func (c *core) pendingRequest(id uint64, command string) PendingRequest {
	p := PendingRequest{ID: id, Command: command, Timeout: c.asyncTimeout}
	if c.asyncTimeout >= 0 {
		p.Deadline = time.Now().Add(c.asyncTimeout)
	}
	return p
}

// CommandAsync starts a command and returns at once. The reply arrives
// as an EventCommandReply; Request.Wait blocks for it.
func (m *Mpv) CommandAsync(args ...string) (*Request, error) {
	if len(args) == 0 {
		return nil, invalidArgument("command async", "empty argument list")
	}
	if err := m.check("command async"); err != nil {
		return nil, err
	}
	req, err := m.newRequest(args[0])
	if err != nil {
		return nil, err
	}
	if err := m.commandAsync(req.ID, args); err != nil {
		m.replies.forget(req.ID)
		return nil, err
	}
	return req, nil
}

// CommandAsyncID starts a command with a caller-chosen reply id. Id 0
// sends the command without tracking a reply. A non-zero id must not be
// pending already; wait for it with WaitReply.
func (m *Mpv) CommandAsyncID(id uint64, args ...string) error {
	if len(args) == 0 {
		return invalidArgument("command async", "empty argument list")
	}
	if err := m.check("command async"); err != nil {
		return err
	}
	if id == 0 {
		return m.commandAsync(0, args)
	}
	if err := m.replies.register(m.pendingRequest(id, args[0])); err != nil {
		return err
	}
	if err := m.commandAsync(id, args); err != nil {
		m.replies.forget(id)
		return err
	}
	return nil
}

func (c *core) commandAsync(id uint64, args []string) error {
	a := c.arena()
	defer a.Release()
	return c.lib.errorFor("command async "+args[0], c.lib.commandAsync(c.handle, id, a.CStringArray(args)))
}

// AbortAsyncCommand asks libmpv to abort the asynchronous command with
// the given id. The reply still arrives, usually with an error.
func (m *Mpv) AbortAsyncCommand(id uint64) error {
	if err := m.check("abort async command"); err != nil {
		return err
	}
	if err := requireFn(m.lib.abortAsyncCommand != nil, "mpv_abort_async_command"); err != nil {
		return err
	}
	m.lib.abortAsyncCommand(m.handle, id)
	return nil
}

// WaitReply waits for the reply to a pending request. A nil opts uses
// the configured timeout and does not check the reply's error.
func (m *Mpv) WaitReply(ctx context.Context, id uint64, opts *WaitOptions) (Event, error) {
	if err := m.check("wait reply"); err != nil {
		return Event{}, err
	}
	o := WaitOptions{Timeout: m.asyncTimeout}
	if opts != nil {
		o = *opts
	}
	return m.replies.wait(ctx, id, o)
}

// PendingRequests lists the requests still waiting for a reply.
func (m *Mpv) PendingRequests() []PendingRequest {
	return m.replies.pendingRequests()
}

// LoadFileMode is the second argument of the loadfile command.
type LoadFileMode string

const (
	LoadReplace        LoadFileMode = "replace"
	LoadAppend         LoadFileMode = "append"
	LoadAppendPlay     LoadFileMode = "append-play"
	LoadInsertNext     LoadFileMode = "insert-next"
	LoadInsertNextPlay LoadFileMode = "insert-next-play"
)

// LoadFile loads a file or URL. An empty mode replaces the current file.
func (m *Mpv) LoadFile(path string, mode LoadFileMode) error {
	if path == "" {
		return invalidArgument("loadfile", "empty path")
	}
	if mode == "" {
		mode = LoadReplace
	}
	return m.Command("loadfile", path, string(mode))
}

// Add adds delta to a numeric property.
func (m *Mpv) Add(property string, delta float64) error {
	return m.Command("add", property, strconv.FormatFloat(delta, 'g', -1, 64))
}

// Cycle advances a property to its next value, e.g. "pause".
func (m *Mpv) Cycle(property string) error {
	return m.Command("cycle", property)
}

// Seek seeks by seconds. flags is a seek flag string such as "relative"
// or "absolute+exact"; empty means relative.
func (m *Mpv) Seek(seconds float64, flags string) error {
	if flags == "" {
		flags = "relative"
	}
	return m.Command("seek", strconv.FormatFloat(seconds, 'f', -1, 64), flags)
}

// Stop stops playback and clears the playlist.
func (m *Mpv) Stop() error {
	return m.Command("stop")
}

func isKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
