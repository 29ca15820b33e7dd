package mpv

type hookEntry struct {
	name string
	fn   func(Hook)
}

// AddHook runs fn whenever libmpv reaches the named hook point, such as
// "on_load" or "on_unload". libmpv waits for fn to return before it
// continues. Higher priorities run first among all clients.
func (m *Mpv) AddHook(name string, priority int, fn func(Hook)) error {
	if err := m.check("add hook"); err != nil {
		return err
	}
	if err := requireFn(m.lib.hookAdd != nil && m.lib.hookContinue != nil, "mpv_hook_add"); err != nil {
		return err
	}
	if name == "" || fn == nil {
		return invalidArgument("add hook", "hook needs a name and a handler")
	}

	id := m.nextID.Add(1)
	m.hooksMu.Lock()
	m.hooks[id] = hookEntry{name: name, fn: fn}
	m.hooksMu.Unlock()

	a := m.arena()
	defer a.Release()
	if err := m.lib.errorFor("add hook "+name, m.lib.hookAdd(m.handle, id, a.CString(name), int32(priority))); err != nil {
		m.hooksMu.Lock()
		delete(m.hooks, id)
		m.hooksMu.Unlock()
		return err
	}
	return nil
}
