package mpv

import (
	"context"
	"unsafe"
)

// getProperty reads name into data, which must match format.
func (c *core) getProperty(a *Arena, name string, format Format, data unsafe.Pointer) error {
	if err := c.check("get property"); err != nil {
		return err
	}
	if name == "" {
		return invalidArgument("get property", "empty property name")
	}
	return c.lib.errorFor("get property "+name, c.lib.getProperty(c.handle, a.CString(name), int32(format), data))
}

func (c *core) setProperty(a *Arena, name string, format Format, data unsafe.Pointer) error {
	if err := c.check("set property"); err != nil {
		return err
	}
	if name == "" {
		return invalidArgument("set property", "empty property name")
	}
	return c.lib.errorFor("set property "+name, c.lib.setProperty(c.handle, a.CString(name), int32(format), data))
}

// GetFlag reads a yes/no property such as "pause".
func (m *Mpv) GetFlag(name string) (bool, error) {
	a := m.arena()
	defer a.Release()
	v := arenaNew[int32](a)
	if err := m.getProperty(a, name, FormatFlag, unsafe.Pointer(v)); err != nil {
		return false, err
	}
	return *v != 0, nil
}

// SetFlag sets a yes/no property.
func (m *Mpv) SetFlag(name string, value bool) error {
	a := m.arena()
	defer a.Release()
	v := arenaNew[int32](a)
	if value {
		*v = 1
	}
	return m.setProperty(a, name, FormatFlag, unsafe.Pointer(v))
}

// GetInt64 reads an integer property.
func (m *Mpv) GetInt64(name string) (int64, error) {
	a := m.arena()
	defer a.Release()
	v := arenaNew[int64](a)
	if err := m.getProperty(a, name, FormatInt64, unsafe.Pointer(v)); err != nil {
		return 0, err
	}
	return *v, nil
}

// SetInt64 sets an integer property.
func (m *Mpv) SetInt64(name string, value int64) error {
	a := m.arena()
	defer a.Release()
	v := arenaNew[int64](a)
	*v = value
	return m.setProperty(a, name, FormatInt64, unsafe.Pointer(v))
}

// GetDouble reads a floating point property.
func (m *Mpv) GetDouble(name string) (float64, error) {
	a := m.arena()
	defer a.Release()
	v := arenaNew[float64](a)
	if err := m.getProperty(a, name, FormatDouble, unsafe.Pointer(v)); err != nil {
		return 0, err
	}
	return *v, nil
}

// SetDouble sets a floating point property.
func (m *Mpv) SetDouble(name string, value float64) error {
	a := m.arena()
	defer a.Release()
	v := arenaNew[float64](a)
	*v = value
	return m.setProperty(a, name, FormatDouble, unsafe.Pointer(v))
}

// GetString reads a property in its string form.
func (m *Mpv) GetString(name string) (string, error) {
	return m.getString(name, FormatString)
}

// GetOSDString reads a property formatted for on-screen display, e.g.
// "00:01:05" for time-pos.
func (m *Mpv) GetOSDString(name string) (string, error) {
	return m.getString(name, FormatOSDString)
}

func (m *Mpv) getString(name string, format Format) (string, error) {
	a := m.arena()
	defer a.Release()
	out := arenaNew[unsafe.Pointer](a)
	if err := m.getProperty(a, name, format, unsafe.Pointer(out)); err != nil {
		return "", err
	}
	a.Own(*out, m.lib.free)
	return goString(*out), nil
}

// SetString sets a property from its string form.
func (m *Mpv) SetString(name, value string) error {
	a := m.arena()
	defer a.Release()
	v := arenaNew[unsafe.Pointer](a)
	*v = a.CString(value)
	return m.setProperty(a, name, FormatString, unsafe.Pointer(v))
}

// GetNode reads a property as a decoded node: nil, bool, int64, float64,
// string, []any, map[string]any or []byte.
func (m *Mpv) GetNode(name string) (any, error) {
	a := m.arena()
	defer a.Release()
	n := arenaNew[mpvNode](a)
	if err := m.getProperty(a, name, FormatNode, unsafe.Pointer(n)); err != nil {
		return nil, err
	}
	a.Own(unsafe.Pointer(n), m.lib.freeNodeContents)
	return decodeNode(n), nil
}

// GetProperty reads name in the given format and returns the decoded value.
func (m *Mpv) GetProperty(name string, format Format) (any, error) {
	switch format {
	case FormatFlag:
		return m.GetFlag(name)
	case FormatInt64:
		return m.GetInt64(name)
	case FormatDouble:
		return m.GetDouble(name)
	case FormatString, FormatOSDString:
		return m.getString(name, format)
	case FormatNode:
		return m.GetNode(name)
	default:
		return nil, invalidArgument("get property", "unsupported format "+format.String())
	}
}

// SetProperty writes value converted to format. Node values may be any
// type GetNode returns, plus int, []string and map[string]string.
func (m *Mpv) SetProperty(name string, format Format, value any) error {
	a := m.arena()
	defer a.Release()
	data, err := encodeValue(a, format, value)
	if err != nil {
		return err
	}
	return m.setProperty(a, name, format, data)
}

// DelProperty deletes a user-data property or resets an option.
func (m *Mpv) DelProperty(name string) error {
	if err := m.check("del property"); err != nil {
		return err
	}
	if err := requireFn(m.lib.delProperty != nil, "mpv_del_property"); err != nil {
		return err
	}
	if name == "" {
		return invalidArgument("del property", "empty property name")
	}
	a := m.arena()
	defer a.Release()
	return m.lib.errorFor("del property "+name, m.lib.delProperty(m.handle, a.CString(name)))
}

// SetOption sets an option, converting value to format.
func (m *Mpv) SetOption(name string, format Format, value any) error {
	if err := m.check("set option"); err != nil {
		return err
	}
	if name == "" {
		return invalidArgument("set option", "empty option name")
	}
	a := m.arena()
	defer a.Release()
	data, err := encodeValue(a, format, value)
	if err != nil {
		return err
	}
	return m.lib.errorFor("set option "+name, m.lib.setOption(m.handle, a.CString(name), int32(format), data))
}

// SetOptionString sets an option from its string form, as on the mpv
// command line.
func (m *Mpv) SetOptionString(name, value string) error {
	if err := m.check("set option"); err != nil {
		return err
	}
	return m.setOptionString(name, value)
}

func (c *core) setOptionString(name, value string) error {
	if name == "" || value == "" {
		return invalidArgument("set option", "empty option name or value")
	}
	a := c.arena()
	defer a.Release()
	return c.lib.errorFor("set option "+name, c.lib.setOptionString(c.handle, a.CString(name), a.CString(value)))
}

// GetPropertyAsync requests name in format. The reply is an
// EventGetPropertyReply whose Data is a *Property.
func (m *Mpv) GetPropertyAsync(name string, format Format) (*Request, error) {
	if err := m.check("get property async"); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, invalidArgument("get property async", "empty property name")
	}
	req, err := m.newRequest("get_property " + name)
	if err != nil {
		return nil, err
	}
	a := m.arena()
	defer a.Release()
	rc := m.lib.getPropertyAsync(m.handle, req.ID, a.CString(name), int32(format))
	if err := m.lib.errorFor("get property async "+name, rc); err != nil {
		m.replies.forget(req.ID)
		return nil, err
	}
	return req, nil
}

// SetPropertyAsync sets name without waiting. The reply is an
// EventSetPropertyReply.
func (m *Mpv) SetPropertyAsync(name string, format Format, value any) (*Request, error) {
	if err := m.check("set property async"); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, invalidArgument("set property async", "empty property name")
	}
	a := m.arena()
	defer a.Release()
	data, err := encodeValue(a, format, value)
	if err != nil {
		return nil, err
	}
	req, err := m.newRequest("set_property " + name)
	if err != nil {
		return nil, err
	}
	rc := m.lib.setPropertyAsync(m.handle, req.ID, a.CString(name), int32(format), data)
	if err := m.lib.errorFor("set property async "+name, rc); err != nil {
		m.replies.forget(req.ID)
		return nil, err
	}
	return req, nil
}

// GetPropertyValue is GetPropertyAsync followed by a wait, returning the
// decoded value.
func (m *Mpv) GetPropertyValue(ctx context.Context, name string, format Format) (any, error) {
	req, err := m.GetPropertyAsync(name, format)
	if err != nil {
		return nil, err
	}
	ev, err := req.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if prop, ok := ev.Data.(*Property); ok {
		return prop.Value, nil
	}
	return nil, nil
}
