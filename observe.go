package mpv

import (
	"fmt"
	"sort"
)

// ObservedProperty is a property watch registered with Observe.
type ObservedProperty struct {
	Name   string
	Format Format
	ID     uint64
}

// Observe watches name for changes. Changes arrive as EventPropertyChange
// with ReplyUserData set to id, and through OnPropertyChange. Each id can
// watch one property at a time.
func (m *Mpv) Observe(id uint64, name string, format Format) error {
	if err := m.check("observe"); err != nil {
		return err
	}
	if name == "" {
		return invalidArgument("observe", "empty property name")
	}

	m.obsMu.Lock()
	if prev, dup := m.observed[id]; dup {
		m.obsMu.Unlock()
		return invalidArgument("observe", fmt.Sprintf("id %d already observes %q", id, prev.Name))
	}
	m.observed[id] = ObservedProperty{Name: name, Format: format, ID: id}
	m.obsMu.Unlock()

	a := m.arena()
	defer a.Release()
	rc := m.lib.observeProperty(m.handle, id, a.CString(name), int32(format))
	if err := m.lib.errorFor("observe "+name, rc); err != nil {
		m.obsMu.Lock()
		delete(m.observed, id)
		m.obsMu.Unlock()
		return err
	}
	return nil
}

// Unobserve removes the watch registered under id. Changes still queued
// for it are dropped.
func (m *Mpv) Unobserve(id uint64) error {
	if err := m.check("unobserve"); err != nil {
		return err
	}
	m.obsMu.Lock()
	_, ok := m.observed[id]
	delete(m.observed, id)
	m.obsMu.Unlock()
	if !ok {
		return invalidArgument("unobserve", fmt.Sprintf("id %d is not observing anything", id))
	}
	return m.lib.errorFor("unobserve", m.lib.unobserveProperty(m.handle, id))
}

// ObservedProperties returns the current watches ordered by id.
func (m *Mpv) ObservedProperties() []ObservedProperty {
	m.obsMu.Lock()
	out := make([]ObservedProperty, 0, len(m.observed))
	for _, o := range m.observed {
		out = append(out, o)
	}
	m.obsMu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OnPropertyChange subscribes fn to changes of every observed property.
// Filter on Property.Name.
func (m *Mpv) OnPropertyChange(fn func(Property)) (cancel func()) {
	return m.OnEvent(EventPropertyChange, func(ev Event) {
		if p, ok := ev.Data.(*Property); ok {
			fn(*p)
		}
	})
}
