package mpv

import "unsafe"

// Event is one event delivered by libmpv. Data holds the payload for
// events that carry one:
//
//	EventPropertyChange, EventGetPropertyReply  *Property
//	EventLogMessage                             *LogMessage
//	EventStartFile                              *StartFile
//	EventEndFile                                *EndFile
//	EventClientMessage                          *ClientMessage
//	EventHook                                   *Hook
//	EventCommandReply                           *CommandResult
type Event struct {
	ID            EventID
	Error         error
	ReplyUserData uint64
	Data          any
}

// Property is a property value, from a change notification or a reply.
type Property struct {
	Name   string
	Format Format
	// Value is nil when the property is unavailable; otherwise bool,
	// int64, float64, string or a decoded node, according to Format.
	Value any
}

// LogMessage is a message from the libmpv log.
type LogMessage struct {
	Prefix   string
	Level    string
	Text     string
	LogLevel LogLevel
}

// StartFile is sent before a playlist entry starts loading.
type StartFile struct {
	PlaylistEntryID int64
}

// EndFile is sent when a playlist entry stops playing.
type EndFile struct {
	Reason                   EndFileReason
	Error                    error
	PlaylistEntryID          int64
	PlaylistInsertID         int64
	PlaylistInsertNumEntries int
}

// ClientMessage carries the arguments of a script-message.
type ClientMessage struct {
	Args []string
}

// Hook is a hook invocation. Handlers registered with AddHook run before
// libmpv is told to continue.
type Hook struct {
	Name string
	ID   uint64
}

// CommandResult is the result node of an asynchronous command.
type CommandResult struct {
	Result any
}

// decodeEvent copies a native mpv_event into Go memory. The native event
// is only valid until the next mpv_wait_event call.
func (l *libmpv) decodeEvent(p unsafe.Pointer) Event {
	raw, err := PtrTo[mpvEvent](p)
	if err != nil {
		return Event{ID: EventNone}
	}
	ev := Event{
		ID:            EventID(raw.eventID),
		ReplyUserData: raw.replyUserdata,
		Error:         l.errorFor(EventID(raw.eventID).String(), raw.err),
	}

	switch ev.ID {
	case EventPropertyChange, EventGetPropertyReply:
		if prop, err := PtrTo[mpvEventProperty](raw.data); err == nil {
			ev.Data = &Property{
				Name:   goString(prop.name),
				Format: Format(prop.format),
				Value:  decodeValue(Format(prop.format), prop.data),
			}
		}
	case EventLogMessage:
		if msg, err := PtrTo[mpvEventLogMessage](raw.data); err == nil {
			ev.Data = &LogMessage{
				Prefix:   goString(msg.prefix),
				Level:    goString(msg.level),
				Text:     goString(msg.text),
				LogLevel: LogLevel(msg.logLevel),
			}
		}
	case EventStartFile:
		if sf, err := PtrTo[mpvEventStartFile](raw.data); err == nil {
			ev.Data = &StartFile{PlaylistEntryID: sf.playlistEntryID}
		}
	case EventEndFile:
		if ef, err := PtrTo[mpvEventEndFile](raw.data); err == nil {
			end := &EndFile{
				Reason:                   EndFileReason(ef.reason),
				PlaylistEntryID:          ef.playlistEntryID,
				PlaylistInsertID:         ef.playlistInsertID,
				PlaylistInsertNumEntries: int(ef.playlistInsertNumEntries),
			}
			if end.Reason == EndFileError {
				end.Error = l.errorFor("end-file", ef.err)
			}
			ev.Data = end
		}
	case EventClientMessage:
		if cm, err := PtrTo[mpvEventClientMessage](raw.data); err == nil {
			ev.Data = &ClientMessage{Args: goStrings(cm.args, int(cm.numArgs))}
		}
	case EventHook:
		if h, err := PtrTo[mpvEventHook](raw.data); err == nil {
			ev.Data = &Hook{Name: goString(h.name), ID: h.id}
		}
	case EventCommandReply:
		if c, err := PtrTo[mpvEventCommand](raw.data); err == nil {
			ev.Data = &CommandResult{Result: decodeNode(&c.result)}
		}
	}
	return ev
}
