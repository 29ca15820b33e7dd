package mpv

import "unsafe"

// EventID identifies the kind of an mpv event.
type EventID int32

// Event ids from client.h. Gaps are ids libmpv has retired.
const (
	EventNone             EventID = 0
	EventShutdown         EventID = 1
	EventLogMessage       EventID = 2
	EventGetPropertyReply EventID = 3
	EventSetPropertyReply EventID = 4
	EventCommandReply     EventID = 5
	EventStartFile        EventID = 6
	EventEndFile          EventID = 7
	EventFileLoaded       EventID = 8
	EventIdle             EventID = 11
	EventTick             EventID = 14
	EventClientMessage    EventID = 16
	EventVideoReconfig    EventID = 17
	EventAudioReconfig    EventID = 18
	EventSeek             EventID = 20
	EventPlaybackRestart  EventID = 21
	EventPropertyChange   EventID = 22
	EventQueueOverflow    EventID = 24
	EventHook             EventID = 25
)

var eventIDNames = map[EventID]string{
	EventNone:             "none",
	EventShutdown:         "shutdown",
	EventLogMessage:       "log-message",
	EventGetPropertyReply: "get-property-reply",
	EventSetPropertyReply: "set-property-reply",
	EventCommandReply:     "command-reply",
	EventStartFile:        "start-file",
	EventEndFile:          "end-file",
	EventFileLoaded:       "file-loaded",
	EventIdle:             "idle",
	EventTick:             "tick",
	EventClientMessage:    "client-message",
	EventVideoReconfig:    "video-reconfig",
	EventAudioReconfig:    "audio-reconfig",
	EventSeek:             "seek",
	EventPlaybackRestart:  "playback-restart",
	EventPropertyChange:   "property-change",
	EventQueueOverflow:    "event-queue-overflow",
	EventHook:             "hook",
}

// String returns the same name mpv_event_name would.
func (id EventID) String() string {
	if name, ok := eventIDNames[id]; ok {
		return name
	}
	return "unknown"
}

// Format is the mpv_format data type tag.
type Format int32

const (
	FormatNone      Format = 0
	FormatString    Format = 1
	FormatOSDString Format = 2
	FormatFlag      Format = 3
	FormatInt64     Format = 4
	FormatDouble    Format = 5
	FormatNode      Format = 6
	FormatNodeArray Format = 7
	FormatNodeMap   Format = 8
	FormatByteArray Format = 9
)

func (f Format) String() string {
	switch f {
	case FormatNone:
		return "none"
	case FormatString:
		return "string"
	case FormatOSDString:
		return "osd-string"
	case FormatFlag:
		return "flag"
	case FormatInt64:
		return "int64"
	case FormatDouble:
		return "double"
	case FormatNode:
		return "node"
	case FormatNodeArray:
		return "node-array"
	case FormatNodeMap:
		return "node-map"
	case FormatByteArray:
		return "byte-array"
	default:
		return "unknown"
	}
}

// EndFileReason explains why playback of a file ended.
type EndFileReason int32

const (
	EndFileEOF      EndFileReason = 0
	EndFileStop     EndFileReason = 2
	EndFileQuit     EndFileReason = 3
	EndFileError    EndFileReason = 4
	EndFileRedirect EndFileReason = 5
)

func (r EndFileReason) String() string {
	switch r {
	case EndFileEOF:
		return "eof"
	case EndFileStop:
		return "stop"
	case EndFileQuit:
		return "quit"
	case EndFileError:
		return "error"
	case EndFileRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// RenderParamType is the mpv_render_param_type tag.
type RenderParamType int32

const (
	RenderParamInvalid            RenderParamType = 0
	RenderParamAPIType            RenderParamType = 1
	RenderParamOpenGLInitParams   RenderParamType = 2
	RenderParamOpenGLFBO          RenderParamType = 3
	RenderParamFlipY              RenderParamType = 4
	RenderParamDepth              RenderParamType = 5
	RenderParamICCProfile         RenderParamType = 6
	RenderParamAmbientLight       RenderParamType = 7
	RenderParamX11Display         RenderParamType = 8
	RenderParamWLDisplay          RenderParamType = 9
	RenderParamAdvancedControl    RenderParamType = 10
	RenderParamNextFrameInfo      RenderParamType = 11
	RenderParamBlockForTargetTime RenderParamType = 12
	RenderParamSkipRendering      RenderParamType = 13
	RenderParamSWSize             RenderParamType = 17
	RenderParamSWFormat           RenderParamType = 18
	RenderParamSWStride           RenderParamType = 19
	RenderParamSWPointer          RenderParamType = 20
)

// The structs below mirror client.h and render.h field for field.
// Pointer fields are unsafe.Pointer so the same layouts can describe
// memory owned by libmpv and Go memory built by tests.

// mpv_event
type mpvEvent struct {
	eventID       int32
	err           int32
	replyUserdata uint64
	data          unsafe.Pointer
}

// mpv_event_property
type mpvEventProperty struct {
	name   unsafe.Pointer
	format int32
	data   unsafe.Pointer
}

// mpv_event_log_message
type mpvEventLogMessage struct {
	prefix   unsafe.Pointer
	level    unsafe.Pointer
	text     unsafe.Pointer
	logLevel int32
}

// mpv_event_start_file
type mpvEventStartFile struct {
	playlistEntryID int64
}

// mpv_event_end_file
type mpvEventEndFile struct {
	reason                   int32
	err                      int32
	playlistEntryID          int64
	playlistInsertID         int64
	playlistInsertNumEntries int32
}

// mpv_event_client_message
type mpvEventClientMessage struct {
	numArgs int32
	args    unsafe.Pointer
}

// mpv_event_hook
type mpvEventHook struct {
	name unsafe.Pointer
	id   uint64
}

// mpv_event_command
type mpvEventCommand struct {
	result mpvNode
}

// mpv_node. u is the 8-byte union: char*, int flag, int64, double,
// mpv_node_list* or mpv_byte_array*, selected by format.
type mpvNode struct {
	u      uint64
	format int32
}

// mpv_node_list
type mpvNodeList struct {
	num    int32
	values unsafe.Pointer
	keys   unsafe.Pointer
}

// mpv_byte_array
type mpvByteArray struct {
	data unsafe.Pointer
	size uintptr
}

// mpv_render_param
type mpvRenderParam struct {
	typ  int32
	data unsafe.Pointer
}

// mpv_opengl_init_params
type mpvOpenGLInitParams struct {
	getProcAddress    uintptr
	getProcAddressCtx uintptr
}

// mpv_opengl_fbo
type mpvOpenGLFBO struct {
	fbo            int32
	w              int32
	h              int32
	internalFormat int32
}

// mpv_render_frame_info
type mpvRenderFrameInfo struct {
	flags      uint64
	targetTime int64
}
