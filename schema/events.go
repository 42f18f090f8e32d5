package schema

// WorkspaceEventType identifies a workspace transition.
type WorkspaceEventType string

const (
	// EventBufferOpened is emitted after a buffer is appended and selected.
	EventBufferOpened WorkspaceEventType = "opened"
	// EventBufferSelected is emitted when the selection changes.
	EventBufferSelected WorkspaceEventType = "selected"
	// EventBufferClosed is emitted after a buffer is removed.
	EventBufferClosed WorkspaceEventType = "closed"
	// EventOutputUpdated is emitted when a buffer's output binding changes.
	EventOutputUpdated WorkspaceEventType = "output"
	// EventNotice carries a user-visible failure notification.
	EventNotice WorkspaceEventType = "notice"
)

// NoticeLevel classifies notifications for presentation.
type NoticeLevel string

const (
	// NoticeInfo is an informational notification.
	NoticeInfo NoticeLevel = "info"
	// NoticeError is a dismissible error notification.
	NoticeError NoticeLevel = "error"
)

// WorkspaceEvent describes a workspace change for UI consumers.
type WorkspaceEvent struct {
	Type     WorkspaceEventType
	Buffer   BufferID
	Selected BufferID
	Labels   []TabLabel
	Level    NoticeLevel
	Message  string
}
