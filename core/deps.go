package core

import "pkt.systems/pslog"

// WorkspaceDeps captures the collaborators of a workspace. Host is required;
// View, Executor and EventSink are optional.
type WorkspaceDeps struct {
	Host      EditorHost
	View      EditorView
	Executor  Executor
	EventSink EventSink
	Logger    pslog.Logger
}
