package core

import "pkt.systems/mongoui/schema"

// EventSink receives workspace events.
type EventSink interface {
	OnWorkspaceEvent(event schema.WorkspaceEvent)
}
