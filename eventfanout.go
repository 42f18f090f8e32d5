package mongoui

import (
	"pkt.systems/mongoui/core"
	"pkt.systems/mongoui/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnWorkspaceEvent(event schema.WorkspaceEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnWorkspaceEvent(event)
	}
}
