package eventbus

import (
	"context"
	"sync"

	"pkt.systems/mongoui/schema"
	"pkt.systems/pslog"
)

// Bus fans workspace events out to subscribers. Publishing never blocks; a
// subscriber that falls behind loses events.
type Bus struct {
	mu    sync.Mutex
	subs  map[chan schema.WorkspaceEvent]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[chan schema.WorkspaceEvent]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber and returns a channel + cancel.
func (b *Bus) Subscribe() (<-chan schema.WorkspaceEvent, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan schema.WorkspaceEvent, b.depth)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	b.log.Debug("eventbus subscribe", "subs", count)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
			b.log.Debug("eventbus unsubscribe")
		})
	}
}

// OnWorkspaceEvent implements core.EventSink.
func (b *Bus) OnWorkspaceEvent(event schema.WorkspaceEvent) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.subs) == 0 {
		return
	}
	dropped := 0
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.log.Trace("eventbus dropped", "type", string(event.Type), "count", dropped)
	}
}
