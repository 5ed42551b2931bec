package documents

import (
	"sync"

	"notebit/pkg/logger"
)

// EventKind discriminates the kinds of change Service broadcasts.
type EventKind int

const (
	DocumentAdded EventKind = iota
	DocumentUpdated
	DocumentDeleted
)

func (k EventKind) String() string {
	switch k {
	case DocumentAdded:
		return "added"
	case DocumentUpdated:
		return "updated"
	case DocumentDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event is broadcast to every subscriber whenever a document is added,
// updated, or deleted. Bulk operations (DeleteDocumentsByWatchID) do not
// emit per-document events, matching the original's batching behavior.
type Event struct {
	Kind    EventKind
	Path    string
	WatchID uint
}

// broadcaster fans a single stream of events out to any number of
// subscribers. There is no equivalent of a tokio broadcast channel in the
// standard library, so this keeps one buffered channel per subscriber behind
// a mutex and drops an event for a subscriber whose buffer is full rather
// than blocking the publisher on a slow listener.
type broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func newBroadcaster() *broadcaster {
	return &broadcaster{
		subs: make(map[int]chan Event),
	}
}

// Subscribe returns a channel that receives every future event, and an
// unsubscribe function the caller must invoke when done listening.
func (b *broadcaster) Subscribe(bufferSize int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, bufferSize)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}

func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			logger.Warn("documents: dropping event for slow subscriber")
		}
	}
}
