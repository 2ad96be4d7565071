// Package events fans out ledger activity to registered receivers such as
// the websocket feed.
package events

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Event is one line of ledger activity.
type Event struct {
	Time    time.Time `json:"time"`
	Source  string    `json:"source"`
	Message string    `json:"message"`
}

// NewEvent builds an event from a formatted event handler line. The source
// is the package prefix of the line, such as "state" in "state: ...".
func NewEvent(now time.Time, line string) Event {
	evt := Event{
		Time:    now.UTC(),
		Message: line,
	}

	if src, msg, found := strings.Cut(line, ": "); found && !strings.Contains(src, " ") {
		evt.Source = src
		evt.Message = msg
	}

	return evt
}

// =============================================================================

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events.
type Events struct {
	m       map[string]chan Event
	mu      sync.RWMutex
	dropped atomic.Uint64
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]chan Event),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events.
func (evt *Events) Acquire(id string) <-chan Event {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if ch, exists := evt.m[id]; exists {
		return ch
	}

	// An event is dropped when the receiver's buffer is full, so give a
	// slow websocket writer some room.
	const messageBuffer = 100

	ch := make(chan Event, messageBuffer)
	evt.m[id] = ch

	return ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)

	return nil
}

// Send formats the line and delivers it to every registered channel. Send
// never blocks waiting for a receiver.
func (evt *Events) Send(v string, args ...any) {
	e := NewEvent(time.Now(), fmt.Sprintf(v, args...))

	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.m {
		select {
		case ch <- e:
		default:
			evt.dropped.Add(1)
		}
	}
}

// Receivers returns the number of registered receivers.
func (evt *Events) Receivers() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}

// Dropped returns the number of events that were not delivered because a
// receiver's buffer was full.
func (evt *Events) Dropped() uint64 {
	return evt.dropped.Load()
}
