package engine

import (
	"sync"

	"github.com/lunavoice/luna/pkg/core/types"
)

// Event types published by the engine.
const (
	EventSessionStarted = "session_started"
	EventTurnCompleted  = "turn_completed"
	EventSessionEnding  = "session_ending"
	EventSessionEnded   = "session_ended"
	EventSessionPurged  = "session_purged"
)

// Event is one lifecycle or turn notification for a session.
type Event struct {
	SessionID string             `json:"session_id"`
	Type      string             `json:"type"`
	State     types.SessionState `json:"state,omitempty"`
	TurnPairs int                `json:"turn_pairs"`
	Result    *types.TurnResult  `json:"result,omitempty"`
}

// Broker fans engine events out to per-session subscribers. Slow subscribers
// lose events rather than blocking the pipeline.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers for a session's events. The returned cancel function
// removes the subscription and closes the channel; it is safe to call more
// than once.
func (b *Broker) Subscribe(sessionID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	set, ok := b.subs[sessionID]
	if !ok {
		set = make(map[chan Event]struct{})
		b.subs[sessionID] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if set, ok := b.subs[sessionID]; ok {
				if _, still := set[ch]; still {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(b.subs, sessionID)
				}
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of its session. Delivery is
// best-effort: a full subscriber channel drops the event.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// CloseSession drops and closes every subscription for a session. Used when
// the session is purged and no further events can arrive.
func (b *Broker) CloseSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[sessionID] {
		close(ch)
	}
	delete(b.subs, sessionID)
}
