package events

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const subscriberBuffer = 64

// Sink receives every published event, e.g. for JSONL journaling.
type Sink interface {
	Append(meetingID string, e Event) error
}

// Hub keeps one append-only event log per meeting and fans events out to
// subscribers. A subscriber always receives the entire history from seq 1
// before any live event; readers track their own offset into the log, so
// delivery is ordered and lossless regardless of when they attach.
type Hub struct {
	mu   sync.RWMutex
	logs map[string]*meetingLog
	sink Sink
}

type meetingLog struct {
	mu     sync.Mutex
	cond   *sync.Cond
	events []Event
	closed bool
}

func newMeetingLog() *meetingLog {
	l := &meetingLog{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func NewHub(sink Sink) *Hub {
	return &Hub{
		logs: make(map[string]*meetingLog),
		sink: sink,
	}
}

// Register creates the event log for a meeting. Must be called before the
// pipeline publishes anything for it.
func (h *Hub) Register(meetingID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.logs[meetingID]; !ok {
		h.logs[meetingID] = newMeetingLog()
	}
}

// Publish appends an event to the meeting's log and wakes all readers.
// Events carry a per-meeting sequence number starting at 1. Publishing a
// terminal event (complete/error) closes the stream for subscribers.
func (h *Hub) Publish(meetingID string, eventType EventType, payload any) error {
	h.mu.RLock()
	l, ok := h.logs[meetingID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("publish: unknown meeting %s", meetingID)
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return fmt.Errorf("publish: meeting %s stream already closed", meetingID)
	}
	e := Event{
		Seq:       len(l.events) + 1,
		Type:      eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	}
	l.events = append(l.events, e)
	if e.IsTerminal() {
		l.closed = true
	}
	l.cond.Broadcast()
	l.mu.Unlock()

	if h.sink != nil {
		if err := h.sink.Append(meetingID, e); err != nil {
			return fmt.Errorf("journal event: %w", err)
		}
	}
	return nil
}

// Subscribe returns a channel that first delivers the full event history
// from the start of the meeting, then live events as they are published.
// The channel is closed after the terminal event, or when ctx is cancelled.
func (h *Hub) Subscribe(ctx context.Context, meetingID string) (<-chan Event, error) {
	h.mu.RLock()
	l, ok := h.logs[meetingID]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("subscribe: unknown meeting %s", meetingID)
	}

	out := make(chan Event, subscriberBuffer)

	// cond.Wait cannot observe ctx; a helper goroutine wakes the reader
	// when the subscriber goes away.
	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.cond.Broadcast()
		l.mu.Unlock()
	})

	go func() {
		defer close(out)
		defer stop()

		next := 0
		for {
			l.mu.Lock()
			for next >= len(l.events) && !l.closed && ctx.Err() == nil {
				l.cond.Wait()
			}
			if ctx.Err() != nil {
				l.mu.Unlock()
				return
			}
			batch := l.events[next:]
			closed := l.closed
			l.mu.Unlock()

			for _, e := range batch {
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
			next += len(batch)

			if closed && next >= h.logLen(l) {
				return
			}
		}
	}()

	return out, nil
}

func (h *Hub) logLen(l *meetingLog) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// History returns a copy of the full event log for a meeting.
func (h *Hub) History(meetingID string) ([]Event, error) {
	h.mu.RLock()
	l, ok := h.logs[meetingID]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("history: unknown meeting %s", meetingID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...), nil
}

// Drop removes a meeting's log, releasing its memory. Any remaining
// subscribers finish their drain and exit on the closed flag.
func (h *Hub) Drop(meetingID string) {
	h.mu.Lock()
	l, ok := h.logs[meetingID]
	if ok {
		delete(h.logs, meetingID)
	}
	h.mu.Unlock()
	if ok {
		l.mu.Lock()
		l.closed = true
		l.cond.Broadcast()
		l.mu.Unlock()
	}
}
