package events

import (
	"log"
	"sync"
	"time"

	"github.com/jscyril/mp3cli/api"
)

// EventBus fans driver events out to subscribers using buffered channels.
// Publishing never blocks: a subscriber that falls behind loses events.
type EventBus struct {
	subscribers []chan api.AudioEvent
	closed      bool
	mu          sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{}
}

// SubscribeAll returns a channel receiving every event in publish order.
// After Close it returns a closed channel.
func (b *EventBus) SubscribeAll() <-chan api.AudioEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan api.AudioEvent, 64)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Publish stamps the event and delivers it to all subscribers.
// A nil bus is valid and drops everything.
func (b *EventBus) Publish(event api.AudioEvent) {
	if b == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip to prevent blocking
		}
	}
}

// Close closes all subscriber channels. It is safe to call more than once.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}

// Drain writes every event received on ch to logger until ch is closed.
func Drain(ch <-chan api.AudioEvent, logger *log.Logger) {
	for ev := range ch {
		switch {
		case ev.Err != nil && ev.Track != nil:
			logger.Printf("%s %s: %v", ev.Type, ev.Track.FilePath, ev.Err)
		case ev.Track != nil:
			logger.Printf("%s %s", ev.Type, ev.Track.FilePath)
		default:
			logger.Printf("%s", ev.Type)
		}
	}
}
