// Package progress fans processing progress events out to in-process
// listeners and per-document channel subscribers.
package progress

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
)

const DefaultBuffer = 128

type listenerEntry struct {
	id ports.ListenerID
	fn ports.ProgressListener
}

type subscription struct {
	ch     chan domain.ProgressEvent
	closed bool
}

// Hub is safe for concurrent use. Listeners run synchronously on the
// publishing goroutine; subscriber channels never block the publisher and
// are closed after the terminal event of their document.
type Hub struct {
	mu          sync.Mutex
	nextID      ports.ListenerID
	listeners   map[string][]listenerEntry
	subscribers map[string]map[*subscription]struct{}
	buffer      int
	logger      *slog.Logger
}

func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		listeners:   make(map[string][]listenerEntry),
		subscribers: make(map[string]map[*subscription]struct{}),
		buffer:      buffer,
		logger:      logger,
	}
}

func (h *Hub) OnProgress(documentID string, listener ports.ProgressListener) ports.ListenerID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.listeners[documentID] = append(h.listeners[documentID], listenerEntry{id: h.nextID, fn: listener})
	return h.nextID
}

func (h *Hub) OffProgress(documentID string, id ports.ListenerID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entries := h.listeners[documentID]
	for i, e := range entries {
		if e.id == id {
			entries = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(h.listeners, documentID)
		return
	}
	h.listeners[documentID] = entries
}

// Subscribe returns a channel of events for documentID and a cancel func.
// The channel is closed after the terminal event or on cancel.
func (h *Hub) Subscribe(documentID string) (<-chan domain.ProgressEvent, func()) {
	sub := &subscription{ch: make(chan domain.ProgressEvent, h.buffer)}
	h.mu.Lock()
	if h.subscribers[documentID] == nil {
		h.subscribers[documentID] = make(map[*subscription]struct{})
	}
	h.subscribers[documentID][sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.closeLocked(documentID, sub)
	}
	return sub.ch, cancel
}

// Publish delivers event to every subscriber and listener of its document.
func (h *Hub) Publish(_ context.Context, event domain.ProgressEvent) {
	h.mu.Lock()
	for sub := range h.subscribers[event.DocumentID] {
		select {
		case sub.ch <- event:
		default:
			h.logger.Warn("progress_event_dropped",
				"document_id", event.DocumentID,
				"stage", event.Stage,
				"progress", event.Progress,
			)
		}
		if event.Terminal() {
			h.closeLocked(event.DocumentID, sub)
		}
	}
	entries := append([]listenerEntry(nil), h.listeners[event.DocumentID]...)
	if event.Terminal() {
		delete(h.listeners, event.DocumentID)
	}
	h.mu.Unlock()

	for _, e := range entries {
		h.invoke(e, event)
	}
}

func (h *Hub) invoke(e listenerEntry, event domain.ProgressEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("progress_listener_panic",
				"document_id", event.DocumentID,
				"listener_id", e.id,
				"panic", r,
			)
		}
	}()
	e.fn(event)
}

func (h *Hub) closeLocked(documentID string, sub *subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)
	subs := h.subscribers[documentID]
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subscribers, documentID)
	}
}

// Fanout forwards every event to each publisher in order.
type Fanout []ports.ProgressPublisher

func (f Fanout) Publish(ctx context.Context, event domain.ProgressEvent) {
	for _, p := range f {
		if p != nil {
			p.Publish(ctx, event)
		}
	}
}
