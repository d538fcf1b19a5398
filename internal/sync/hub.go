// Package sync fans out change notifications to TCP and websocket clients.
package sync

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"poetryhub/internal/dispatch"
)

const (
	// queueSize bounds the events waiting for the writer. Publish drops
	// events once it is full.
	queueSize    = 256
	writeTimeout = 2 * time.Second
)

var errHubClosed = errors.New("hub closed")

// subscriber is one connected client, whatever its transport.
type subscriber interface {
	transport() string
	deliver(frame []byte) error
	close() error
}

// Hub delivers events to every subscriber in publish order. A single writer
// goroutine drains the queue, so two events never race each other.
type Hub struct {
	queue chan any
	done  chan struct{}
	stop  sync.Once
	log   *slog.Logger

	mu   sync.Mutex
	subs map[subscriber]struct{}
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

type welcome struct {
	Type      string `json:"type"`
	Transport string `json:"transport"`
	Clients   int    `json:"clients"`
}

// NewHub starts the writer. Close stops it.
func NewHub() *Hub {
	h := &Hub{
		queue: make(chan any, queueSize),
		done:  make(chan struct{}),
		log:   slog.Default().With("component", "hub"),
		subs:  make(map[subscriber]struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case v := <-h.queue:
			h.fanOut(v)
		case <-h.done:
			return
		}
	}
}

// Publish queues v for delivery. A nil hub drops the event, so handlers can
// run without one.
func (h *Hub) Publish(v any) {
	if h == nil {
		return
	}
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.queue <- v:
	default:
		h.log.Warn("event queue full, dropping event", "event", v)
	}
}

// OnSwitch is a dispatch observer announcing backend changes.
func (h *Hub) OnSwitch(s dispatch.Switch) {
	h.Publish(BackendEvent{
		Type:       EventBackendSwitched,
		Backend:    s.Current,
		Previous:   s.Previous,
		Generation: s.Generation,
		At:         time.Now().UTC(),
	})
}

// attach greets s and then adds it. The greeting is written under mu, so it
// always precedes the first event.
func (h *Hub) attach(s subscriber) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		_ = s.close()
		return errHubClosed
	default:
	}

	frame, _ := json.Marshal(welcome{Type: "welcome", Transport: s.transport(), Clients: len(h.subs) + 1})
	if err := s.deliver(frame); err != nil {
		_ = s.close()
		return err
	}
	h.subs[s] = struct{}{}
	return nil
}

func (h *Hub) detach(s subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	_ = s.close()
}

func (h *Hub) fanOut(v any) {
	frame, err := json.Marshal(v)
	if err != nil {
		h.log.Warn("dropping unencodable event", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if err := s.deliver(frame); err != nil {
			h.log.Debug("dropping client", "transport", s.transport(), "error", err)
			delete(h.subs, s)
			_ = s.close()
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	var st Stats
	for s := range h.subs {
		switch s.transport() {
		case transportTCP:
			st.TCPClients++
		case transportWS:
			st.WSClients++
		}
	}
	return st
}

// Close stops the writer and disconnects every client. Events still queued
// are discarded.
func (h *Hub) Close() {
	h.stop.Do(func() {
		close(h.done)
		h.mu.Lock()
		defer h.mu.Unlock()
		for s := range h.subs {
			_ = s.close()
			delete(h.subs, s)
		}
	})
}
