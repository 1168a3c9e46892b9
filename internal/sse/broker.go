// Package sse implements a Server-Sent Events broker for store change events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// RefreshTopic is sent after change events, at most once per refresh interval,
// to tell list views to reload.
const RefreshTopic = "notes.changed"

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// message is what the loop consumes. refresh marks store changes that may
// trigger a RefreshTopic event.
type message struct {
	event   Event
	refresh bool
}

// Option configures a Broker.
type Option func(*Broker)

// WithKeepAlive sets how often idle streams get a comment line. Zero disables it.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) {
		b.keepAlive = d
	}
}

// WithRetry sets the reconnect delay advertised to clients.
func WithRetry(d time.Duration) Option {
	return func(b *Broker) {
		b.retry = d
	}
}

// Broker fans events out to connected SSE clients.
//
// The run loop is the only owner of the client set, the event sequence and
// the refresh timestamp; other goroutines reach it through channels.
type Broker struct {
	refreshMin time.Duration
	keepAlive  time.Duration
	retry      time.Duration

	inbox         chan message
	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits at most one RefreshTopic event per
// refreshThrottle.
func NewBroker(refreshThrottle time.Duration, opts ...Option) *Broker {
	if refreshThrottle <= 0 {
		refreshThrottle = 2 * time.Second
	}

	b := &Broker{
		refreshMin:    refreshThrottle,
		keepAlive:     15 * time.Second,
		retry:         3 * time.Second,
		inbox:         make(chan message, 256),
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

// encode renders one event in text/event-stream framing.
func encode(id uint64, ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", id, ev.Type, payload), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		seq         uint64
		lastRefresh time.Time
	)

	send := func(ev Event) {
		seq++
		raw, err := encode(seq, ev)
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// slow client, drop
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case msg := <-b.inbox:
			send(msg.event)
			if !msg.refresh {
				continue
			}
			if now := time.Now(); now.Sub(lastRefresh) >= b.refreshMin {
				lastRefresh = now
				send(Event{Type: RefreshTopic, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel. It is safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

func (b *Broker) post(msg message) {
	if b.closed.Load() {
		return
	}
	select {
	case b.inbox <- msg:
	case <-b.stopped:
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.post(message{event: event})
}

// PublishChange broadcasts a store change such as "note.created" and, unless
// one went out within the refresh interval, a RefreshTopic event after it.
func (b *Broker) PublishChange(topic string, data map[string]string) {
	b.post(message{event: Event{Type: topic, Data: data}, refresh: true})
}

// ServeHTTP streams events to one client until it disconnects or the broker
// closes (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if b.retry > 0 {
		_, _ = w.Write([]byte("retry: " + strconv.FormatInt(b.retry.Milliseconds(), 10) + "\n\n"))
	}
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.keepAlive > 0 {
		t := time.NewTicker(b.keepAlive)
		defer t.Stop()
		tick = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
