// Videoref - Video Assistant Referee Coordinator for Robotics Competitions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/videoref

package websocket

import (
	"context"
	"fmt"
	"sort"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/videoref/internal/logging"
	"github.com/tomtom215/videoref/internal/metrics"
	"github.com/tomtom215/videoref/internal/models"
)

// CommandHandler executes one operator command. The payload is raw JSON
// and handlers validate it themselves. Errors are logged and the frame
// is dropped, never answered.
type CommandHandler func(ctx context.Context, data json.RawMessage) error

// notifier is one registered event type and its subscriber set.
type notifier struct {
	emitter     func() any
	subscribers map[*Client]bool
}

// Hub routes topic updates and commands between the coordinator and the
// operator panels.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once

	mu        sync.RWMutex
	ctx       context.Context
	stopped   bool
	clients   map[*Client]bool
	notifiers map[string]*notifier
	commands  map[string]CommandHandler
}

// NewHub creates a hub with the ui_settings topic pre-registered.
func NewHub(settings models.UISettings) *Hub {
	h := &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		notifiers:  make(map[string]*notifier),
		commands:   make(map[string]CommandHandler),
	}
	h.AddEventType(models.TopicUISettings, func() any { return settings })
	return h
}

// AddEventType registers a topic and its snapshot emitter. Registering
// the same name twice is a wiring bug and panics.
func (h *Hub) AddEventType(name string, emitter func() any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.notifiers[name]; exists {
		panic(fmt.Sprintf("websocket: event type %q registered twice", name))
	}
	h.notifiers[name] = &notifier{emitter: emitter, subscribers: make(map[*Client]bool)}
	logging.Debug().Str("event_type", name).Msg("registered event type")
}

// AddCommandHandler registers an operator command. Registering the same
// name twice is a wiring bug and panics.
func (h *Hub) AddCommandHandler(name string, handler CommandHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.commands[name]; exists {
		panic(fmt.Sprintf("websocket: command %q registered twice", name))
	}
	h.commands[name] = handler
	logging.Debug().Str("command", name).Msg("registered command handler")
}

// Serve runs the client lifecycle loop until the context ends, then
// closes every connection.
func (h *Hub) Serve(ctx context.Context) error {
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) String() string { return "websocket-hub" }

// Notify sends the topic's current emitter snapshot to its subscribers.
func (h *Hub) Notify(name string) {
	h.notifyWith(name, nil, false)
}

// NotifyData sends an explicit payload to the topic's subscribers.
func (h *Hub) NotifyData(name string, data any) {
	h.notifyWith(name, data, true)
}

func (h *Hub) notifyWith(name string, data any, haveData bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	n, ok := h.notifiers[name]
	if !ok {
		logging.Warn().Str("event_type", name).Msg("notify for unknown event type")
		return
	}
	if !haveData {
		data = n.emitter()
	}

	payload, err := json.Marshal(models.EventFrame{Type: models.FrameEvent, EventType: name, Data: data})
	if err != nil {
		logging.Warn().Err(err).Str("event_type", name).Msg("failed to marshal event")
		return
	}

	for _, client := range sortedClients(n.subscribers) {
		if client.trySend(payload) {
			continue
		}
		// A full queue means the panel stopped reading; it can
		// resubscribe once it recovers.
		delete(n.subscribers, client)
		delete(client.subscriptions, name)
		metrics.WSErrors.WithLabelValues("slow_subscriber").Inc()
		metrics.WSSubscriptions.WithLabelValues(name).Set(float64(len(n.subscribers)))
		logging.Warn().Uint64("client_id", client.id).Str("event_type", name).Msg("dropping slow subscriber from event type")
	}
}

// ReloadClients asks every connected panel to reload its page.
func (h *Hub) ReloadClients() {
	payload, err := json.Marshal(models.ReloadFrame{Type: models.FrameReload})
	if err != nil {
		logging.Warn().Err(err).Msg("failed to marshal reload frame")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	logging.Info().Int("clients", len(h.clients)).Msg("requesting reload on all panels")
	for _, client := range sortedClients(h.clients) {
		if !client.trySend(payload) {
			logging.Warn().Uint64("client_id", client.id).Msg("reload frame dropped, client queue full")
		}
	}
}

// ServeClient hands a freshly upgraded connection to the hub and starts
// its pumps. The connection is closed outright when the hub is already
// shut down.
func (h *Hub) ServeClient(conn *websocket.Conn) {
	client := newClient(h, conn)
	select {
	case h.register <- client:
		client.start()
	case <-h.done:
		_ = conn.Close()
	}
}

// ClientCount returns the number of connected panels.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(count))
	logging.Info().Uint64("client_id", c.id).Int("total_clients", count).Msg("websocket client connected")
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	h.dropSubscriptionsLocked(c)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(count))
	logging.Info().Uint64("client_id", c.id).Int("total_clients", count).Msg("websocket client disconnected")
}

func (h *Hub) dropSubscriptionsLocked(c *Client) {
	for name := range c.subscriptions {
		if n, ok := h.notifiers[name]; ok {
			delete(n.subscribers, c)
			metrics.WSSubscriptions.WithLabelValues(name).Set(float64(len(n.subscribers)))
		}
	}
	c.subscriptions = make(map[string]bool)
}

func (h *Hub) shutdown() {
	h.closeOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	h.stopped = true
	count := len(h.clients)
	for client := range h.clients {
		h.dropSubscriptionsLocked(client)
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	metrics.WSConnections.Set(0)
	logging.Info().Int("clients_closed", count).Msg("websocket hub stopped")
}

// requestUnregister is callable even after the hub loop has exited, so
// read pumps never block on shutdown.
func (h *Hub) requestUnregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// handleRequest dispatches one inbound frame from a panel.
func (h *Hub) handleRequest(c *Client, payload []byte) {
	var req models.ClientRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		metrics.WSErrors.WithLabelValues("malformed_frame").Inc()
		logging.Error().Err(err).Uint64("client_id", c.id).Msg("invalid websocket message")
		return
	}

	switch req.Type {
	case models.FrameSubscribe:
		initial := h.subscribe(c, req.EventTypes)
		h.sendReply(c, models.SubscribeReply{Type: models.FrameSubscribe, InitialData: initial, RequestID: req.RequestID})
	case models.FrameUnsubscribe:
		remaining := h.unsubscribe(c, req.EventTypes)
		h.sendReply(c, models.UnsubscribeReply{Type: models.FrameUnsubscribe, EventTypes: remaining, RequestID: req.RequestID})
	case models.FrameCommand:
		h.dispatchCommand(c, req.Command, req.Data)
	default:
		metrics.WSErrors.WithLabelValues("malformed_frame").Inc()
		logging.Error().Str("type", req.Type).Uint64("client_id", c.id).Msg("unknown websocket message type")
	}
}

// sendReply enqueues a subscribe or unsubscribe reply. The send queue of
// a client whose read pump is still dispatching cannot close underneath
// it except at shutdown, which is guarded here.
func (h *Hub) sendReply(c *Client, reply any) {
	payload, err := json.Marshal(reply)
	if err != nil {
		logging.Error().Err(err).Uint64("client_id", c.id).Msg("failed to marshal reply")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.stopped {
		return
	}
	if !c.trySend(payload) {
		logging.Warn().Uint64("client_id", c.id).Msg("reply dropped, client queue full")
	}
}

// subscribe adds the client to every known requested topic and collects
// their current snapshots. Unknown names are logged and omitted. After
// shutdown nothing is registered, so closed clients never re-enter
// subscriber sets.
func (h *Hub) subscribe(c *Client, names []string) map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()

	initial := make(map[string]any)
	if h.stopped {
		return initial
	}
	for _, name := range names {
		n, ok := h.notifiers[name]
		if !ok {
			logging.Warn().Str("event_type", name).Uint64("client_id", c.id).Msg("subscription to unknown event type")
			continue
		}
		initial[name] = n.emitter()
		n.subscribers[c] = true
		c.subscriptions[name] = true
		metrics.WSSubscriptions.WithLabelValues(name).Set(float64(len(n.subscribers)))
	}
	return initial
}

// unsubscribe drops the listed topics and returns the client's remaining
// subscriptions, sorted.
func (h *Hub) unsubscribe(c *Client, names []string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, name := range names {
		if !c.subscriptions[name] {
			continue
		}
		delete(c.subscriptions, name)
		if n, ok := h.notifiers[name]; ok {
			delete(n.subscribers, c)
			metrics.WSSubscriptions.WithLabelValues(name).Set(float64(len(n.subscribers)))
		}
	}

	remaining := make([]string, 0, len(c.subscriptions))
	for name := range c.subscriptions {
		remaining = append(remaining, name)
	}
	sort.Strings(remaining)
	return remaining
}

func (h *Hub) dispatchCommand(c *Client, name string, data json.RawMessage) {
	h.mu.RLock()
	handler, ok := h.commands[name]
	ctx := h.ctx
	h.mu.RUnlock()

	if !ok {
		metrics.WSErrors.WithLabelValues("unknown_command").Inc()
		logging.Error().Str("command", name).Uint64("client_id", c.id).Msg("unknown command")
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	metrics.WSCommands.WithLabelValues(name).Inc()
	if err := handler(ctx, data); err != nil {
		metrics.WSErrors.WithLabelValues("command_failed").Inc()
		logging.Error().Err(err).Str("command", name).Uint64("client_id", c.id).Msg("command handler failed")
	}
}

// sortedClients orders a client set by id so delivery order is stable.
func sortedClients(set map[*Client]bool) []*Client {
	clients := make([]*Client, 0, len(set))
	for client := range set {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	return clients
}
