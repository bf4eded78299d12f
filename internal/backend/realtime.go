package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"victor-smm-api/internal/config"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	heartbeatInterval = 30 * time.Second
	reconnectBaseWait = time.Second
	reconnectMaxWait  = 30 * time.Second
	eventBufferSize   = 16
)

// Event is a row-change notification pushed by the remote store.
type Event struct {
	Table  string
	Type   string // INSERT, UPDATE or DELETE
	Record json.RawMessage
	Old    json.RawMessage
}

// Stream is a live subscription to one table channel.
type Stream interface {
	Events() <-chan Event
	Close() error
}

// Subscription implements Stream on top of the shared websocket.
type Subscription struct {
	topic  string
	events chan Event
	rt     *Realtime
	once   sync.Once
}

// Events returns the change-event channel. It is closed when the
// subscription is closed or the realtime client shuts down.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close tears down the subscription. Safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(func() { s.rt.unsubscribe(s) })
	return nil
}

// phxMessage is the wire frame of the phoenix-channel protocol the
// realtime endpoint speaks.
type phxMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

// changePayload is the payload of INSERT/UPDATE/DELETE frames.
type changePayload struct {
	Table     string          `json:"table"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record"`
}

// Realtime multiplexes table-change subscriptions over one websocket
// connection, rejoining topics after reconnects.
type Realtime struct {
	url string
	log *zap.Logger

	mu    sync.Mutex
	conn  *websocket.Conn
	subs  map[string][]*Subscription // topic -> subscribers
	ref   int
	done  chan struct{}
	close sync.Once
}

// NewRealtime creates a realtime client for the configured backend.
func NewRealtime(cfg config.BackendConfig, log *zap.Logger) *Realtime {
	wsBase := strings.TrimRight(cfg.BaseURL, "/")
	wsBase = strings.Replace(wsBase, "https://", "wss://", 1)
	wsBase = strings.Replace(wsBase, "http://", "ws://", 1)

	return &Realtime{
		url:  wsBase + "/realtime/v1/websocket?apikey=" + cfg.APIKey + "&vsn=1.0.0",
		log:  log,
		subs: make(map[string][]*Subscription),
		done: make(chan struct{}),
	}
}

// Start dials the realtime endpoint and spawns the read and heartbeat
// loops. The connection is maintained until Close.
func (r *Realtime) Start(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return fmt.Errorf("realtime dial: %w", err)
	}

	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()

	go r.readLoop(conn)
	go r.heartbeatLoop()

	r.log.Info("realtime connected")
	return nil
}

// Topic builds the channel topic for a table with an optional equality
// filter, e.g. realtime:public:orders:user_id=eq.<id>.
func Topic(table, filter string) string {
	topic := "realtime:public:" + table
	if filter != "" {
		topic += ":" + filter
	}
	return topic
}

// Subscribe opens a change stream for one table, optionally filtered by a
// foreign-key equality predicate such as user_id=eq.<id>.
func (r *Realtime) Subscribe(table, filter string) (Stream, error) {
	topic := Topic(table, filter)

	sub := &Subscription{
		topic:  topic,
		events: make(chan Event, eventBufferSize),
		rt:     r,
	}

	r.mu.Lock()
	first := len(r.subs[topic]) == 0
	r.subs[topic] = append(r.subs[topic], sub)
	conn := r.conn
	r.mu.Unlock()

	if first && conn != nil {
		if err := r.send(conn, topic, "phx_join", json.RawMessage(`{}`)); err != nil {
			r.unsubscribe(sub)
			return nil, fmt.Errorf("realtime join %s: %w", topic, err)
		}
	}

	return sub, nil
}

// unsubscribe removes a subscription, leaving the topic when it was the
// last subscriber. Teardown failures are logged and swallowed.
func (r *Realtime) unsubscribe(sub *Subscription) {
	r.mu.Lock()
	subs := r.subs[sub.topic]
	for i, s := range subs {
		if s == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(r.subs, sub.topic)
	} else {
		r.subs[sub.topic] = subs
	}
	last := len(subs) == 0
	conn := r.conn
	r.mu.Unlock()

	if last && conn != nil {
		if err := r.send(conn, sub.topic, "phx_leave", json.RawMessage(`{}`)); err != nil {
			r.log.Debug("realtime leave failed", zap.String("topic", sub.topic), zap.Error(err))
		}
	}
	close(sub.events)
}

// send writes one frame. The ref counter keeps the server's acks matched.
func (r *Realtime) send(conn *websocket.Conn, topic, event string, payload json.RawMessage) error {
	r.mu.Lock()
	r.ref++
	ref := strconv.Itoa(r.ref)
	r.mu.Unlock()

	return conn.WriteJSON(phxMessage{
		Topic:   topic,
		Event:   event,
		Payload: payload,
		Ref:     ref,
	})
}

func (r *Realtime) readLoop(conn *websocket.Conn) {
	for {
		var msg phxMessage
		if err := conn.ReadJSON(&msg); err != nil {
			select {
			case <-r.done:
				return
			default:
			}
			r.log.Warn("realtime read failed, reconnecting", zap.Error(err))
			r.reconnect()
			return
		}

		switch msg.Event {
		case "INSERT", "UPDATE", "DELETE":
			r.dispatch(msg)
		case "phx_reply", "phx_close", "heartbeat":
			// acks and lifecycle frames carry no row changes
		}
	}
}

// dispatch fans a change frame out to every subscriber of its topic. A
// slow consumer drops events rather than stalling the socket; consumers
// refetch in full anyway.
func (r *Realtime) dispatch(msg phxMessage) {
	var payload changePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		r.log.Debug("realtime payload decode failed", zap.Error(err))
		return
	}

	event := Event{
		Table:  payload.Table,
		Type:   msg.Event,
		Record: payload.Record,
		Old:    payload.OldRecord,
	}

	r.mu.Lock()
	subs := append([]*Subscription(nil), r.subs[msg.Topic]...)
	r.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.events <- event:
		default:
			r.log.Debug("realtime event dropped", zap.String("topic", msg.Topic))
		}
	}
}

// reconnect redials with backoff and rejoins every live topic.
func (r *Realtime) reconnect() {
	wait := reconnectBaseWait
	for {
		select {
		case <-r.done:
			return
		case <-time.After(wait):
		}

		conn, _, err := websocket.DefaultDialer.Dial(r.url, nil)
		if err != nil {
			r.log.Warn("realtime reconnect failed", zap.Error(err))
			if wait *= 2; wait > reconnectMaxWait {
				wait = reconnectMaxWait
			}
			continue
		}

		r.mu.Lock()
		r.conn = conn
		topics := make([]string, 0, len(r.subs))
		for topic := range r.subs {
			topics = append(topics, topic)
		}
		r.mu.Unlock()

		for _, topic := range topics {
			if err := r.send(conn, topic, "phx_join", json.RawMessage(`{}`)); err != nil {
				r.log.Warn("realtime rejoin failed", zap.String("topic", topic), zap.Error(err))
			}
		}

		r.log.Info("realtime reconnected", zap.Int("topics", len(topics)))
		go r.readLoop(conn)
		return
	}
}

func (r *Realtime) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			conn := r.conn
			r.mu.Unlock()
			if conn == nil {
				continue
			}
			if err := r.send(conn, "phoenix", "heartbeat", json.RawMessage(`{}`)); err != nil {
				r.log.Debug("realtime heartbeat failed", zap.Error(err))
			}
		case <-r.done:
			return
		}
	}
}

// Close shuts the realtime client down and closes every subscription.
func (r *Realtime) Close() error {
	r.close.Do(func() {
		close(r.done)

		r.mu.Lock()
		conn := r.conn
		r.conn = nil
		var all []*Subscription
		for _, subs := range r.subs {
			all = append(all, subs...)
		}
		r.subs = make(map[string][]*Subscription)
		r.mu.Unlock()

		for _, sub := range all {
			sub.once.Do(func() { close(sub.events) })
		}
		if conn != nil {
			conn.Close()
		}
	})
	return nil
}
