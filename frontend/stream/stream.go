package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/eapache/channels"
	"github.com/gobwas/glob"
	"github.com/gorilla/websocket"

	"github.com/paulasmuth/brokerd/utils/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var catalog *Catalog
var send *channels.InfiniteChannel
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Catalog maintains the set of active subscribers
type Catalog struct {
	sync.RWMutex
	subs map[*Subscriber]struct{}
}

// Add a new subscriber to the catalog
func (sc *Catalog) Add(sub *Subscriber) {
	sc.Lock()
	defer sc.Unlock()

	sc.subs[sub] = struct{}{}
}

// Remove a subscriber from the catalog
func (sc *Catalog) Remove(sub *Subscriber) {
	sc.Lock()
	defer sc.Unlock()

	delete(sc.subs, sub)
}

// NewCatalog initializes the stream catalog
func NewCatalog() *Catalog {
	return &Catalog{
		subs: map[*Subscriber]struct{}{},
	}
}

// Subscriber manages one websocket client and the channel patterns it
// subscribed to
type Subscriber struct {
	sync.RWMutex
	c       *websocket.Conn
	done    chan struct{}
	streams map[string]glob.Glob
}

// Subscribed matches the subscriber's patterns against a channel name
func (s *Subscriber) Subscribed(channelName string) bool {
	s.RLock()
	defer s.RUnlock()
	for _, g := range s.streams {
		if g.Match(channelName) {
			return true
		}
	}
	return false
}

// SubscribeMessage is an inbound message for the client to subscribe to
// channels; patterns are globs over channel names
type SubscribeMessage struct {
	Streams []string `json:"streams"`
}

// ErrorMessage is used to report errors when a client subscribes to invalid
// patterns
type ErrorMessage struct {
	Error string `json:"error"`
}

func (s *Subscriber) handleOutbound(buf []byte) error {
	// prevents concurrent write to the websocket connection
	s.Lock()
	defer s.Unlock()
	s.c.SetWriteDeadline(time.Now().Add(writeWait))
	return s.c.WriteMessage(websocket.TextMessage, buf)
}

func (s *Subscriber) handleInbound(msg SubscribeMessage) error {
	if len(msg.Streams) == 0 {
		return nil
	}

	// prevents concurrent read/write of the stream map
	s.Lock()
	defer s.Unlock()

	m := map[string]glob.Glob{}
	for _, stream := range msg.Streams {
		g, err := glob.Compile(stream)
		if err != nil {
			return fmt.Errorf("%s is an invalid stream pattern", stream)
		}
		m[stream] = g
	}
	s.streams = m

	return nil
}

func (s *Subscriber) consume() {
	defer func() {
		catalog.Remove(s)
		s.done <- struct{}{}
	}()

	s.c.SetPongHandler(func(string) error {
		return s.c.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, buf, err := s.c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Error("unexpected websocket closure (%v)", err)
			}
			return
		}

		switch msgType {
		case websocket.TextMessage, websocket.BinaryMessage:
			m := SubscribeMessage{}

			if err = json.Unmarshal(buf, &m); err != nil {
				log.Error("failed to unmarshal inbound stream message (%v)", err)
				continue
			}
			if err := s.handleInbound(m); err != nil {
				buf, _ = json.Marshal(ErrorMessage{Error: err.Error()})
			}
			if err := s.handleOutbound(buf); err != nil {
				log.Error("failed to send stream message (%v)", err)
			}
		case websocket.CloseMessage:
			return
		}
	}
}

func (s *Subscriber) produce() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Lock()
			s.c.SetWriteDeadline(time.Now().Add(writeWait))
			s.c.WriteMessage(websocket.PingMessage, []byte{})
			s.Unlock()
		case <-s.done:
			return
		}
	}
}

func stream() {
	for v := range send.Out() {
		if v == nil {
			continue
		}
		payload := v.(Payload)

		buf, err := json.Marshal(payload)
		if err != nil {
			log.Error("failed to marshal outbound stream payload (%v)", err)
			continue
		}

		catalog.RLock()

		for s := range catalog.subs {
			if s.Subscribed(payload.Channel) {
				if err := s.handleOutbound(buf); err != nil {
					log.Error("failed to stream outbound (%s)", err)
				}
			}
		}

		catalog.RUnlock()
	}
}

// Payload is one appended message as sent over the websocket
type Payload struct {
	Channel    string `json:"channel"`
	Offset     uint64 `json:"offset"`
	NextOffset uint64 `json:"next_offset"`
	Data       []byte `json:"data"`
}

// Push queues an appended message for delivery to all matching subscribers.
// The queue is unbounded, so appends never block on slow subscribers.
func Push(payload Payload) {
	send.In() <- payload
}

// Initialize builds the send channel as well as the catalog, and must be
// called before any data flows over the stream interface
func Initialize() {
	send = channels.NewInfiniteChannel()
	catalog = NewCatalog()

	go stream()
}

// Handler hooks into the HTTP interface, upgrades the connection and starts
// the subscriber's read and ping loops
func Handler(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade stream socket (%s)", err)
		return
	}

	s := &Subscriber{
		c:    ws,
		done: make(chan struct{}),
	}

	log.Info("new stream listener: %v", ws.RemoteAddr().String())

	catalog.Add(s)

	go s.consume()
	go s.produce()
}
