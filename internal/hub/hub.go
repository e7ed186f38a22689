package hub

import (
	"context"
	"sync/atomic"

	"github.com/aviator-hackers/backend-avapk/internal/config"
	"github.com/aviator-hackers/backend-avapk/pkg/log"
)

// FrameHandler interprets client frames. Both methods run on the hub
// goroutine, one event at a time.
type FrameHandler interface {
	HandleFrame(ctx context.Context, c *Client, frame []byte)
	HandleDisconnect(ctx context.Context, c *Client)
}

type eventKind int

const (
	eventRegister eventKind = iota
	eventFrame
	eventUnregister
)

type event struct {
	kind   eventKind
	client *Client
	frame  []byte
}

// Hub is the single event loop of the relay. Registration, inbound frames
// and disconnects share one queue, so events of a connection are handled in
// the order they happened and every registry and room mutation of one event
// completes before the next event starts.
type Hub struct {
	clients map[string]*Client
	router  *Router
	events  chan event
	done    chan struct{}
	config  config.WebSocketConfig

	clientCount atomic.Int64
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		router:  NewRouter(),
		events:  make(chan event, 1024),
		done:    make(chan struct{}),
		config:  cfg,
	}
}

// Router exposes room membership to the handler running inside the loop.
func (h *Hub) Router() *Router {
	return h.router
}

// Run processes events until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context, handler FrameHandler) error {
	defer close(h.done)
	l := log.Ctx(ctx)

	for {
		select {
		case <-ctx.Done():
			for _, c := range h.clients {
				h.drop(ctx, c, handler)
			}
			l.Info().Msg("hub stopped")
			return nil

		case ev := <-h.events:
			switch ev.kind {
			case eventRegister:
				h.clients[ev.client.ID] = ev.client
				h.clientCount.Store(int64(len(h.clients)))
				l.Debug().Str(log.FieldConnID, ev.client.ID).Int("clients", len(h.clients)).Msg("client registered")

			case eventUnregister:
				h.drop(ctx, ev.client, handler)

			case eventFrame:
				if _, ok := h.clients[ev.client.ID]; !ok {
					continue
				}
				connCtx, _ := log.WithConn(ctx, ev.client.ID)
				handler.HandleFrame(connCtx, ev.client, ev.frame)
				for _, c := range h.router.takeStalled() {
					l.Warn().Str(log.FieldConnID, c.ID).Msg("send buffer full, dropping client")
					h.drop(ctx, c, handler)
				}
			}
		}
	}
}

// drop is the single cleanup path for every kind of disconnect.
func (h *Hub) drop(ctx context.Context, c *Client, handler FrameHandler) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	connCtx, l := log.WithConn(ctx, c.ID)
	handler.HandleDisconnect(connCtx, c)
	h.router.LeaveAll(c)
	delete(h.clients, c.ID)
	h.clientCount.Store(int64(len(h.clients)))
	close(c.Send)
	l.Debug().Int("clients", len(h.clients)).Msg("client unregistered")
}

func (h *Hub) enqueue(ev event) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.events <- ev:
		return true
	case <-h.done:
		return false
	}
}

// Register hands a new client to the loop. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	return h.enqueue(event{kind: eventRegister, client: c})
}

func (h *Hub) Unregister(c *Client) {
	h.enqueue(event{kind: eventUnregister, client: c})
}

// Submit queues a frame read from c. It returns false once the hub has stopped.
func (h *Hub) Submit(c *Client, frame []byte) bool {
	return h.enqueue(event{kind: eventFrame, client: c, frame: frame})
}

// ClientCount is the number of registered clients, safe from any goroutine.
func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
