package notify

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/cliquepay/cliqued/internal/clique"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsMessage is the JSON envelope exchanged over the websocket.
type wsMessage struct {
	Type     string `json:"type"`
	CliqueID string `json:"clique_id,omitempty"`
	Data     any    `json:"data,omitempty"`
}

// Hub upgrades client connections and bridges clique channels to them.
// A client subscribes to the cliques it wants events for; only cliques
// where the caller holds an active membership are accepted.
type Hub struct {
	broker Subscriber
	eval   *clique.Evaluator
}

// NewHub constructs a Hub.
func NewHub(broker Subscriber, eval *clique.Evaluator) *Hub {
	return &Hub{broker: broker, eval: eval}
}

// Serve upgrades the request and runs the subscription loop until the
// client disconnects. userID is the verified caller identity.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, errUpgrade := upgrader.Upgrade(w, r, nil)
	if errUpgrade != nil {
		log.WithError(errUpgrade).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// WriteJSON is not safe for concurrent use; every forwarding
	// goroutine shares this mutex.
	var writeMu sync.Mutex
	write := func(msg wsMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	cancels := make(map[string]func())
	defer func() {
		for _, cancelSub := range cancels {
			cancelSub()
		}
	}()

	_ = write(wsMessage{Type: "connected"})
	log.WithField("user_id", userID).Debug("websocket connected")

	for {
		var msg wsMessage
		if errRead := conn.ReadJSON(&msg); errRead != nil {
			log.WithField("user_id", userID).Debug("websocket disconnected")
			return
		}

		switch msg.Type {
		case "subscribe":
			if msg.CliqueID == "" {
				_ = write(wsMessage{Type: "error", Data: "missing clique_id"})
				continue
			}
			if _, ok := cancels[msg.CliqueID]; ok {
				continue
			}
			if _, errRequire := h.eval.Require(ctx, userID, msg.CliqueID, clique.RoleMember); errRequire != nil {
				_ = write(wsMessage{Type: "error", CliqueID: msg.CliqueID, Data: "not a member"})
				continue
			}
			events, cancelSub, errSubscribe := h.broker.Subscribe(ctx, msg.CliqueID)
			if errSubscribe != nil {
				log.WithError(errSubscribe).WithField("clique_id", msg.CliqueID).Warn("subscribe failed")
				_ = write(wsMessage{Type: "error", CliqueID: msg.CliqueID, Data: "subscribe failed"})
				continue
			}
			cancels[msg.CliqueID] = cancelSub
			_ = write(wsMessage{Type: "subscribed", CliqueID: msg.CliqueID})

			go func(cliqueID string, events <-chan Event) {
				for event := range events {
					if errWrite := write(wsMessage{Type: event.Type, CliqueID: cliqueID, Data: event.Payload}); errWrite != nil {
						return
					}
				}
			}(msg.CliqueID, events)

		case "unsubscribe":
			if cancelSub, ok := cancels[msg.CliqueID]; ok {
				cancelSub()
				delete(cancels, msg.CliqueID)
				_ = write(wsMessage{Type: "unsubscribed", CliqueID: msg.CliqueID})
			}

		case "ping":
			_ = write(wsMessage{Type: "pong"})

		default:
			_ = write(wsMessage{Type: "error", Data: "unknown message type"})
		}
	}
}
