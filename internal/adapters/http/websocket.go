package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/geosketch/internal/adapters/nats"
	"github.com/samirrijal/geosketch/internal/core/domain"
	"github.com/samirrijal/geosketch/internal/pkg/metrics"
)

// wsMessage is sent from client to control the stream.
type wsMessage struct {
	Action string `json:"action"` // "refresh"
}

// WebSocketHandler streams the graphics layer of one session. The client
// receives the current snapshot on connect, then every layer update relayed
// from NATS. Sending {"action":"refresh"} requests a fresh snapshot.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		sessionID := c.Params("id")
		log := slog.Default().With("session_id", sessionID, "remote", c.RemoteAddr().String())
		log.Info("ws client connected")

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		write := func(data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			return write(data)
		}
		sendSnapshot := func() error {
			w, err := deps.Sessions.Get(sessionID)
			if err != nil {
				return writeJSON(map[string]string{"error": err.Error()})
			}
			return writeJSON(domain.LayerUpdate{SessionID: sessionID, Graphics: w.Graphics()})
		}

		if err := sendSnapshot(); err != nil {
			return
		}

		if deps.NATS != nil {
			sub, err := deps.NATS.Subscribe(natsadapter.LayerSubject(sessionID), func(msg *nats.Msg) {
				_ = write(msg.Data)
			})
			if err != nil {
				log.Error("ws layer subscribe failed", "error", err)
				return
			}
			defer func() { _ = sub.Unsubscribe() }()
		}

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "refresh":
				_ = sendSnapshot()
			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		log.Info("ws client disconnected")
	}
}
