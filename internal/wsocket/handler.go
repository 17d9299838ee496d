package wsocket

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"paperflow_go_backend/internal/services"
	"paperflow_go_backend/internal/utils/broker"
	"paperflow_go_backend/internal/workflow"
)

const writeWait = 10 * time.Second

// Handler streams committed workflow events to connected admins.
type Handler struct {
	broker       *broker.Broker
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	log          zerolog.Logger
}

type Message struct {
	Type    string          `json:"type"`
	Content string          `json:"content,omitempty"`
	Event   *services.Event `json:"event,omitempty"`
}

func NewHandler(b *broker.Broker, upgrader websocket.Upgrader, pingInterval time.Duration, log zerolog.Logger) *Handler {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Handler{
		broker:       b,
		upgrader:     upgrader,
		pingInterval: pingInterval,
		log:          log,
	}
}

// NewUpgrader accepts requests without an Origin header and those whose
// origin is listed. A "*" entry allows every origin.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[strings.TrimRight(o, "/")] = true
		}
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed["*"] {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return allowed[u.Scheme+"://"+u.Host]
		},
	}
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request, actor workflow.Actor) {
	log := h.log.With().Str("actor_id", actor.ID.String()).Logger()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	events := h.broker.Subscribe(services.EventsTopic)
	defer h.broker.Unsubscribe(services.EventsTopic, events)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The feed is one-way; reading only notices the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.write(conn, Message{Type: "subscribed", Content: services.EventsTopic}); err != nil {
		return
	}
	log.Info().Msg("Event feed connected")

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Event feed disconnected")
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			e, ok := msg.(services.Event)
			if !ok {
				continue
			}
			if err := h.write(conn, Message{Type: "event", Event: &e}); err != nil {
				log.Debug().Err(err).Msg("Error sending workflow event")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, msg Message) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
