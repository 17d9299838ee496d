package wsocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperflow_go_backend/internal/models"
	"paperflow_go_backend/internal/services"
	"paperflow_go_backend/internal/utils/broker"
	"paperflow_go_backend/internal/workflow"
)

func TestEventFeed(t *testing.T) {
	b := broker.NewBroker()
	h := NewHandler(b, NewUpgrader(nil), time.Minute, zerolog.Nop())
	admin := workflow.Actor{ID: uuid.New(), Role: models.RoleAdmin, Active: true}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.HandleWebSocket(w, r, admin)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello Message
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "subscribed", hello.Type)
	require.Equal(t, 1, b.Subscribers(services.EventsTopic))

	paperID := uuid.New()
	b.Publish(services.EventsTopic, services.Event{
		Type:       services.EventPaperStatusChanged,
		PaperID:    paperID,
		OldStatus:  models.PaperStatusUnderReview,
		NewStatus:  models.PaperStatusReviewed,
		Recipients: []string{"author@example.org"},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var got Message
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "event", got.Type)
	require.NotNil(t, got.Event)
	assert.Equal(t, paperID, got.Event.PaperID)
	assert.Equal(t, models.PaperStatusReviewed, got.Event.NewStatus)
	assert.Empty(t, got.Event.Recipients)

	conn.Close()
	assert.Eventually(t, func() bool {
		return b.Subscribers(services.EventsTopic) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestUpgraderCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin header", []string{"https://app.example.org"}, "", true},
		{"listed origin", []string{"https://app.example.org/"}, "https://app.example.org", true},
		{"unlisted origin", []string{"https://app.example.org"}, "https://evil.example.com", false},
		{"wildcard", []string{"*"}, "https://anything.example.com", true},
		{"nothing configured", nil, "http://localhost:5173", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := NewUpgrader(tt.allowed)
			req := httptest.NewRequest(http.MethodGet, "/ws/events", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, up.CheckOrigin(req))
		})
	}
}
