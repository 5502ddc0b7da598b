package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finreports/internal/middleware"
	"finreports/internal/model"
	"finreports/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) (*Hub, *middleware.Authenticator, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := middleware.NewAuthenticator([]byte("secret"))
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, auth, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return hub, auth, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestHubPushesStatusEvents(t *testing.T) {
	hub, auth, url := startServer(t)
	token, err := auth.Issue("u-1", model.RoleProjectManager, time.Hour)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	hub.NotifyStatus(service.StatusEvent{ReportID: "r-1", Name: "Q1", From: "PENDING", To: "GENERATING", Actor: "u-2"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string              `json:"type"`
		Data service.StatusEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, TypeReportStatus, msg.Type)
	assert.Equal(t, "r-1", msg.Data.ReportID)
	assert.Equal(t, "GENERATING", msg.Data.To)
}

func TestServeWsRejectsBadTokens(t *testing.T) {
	_, auth, url := startServer(t)
	outsider, err := auth.Issue("u-9", "AUDITOR", time.Hour)
	require.NoError(t, err)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token="+outsider, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestNotifyStatusNeverBlocks(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.NotifyStatus(service.StatusEvent{ReportID: "r"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyStatus blocked without a running hub")
	}
}
