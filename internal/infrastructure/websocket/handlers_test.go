package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/KondratovaLudmila/exchange-chat/internal/domain"
	"github.com/KondratovaLudmila/exchange-chat/internal/infrastructure/metrics"
	"github.com/KondratovaLudmila/exchange-chat/internal/services"
	"github.com/KondratovaLudmila/exchange-chat/pkg/logger"
)

type noopProvider struct{}

func (noopProvider) Fetch(context.Context, domain.ExchangeQuery) []domain.DayResult {
	return nil
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, domain.AuditRecord) error { return nil }

func newChatServer(t *testing.T) (*httptest.Server, *ConnectionManager) {
	t.Helper()

	m := metrics.New(prometheus.NewRegistry())
	registry := NewConnectionManager(services.NewNameGenerator(), m, logger.Nop())
	dispatcher := services.NewDispatcher(noopProvider{}, noopAudit{}, m, logger.Nop())
	handler := NewChatHandler(registry, dispatcher, logger.Nop())

	srv := httptest.NewServer(http.HandlerFunc(handler.HandleConnection))
	t.Cleanup(srv.Close)
	return srv, registry
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	return string(payload)
}

func waitForPeers(t *testing.T, registry *ConnectionManager, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for registry.Count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d peers, got %d", want, registry.Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestChatHandler_BroadcastsToAllPeersIncludingSender(t *testing.T) {
	srv, registry := newChatServer(t)

	sender := dial(t, srv)
	receiver := dial(t, srv)
	waitForPeers(t, registry, 2)

	if err := sender.WriteMessage(websocket.TextMessage, []byte("hello room")); err != nil {
		t.Fatalf("failed to send: %v", err)
	}

	for _, conn := range []*websocket.Conn{sender, receiver} {
		got := readText(t, conn)
		if !strings.HasSuffix(got, ": hello room") {
			t.Fatalf("expected name-prefixed echo, got %q", got)
		}
		if strings.HasPrefix(got, ": ") {
			t.Fatalf("display name missing: %q", got)
		}
	}
}

func TestChatHandler_DisconnectUnregistersOnlyThatPeer(t *testing.T) {
	srv, registry := newChatServer(t)

	leaver := dial(t, srv)
	stayer := dial(t, srv)
	waitForPeers(t, registry, 2)

	leaver.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	leaver.Close()
	waitForPeers(t, registry, 1)

	if err := stayer.WriteMessage(websocket.TextMessage, []byte("still here")); err != nil {
		t.Fatalf("failed to send: %v", err)
	}
	if got := readText(t, stayer); !strings.HasSuffix(got, ": still here") {
		t.Fatalf("remaining peer must keep working, got %q", got)
	}
}

func TestChatHandler_SenderMessagesArriveInOrder(t *testing.T) {
	srv, registry := newChatServer(t)

	conn := dial(t, srv)
	waitForPeers(t, registry, 1)

	for _, text := range []string{"one", "two", "three"} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
			t.Fatalf("failed to send %q: %v", text, err)
		}
	}

	for _, want := range []string{"one", "two", "three"} {
		got := readText(t, conn)
		if !strings.HasSuffix(got, ": "+want) {
			t.Fatalf("expected %q next, got %q", want, got)
		}
	}
}
