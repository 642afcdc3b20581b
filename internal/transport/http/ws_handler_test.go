package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWatchStreamsLeaderboard(t *testing.T) {
	registry := memory.NewSessionStore()
	bank := memory.NewQuizRepository(memory.NewStaticQuizLoader(nil), time.Minute)
	service := app.NewQuizService(registry, bank)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sessions/{code}/watch", NewWSHandler(service).ServeWatch)
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx := context.Background()
	code, err := service.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	u := "ws" + server.URL[len("http"):] + "/sessions/" + code + "/watch"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var initial outboundMessage[domain.Leaderboard]
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if initial.Type != "leaderboard" || len(initial.Payload.Entries) != 0 {
		t.Fatalf("expected empty initial board, got %+v", initial)
	}

	if _, err := service.Join(ctx, code, "Ana"); err != nil {
		t.Fatalf("join: %v", err)
	}

	var update outboundMessage[domain.Leaderboard]
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if len(update.Payload.Entries) != 1 || update.Payload.Entries[0].Name != "Ana" {
		t.Fatalf("expected roster update, got %+v", update.Payload.Entries)
	}
}

func TestWatchUnknownCode(t *testing.T) {
	registry := memory.NewSessionStore()
	service := app.NewQuizService(registry, memory.NewQuizRepository(memory.NewStaticQuizLoader(nil), time.Minute))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sessions/{code}/watch", NewWSHandler(service).ServeWatch)
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := http.Get(server.URL + "/sessions/0000/watch")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
