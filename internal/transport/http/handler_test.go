package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/infra/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	registry := memory.NewSessionStore()
	bank := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.QuizTemplate{
		"bank-1": {
			ID:    "bank-1",
			Title: "Bank Quiz",
			Questions: []domain.QuestionInput{
				{Text: "2+2?", A: "3", B: "4", C: "5", D: "6", Correct: domain.OptionB},
			},
		},
	}), time.Minute)
	service := app.NewQuizService(registry, bank)

	mux := http.NewServeMux()
	NewHandler(service).Register(mux)
	mux.HandleFunc("GET /sessions/{code}/watch", NewWSHandler(service).ServeWatch)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, payload any, out any) int {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func createSession(t *testing.T, baseURL string) string {
	t.Helper()
	var created struct {
		Code string `json:"code"`
	}
	if status := doJSON(t, http.MethodPost, baseURL+"/sessions", nil, &created); status != http.StatusCreated {
		t.Fatalf("create session: status %d", status)
	}
	if created.Code == "" {
		t.Fatalf("expected join code")
	}
	return created.Code
}

func TestPollingFlow(t *testing.T) {
	server := newTestServer(t)
	code := createSession(t, server.URL)
	base := server.URL + "/sessions/" + code

	var q domain.Question
	if status := doJSON(t, http.MethodPost, base+"/questions", domain.QuestionInput{
		Text: "2+2?", A: "3", B: "4", C: "5", D: "6", Correct: domain.OptionB,
	}, &q); status != http.StatusCreated {
		t.Fatalf("add question: status %d", status)
	}
	if q.ID != 1 {
		t.Fatalf("expected question id 1, got %d", q.ID)
	}

	if status := doJSON(t, http.MethodPost, base+"/join", map[string]string{"name": "Ana"}, nil); status != http.StatusOK {
		t.Fatalf("join: status %d", status)
	}
	if status := doJSON(t, http.MethodPost, base+"/start", nil, nil); status != http.StatusNoContent {
		t.Fatalf("start: status %d", status)
	}

	var view domain.ParticipantView
	if status := doJSON(t, http.MethodGet, base+"/play?name=Ana", nil, &view); status != http.StatusOK {
		t.Fatalf("play view: status %d", status)
	}
	if view.Question == nil || view.Question.ID != 1 || view.Answered {
		t.Fatalf("unexpected play view: %+v", view)
	}

	var result struct {
		Correct bool `json:"correct"`
	}
	answer := map[string]any{"name": "Ana", "questionId": 1, "option": "B"}
	if status := doJSON(t, http.MethodPost, base+"/answers", answer, &result); status != http.StatusOK {
		t.Fatalf("answer: status %d", status)
	}
	if !result.Correct {
		t.Fatalf("expected correct answer")
	}
	if status := doJSON(t, http.MethodPost, base+"/answers", answer, nil); status != http.StatusConflict {
		t.Fatalf("duplicate answer: expected 409, got %d", status)
	}

	var counts domain.Tally
	if status := doJSON(t, http.MethodGet, base+"/tally/1", nil, &counts); status != http.StatusOK {
		t.Fatalf("tally: status %d", status)
	}
	if counts[domain.OptionB] != 1 || counts[domain.OptionA] != 0 {
		t.Fatalf("unexpected tally: %+v", counts)
	}

	var lb domain.Leaderboard
	if status := doJSON(t, http.MethodGet, base+"/leaderboard", nil, &lb); status != http.StatusOK {
		t.Fatalf("leaderboard: status %d", status)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].Score != 1 {
		t.Fatalf("unexpected leaderboard: %+v", lb.Entries)
	}

	var snap domain.SessionSnapshot
	if status := doJSON(t, http.MethodGet, base, nil, &snap); status != http.StatusOK {
		t.Fatalf("snapshot: status %d", status)
	}
	if snap.Phase != domain.PhaseRunning || snap.ParticipantCount != 1 || snap.CurrentQuestion != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestImportEndpoint(t *testing.T) {
	server := newTestServer(t)
	code := createSession(t, server.URL)
	base := server.URL + "/sessions/" + code

	var imported struct {
		Added int `json:"added"`
	}
	if status := doJSON(t, http.MethodPost, base+"/import", map[string]string{"quizId": "bank-1"}, &imported); status != http.StatusOK {
		t.Fatalf("import: status %d", status)
	}
	if imported.Added != 1 {
		t.Fatalf("expected 1 imported question, got %d", imported.Added)
	}

	if status := doJSON(t, http.MethodPost, base+"/import", map[string]string{"quizId": "missing"}, nil); status != http.StatusNotFound {
		t.Fatalf("unknown bank quiz: expected 404, got %d", status)
	}
}

func TestErrorMapping(t *testing.T) {
	server := newTestServer(t)

	if status := doJSON(t, http.MethodGet, server.URL+"/sessions/0000", nil, nil); status != http.StatusNotFound {
		t.Fatalf("unknown code: expected 404, got %d", status)
	}

	code := createSession(t, server.URL)
	base := server.URL + "/sessions/" + code

	// Starting with no questions is a phase conflict.
	if status := doJSON(t, http.MethodPost, base+"/start", nil, nil); status != http.StatusConflict {
		t.Fatalf("empty start: expected 409, got %d", status)
	}

	// Blank question fields are a validation error.
	if status := doJSON(t, http.MethodPost, base+"/questions", domain.QuestionInput{Text: "incomplete"}, nil); status != http.StatusBadRequest {
		t.Fatalf("invalid question: expected 400, got %d", status)
	}

	// Settings outside 5..300 seconds are rejected.
	if status := doJSON(t, http.MethodPatch, base, map[string]any{"secondsPerQuestion": 2}, nil); status != http.StatusBadRequest {
		t.Fatalf("invalid settings: expected 400, got %d", status)
	}

	if status := doJSON(t, http.MethodDelete, base, nil, nil); status != http.StatusNoContent {
		t.Fatalf("close: expected 204, got %d", status)
	}
	if status := doJSON(t, http.MethodDelete, base, nil, nil); status != http.StatusNotFound {
		t.Fatalf("double close: expected 404, got %d", status)
	}
}
