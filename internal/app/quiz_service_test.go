package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/infra/memory"
)

func TestPresenterRunsAQuiz(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	code, err := service.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if _, err := service.AddQuestion(ctx, code, domain.QuestionInput{
		Text: "2+2?", A: "3", B: "4", C: "5", D: "6", Correct: domain.OptionB,
	}); err != nil {
		t.Fatalf("add question: %v", err)
	}
	if err := service.StartSession(ctx, code); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.Join(ctx, code, "Ana"); err != nil {
		t.Fatalf("join: %v", err)
	}

	record, lb, err := service.SubmitAnswer(ctx, code, 1, "Ana", domain.OptionB)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !record.Correct {
		t.Fatalf("expected correct answer, got %+v", record)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].Name != "Ana" || lb.Entries[0].Score != 1 {
		t.Fatalf("expected Ana with 1 point, got %+v", lb.Entries)
	}

	counts, err := service.Tally(ctx, code, 1)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	want := domain.Tally{domain.OptionA: 0, domain.OptionB: 1, domain.OptionC: 0, domain.OptionD: 0}
	for label, n := range want {
		if counts[label] != n {
			t.Fatalf("tally %s: expected %d, got %d", label, n, counts[label])
		}
	}
}

func TestCommandsOnUnknownCode(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	if _, err := service.Join(ctx, "0000", "Ana"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := service.StartSession(ctx, "0000"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, _, err := service.SubmitAnswer(ctx, "0000", 1, "Ana", domain.OptionA); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestImportQuizFromBank(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	code, err := service.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	added, err := service.ImportQuiz(ctx, code, "bank-1")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if added != 2 {
		t.Fatalf("expected 2 imported questions, got %d", added)
	}

	snap, err := service.Snapshot(ctx, code)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Questions) != 2 || snap.Title != "Sample Bank Quiz" {
		t.Fatalf("unexpected snapshot after import: %+v", snap)
	}

	if _, err := service.ImportQuiz(ctx, code, "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	code, err := service.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	ch, cancel, err := service.Subscribe(ctx, code)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	<-ch // initial snapshot

	if _, err := service.Join(ctx, code, "Ana"); err != nil {
		t.Fatalf("join: %v", err)
	}
	update := <-ch
	if len(update.Entries) != 1 || update.Entries[0].Name != "Ana" {
		t.Fatalf("expected roster update, got %+v", update.Entries)
	}
}

func TestCloseSession(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	code, err := service.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := service.CloseSession(ctx, code); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := service.Snapshot(ctx, code); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after close, got %v", err)
	}
	if err := service.CloseSession(ctx, code); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on double close, got %v", err)
	}
}

func newTestService() *app.QuizService {
	registry := memory.NewSessionStore()
	bank := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.QuizTemplate{
		"bank-1": {
			ID:                 "bank-1",
			Title:              "Sample Bank Quiz",
			SecondsPerQuestion: 20,
			Questions: []domain.QuestionInput{
				{Text: "2+2?", A: "3", B: "4", C: "5", D: "6", Correct: domain.OptionB},
				{Text: "3x3?", A: "9", B: "6", C: "12", D: "27", Correct: domain.OptionA},
			},
		},
	}), 5*time.Minute)
	return app.NewQuizService(registry, bank)
}
