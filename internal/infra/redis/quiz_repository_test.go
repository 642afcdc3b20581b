package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"livequiz-service/internal/domain"
)

func TestQuizRepositoryCachesTemplates(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	loader := &countingLoader{template: sampleTemplate()}
	repo := NewQuizRepository(client, loader, time.Minute)

	first, err := repo.GetQuiz(context.Background(), "bank-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}
	if !mr.Exists("livequiz:bank:bank-1") {
		t.Fatalf("expected cached template in redis")
	}

	second, err := repo.GetQuiz(context.Background(), "bank-1")
	if err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected redis hit, loader calls %d", loader.calls)
	}
	if len(second.Questions) != len(first.Questions) || second.Title != first.Title {
		t.Fatalf("cached template differs: %+v vs %+v", second, first)
	}
}

func TestQuizRepositoryRebuildsCorruptEntries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	if err := mr.Set("livequiz:bank:bank-1", "{not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	loader := &countingLoader{template: sampleTemplate()}
	repo := NewQuizRepository(client, loader, time.Minute)

	template, err := repo.GetQuiz(context.Background(), "bank-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 || template.Title != "Quick Arithmetic" {
		t.Fatalf("expected rebuild from loader, calls=%d template=%+v", loader.calls, template)
	}
}

type countingLoader struct {
	template domain.QuizTemplate
	calls    int
}

func (l *countingLoader) LoadQuiz(_ context.Context, quizID string) (domain.QuizTemplate, error) {
	l.calls++
	if quizID != l.template.ID {
		return domain.QuizTemplate{}, domain.ErrQuizNotFound
	}
	return l.template, nil
}

func sampleTemplate() domain.QuizTemplate {
	return domain.QuizTemplate{
		ID:                 "bank-1",
		Title:              "Quick Arithmetic",
		SecondsPerQuestion: 20,
		Questions: []domain.QuestionInput{
			{Text: "What is 2 + 2?", A: "3", B: "4", C: "5", D: "6", Correct: domain.OptionB},
		},
	}
}
