package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"livequiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader loads quiz template JSONB from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.QuizTemplate, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizTemplate{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizTemplate{}, fmt.Errorf("load quiz: %w", err)
	}
	var template domain.QuizTemplate
	if err := json.Unmarshal(raw, &template); err != nil {
		return domain.QuizTemplate{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	if template.ID == "" {
		template.ID = quizID
	}
	return template, nil
}
