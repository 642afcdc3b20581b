package app

import (
	"context"

	"livequiz-service/internal/domain"
)

// SessionRegistry abstracts how live sessions are stored and how join codes
// are allocated (in-memory, Redis-marked, etc).
type SessionRegistry interface {
	Create() (string, *Session, error)
	Get(code string) (*Session, bool)
	Remove(code string)
}

// QuizRepository loads prepared quizzes from the question bank (cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.QuizTemplate, error)
}

// QuizService contains the presenter and participant use cases. Commands are
// routed to the target session through the registry; the session itself
// enforces exclusive access, so sessions never block each other.
type QuizService struct {
	sessions SessionRegistry
	bank     QuizRepository
}

func NewQuizService(registry SessionRegistry, bank QuizRepository) *QuizService {
	return &QuizService{sessions: registry, bank: bank}
}

// CreateSession allocates a fresh join code with an empty session behind it.
func (s *QuizService) CreateSession(_ context.Context) (string, error) {
	code, _, err := s.sessions.Create()
	return code, err
}

// CloseSession removes the session and frees its join code for reuse.
func (s *QuizService) CloseSession(_ context.Context, code string) error {
	if _, ok := s.sessions.Get(code); !ok {
		return domain.ErrSessionNotFound
	}
	s.sessions.Remove(code)
	return nil
}

// AddQuestion validates and appends one question, assigning the next id.
func (s *QuizService) AddQuestion(_ context.Context, code string, in domain.QuestionInput) (domain.Question, error) {
	session, ok := s.sessions.Get(code)
	if !ok {
		return domain.Question{}, domain.ErrSessionNotFound
	}
	return session.addQuestion(in)
}

// ImportQuiz loads a prepared quiz from the question bank and appends its
// questions to the session. Returns how many questions were added.
func (s *QuizService) ImportQuiz(ctx context.Context, code, quizID string) (int, error) {
	session, ok := s.sessions.Get(code)
	if !ok {
		return 0, domain.ErrSessionNotFound
	}
	tpl, err := s.bank.GetQuiz(ctx, quizID)
	if err != nil {
		return 0, err
	}
	return session.importTemplate(tpl)
}

// ClearQuiz discards questions, answers, and scores; the roster stays joined.
func (s *QuizService) ClearQuiz(_ context.Context, code string) error {
	session, ok := s.sessions.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.clearQuiz()
	return nil
}

// UpdateSettings edits the session title and per-question timer.
func (s *QuizService) UpdateSettings(_ context.Context, code string, update domain.SettingsUpdate) error {
	session, ok := s.sessions.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.updateSettings(update)
}

// StartSession begins the quiz on its first question.
func (s *QuizService) StartSession(_ context.Context, code string) error {
	session, ok := s.sessions.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.start()
}

// NextQuestion advances to the following question.
func (s *QuizService) NextQuestion(_ context.Context, code string) error {
	session, ok := s.sessions.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.next()
}

// PrevQuestion steps back to the previous question.
func (s *QuizService) PrevQuestion(_ context.Context, code string) error {
	session, ok := s.sessions.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.prev()
}

// ToggleReveal flips whether the correct answer is shown.
func (s *QuizService) ToggleReveal(_ context.Context, code string) (bool, error) {
	session, ok := s.sessions.Get(code)
	if !ok {
		return false, domain.ErrSessionNotFound
	}
	return session.toggleReveal(), nil
}

// StopSession returns the session to idle; answers and scores are retained.
func (s *QuizService) StopSession(_ context.Context, code string) error {
	session, ok := s.sessions.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.stop()
	return nil
}

// Join registers a participant; joining twice with the same name is a no-op.
func (s *QuizService) Join(_ context.Context, code, name string) (domain.Leaderboard, error) {
	session, ok := s.sessions.Get(code)
	if !ok {
		return domain.Leaderboard{}, domain.ErrSessionNotFound
	}
	return session.join(name)
}

// SubmitAnswer records one answer for the live question and scores it.
func (s *QuizService) SubmitAnswer(_ context.Context, code string, questionID int, name string, choice domain.Option) (domain.AnswerRecord, domain.Leaderboard, error) {
	session, ok := s.sessions.Get(code)
	if !ok {
		return domain.AnswerRecord{}, domain.Leaderboard{}, domain.ErrSessionNotFound
	}
	return session.submitAnswer(questionID, name, choice)
}

// Snapshot returns the presenter-facing read model.
func (s *QuizService) Snapshot(_ context.Context, code string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(code)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.snapshot(), nil
}

// ParticipantView returns the player-facing read model for one participant.
func (s *QuizService) ParticipantView(_ context.Context, code, name string) (domain.ParticipantView, error) {
	session, ok := s.sessions.Get(code)
	if !ok {
		return domain.ParticipantView{}, domain.ErrSessionNotFound
	}
	return session.participantView(name)
}

// Tally counts answers per option for one question; every label is present.
func (s *QuizService) Tally(_ context.Context, code string, questionID int) (domain.Tally, error) {
	session, ok := s.sessions.Get(code)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.tally(questionID)
}

// Leaderboard returns the ordered scoreboard.
func (s *QuizService) Leaderboard(_ context.Context, code string) (domain.Leaderboard, error) {
	session, ok := s.sessions.Get(code)
	if !ok {
		return domain.Leaderboard{}, domain.ErrSessionNotFound
	}
	return session.leaderboard(), nil
}

// RemainingSeconds reports the advisory countdown for the live question.
func (s *QuizService) RemainingSeconds(_ context.Context, code string) (int, error) {
	session, ok := s.sessions.Get(code)
	if !ok {
		return 0, domain.ErrSessionNotFound
	}
	return session.remainingSeconds(), nil
}

// Subscribe returns a channel that receives leaderboard updates for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, code string) (<-chan domain.Leaderboard, func(), error) {
	session, ok := s.sessions.Get(code)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}
