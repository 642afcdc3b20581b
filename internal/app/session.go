package app

import (
	"sort"
	"sync"
	"time"

	"livequiz-service/internal/domain"
)

const (
	defaultSecondsPerQuestion = 20
	minSecondsPerQuestion     = 5
	maxSecondsPerQuestion     = 300
)

// Session is the live state of one quiz, exclusively owned by its join code.
// Every command runs under the session's own lock, so two commands on the
// same code are serialized while different sessions never contend.
type Session struct {
	code      string
	createdAt time.Time
	now       func() time.Time

	mu                 sync.RWMutex
	title              string
	secondsPerQuestion int
	questions          []domain.Question
	participants       map[string]*domain.Participant
	answers            map[int]map[string]domain.AnswerRecord
	phase              domain.Phase
	currentQuestion    int // active question id, 0 when idle
	revealed           bool
	phaseStartedAt     time.Time
	lastActivity       time.Time
	subscribers        map[chan domain.Leaderboard]struct{}
}

// NewSession is exported for infrastructure layers that allocate sessions.
func NewSession(code string) *Session {
	return NewSessionWithClock(code, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(code string, now func() time.Time) *Session {
	return &Session{
		code:               code,
		createdAt:          now(),
		now:                now,
		secondsPerQuestion: defaultSecondsPerQuestion,
		participants:       make(map[string]*domain.Participant),
		answers:            make(map[int]map[string]domain.AnswerRecord),
		phase:              domain.PhaseNotStarted,
		lastActivity:       now(),
		subscribers:        make(map[chan domain.Leaderboard]struct{}),
	}
}

// Code returns the join code the session was registered under.
func (s *Session) Code() string {
	return s.code
}

// LastActivity reports when the session last processed a command, for
// idle-session sweeps.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

func (s *Session) touchLocked() {
	s.lastActivity = s.now()
}

func (s *Session) addQuestion(in domain.QuestionInput) (domain.Question, error) {
	if err := in.Validate(); err != nil {
		return domain.Question{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	id := 1
	if n := len(s.questions); n > 0 {
		id = s.questions[n-1].ID + 1
	}
	q := domain.Question{
		ID:      id,
		Text:    in.Text,
		Choices: in.ChoiceMap(),
		Correct: in.Correct,
	}
	s.questions = append(s.questions, q)
	return q, nil
}

// importTemplate appends the template's questions, renumbered sequentially.
// The whole import is rejected if any entry fails validation. Title and
// timing are adopted only while the session still has no questions of its own.
func (s *Session) importTemplate(tpl domain.QuizTemplate) (int, error) {
	for _, in := range tpl.Questions {
		if err := in.Validate(); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if len(s.questions) == 0 {
		if s.title == "" && tpl.Title != "" {
			s.title = tpl.Title
		}
		if tpl.SecondsPerQuestion >= minSecondsPerQuestion && tpl.SecondsPerQuestion <= maxSecondsPerQuestion {
			s.secondsPerQuestion = tpl.SecondsPerQuestion
		}
	}

	next := 1
	if n := len(s.questions); n > 0 {
		next = s.questions[n-1].ID + 1
	}
	for _, in := range tpl.Questions {
		s.questions = append(s.questions, domain.Question{
			ID:      next,
			Text:    in.Text,
			Choices: in.ChoiceMap(),
			Correct: in.Correct,
		})
		next++
	}
	return len(tpl.Questions), nil
}

// clearQuiz discards questions and answers and zeroes all scores. The roster
// stays joined; only quiz content and scoring reset.
func (s *Session) clearQuiz() domain.Leaderboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	s.questions = nil
	s.answers = make(map[int]map[string]domain.AnswerRecord)
	for _, p := range s.participants {
		p.Score = 0
	}
	s.phase = domain.PhaseNotStarted
	s.currentQuestion = 0
	s.revealed = false
	s.phaseStartedAt = time.Time{}
	return s.broadcastLocked()
}

func (s *Session) updateSettings(update domain.SettingsUpdate) error {
	if update.SecondsPerQuestion != nil {
		v := *update.SecondsPerQuestion
		if v < minSecondsPerQuestion || v > maxSecondsPerQuestion {
			return domain.ErrInvalidSettings
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if update.Title != nil {
		s.title = *update.Title
	}
	if update.SecondsPerQuestion != nil {
		s.secondsPerQuestion = *update.SecondsPerQuestion
	}
	return nil
}

func (s *Session) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if len(s.questions) == 0 || s.phase == domain.PhaseRunning {
		return domain.ErrInvalidTransition
	}
	s.phase = domain.PhaseRunning
	s.currentQuestion = s.questions[0].ID
	s.revealed = false
	s.phaseStartedAt = s.now()
	s.ensureAnswerSetLocked(s.currentQuestion)
	return nil
}

func (s *Session) next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if s.phase != domain.PhaseRunning {
		return domain.ErrInvalidTransition
	}
	idx := s.questionIndexLocked(s.currentQuestion)
	if idx < 0 || idx == len(s.questions)-1 {
		return domain.ErrInvalidTransition
	}
	s.currentQuestion = s.questions[idx+1].ID
	s.revealed = false
	s.phaseStartedAt = s.now()
	s.ensureAnswerSetLocked(s.currentQuestion)
	return nil
}

func (s *Session) prev() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if s.phase != domain.PhaseRunning {
		return domain.ErrInvalidTransition
	}
	idx := s.questionIndexLocked(s.currentQuestion)
	if idx <= 0 {
		return domain.ErrInvalidTransition
	}
	// Answers already recorded for the question moved back to persist.
	s.currentQuestion = s.questions[idx-1].ID
	s.revealed = false
	s.phaseStartedAt = s.now()
	s.ensureAnswerSetLocked(s.currentQuestion)
	return nil
}

func (s *Session) toggleReveal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	s.revealed = !s.revealed
	return s.revealed
}

// stop returns the session to an idle state. Answers and scores are kept so
// the leaderboard stays readable; the session can be started again.
func (s *Session) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	s.phase = domain.PhaseStopped
	s.currentQuestion = 0
	s.revealed = false
	s.phaseStartedAt = time.Time{}
}

// join registers a participant. Joining again under the same name is a no-op:
// no duplicate entry, no score reset.
func (s *Session) join(name string) (domain.Leaderboard, error) {
	if name == "" {
		return domain.Leaderboard{}, domain.ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if _, ok := s.participants[name]; !ok {
		s.participants[name] = &domain.Participant{
			Name:     name,
			Score:    0,
			JoinedAt: s.now(),
		}
	}
	return s.broadcastLocked(), nil
}

// submitAnswer records one answer for (questionID, name). The duplicate check
// and the score increment happen under the same lock hold, so concurrent
// duplicate submissions cannot double-score: the second one loses.
func (s *Session) submitAnswer(questionID int, name string, choice domain.Option) (domain.AnswerRecord, domain.Leaderboard, error) {
	if !choice.Valid() {
		return domain.AnswerRecord{}, domain.Leaderboard{}, domain.ErrInvalidOption
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if s.phase != domain.PhaseRunning || questionID != s.currentQuestion {
		return domain.AnswerRecord{}, domain.Leaderboard{}, domain.ErrNotRunning
	}
	participant, ok := s.participants[name]
	if !ok {
		return domain.AnswerRecord{}, domain.Leaderboard{}, domain.ErrParticipantNotFound
	}
	set := s.ensureAnswerSetLocked(questionID)
	if _, ok := set[name]; ok {
		return domain.AnswerRecord{}, domain.Leaderboard{}, domain.ErrAlreadyAnswered
	}

	idx := s.questionIndexLocked(questionID)
	record := domain.AnswerRecord{
		QuestionID:  questionID,
		Name:        name,
		Choice:      choice,
		Correct:     choice == s.questions[idx].Correct,
		SubmittedAt: s.now(),
	}
	set[name] = record
	if record.Correct {
		participant.Score++
	}
	return record, s.broadcastLocked(), nil
}

func (s *Session) tally(questionID int) (domain.Tally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.questionIndexLocked(questionID) < 0 {
		return nil, domain.ErrQuestionNotFound
	}
	counts := domain.Tally{}
	for _, label := range domain.Options {
		counts[label] = 0
	}
	for _, record := range s.answers[questionID] {
		counts[record.Choice]++
	}
	return counts, nil
}

// remainingSeconds is purely informational; it never drives a transition.
func (s *Session) remainingSeconds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remainingSecondsLocked()
}

func (s *Session) remainingSecondsLocked() int {
	if s.phase != domain.PhaseRunning {
		return 0
	}
	elapsed := int(s.now().Sub(s.phaseStartedAt).Seconds())
	if left := s.secondsPerQuestion - elapsed; left > 0 {
		return left
	}
	return 0
}

func (s *Session) leaderboard() domain.Leaderboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaderboardLocked()
}

func (s *Session) snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.SessionSnapshot{
		Code:               s.code,
		Title:              s.title,
		SecondsPerQuestion: s.secondsPerQuestion,
		Phase:              s.phase,
		Questions:          append([]domain.Question(nil), s.questions...),
		CurrentQuestion:    s.currentQuestion,
		Revealed:           s.revealed,
		RemainingSeconds:   s.remainingSecondsLocked(),
		ParticipantCount:   len(s.participants),
		Leaderboard:        s.leaderboardLocked().Entries,
	}
	if s.phase == domain.PhaseRunning {
		counts := domain.Tally{}
		for _, label := range domain.Options {
			counts[label] = 0
		}
		for _, record := range s.answers[s.currentQuestion] {
			counts[record.Choice]++
		}
		snap.Tally = counts
	}
	return snap
}

func (s *Session) participantView(name string) (domain.ParticipantView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participant, ok := s.participants[name]
	if !ok {
		return domain.ParticipantView{}, domain.ErrParticipantNotFound
	}

	view := domain.ParticipantView{
		Code:          s.code,
		Phase:         s.phase,
		QuestionCount: len(s.questions),
		Revealed:      s.revealed,
		Score:         participant.Score,
	}
	if s.phase != domain.PhaseRunning {
		return view, nil
	}

	idx := s.questionIndexLocked(s.currentQuestion)
	q := s.questions[idx]
	view.QuestionNumber = idx + 1
	view.Question = &domain.ParticipantQuestion{
		ID:      q.ID,
		Text:    q.Text,
		Choices: q.Choices,
	}
	view.RemainingSeconds = s.remainingSecondsLocked()
	_, view.Answered = s.answers[s.currentQuestion][name]
	if s.revealed {
		view.CorrectOption = q.Correct
	}
	return view, nil
}

// subscribe returns a channel fed with leaderboard snapshots on every scoring
// or roster change. The caller must invoke cancel to release the channel.
func (s *Session) subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.leaderboardLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() domain.Leaderboard {
	lb := s.leaderboardLocked()
	for ch := range s.subscribers {
		select {
		case ch <- lb:
		default:
			// Drop the stale snapshot so a slow watcher never blocks a command.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
	return lb
}

func (s *Session) leaderboardLocked() domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(s.participants))
	for _, participant := range s.participants {
		entries = append(entries, domain.LeaderboardEntry{
			Name:  participant.Name,
			Score: participant.Score,
		})
	}

	// Total order: score descending, ties broken by name ascending.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})

	return domain.Leaderboard{
		Code:      s.code,
		Entries:   entries,
		UpdatedAt: s.now(),
	}
}

func (s *Session) ensureAnswerSetLocked(questionID int) map[string]domain.AnswerRecord {
	set, ok := s.answers[questionID]
	if !ok {
		set = make(map[string]domain.AnswerRecord)
		s.answers[questionID] = set
	}
	return set
}

func (s *Session) questionIndexLocked(questionID int) int {
	for i := range s.questions {
		if s.questions[i].ID == questionID {
			return i
		}
	}
	return -1
}
