package domain

import "time"

// Option labels one of the four answer choices of a question.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

// Options lists the labels in display order.
var Options = [4]Option{OptionA, OptionB, OptionC, OptionD}

// Valid reports whether the label is one of A-D.
func (o Option) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Phase is the coarse lifecycle state of a session.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseRunning    Phase = "running"
	PhaseStopped    Phase = "stopped"
)

// Question is an MCQ with four fixed choices and exactly one correct label.
// Questions are immutable once added; ids are assigned sequentially from 1.
type Question struct {
	ID      int               `json:"id"`
	Text    string            `json:"text"`
	Choices map[Option]string `json:"choices"`
	Correct Option            `json:"correct"`
}

// QuestionInput is the presenter-supplied form for a new question.
type QuestionInput struct {
	Text    string `json:"text"`
	A       string `json:"a"`
	B       string `json:"b"`
	C       string `json:"c"`
	D       string `json:"d"`
	Correct Option `json:"correct"`
}

// Validate rejects blank fields and unknown correct labels.
func (in QuestionInput) Validate() error {
	if in.Text == "" || in.A == "" || in.B == "" || in.C == "" || in.D == "" {
		return ErrInvalidQuestion
	}
	if !in.Correct.Valid() {
		return ErrInvalidQuestion
	}
	return nil
}

// ChoiceMap assembles the labeled choices.
func (in QuestionInput) ChoiceMap() map[Option]string {
	return map[Option]string{
		OptionA: in.A,
		OptionB: in.B,
		OptionC: in.C,
		OptionD: in.D,
	}
}

// Participant is a joined player and their accumulated score.
type Participant struct {
	Name     string
	Score    int
	JoinedAt time.Time
}

// AnswerRecord is one participant's answer to one question. At most one
// record exists per (question, participant); a second submission is rejected.
type AnswerRecord struct {
	QuestionID  int       `json:"questionId"`
	Name        string    `json:"name"`
	Choice      Option    `json:"choice"`
	Correct     bool      `json:"correct"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Tally counts submitted answers per option; all four labels are present.
type Tally map[Option]int

// LeaderboardEntry is a snapshot-friendly view of a participant.
type LeaderboardEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Leaderboard captures the ordered scoreboard for a session.
type Leaderboard struct {
	Code      string             `json:"code"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// SettingsUpdate carries presenter edits to session metadata. Nil fields are
// left unchanged.
type SettingsUpdate struct {
	Title              *string `json:"title"`
	SecondsPerQuestion *int    `json:"secondsPerQuestion"`
}

// QuizTemplate is a prepared quiz from the question bank that a presenter can
// import into a session instead of typing questions one by one.
type QuizTemplate struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	SecondsPerQuestion int             `json:"secondsPerQuestion"`
	Questions          []QuestionInput `json:"questions"`
}

// SessionSnapshot is the presenter-facing read model of a session.
type SessionSnapshot struct {
	Code               string             `json:"code"`
	Title              string             `json:"title"`
	SecondsPerQuestion int                `json:"secondsPerQuestion"`
	Phase              Phase              `json:"phase"`
	Questions          []Question         `json:"questions"`
	CurrentQuestion    int                `json:"currentQuestion"`
	Revealed           bool               `json:"revealed"`
	RemainingSeconds   int                `json:"remainingSeconds"`
	ParticipantCount   int                `json:"participantCount"`
	Tally              Tally              `json:"tally,omitempty"`
	Leaderboard        []LeaderboardEntry `json:"leaderboard"`
}

// ParticipantQuestion is the question as shown to players: no correct flag.
type ParticipantQuestion struct {
	ID      int               `json:"id"`
	Text    string            `json:"text"`
	Choices map[Option]string `json:"choices"`
}

// ParticipantView is the player-facing read model, polled every few seconds.
type ParticipantView struct {
	Code             string               `json:"code"`
	Phase            Phase                `json:"phase"`
	QuestionNumber   int                  `json:"questionNumber"`
	QuestionCount    int                  `json:"questionCount"`
	Question         *ParticipantQuestion `json:"question,omitempty"`
	RemainingSeconds int                  `json:"remainingSeconds"`
	Answered         bool                 `json:"answered"`
	Revealed         bool                 `json:"revealed"`
	CorrectOption    Option               `json:"correctOption,omitempty"`
	Score            int                  `json:"score"`
}
