package models

import (
	"time"

	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionTrueFalse    QuestionType = "true_false"
	QuestionEssay        QuestionType = "essay"
)

// AutoGradable reports whether answers to this question type are scored on submission.
func (t QuestionType) AutoGradable() bool {
	return t == QuestionSingleChoice || t == QuestionTrueFalse
}

func (t QuestionType) Valid() bool {
	return t.AutoGradable() || t == QuestionEssay
}

type Test struct {
	gorm.Model
	Title       string `gorm:"not null"`
	Description string
	CourseID    *uint `gorm:"index"`
	LessonID    *uint `gorm:"index"`
	AuthorID    uint

	TimeLimit    *int // minutes
	MaxAttempts  *int
	PassingScore float64

	ShuffleQuestions       bool
	ShuffleOptions         bool
	ShowResultsImmediately bool
	IsPublished            bool `gorm:"index"`

	AvailableFrom  *time.Time
	AvailableUntil *time.Time

	Questions []TestQuestion `gorm:"constraint:OnDelete:CASCADE"`
}

// TotalPoints sums the point values of the test's questions as currently defined.
func (t *Test) TotalPoints() int {
	total := 0
	for _, q := range t.Questions {
		total += q.Points
	}
	return total
}

func (t *Test) Question(id uint) (*TestQuestion, bool) {
	for i := range t.Questions {
		if t.Questions[i].ID == id {
			return &t.Questions[i], true
		}
	}
	return nil, false
}

type TestQuestion struct {
	gorm.Model
	TestID        uint         `gorm:"not null;index"`
	Type          QuestionType `gorm:"not null;default:single_choice"`
	Question      string       `gorm:"type:text;not null"`
	Points        int          `gorm:"not null"`
	SequenceOrder int
	Options       []QuestionOption `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

func (q *TestQuestion) Option(id uint) (*QuestionOption, bool) {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i], true
		}
	}
	return nil, false
}

type QuestionOption struct {
	gorm.Model
	QuestionID    uint   `gorm:"not null;index"`
	Text          string `gorm:"not null"`
	IsCorrect     bool
	SequenceOrder int
}

// TestAttempt is one user's try at a test (the test result once completed).
type TestAttempt struct {
	gorm.Model
	UserID        uint          `gorm:"not null;index:idx_attempt_user_test"`
	TestID        uint          `gorm:"not null;index:idx_attempt_user_test"`
	AttemptNumber int           `gorm:"not null"`
	Status        AttemptStatus `gorm:"type:varchar(20);not null;index"`

	StartedAt   time.Time `gorm:"not null"`
	CompletedAt *time.Time

	// TotalPoints is captured when the attempt starts and never recomputed.
	TotalPoints  int `gorm:"not null"`
	EarnedPoints int
	Percentage   float64
	IsPassed     bool
	TimeSpent    *int // minutes, set on completion

	// TimeLimit is the test's limit in minutes when the attempt started.
	TimeLimit *int

	Answers []TestAnswer `gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
}

type TestAnswer struct {
	gorm.Model
	AttemptID    uint `gorm:"not null;index"`
	QuestionID   uint `gorm:"not null"`
	OptionID     *uint
	TextAnswer   *string `gorm:"type:text"`
	IsCorrect    *bool   // nil until graded by hand
	PointsEarned int
	AnsweredAt   time.Time
}
