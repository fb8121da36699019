package assessment

import (
	"time"

	"philosofium/backend/models"
)

// SubmittedAnswer is one answer in a submission batch.
type SubmittedAnswer struct {
	QuestionID uint    `json:"question_id"`
	OptionID   *uint   `json:"option_id,omitempty"`
	TextAnswer *string `json:"text_answer,omitempty"`
}

type AnswerResult struct {
	QuestionID   uint
	OptionID     *uint
	TextAnswer   *string
	IsCorrect    *bool // nil when the question is not auto-gradable
	PointsEarned int
}

type ScoreResult struct {
	EarnedPoints int
	Percentage   float64
	IsPassed     bool
	Answers      []AnswerResult
}

// Score grades answers against test. Percentage is relative to the
// attempt's snapshotted TotalPoints and is not rounded. Answers naming a
// question outside test are skipped.
func Score(attempt *models.TestAttempt, test *models.Test, answers []SubmittedAnswer) ScoreResult {
	var res ScoreResult
	for _, ans := range answers {
		q, ok := test.Question(ans.QuestionID)
		if !ok {
			continue
		}
		r := gradeAnswer(q, ans)
		res.EarnedPoints += r.PointsEarned
		res.Answers = append(res.Answers, r)
	}

	if attempt.TotalPoints > 0 {
		res.Percentage = float64(res.EarnedPoints) / float64(attempt.TotalPoints) * 100
	}
	res.IsPassed = res.Percentage >= test.PassingScore
	return res
}

func gradeAnswer(q *models.TestQuestion, ans SubmittedAnswer) AnswerResult {
	r := AnswerResult{
		QuestionID: q.ID,
		OptionID:   ans.OptionID,
		TextAnswer: ans.TextAnswer,
	}
	if !q.Type.AutoGradable() {
		return r
	}

	correct := false
	if ans.OptionID != nil {
		if opt, ok := q.Option(*ans.OptionID); ok {
			correct = opt.IsCorrect
		}
	}
	r.IsCorrect = &correct
	if correct {
		r.PointsEarned = q.Points
	}
	return r
}

// validateAnswers rejects answers for questions outside the test and
// repeated answers to the same question.
func validateAnswers(test *models.Test, answers []SubmittedAnswer) error {
	seen := make(map[uint]struct{}, len(answers))
	for _, ans := range answers {
		if _, ok := test.Question(ans.QuestionID); !ok {
			return Invalid("Question %d does not belong to this test.", ans.QuestionID)
		}
		if _, dup := seen[ans.QuestionID]; dup {
			return Invalid("Duplicate answer for question %d.", ans.QuestionID)
		}
		seen[ans.QuestionID] = struct{}{}
	}
	return nil
}

func answerRows(attemptID uint, results []AnswerResult, at time.Time) []models.TestAnswer {
	rows := make([]models.TestAnswer, 0, len(results))
	for _, r := range results {
		rows = append(rows, models.TestAnswer{
			AttemptID:    attemptID,
			QuestionID:   r.QuestionID,
			OptionID:     r.OptionID,
			TextAnswer:   r.TextAnswer,
			IsCorrect:    r.IsCorrect,
			PointsEarned: r.PointsEarned,
			AnsweredAt:   at,
		})
	}
	return rows
}
