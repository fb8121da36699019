package assessment

import (
	"math"
	"time"

	"philosofium/backend/models"
)

// ActiveAttempt is an attempt known to be in progress. It is the only value
// that offers transitions, so completed or abandoned attempts cannot be moved.
type ActiveAttempt struct {
	attempt *models.TestAttempt
}

// Begin creates a fresh in-progress attempt. The test's total points and
// time limit are copied so later catalog edits do not affect it.
func Begin(userID uint, test *models.Test, number int, now time.Time) ActiveAttempt {
	a := &models.TestAttempt{
		UserID:        userID,
		TestID:        test.ID,
		AttemptNumber: number,
		Status:        models.StatusInProgress,
		StartedAt:     now,
		TotalPoints:   test.TotalPoints(),
	}
	if test.TimeLimit != nil && *test.TimeLimit > 0 {
		limit := *test.TimeLimit
		a.TimeLimit = &limit
	}
	return ActiveAttempt{attempt: a}
}

// Resume checks that a stored attempt is in progress.
func Resume(a *models.TestAttempt) (ActiveAttempt, error) {
	if a.Status != models.StatusInProgress {
		return ActiveAttempt{}, Invalid(ReasonNotInProgress)
	}
	return ActiveAttempt{attempt: a}, nil
}

func (s ActiveAttempt) Attempt() *models.TestAttempt {
	return s.attempt
}

// Deadline is the last instant a submission is accepted, from the limit
// recorded at start. Attempts without a limit have none.
func (s ActiveAttempt) Deadline(grace time.Duration) (time.Time, bool) {
	if s.attempt.TimeLimit == nil || *s.attempt.TimeLimit <= 0 {
		return time.Time{}, false
	}
	limit := time.Duration(*s.attempt.TimeLimit) * time.Minute
	return s.attempt.StartedAt.Add(limit + grace), true
}

func (s ActiveAttempt) Complete(result ScoreResult, now time.Time) *models.TestAttempt {
	a := s.attempt
	spent := elapsedMinutes(a.StartedAt, now)
	a.Status = models.StatusCompleted
	a.CompletedAt = &now
	a.EarnedPoints = result.EarnedPoints
	a.Percentage = result.Percentage
	a.IsPassed = result.IsPassed
	a.TimeSpent = &spent
	return a
}

func (s ActiveAttempt) Abandon() *models.TestAttempt {
	s.attempt.Status = models.StatusAbandoned
	return s.attempt
}

func elapsedMinutes(from, to time.Time) int {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Minutes()))
}
