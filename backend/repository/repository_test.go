package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"philosofium/backend/assessment"
	"philosofium/backend/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	require.NoError(t, db.Exec(ActiveAttemptIndex).Error)
	return db
}

var start = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func seedTest(t *testing.T, db *gorm.DB) *models.Test {
	t.Helper()
	catalog := NewCatalogRepository(db)
	ctx := context.Background()

	test := &models.Test{Title: "Go basics", PassingScore: 60, IsPublished: true}
	require.NoError(t, catalog.CreateTest(ctx, test))

	questions := []models.TestQuestion{
		{TestID: test.ID, Type: models.QuestionSingleChoice, Question: "Lightweight thread?", Points: 10,
			Options: []models.QuestionOption{{Text: "goroutine", IsCorrect: true}, {Text: "process"}}},
		{TestID: test.ID, Type: models.QuestionTrueFalse, Question: "Maps are ordered.", Points: 15,
			Options: []models.QuestionOption{{Text: "true"}, {Text: "false", IsCorrect: true}}},
	}
	for i := range questions {
		require.NoError(t, catalog.AddQuestion(ctx, &questions[i]))
	}
	return test
}

func TestCatalogGetTestDefinition(t *testing.T) {
	db := setupDB(t)
	seeded := seedTest(t, db)
	catalog := NewCatalogRepository(db)

	test, err := catalog.GetTestDefinition(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.Len(t, test.Questions, 2)
	assert.Equal(t, 1, test.Questions[0].SequenceOrder)
	assert.Equal(t, 2, test.Questions[1].SequenceOrder)
	assert.Equal(t, "goroutine", test.Questions[0].Options[0].Text)
	assert.Equal(t, 2, test.Questions[1].Options[1].SequenceOrder)
	assert.Equal(t, 25, test.TotalPoints())

	_, err = catalog.GetTestDefinition(context.Background(), 999)
	assert.ErrorIs(t, err, assessment.ErrNotFound)
}

func TestCatalogListPublished(t *testing.T) {
	db := setupDB(t)
	seedTest(t, db)
	catalog := NewCatalogRepository(db)
	ctx := context.Background()

	draft := &models.Test{Title: "Draft"}
	require.NoError(t, catalog.CreateTest(ctx, draft))

	tests, err := catalog.ListPublishedTests(ctx)
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "Go basics", tests[0].Title)

	draft.IsPublished = true
	require.NoError(t, catalog.SaveTest(ctx, draft))
	tests, err = catalog.ListPublishedTests(ctx)
	require.NoError(t, err)
	assert.Len(t, tests, 2)
}

func TestCatalogKeepsZeroValues(t *testing.T) {
	db := setupDB(t)
	catalog := NewCatalogRepository(db)
	ctx := context.Background()

	test := &models.Test{Title: "Warm-up", PassingScore: 0, IsPublished: true}
	require.NoError(t, catalog.CreateTest(ctx, test))
	require.NoError(t, catalog.AddQuestion(ctx, &models.TestQuestion{
		TestID:   test.ID,
		Type:     models.QuestionEssay,
		Question: "Describe your setup.",
		Points:   0,
	}))

	stored, err := catalog.GetTestDefinition(ctx, test.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stored.PassingScore)
	require.Len(t, stored.Questions, 1)
	assert.Equal(t, 0, stored.Questions[0].Points)
	assert.Equal(t, 0, stored.TotalPoints())
}

func newAttempt(userID, testID uint, status models.AttemptStatus, at time.Time) *models.TestAttempt {
	return &models.TestAttempt{
		UserID:        userID,
		TestID:        testID,
		AttemptNumber: 1,
		Status:        status,
		StartedAt:     at,
		TotalPoints:   25,
	}
}

func TestCreateAttemptRejectsSecondActive(t *testing.T) {
	db := setupDB(t)
	repo := NewAttemptRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateAttempt(ctx, newAttempt(7, 1, models.StatusInProgress, start)))
	err := repo.CreateAttempt(ctx, newAttempt(7, 1, models.StatusInProgress, start))
	assert.ErrorIs(t, err, assessment.ErrConflict)

	require.NoError(t, repo.CreateAttempt(ctx, newAttempt(8, 1, models.StatusInProgress, start)))
	require.NoError(t, repo.CreateAttempt(ctx, newAttempt(7, 1, models.StatusCompleted, start)))
	require.NoError(t, repo.CreateAttempt(ctx, newAttempt(7, 1, models.StatusAbandoned, start)))

	n, err := repo.CountAttempts(ctx, assessment.AttemptFilter{UserID: 7, TestID: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestActiveAttemptIndex(t *testing.T) {
	db := setupDB(t)

	require.NoError(t, db.Create(newAttempt(7, 1, models.StatusInProgress, start)).Error)
	err := db.Create(newAttempt(7, 1, models.StatusInProgress, start)).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.ErrorIs(t, translate(err, "attempt", 0), assessment.ErrConflict)

	require.NoError(t, db.Create(newAttempt(7, 1, models.StatusAbandoned, start)).Error)
	require.NoError(t, db.Create(newAttempt(7, 1, models.StatusAbandoned, start)).Error)
}

func TestUpdateAttemptCompareAndSet(t *testing.T) {
	db := setupDB(t)
	repo := NewAttemptRepository(db)
	ctx := context.Background()

	a := newAttempt(7, 1, models.StatusInProgress, start)
	require.NoError(t, repo.CreateAttempt(ctx, a))

	done := start.Add(3 * time.Minute)
	spent := 3
	a.Status = models.StatusCompleted
	a.CompletedAt = &done
	a.EarnedPoints = 10
	a.Percentage = 40
	a.TimeSpent = &spent
	require.NoError(t, repo.UpdateAttempt(ctx, a, models.StatusInProgress))

	stored, err := repo.GetAttempt(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.Equal(t, 10, stored.EarnedPoints)
	assert.InDelta(t, 40.0, stored.Percentage, 1e-9)
	assert.False(t, stored.IsPassed)
	require.NotNil(t, stored.TimeSpent)
	assert.Equal(t, 3, *stored.TimeSpent)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, done.Equal(*stored.CompletedAt))

	a.Status = models.StatusAbandoned
	err = repo.UpdateAttempt(ctx, a, models.StatusInProgress)
	assert.ErrorIs(t, err, assessment.ErrConflict)

	_, err = repo.GetAttempt(ctx, 999)
	assert.ErrorIs(t, err, assessment.ErrNotFound)
}

func TestFindAttempts(t *testing.T) {
	db := setupDB(t)
	repo := NewAttemptRepository(db)
	ctx := context.Background()

	for i, st := range []models.AttemptStatus{models.StatusCompleted, models.StatusAbandoned, models.StatusInProgress} {
		require.NoError(t, repo.CreateAttempt(ctx, newAttempt(7, 1, st, start.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, repo.CreateAttempt(ctx, newAttempt(7, 2, models.StatusCompleted, start)))
	require.NoError(t, repo.CreateAttempt(ctx, newAttempt(8, 1, models.StatusCompleted, start)))

	all, err := repo.FindAttempts(ctx, assessment.AttemptFilter{UserID: 7, TestID: 1})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, models.StatusInProgress, all[0].Status)
	assert.Equal(t, models.StatusCompleted, all[2].Status)

	resolved, err := repo.FindAttempts(ctx, assessment.AttemptFilter{
		UserID:   7,
		TestID:   1,
		Statuses: []models.AttemptStatus{models.StatusCompleted, models.StatusAbandoned},
	})
	require.NoError(t, err)
	assert.Len(t, resolved, 2)

	page, err := repo.FindAttempts(ctx, assessment.AttemptFilter{UserID: 7, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	n, err := repo.CountAttempts(ctx, assessment.AttemptFilter{TestID: 1, Statuses: []models.AttemptStatus{models.StatusCompleted}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestTransactRollsBack(t *testing.T) {
	db := setupDB(t)
	repo := NewAttemptRepository(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := repo.Transact(ctx, func(tx assessment.AttemptStore) error {
		a := newAttempt(7, 1, models.StatusInProgress, start)
		if err := tx.CreateAttempt(ctx, a); err != nil {
			return err
		}
		if err := tx.CreateAnswers(ctx, []models.TestAnswer{{AttemptID: a.ID, QuestionID: 1}}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := repo.CountAttempts(ctx, assessment.AttemptFilter{UserID: 7})
	require.NoError(t, err)
	assert.Zero(t, n)
	var answers int64
	require.NoError(t, db.Model(&models.TestAnswer{}).Count(&answers).Error)
	assert.Zero(t, answers)
}

func TestAnswersRoundTrip(t *testing.T) {
	db := setupDB(t)
	repo := NewAttemptRepository(db)
	ctx := context.Background()

	a := newAttempt(7, 1, models.StatusInProgress, start)
	require.NoError(t, repo.CreateAttempt(ctx, a))

	correct := true
	option := uint(3)
	essay := "Channels carry values between goroutines."
	require.NoError(t, repo.CreateAnswers(ctx, []models.TestAnswer{
		{AttemptID: a.ID, QuestionID: 1, OptionID: &option, IsCorrect: &correct, PointsEarned: 10, AnsweredAt: start},
		{AttemptID: a.ID, QuestionID: 2, TextAnswer: &essay, AnsweredAt: start},
	}))
	require.NoError(t, repo.CreateAnswers(ctx, nil))

	answers, err := repo.FindAnswers(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	require.NotNil(t, answers[0].IsCorrect)
	assert.True(t, *answers[0].IsCorrect)
	assert.Equal(t, uint(3), *answers[0].OptionID)
	assert.Nil(t, answers[1].IsCorrect)
	assert.Equal(t, essay, *answers[1].TextAnswer)
}

// The service runs unchanged on the gorm stores.
func TestServiceOnSQLite(t *testing.T) {
	db := setupDB(t)
	test := seedTest(t, db)
	svc := assessment.NewService(NewCatalogRepository(db), NewAttemptRepository(db),
		assessment.WithClock(assessment.ClockFunc(func() time.Time { return start })))
	ctx := context.Background()

	attempt, err := svc.Start(ctx, 7, test.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, attempt.TotalPoints)

	_, err = svc.Start(ctx, 7, test.ID)
	assert.EqualError(t, err, "Test is already in progress.")

	def, err := NewCatalogRepository(db).GetTestDefinition(ctx, test.ID)
	require.NoError(t, err)
	var answers []assessment.SubmittedAnswer
	for _, q := range def.Questions {
		for _, o := range q.Options {
			if o.IsCorrect {
				id := o.ID
				answers = append(answers, assessment.SubmittedAnswer{QuestionID: q.ID, OptionID: &id})
			}
		}
	}

	done, err := svc.Submit(ctx, attempt.ID, answers)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Equal(t, 100.0, done.Percentage)
	assert.True(t, done.IsPassed)

	_, err = svc.Submit(ctx, attempt.ID, answers)
	assert.EqualError(t, err, "Test is not in progress.")

	res, err := svc.Result(ctx, attempt.ID, 7)
	require.NoError(t, err)
	assert.Len(t, res.Answers, 2)

	st, err := svc.Statistics(ctx, test.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalAttempts)
	assert.Equal(t, 100.0, st.HighestScore)
}
