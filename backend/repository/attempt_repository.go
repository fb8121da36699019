package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"philosofium/backend/assessment"
	"philosofium/backend/models"
)

// ActiveAttemptIndex enforces at most one in-progress attempt per user and test.
const ActiveAttemptIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_attempt_one_active
ON test_attempts (user_id, test_id)
WHERE status = 'in_progress' AND deleted_at IS NULL`

// AttemptRepository implements assessment.AttemptStore on gorm.
type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

var _ assessment.AttemptStore = (*AttemptRepository)(nil)

func (r *AttemptRepository) Transact(ctx context.Context, fn func(tx assessment.AttemptStore) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&AttemptRepository{DB: tx})
	})
}

func (r *AttemptRepository) CreateAttempt(ctx context.Context, attempt *models.TestAttempt) error {
	if attempt.Status == models.StatusInProgress {
		var active int64
		if err := r.DB.WithContext(ctx).Model(&models.TestAttempt{}).
			Where("user_id = ? AND test_id = ? AND status = ?", attempt.UserID, attempt.TestID, models.StatusInProgress).
			Count(&active).Error; err != nil {
			return fmt.Errorf("count active attempts: %w", err)
		}
		if active > 0 {
			return assessment.ErrConflict
		}
	}
	if err := r.DB.WithContext(ctx).Omit("Answers").Create(attempt).Error; err != nil {
		if IsUniqueViolation(err) {
			return assessment.ErrConflict
		}
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

func (r *AttemptRepository) UpdateAttempt(ctx context.Context, attempt *models.TestAttempt, from models.AttemptStatus) error {
	res := r.DB.WithContext(ctx).Model(&models.TestAttempt{}).
		Where("id = ? AND status = ?", attempt.ID, from).
		Select("status", "completed_at", "earned_points", "percentage", "is_passed", "time_spent").
		Updates(attempt)
	if res.Error != nil {
		return fmt.Errorf("update attempt %d: %w", attempt.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return assessment.ErrConflict
	}
	return nil
}

func (r *AttemptRepository) GetAttempt(ctx context.Context, attemptID uint) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := r.DB.WithContext(ctx).First(&attempt, attemptID).Error; err != nil {
		return nil, translate(err, "attempt", attemptID)
	}
	return &attempt, nil
}

func (r *AttemptRepository) scope(ctx context.Context, f assessment.AttemptFilter) *gorm.DB {
	q := r.DB.WithContext(ctx).Model(&models.TestAttempt{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.TestID != 0 {
		q = q.Where("test_id = ?", f.TestID)
	}
	if len(f.Statuses) > 0 {
		names := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			names[i] = st.String()
		}
		q = q.Where("status IN ?", names)
	}
	return q
}

func (r *AttemptRepository) FindAttempts(ctx context.Context, f assessment.AttemptFilter) ([]models.TestAttempt, error) {
	q := r.scope(ctx, f).Order("started_at DESC, id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var attempts []models.TestAttempt
	if err := q.Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("find attempts: %w", err)
	}
	return attempts, nil
}

func (r *AttemptRepository) CountAttempts(ctx context.Context, f assessment.AttemptFilter) (int64, error) {
	var n int64
	if err := r.scope(ctx, f).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return n, nil
}

func (r *AttemptRepository) CreateAnswers(ctx context.Context, answers []models.TestAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	if err := r.DB.WithContext(ctx).Create(&answers).Error; err != nil {
		return fmt.Errorf("create answers: %w", err)
	}
	return nil
}

func (r *AttemptRepository) FindAnswers(ctx context.Context, attemptID uint) ([]models.TestAnswer, error) {
	var answers []models.TestAnswer
	if err := r.DB.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("id ASC").
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("find answers: %w", err)
	}
	return answers, nil
}
