package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"philosofium/backend/models"
)

// CatalogRepository reads tests from the catalog tables.
type CatalogRepository struct {
	DB *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: db}
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("sequence_order ASC, id ASC")
}

func (r *CatalogRepository) GetTestDefinition(ctx context.Context, testID uint) (*models.Test, error) {
	var test models.Test
	err := r.DB.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		Preload("Questions.Options", orderedQuestions).
		First(&test, testID).Error
	if err != nil {
		return nil, translate(err, "test", testID)
	}
	return &test, nil
}

func (r *CatalogRepository) ListPublishedTests(ctx context.Context) ([]models.Test, error) {
	var tests []models.Test
	if err := r.DB.WithContext(ctx).
		Where("is_published = ?", true).
		Order("created_at DESC").
		Find(&tests).Error; err != nil {
		return nil, fmt.Errorf("list published tests: %w", err)
	}
	return tests, nil
}

func (r *CatalogRepository) CreateTest(ctx context.Context, test *models.Test) error {
	if err := r.DB.WithContext(ctx).Create(test).Error; err != nil {
		return fmt.Errorf("create test: %w", err)
	}
	return nil
}

func (r *CatalogRepository) SaveTest(ctx context.Context, test *models.Test) error {
	if err := r.DB.WithContext(ctx).Omit("Questions").Save(test).Error; err != nil {
		return fmt.Errorf("save test %d: %w", test.ID, err)
	}
	return nil
}

// AddQuestion appends a question (with its options) after the test's last one.
func (r *CatalogRepository) AddQuestion(ctx context.Context, question *models.TestQuestion) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.TestQuestion{}).
			Where("test_id = ?", question.TestID).
			Count(&count).Error; err != nil {
			return err
		}
		question.SequenceOrder = int(count) + 1
		for i := range question.Options {
			question.Options[i].SequenceOrder = i + 1
		}
		if err := tx.Create(question).Error; err != nil {
			return fmt.Errorf("create question: %w", err)
		}
		return nil
	})
}
