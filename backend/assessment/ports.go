package assessment

import (
	"context"
	"math/rand/v2"
	"time"

	"philosofium/backend/models"
)

// Catalog is the read side of the test catalog.
type Catalog interface {
	// GetTestDefinition loads a test with its questions and options in
	// sequence order. Unknown ids yield an error wrapping ErrNotFound.
	GetTestDefinition(ctx context.Context, testID uint) (*models.Test, error)
	ListPublishedTests(ctx context.Context) ([]models.Test, error)
}

type AttemptFilter struct {
	UserID   uint
	TestID   uint
	Statuses []models.AttemptStatus
	Limit    int
	Offset   int
}

// AttemptStore persists attempts and answers. Implementations carry no
// business rules; atomicity is provided by Transact.
type AttemptStore interface {
	// Transact runs fn against a store bound to a single transaction.
	// A non-nil error from fn rolls everything back.
	Transact(ctx context.Context, fn func(tx AttemptStore) error) error

	// CreateAttempt inserts a new attempt. Inserting an in-progress attempt
	// fails with ErrConflict when the user already has one for the same test;
	// attempts in other states are never rejected.
	CreateAttempt(ctx context.Context, attempt *models.TestAttempt) error
	// UpdateAttempt saves attempt only if its stored status is still from,
	// otherwise it fails with ErrConflict.
	UpdateAttempt(ctx context.Context, attempt *models.TestAttempt, from models.AttemptStatus) error
	GetAttempt(ctx context.Context, attemptID uint) (*models.TestAttempt, error)
	FindAttempts(ctx context.Context, filter AttemptFilter) ([]models.TestAttempt, error)
	CountAttempts(ctx context.Context, filter AttemptFilter) (int64, error)

	CreateAnswers(ctx context.Context, answers []models.TestAnswer) error
	FindAnswers(ctx context.Context, attemptID uint) ([]models.TestAnswer, error)
}

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// RandomSource yields uniform integers in [0, n). *rand.Rand from
// math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int { return rand.IntN(n) }

// GlobalRandom uses the runtime-seeded, goroutine-safe math/rand/v2 source.
var GlobalRandom RandomSource = globalRandom{}
