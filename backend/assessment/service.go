package assessment

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"philosofium/backend/models"
)

const DefaultSubmitGrace = time.Minute

// Service runs the attempt lifecycle: start, resume, submit, abandon.
type Service struct {
	catalog   Catalog
	store     AttemptStore
	clock     Clock
	checker   *Checker
	presenter *Presenter
	logger    *log.Logger
	grace     time.Duration
}

type Option func(*Service)

func WithClock(clock Clock) Option {
	return func(s *Service) { s.clock = clock }
}

func WithRandom(random RandomSource) Option {
	return func(s *Service) { s.presenter.random = random }
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithSubmitGrace sets how long after the time limit a submission is still accepted.
func WithSubmitGrace(grace time.Duration) Option {
	return func(s *Service) { s.grace = grace }
}

func NewService(catalog Catalog, store AttemptStore, opts ...Option) *Service {
	s := &Service{
		catalog:   catalog,
		store:     store,
		clock:     SystemClock,
		presenter: NewPresenter(catalog, store, nil, nil),
		logger:    log.New(io.Discard, "", 0),
		grace:     DefaultSubmitGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.checker = NewChecker(catalog, store, s.clock)
	s.presenter.clock = s.clock
	return s
}

func (s *Service) CanAttempt(ctx context.Context, testID, userID uint) (Eligibility, error) {
	return s.checker.CanAttempt(ctx, testID, userID)
}

func (s *Service) Present(ctx context.Context, testID, userID uint) ([]PresentedQuestion, error) {
	return s.presenter.Present(ctx, testID, userID)
}

// Start opens a new attempt. Eligibility is decided again inside the store
// transaction; losing a concurrent race is reported as ineligible.
func (s *Service) Start(ctx context.Context, userID, testID uint) (*models.TestAttempt, error) {
	test, err := s.catalog.GetTestDefinition(ctx, testID)
	if err != nil {
		return nil, err
	}

	var created *models.TestAttempt
	err = s.store.Transact(ctx, func(tx AttemptStore) error {
		attempts, err := tx.FindAttempts(ctx, AttemptFilter{UserID: userID, TestID: testID})
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if elig := Decide(test, attempts, now); !elig.Allowed {
			return Ineligible(elig.Reason)
		}

		active := Begin(userID, test, nextAttemptNumber(attempts), now)
		if err := tx.CreateAttempt(ctx, active.Attempt()); err != nil {
			return err
		}
		created = active.Attempt()
		return nil
	})
	if errors.Is(err, ErrConflict) {
		if elig, cerr := s.checker.CanAttempt(ctx, testID, userID); cerr == nil && !elig.Allowed {
			return nil, Ineligible(elig.Reason)
		}
		return nil, Ineligible(ReasonInProgress)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Printf("attempt %d started: user=%d test=%d number=%d total_points=%d",
		created.ID, userID, testID, created.AttemptNumber, created.TotalPoints)
	return created, nil
}

// ActiveSession returns the user's in-progress attempt for a test, or nil.
func (s *Service) ActiveSession(ctx context.Context, userID, testID uint) (*models.TestAttempt, error) {
	attempts, err := s.store.FindAttempts(ctx, AttemptFilter{
		UserID:   userID,
		TestID:   testID,
		Statuses: []models.AttemptStatus{models.StatusInProgress},
	})
	if err != nil {
		return nil, err
	}
	if len(attempts) == 0 {
		return nil, nil
	}
	return &attempts[0], nil
}

// Attempt loads a single attempt without its answers.
func (s *Service) Attempt(ctx context.Context, attemptID uint) (*models.TestAttempt, error) {
	return s.store.GetAttempt(ctx, attemptID)
}

// Submit scores the answers and completes the attempt. Answers and the
// attempt update are written in one transaction. A submission past the
// deadline abandons the attempt instead.
func (s *Service) Submit(ctx context.Context, attemptID uint, answers []SubmittedAnswer) (*models.TestAttempt, error) {
	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if _, err := Resume(attempt); err != nil {
		return nil, err
	}
	test, err := s.catalog.GetTestDefinition(ctx, attempt.TestID)
	if err != nil {
		return nil, err
	}
	if err := validateAnswers(test, answers); err != nil {
		return nil, err
	}

	var (
		completed *models.TestAttempt
		late      bool
	)
	err = s.store.Transact(ctx, func(tx AttemptStore) error {
		current, err := tx.GetAttempt(ctx, attemptID)
		if err != nil {
			return err
		}
		active, err := Resume(current)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if deadline, ok := active.Deadline(s.grace); ok && now.After(deadline) {
			late = true
			return tx.UpdateAttempt(ctx, active.Abandon(), models.StatusInProgress)
		}

		result := Score(current, test, answers)
		done := active.Complete(result, now)
		if err := tx.UpdateAttempt(ctx, done, models.StatusInProgress); err != nil {
			return err
		}
		rows := answerRows(done.ID, result.Answers, now)
		if err := tx.CreateAnswers(ctx, rows); err != nil {
			return err
		}
		done.Answers = rows
		completed = done
		return nil
	})
	if errors.Is(err, ErrConflict) {
		return nil, Invalid(ReasonNotInProgress)
	}
	if err != nil {
		return nil, err
	}
	if late {
		s.logger.Printf("attempt %d abandoned: submitted after time limit", attemptID)
		return nil, Invalid(ReasonTimeLimit)
	}

	s.logger.Printf("attempt %d completed: earned=%d/%d passed=%t",
		completed.ID, completed.EarnedPoints, completed.TotalPoints, completed.IsPassed)
	return completed, nil
}

// Abandon moves an in-progress attempt to Abandoned.
func (s *Service) Abandon(ctx context.Context, attemptID uint) (*models.TestAttempt, error) {
	var abandoned *models.TestAttempt
	err := s.store.Transact(ctx, func(tx AttemptStore) error {
		current, err := tx.GetAttempt(ctx, attemptID)
		if err != nil {
			return err
		}
		active, err := Resume(current)
		if err != nil {
			return err
		}
		abandoned = active.Abandon()
		return tx.UpdateAttempt(ctx, abandoned, models.StatusInProgress)
	})
	if errors.Is(err, ErrConflict) {
		return nil, Invalid(ReasonNotInProgress)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Printf("attempt %d abandoned", attemptID)
	return abandoned, nil
}

// AbandonExpired abandons every in-progress attempt whose deadline has
// passed and returns how many were moved. It is meant to be driven by an
// external scheduler.
func (s *Service) AbandonExpired(ctx context.Context) (int, error) {
	open, err := s.store.FindAttempts(ctx, AttemptFilter{
		Statuses: []models.AttemptStatus{models.StatusInProgress},
	})
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	swept := 0
	for i := range open {
		active, err := Resume(&open[i])
		if err != nil {
			continue
		}
		deadline, ok := active.Deadline(s.grace)
		if !ok || !now.After(deadline) {
			continue
		}
		err = s.store.Transact(ctx, func(tx AttemptStore) error {
			return tx.UpdateAttempt(ctx, active.Abandon(), models.StatusInProgress)
		})
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return swept, err
		}
		swept++
	}
	if swept > 0 {
		s.logger.Printf("abandoned %d expired attempts", swept)
	}
	return swept, nil
}

// AttemptResult is the learner-facing view of an attempt. CorrectOptions maps
// question id to its correct option id and is only filled when the test shows
// results immediately.
type AttemptResult struct {
	Attempt        *models.TestAttempt `json:"attempt"`
	Answers        []models.TestAnswer `json:"answers"`
	CorrectOptions map[uint]uint       `json:"correct_options,omitempty"`
}

// Result returns userID's own attempt. Attempts of other users are reported
// as not found.
func (s *Service) Result(ctx context.Context, attemptID, userID uint) (*AttemptResult, error) {
	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, NotFound("attempt", attemptID)
	}

	res := &AttemptResult{Attempt: attempt}
	if attempt.Status != models.StatusCompleted {
		return res, nil
	}

	answers, err := s.store.FindAnswers(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	test, err := s.catalog.GetTestDefinition(ctx, attempt.TestID)
	if err != nil {
		return nil, err
	}

	if !test.ShowResultsImmediately {
		for i := range answers {
			answers[i].IsCorrect = nil
			answers[i].PointsEarned = 0
		}
		res.Answers = answers
		return res, nil
	}

	res.Answers = answers
	res.CorrectOptions = make(map[uint]uint)
	for _, q := range test.Questions {
		for _, o := range q.Options {
			if o.IsCorrect {
				res.CorrectOptions[q.ID] = o.ID
				break
			}
		}
	}
	return res, nil
}

// History lists a user's attempts, newest first.
func (s *Service) History(ctx context.Context, userID uint, page, pageSize int) ([]models.TestAttempt, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	filter := AttemptFilter{UserID: userID}
	total, err := s.store.CountAttempts(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize
	attempts, err := s.store.FindAttempts(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

// AvailableTests lists published tests whose availability window is open now.
func (s *Service) AvailableTests(ctx context.Context) ([]models.Test, error) {
	tests, err := s.catalog.ListPublishedTests(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	open := tests[:0]
	for _, t := range tests {
		if _, ok := checkAvailability(&t, now); ok {
			open = append(open, t)
		}
	}
	return open, nil
}

// Statistics summarizes the completed attempts of a test.
func (s *Service) Statistics(ctx context.Context, testID uint) (Statistics, error) {
	if _, err := s.catalog.GetTestDefinition(ctx, testID); err != nil {
		return Statistics{}, err
	}
	attempts, err := s.store.FindAttempts(ctx, AttemptFilter{
		TestID:   testID,
		Statuses: []models.AttemptStatus{models.StatusCompleted},
	})
	if err != nil {
		return Statistics{}, err
	}
	return Summarize(attempts), nil
}
