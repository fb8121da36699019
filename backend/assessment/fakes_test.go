package assessment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"philosofium/backend/models"
)

type memCatalog struct {
	tests map[uint]*models.Test
}

func newMemCatalog(tests ...*models.Test) *memCatalog {
	c := &memCatalog{tests: map[uint]*models.Test{}}
	for _, t := range tests {
		c.tests[t.ID] = t
	}
	return c
}

func (c *memCatalog) GetTestDefinition(_ context.Context, id uint) (*models.Test, error) {
	t, ok := c.tests[id]
	if !ok {
		return nil, NotFound("test", id)
	}
	cp := *t
	return &cp, nil
}

func (c *memCatalog) ListPublishedTests(_ context.Context) ([]models.Test, error) {
	var out []models.Test
	for _, t := range c.tests {
		if t.IsPublished {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memData struct {
	attempts    map[uint]models.TestAttempt
	answers     []models.TestAnswer
	nextAttempt uint
	nextAnswer  uint
}

func (d *memData) clone() *memData {
	cp := &memData{
		attempts:    make(map[uint]models.TestAttempt, len(d.attempts)),
		answers:     append([]models.TestAnswer(nil), d.answers...),
		nextAttempt: d.nextAttempt,
		nextAnswer:  d.nextAnswer,
	}
	for k, v := range d.attempts {
		cp.attempts[k] = v
	}
	return cp
}

// memStore is an AttemptStore whose transactions are fully serialized.
type memStore struct {
	mu   sync.Mutex
	data *memData

	failAnswers error
}

func newMemStore() *memStore {
	return &memStore{data: &memData{attempts: map[uint]models.TestAttempt{}}}
}

func (s *memStore) tx() *memTx { return &memTx{store: s} }

func (s *memStore) Transact(ctx context.Context, fn func(tx AttemptStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	if err := fn(s.tx()); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *memStore) CreateAttempt(ctx context.Context, a *models.TestAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx().CreateAttempt(ctx, a)
}

func (s *memStore) UpdateAttempt(ctx context.Context, a *models.TestAttempt, from models.AttemptStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx().UpdateAttempt(ctx, a, from)
}

func (s *memStore) GetAttempt(ctx context.Context, id uint) (*models.TestAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx().GetAttempt(ctx, id)
}

func (s *memStore) FindAttempts(ctx context.Context, f AttemptFilter) ([]models.TestAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx().FindAttempts(ctx, f)
}

func (s *memStore) CountAttempts(ctx context.Context, f AttemptFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx().CountAttempts(ctx, f)
}

func (s *memStore) CreateAnswers(ctx context.Context, answers []models.TestAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx().CreateAnswers(ctx, answers)
}

func (s *memStore) FindAnswers(ctx context.Context, attemptID uint) ([]models.TestAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx().FindAnswers(ctx, attemptID)
}

// memTx operates on the store's data while the caller holds the lock.
type memTx struct {
	store *memStore
}

func (t *memTx) d() *memData { return t.store.data }

func (t *memTx) Transact(ctx context.Context, fn func(tx AttemptStore) error) error {
	return errors.New("nested transaction")
}

func (t *memTx) CreateAttempt(_ context.Context, a *models.TestAttempt) error {
	for _, existing := range t.d().attempts {
		if a.Status == models.StatusInProgress && existing.UserID == a.UserID && existing.TestID == a.TestID && existing.Status == models.StatusInProgress {
			return ErrConflict
		}
	}
	t.d().nextAttempt++
	a.ID = t.d().nextAttempt
	t.d().attempts[a.ID] = *a
	return nil
}

func (t *memTx) UpdateAttempt(_ context.Context, a *models.TestAttempt, from models.AttemptStatus) error {
	current, ok := t.d().attempts[a.ID]
	if !ok || current.Status != from {
		return ErrConflict
	}
	stored := *a
	stored.Answers = nil
	t.d().attempts[a.ID] = stored
	return nil
}

func (t *memTx) GetAttempt(_ context.Context, id uint) (*models.TestAttempt, error) {
	a, ok := t.d().attempts[id]
	if !ok {
		return nil, NotFound("attempt", id)
	}
	return &a, nil
}

func (t *memTx) match(a models.TestAttempt, f AttemptFilter) bool {
	if f.UserID != 0 && a.UserID != f.UserID {
		return false
	}
	if f.TestID != 0 && a.TestID != f.TestID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, st := range f.Statuses {
		if a.Status == st {
			return true
		}
	}
	return false
}

func (t *memTx) FindAttempts(_ context.Context, f AttemptFilter) ([]models.TestAttempt, error) {
	var out []models.TestAttempt
	for _, a := range t.d().attempts {
		if t.match(a, f) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *memTx) CountAttempts(ctx context.Context, f AttemptFilter) (int64, error) {
	f.Limit, f.Offset = 0, 0
	all, _ := t.FindAttempts(ctx, f)
	return int64(len(all)), nil
}

func (t *memTx) CreateAnswers(_ context.Context, answers []models.TestAnswer) error {
	if t.store.failAnswers != nil {
		return t.store.failAnswers
	}
	for i := range answers {
		t.d().nextAnswer++
		answers[i].ID = t.d().nextAnswer
		t.d().answers = append(t.d().answers, answers[i])
	}
	return nil
}

func (t *memTx) FindAnswers(_ context.Context, attemptID uint) ([]models.TestAnswer, error) {
	var out []models.TestAnswer
	for _, a := range t.d().answers {
		if a.AttemptID == attemptID {
			out = append(out, a)
		}
	}
	return out, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock { return &testClock{now: now} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var baseTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func intPtr(v int) *int       { return &v }
func uintPtr(v uint) *uint    { return &v }
func strPtr(v string) *string { return &v }

// twoQuestionTest is a published test with two single-choice questions worth
// 10 and 15 points; options 100 and 200 are the correct ones.
func twoQuestionTest() *models.Test {
	return &models.Test{
		Model:        gorm.Model{ID: 1},
		Title:        "Go basics",
		PassingScore: 60,
		IsPublished:  true,
		Questions: []models.TestQuestion{
			{
				Model:  gorm.Model{ID: 10},
				TestID: 1,
				Type:   models.QuestionSingleChoice,
				Points: 10,
				Options: []models.QuestionOption{
					{Model: gorm.Model{ID: 100}, QuestionID: 10, Text: "goroutine", IsCorrect: true},
					{Model: gorm.Model{ID: 101}, QuestionID: 10, Text: "thread"},
				},
			},
			{
				Model:  gorm.Model{ID: 20},
				TestID: 1,
				Type:   models.QuestionSingleChoice,
				Points: 15,
				Options: []models.QuestionOption{
					{Model: gorm.Model{ID: 200}, QuestionID: 20, Text: "chan", IsCorrect: true},
					{Model: gorm.Model{ID: 201}, QuestionID: 20, Text: "mutex"},
					{Model: gorm.Model{ID: 202}, QuestionID: 20, Text: "atomic"},
				},
			},
		},
	}
}
