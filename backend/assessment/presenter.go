package assessment

import (
	"context"

	"philosofium/backend/models"
)

// PresentedOption deliberately has no correctness field.
type PresentedOption struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

type PresentedQuestion struct {
	ID       uint                `json:"id"`
	Type     models.QuestionType `json:"type"`
	Question string              `json:"question"`
	Points   int                 `json:"points"`
	Options  []PresentedOption   `json:"options,omitempty"`
}

type Presenter struct {
	catalog Catalog
	store   AttemptStore
	clock   Clock
	random  RandomSource
}

func NewPresenter(catalog Catalog, store AttemptStore, clock Clock, random RandomSource) *Presenter {
	if clock == nil {
		clock = SystemClock
	}
	if random == nil {
		random = GlobalRandom
	}
	return &Presenter{catalog: catalog, store: store, clock: clock, random: random}
}

// Present returns the questions of a test for a user who may take it. A user
// holding an in-progress attempt only needs the test to be open; everyone
// else must pass the full eligibility check.
func (p *Presenter) Present(ctx context.Context, testID, userID uint) ([]PresentedQuestion, error) {
	test, err := p.catalog.GetTestDefinition(ctx, testID)
	if err != nil {
		return nil, err
	}
	attempts, err := p.store.FindAttempts(ctx, AttemptFilter{UserID: userID, TestID: testID})
	if err != nil {
		return nil, err
	}

	now := p.clock.Now()
	elig := Decide(test, attempts, now)
	if _, active := findActive(attempts); active {
		elig, _ = checkAvailability(test, now)
	}
	if !elig.Allowed {
		return nil, Ineligible(elig.Reason)
	}

	return presentQuestions(test, p.random), nil
}

func presentQuestions(test *models.Test, random RandomSource) []PresentedQuestion {
	out := make([]PresentedQuestion, 0, len(test.Questions))
	for _, q := range test.Questions {
		pq := PresentedQuestion{
			ID:       q.ID,
			Type:     q.Type,
			Question: q.Question,
			Points:   q.Points,
		}
		for _, o := range q.Options {
			pq.Options = append(pq.Options, PresentedOption{ID: o.ID, Text: o.Text})
		}
		if test.ShuffleOptions {
			Shuffle(pq.Options, random)
		}
		out = append(out, pq)
	}
	if test.ShuffleQuestions {
		Shuffle(out, random)
	}
	return out
}

// Shuffle permutes items in place with Fisher-Yates.
func Shuffle[T any](items []T, random RandomSource) {
	for i := len(items) - 1; i > 0; i-- {
		j := random.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
