package assessment

import (
	"context"
	"fmt"
	"time"

	"philosofium/backend/models"
)

const (
	ReasonNotPublished    = "Test is not published."
	ReasonNotYetAvailable = "Test is not yet available."
	ReasonNoLonger        = "Test is no longer available."
	ReasonInProgress      = "Test is already in progress."
	ReasonNotInProgress   = "Test is not in progress."
	ReasonTimeLimit       = "Time limit exceeded."
)

func reasonMaxAttempts(n int) string {
	return fmt.Sprintf("Maximum attempts (%d) exceeded.", n)
}

type Eligibility struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func deny(reason string) Eligibility {
	return Eligibility{Reason: reason}
}

// Decide applies the admission rules in order and stops at the first
// failure. attempts must be the user's attempts for test.
func Decide(test *models.Test, attempts []models.TestAttempt, now time.Time) Eligibility {
	if e, ok := checkAvailability(test, now); !ok {
		return e
	}

	if test.MaxAttempts != nil {
		used := 0
		for _, a := range attempts {
			if a.Status == models.StatusCompleted || a.Status == models.StatusInProgress {
				used++
			}
		}
		if used >= *test.MaxAttempts {
			return deny(reasonMaxAttempts(*test.MaxAttempts))
		}
	}

	if _, ok := findActive(attempts); ok {
		return deny(ReasonInProgress)
	}
	return Eligibility{Allowed: true}
}

func checkAvailability(test *models.Test, now time.Time) (Eligibility, bool) {
	switch {
	case !test.IsPublished:
		return deny(ReasonNotPublished), false
	case test.AvailableFrom != nil && now.Before(*test.AvailableFrom):
		return deny(ReasonNotYetAvailable), false
	case test.AvailableUntil != nil && now.After(*test.AvailableUntil):
		return deny(ReasonNoLonger), false
	}
	return Eligibility{Allowed: true}, true
}

func findActive(attempts []models.TestAttempt) (*models.TestAttempt, bool) {
	for i := range attempts {
		if attempts[i].Status == models.StatusInProgress {
			return &attempts[i], true
		}
	}
	return nil, false
}

func nextAttemptNumber(attempts []models.TestAttempt) int {
	resolved := 0
	for _, a := range attempts {
		if a.Status.Resolved() {
			resolved++
		}
	}
	return resolved + 1
}

// Checker answers "may this user start this test now" from the catalog and
// the attempt store. It never writes.
type Checker struct {
	catalog Catalog
	store   AttemptStore
	clock   Clock
}

func NewChecker(catalog Catalog, store AttemptStore, clock Clock) *Checker {
	if clock == nil {
		clock = SystemClock
	}
	return &Checker{catalog: catalog, store: store, clock: clock}
}

func (c *Checker) CanAttempt(ctx context.Context, testID, userID uint) (Eligibility, error) {
	test, err := c.catalog.GetTestDefinition(ctx, testID)
	if err != nil {
		return Eligibility{}, err
	}
	attempts, err := c.store.FindAttempts(ctx, AttemptFilter{UserID: userID, TestID: testID})
	if err != nil {
		return Eligibility{}, err
	}
	return Decide(test, attempts, c.clock.Now()), nil
}
