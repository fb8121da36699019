package assessment

import "philosofium/backend/models"

type Statistics struct {
	TotalAttempts    int     `json:"total_attempts"`
	PassedAttempts   int     `json:"passed_attempts"`
	FailedAttempts   int     `json:"failed_attempts"`
	AverageScore     float64 `json:"average_score"`
	AverageTimeSpent float64 `json:"average_time_spent"`
	HighestScore     float64 `json:"highest_score"`
	LowestScore      float64 `json:"lowest_score"`
}

// Summarize aggregates completed attempts; others are ignored. An empty set
// yields the zero Statistics.
func Summarize(attempts []models.TestAttempt) Statistics {
	var st Statistics
	var scoreSum, timeSum float64
	for _, a := range attempts {
		if a.Status != models.StatusCompleted {
			continue
		}
		if st.TotalAttempts == 0 || a.Percentage > st.HighestScore {
			st.HighestScore = a.Percentage
		}
		if st.TotalAttempts == 0 || a.Percentage < st.LowestScore {
			st.LowestScore = a.Percentage
		}
		st.TotalAttempts++
		if a.IsPassed {
			st.PassedAttempts++
		} else {
			st.FailedAttempts++
		}
		scoreSum += a.Percentage
		if a.TimeSpent != nil {
			timeSum += float64(*a.TimeSpent)
		}
	}
	if st.TotalAttempts > 0 {
		st.AverageScore = scoreSum / float64(st.TotalAttempts)
		st.AverageTimeSpent = timeSum / float64(st.TotalAttempts)
	}
	return st
}
