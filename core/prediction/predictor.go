package prediction

import (
	"fmt"

	"github.com/trezcool/darasa/core/attendance"
)

// Predictor computes a prediction from a user's attendance history.
// It must be free of side effects; it may error on invalid input.
type Predictor func(history []attendance.HistoryRecord, lessonID int) (Result, error)

// AttendanceRatio predicts the likelihood of attending lessonID as the share
// of attended lessons in history, or 0.5 when there is no history yet.
func AttendanceRatio(history []attendance.HistoryRecord, lessonID int) (Result, error) {
	probability := 0.5
	if len(history) > 0 {
		var attended int
		for _, rec := range history {
			if rec.Attended {
				attended++
			}
		}
		probability = float64(attended) / float64(len(history))
	}
	return Result{
		Prediction:  fmt.Sprintf("Predicted probability for lesson %d: %.2f", lessonID, probability),
		Probability: probability,
	}, nil
}
