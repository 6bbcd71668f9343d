package progression

import (
	"math"

	"github.com/and161185/sakhatype/internal/model"
)

// ApplyResult folds one result into a user's aggregates and returns the updated copy.
// Best scores and counters never decrease; Level is recomputed, never carried over.
func ApplyResult(u model.User, r model.TestResult) model.User {
	u.TotalTests++
	u.TotalTimeSeconds += r.TestDuration
	u.BestWPM = math.Max(u.BestWPM, r.WPM)
	u.BestAccuracy = math.Max(u.BestAccuracy, r.Accuracy)
	u.TotalExperience += ExperienceGain(r.WPM, r.Accuracy)
	u.Level = Level(u.TotalExperience)
	return u
}
