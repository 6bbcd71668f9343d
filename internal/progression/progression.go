// Package progression turns recorded typing results into experience, levels and user aggregates.
package progression

import "math"

// ExperiencePerLevel is the amount of experience separating two levels.
const ExperiencePerLevel = 1000

// ExperienceGain returns floor(wpm + accuracy). Inputs are validated non-negative by callers.
func ExperienceGain(wpm, accuracy float64) int {
	return int(math.Floor(wpm + accuracy))
}

// Level derives the level from total experience: 1 + floor(xp / 1000).
func Level(totalExperience int) int {
	if totalExperience < 0 {
		return 1
	}
	return 1 + totalExperience/ExperiencePerLevel
}
