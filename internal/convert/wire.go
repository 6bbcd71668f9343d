// Package convert maps domain models to and from the JSON wire format of the HTTP API.
package convert

import (
	"time"

	"github.com/and161185/sakhatype/internal/model"
)

// Credentials is the register/login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Token is the auth response body.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Username    string    `json:"username"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// User never carries the password hash.
type User struct {
	Username         string    `json:"username"`
	TotalTests       int       `json:"total_tests"`
	TotalTimeSeconds int       `json:"total_time_seconds"`
	BestWPM          float64   `json:"best_wpm"`
	BestAccuracy     float64   `json:"best_accuracy"`
	TotalExperience  int       `json:"total_experience"`
	Level            int       `json:"level"`
	CreatedAt        time.Time `json:"created_at"`
}

// Submission is the result request body. Presence of required fields is checked
// before decoding, so a missing consistency decodes as 0.
type Submission struct {
	WPM          float64 `json:"wpm"`
	RawWPM       float64 `json:"raw_wpm"`
	Accuracy     float64 `json:"accuracy"`
	BurstWPM     float64 `json:"burst_wpm"`
	TotalErrors  int     `json:"total_errors"`
	TimeMode     int     `json:"time_mode"`
	TestDuration int     `json:"test_duration"`
	Consistency  float64 `json:"consistency"`
}

type TestResult struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	WPM          float64   `json:"wpm"`
	RawWPM       float64   `json:"raw_wpm"`
	Accuracy     float64   `json:"accuracy"`
	BurstWPM     float64   `json:"burst_wpm"`
	TotalErrors  int       `json:"total_errors"`
	TimeMode     int       `json:"time_mode"`
	TestDuration int       `json:"test_duration"`
	Consistency  float64   `json:"consistency"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserRanking struct {
	Username     string  `json:"username"`
	BestWPM      float64 `json:"best_wpm"`
	BestAccuracy float64 `json:"best_accuracy"`
	TotalTests   int     `json:"total_tests"`
	Level        int     `json:"level"`
}

type ModeRanking struct {
	Username    string    `json:"username"`
	WPM         float64   `json:"wpm"`
	Accuracy    float64   `json:"accuracy"`
	Raw         float64   `json:"raw"`
	Consistency float64   `json:"consistency"`
	Date        time.Time `json:"date"`
	Level       int       `json:"level"`
}

type WeeklyXPRanking struct {
	Username     string    `json:"username"`
	XPGained     float64   `json:"xp_gained"`
	TimeTyped    int64     `json:"time_typed"`
	LastActivity time.Time `json:"last_activity"`
	Level        int       `json:"level"`
}

// ToToken wraps issued tokens as a bearer token response.
func ToToken(t model.Tokens) Token {
	return Token{AccessToken: t.AccessToken, TokenType: "bearer", Username: t.Username, ExpiresAt: t.ExpiresAt}
}

// ToUser drops the password hash.
func ToUser(u *model.User) User {
	return User{
		Username:         u.Username,
		TotalTests:       u.TotalTests,
		TotalTimeSeconds: u.TotalTimeSeconds,
		BestWPM:          u.BestWPM,
		BestAccuracy:     u.BestAccuracy,
		TotalExperience:  u.TotalExperience,
		Level:            u.Level,
		CreatedAt:        u.CreatedAt,
	}
}

func FromSubmission(in Submission) model.Submission {
	return model.Submission(in)
}

func ToTestResult(r model.TestResult) TestResult {
	return TestResult{
		ID:           r.ID,
		Username:     r.Username,
		WPM:          r.WPM,
		RawWPM:       r.RawWPM,
		Accuracy:     r.Accuracy,
		BurstWPM:     r.BurstWPM,
		TotalErrors:  r.TotalErrors,
		TimeMode:     r.TimeMode,
		TestDuration: r.TestDuration,
		Consistency:  r.Consistency,
		CreatedAt:    r.CreatedAt,
	}
}

func ToTestResults(in []model.TestResult) []TestResult {
	return mapSlice(in, ToTestResult)
}

func ToUserRankings(in []model.UserRanking) []UserRanking {
	return mapSlice(in, func(r model.UserRanking) UserRanking {
		return UserRanking(r)
	})
}

func ToModeRankings(in []model.ModeRanking) []ModeRanking {
	return mapSlice(in, func(r model.ModeRanking) ModeRanking {
		return ModeRanking{
			Username:    r.Username,
			WPM:         r.WPM,
			Accuracy:    r.Accuracy,
			Raw:         r.RawWPM,
			Consistency: r.Consistency,
			Date:        r.Date,
			Level:       r.Level,
		}
	})
}

func ToWeeklyXPRankings(in []model.WeeklyXPRanking) []WeeklyXPRanking {
	return mapSlice(in, func(r model.WeeklyXPRanking) WeeklyXPRanking {
		return WeeklyXPRanking(r)
	})
}

// mapSlice never returns nil so empty lists encode as [].
func mapSlice[In, Out any](in []In, f func(In) Out) []Out {
	out := make([]Out, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
