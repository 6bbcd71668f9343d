// Package model defines domain entities used by services and repositories.
package model

import "time"

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	Username    string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// User is a registered typist with running aggregates.
// Level is stored for reads only; it is always recomputed from TotalExperience on write.
type User struct {
	Username         string // PK, immutable
	PasswordHash     string // encoded argon2id hash, never returned to clients
	TotalTests       int
	TotalTimeSeconds int
	BestWPM          float64
	BestAccuracy     float64
	TotalExperience  int
	Level            int
	CreatedAt        time.Time
}

// Submission is a client-reported typing session before it is stamped and stored.
type Submission struct {
	WPM          float64
	RawWPM       float64
	Accuracy     float64
	BurstWPM     float64
	TotalErrors  int
	TimeMode     int // seconds-duration category, e.g. 15 or 60
	TestDuration int // seconds actually typed
	Consistency  float64
}

// TestResult is one recorded typing session. Rows are append-only.
type TestResult struct {
	ID           int64 // assigned by the store
	Username     string
	WPM          float64
	RawWPM       float64
	Accuracy     float64
	BurstWPM     float64
	TotalErrors  int
	TimeMode     int
	TestDuration int
	Consistency  float64
	CreatedAt    time.Time
}

// NewTestResult stamps a submission for username at the given time.
func NewTestResult(username string, s Submission, at time.Time) TestResult {
	return TestResult{
		Username:     username,
		WPM:          s.WPM,
		RawWPM:       s.RawWPM,
		Accuracy:     s.Accuracy,
		BurstWPM:     s.BurstWPM,
		TotalErrors:  s.TotalErrors,
		TimeMode:     s.TimeMode,
		TestDuration: s.TestDuration,
		Consistency:  s.Consistency,
		CreatedAt:    at,
	}
}

// Metric selects the user aggregate a global leaderboard ranks by.
type Metric string

const (
	MetricWPM      Metric = "wpm"
	MetricAccuracy Metric = "accuracy"
)

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool { return m == MetricWPM || m == MetricAccuracy }

// UserRanking is a global leaderboard row built from user aggregates.
type UserRanking struct {
	Username     string
	BestWPM      float64
	BestAccuracy float64
	TotalTests   int
	Level        int
}

// ModeRanking is a per-time-mode leaderboard row: the result that achieved a user's best wpm.
type ModeRanking struct {
	Username    string
	WPM         float64
	Accuracy    float64
	RawWPM      float64
	Consistency float64
	Date        time.Time // created_at of the best result
	Level       int
}

// WeeklyXPRanking aggregates a user's results inside the trailing week.
// XPGained is sum(wpm+accuracy) without flooring and need not match TotalExperience.
type WeeklyXPRanking struct {
	Username     string
	XPGained     float64
	TimeTyped    int64
	LastActivity time.Time
	Level        int
}

// Window bounds a created_at range as [From, To). A zero To leaves the end open.
type Window struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether the window imposes no bound at all.
func (w Window) IsZero() bool { return w.From.IsZero() && w.To.IsZero() }

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !t.Before(w.To) {
		return false
	}
	return true
}
