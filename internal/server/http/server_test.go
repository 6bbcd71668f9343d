package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/sakhatype/internal/clock"
	"github.com/and161185/sakhatype/internal/errs"
	"github.com/and161185/sakhatype/internal/limiter"
	"github.com/and161185/sakhatype/internal/model"
	"github.com/and161185/sakhatype/internal/repository/memory"
	"github.com/and161185/sakhatype/internal/service"
)

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

type errPinger struct{ err error }

func (p errPinger) Ping(context.Context) error { return p.err }

type env struct {
	t   *testing.T
	st  *memory.Store
	srv *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWith(t, nil, nil)
}

func newEnvWith(t *testing.T, profile service.ProfileService, ready error) *env {
	t.Helper()
	st := memory.New("күн", "тыл", "сир")
	clk := clock.Fixed(now)
	log := zaptest.NewLogger(t)

	if profile == nil {
		profile = service.NewProfileService(st)
	}
	s := New(
		service.NewAuthService(st, []byte("test-key"), time.Hour, limiter.Nop{}, clk),
		service.NewResultService(st, nil, clk, log),
		service.NewLeaderboardService(st, nil, clk),
		profile,
		service.NewWordService(st),
		errPinger{err: ready},
		log,
		Options{Limits: Limits{Leaderboard: 100, History: 50, Words: 2}},
	)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &env{t: t, st: st, srv: srv}
}

func (e *env) do(method, path, token, body string) (*http.Response, []byte) {
	e.t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(e.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp, out
}

func (e *env) register(name, password string) string {
	e.t.Helper()
	resp, body := e.do(http.MethodPost, "/api/auth/register", "",
		fmt.Sprintf(`{"username":%q,"password":%q}`, name, password))
	require.Equal(e.t, http.StatusOK, resp.StatusCode, string(body))
	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		Username    string `json:"username"`
	}
	require.NoError(e.t, json.Unmarshal(body, &tok))
	require.Equal(e.t, "bearer", tok.TokenType)
	require.Equal(e.t, name, tok.Username)
	return tok.AccessToken
}

func (e *env) submit(token string, mode int, wpm, acc float64) {
	e.t.Helper()
	body := fmt.Sprintf(`{"wpm":%v,"raw_wpm":%v,"accuracy":%v,"burst_wpm":%v,"total_errors":1,"time_mode":%d,"test_duration":%d}`,
		wpm, wpm+1, acc, wpm+10, mode, mode)
	resp, out := e.do(http.MethodPost, "/api/results", token, body)
	require.Equal(e.t, http.StatusOK, resp.StatusCode, string(out))
}

func detailOf(t *testing.T, body []byte) string {
	t.Helper()
	var d struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(body, &d), string(body))
	return d.Detail
}

func TestHTTP_RegisterAndMe(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	tok := e.register("alice", "pw")

	resp, body := e.do(http.MethodGet, "/api/users/me", tok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var u map[string]any
	require.NoError(t, json.Unmarshal(body, &u))
	require.Equal(t, "alice", u["username"])
	require.Equal(t, 1.0, u["level"])
	require.NotContains(t, u, "password_hash")

	resp, body = e.do(http.MethodGet, "/api/users/me", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
	require.NotEmpty(t, detailOf(t, body))

	resp, _ = e.do(http.MethodGet, "/api/users/me", "garbage", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = e.do(http.MethodPost, "/api/auth/register", "", `{"username":"alice","password":"x"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "username already registered", detailOf(t, body))

	resp, _ = e.do(http.MethodPost, "/api/auth/register", "", `{"username":"","password":"x"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(http.MethodPost, "/api/auth/register", "", `{not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTP_Login_JSONAndForm(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.register("bob", "secret")

	resp, body := e.do(http.MethodPost, "/api/auth/login", "", `{"username":"bob","password":"secret"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	form := url.Values{"username": {"bob"}, "password": {"secret"}}
	resp, err := http.PostForm(e.srv.URL+"/api/auth/login", form)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	form.Set("password", "wrong")
	resp, err = http.PostForm(e.srv.URL+"/api/auth/login", form)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(http.MethodPost, "/api/auth/login", "", `{"username":"nobody","password":"secret"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTP_RecordResult_UpdatesProfileAndHistory(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	tok := e.register("alice", "pw")

	resp, body := e.do(http.MethodPost, "/api/results", tok,
		`{"wpm":62.4,"raw_wpm":65,"accuracy":96.9,"burst_wpm":80,"total_errors":3,"time_mode":60,"test_duration":60}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res map[string]any
	require.NoError(t, json.Unmarshal(body, &res))
	require.Equal(t, "alice", res["username"])
	require.Equal(t, 1.0, res["id"])
	require.Equal(t, 0.0, res["consistency"])
	require.Equal(t, "2026-10-17T12:00:00Z", res["created_at"])

	resp, body = e.do(http.MethodGet, "/api/profile/alice", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var u map[string]any
	require.NoError(t, json.Unmarshal(body, &u))
	require.Equal(t, 1.0, u["total_tests"])
	require.Equal(t, 159.0, u["total_experience"])
	require.Equal(t, 60.0, u["total_time_seconds"])

	resp, body = e.do(http.MethodGet, "/api/results/user/alice", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var hist []map[string]any
	require.NoError(t, json.Unmarshal(body, &hist))
	require.Len(t, hist, 1)

	resp, body = e.do(http.MethodGet, "/api/results/user/nobody", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `[]`, string(body))
}

func TestHTTP_RecordResult_Rejects(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	tok := e.register("alice", "pw")

	resp, _ := e.do(http.MethodPost, "/api/results", "", `{"wpm":1}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := e.do(http.MethodPost, "/api/results", tok,
		`{"wpm":62.4,"raw_wpm":65,"accuracy":96.9,"burst_wpm":80,"total_errors":3,"test_duration":60}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, detailOf(t, body), "time_mode")

	resp, _ = e.do(http.MethodPost, "/api/results", tok,
		`{"wpm":62.4,"raw_wpm":65,"accuracy":96.9,"burst_wpm":80,"total_errors":3,"time_mode":45,"test_duration":45}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	u, err := e.st.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Zero(t, u.TotalTests)
}

func TestHTTP_RecordResult_BodyChecks(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	tok := e.register("alice", "pw")

	cases := map[string]struct {
		body   string
		detail string
	}{
		"empty body":      {body: ``, detail: "malformed body"},
		"not an object":   {body: `[1,2]`, detail: "object"},
		"negative wpm":    {body: `{"wpm":-1,"raw_wpm":65,"accuracy":96.9,"burst_wpm":80,"total_errors":3,"time_mode":60,"test_duration":60}`, detail: "wpm"},
		"string accuracy": {body: `{"wpm":62,"raw_wpm":65,"accuracy":"high","burst_wpm":80,"total_errors":3,"time_mode":60,"test_duration":60}`, detail: "accuracy"},
		"fractional mode": {body: `{"wpm":62,"raw_wpm":65,"accuracy":96,"burst_wpm":80,"total_errors":3,"time_mode":60.5,"test_duration":60}`, detail: "time_mode"},
		"negative errors": {body: `{"wpm":62,"raw_wpm":65,"accuracy":96,"burst_wpm":80,"total_errors":-2,"time_mode":60,"test_duration":60}`, detail: "total_errors"},
	}
	for name, tc := range cases {
		resp, body := e.do(http.MethodPost, "/api/results", tok, tc.body)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, name)
		require.Contains(t, detailOf(t, body), tc.detail, name)
	}

	resp, body := e.do(http.MethodPost, "/api/results", tok,
		`{"wpm":62,"raw_wpm":65,"accuracy":96,"burst_wpm":80,"total_errors":0,"time_mode":15,"test_duration":15}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	u, err := e.st.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, 1, u.TotalTests)
}

func TestHTTP_RecordResult_ConfiguredTimeModes(t *testing.T) {
	t.Parallel()
	st := memory.New()
	clk := clock.Fixed(now)
	log := zaptest.NewLogger(t)
	modes := service.TimeModes{10, 45}
	s := New(
		service.NewAuthService(st, []byte("test-key"), time.Hour, limiter.Nop{}, clk),
		service.NewResultService(st, modes, clk, log),
		service.NewLeaderboardService(st, modes, clk),
		service.NewProfileService(st),
		service.NewWordService(st),
		errPinger{},
		log,
		Options{TimeModes: modes},
	)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	e := &env{t: t, st: st, srv: srv}
	tok := e.register("alice", "pw")

	resp, body := e.do(http.MethodPost, "/api/results", tok,
		`{"wpm":62,"raw_wpm":65,"accuracy":96,"burst_wpm":80,"total_errors":0,"time_mode":60,"test_duration":60}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, detailOf(t, body), "time_mode")

	resp, body = e.do(http.MethodPost, "/api/results", tok,
		`{"wpm":62,"raw_wpm":65,"accuracy":96,"burst_wpm":80,"total_errors":0,"time_mode":45,"test_duration":45}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestHTTP_Login_FormMissingPassword(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.register("bob", "secret")

	resp, err := http.PostForm(e.srv.URL+"/api/auth/login", url.Values{"username": {"bob"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, detailOf(t, body), "password")

	resp2, body2 := e.do(http.MethodPost, "/api/auth/login", "", `{"username":"bob","password":7}`)
	require.Equal(t, http.StatusBadRequest, resp2.StatusCode)
	require.Contains(t, detailOf(t, body2), "password")
}

func TestHTTP_Leaderboards(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	a := e.register("a", "pw")
	b := e.register("b", "pw")
	c := e.register("c", "pw")
	e.submit(a, 60, 80, 90)
	e.submit(b, 60, 95, 91)
	e.submit(c, 30, 60, 99)

	resp, body := e.do(http.MethodGet, "/api/leaderboard/wpm?limit=2", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var global []struct {
		Username string  `json:"username"`
		BestWPM  float64 `json:"best_wpm"`
	}
	require.NoError(t, json.Unmarshal(body, &global))
	require.Len(t, global, 2)
	require.Equal(t, "b", global[0].Username)
	require.Equal(t, "a", global[1].Username)

	resp, body = e.do(http.MethodGet, "/api/leaderboard/accuracy", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &global))
	require.Equal(t, "c", global[0].Username)

	resp, body = e.do(http.MethodGet, "/api/leaderboard/time-mode/60", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var modes []map[string]any
	require.NoError(t, json.Unmarshal(body, &modes))
	require.Len(t, modes, 2)
	require.Equal(t, 96.0, modes[0]["raw"])

	resp, body = e.do(http.MethodGet, "/api/leaderboard/daily/time-mode/30", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &modes))
	require.Len(t, modes, 1)
	require.Equal(t, "c", modes[0]["username"])

	resp, body = e.do(http.MethodGet, "/api/leaderboard/weekly-xp", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var weekly []map[string]any
	require.NoError(t, json.Unmarshal(body, &weekly))
	require.Len(t, weekly, 3)
	require.Equal(t, "b", weekly[0]["username"])
	require.Equal(t, 186.0, weekly[0]["xp_gained"])
}

func TestHTTP_Leaderboards_BadParams(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	for _, path := range []string{
		"/api/leaderboard/wpm?limit=0",
		"/api/leaderboard/wpm?limit=-1",
		"/api/leaderboard/wpm?limit=ten",
		"/api/leaderboard/time-mode/45",
		"/api/leaderboard/time-mode/sixty",
		"/api/leaderboard/daily/time-mode/45",
		"/api/leaderboard/weekly-xp?limit=0",
		"/api/results/user/alice?limit=0",
		"/api/words?limit=0",
	} {
		resp, body := e.do(http.MethodGet, path, "", "")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
		require.NotEmpty(t, detailOf(t, body), path)
	}

	resp, body := e.do(http.MethodGet, "/api/leaderboard/wpm", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `[]`, string(body))
}

func TestHTTP_ProfileNotFound(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	resp, body := e.do(http.MethodGet, "/api/profile/ghost", "", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "user not found", detailOf(t, body))
}

func TestHTTP_Words_DefaultLimit(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	resp, body := e.do(http.MethodGet, "/api/words", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var words []string
	require.NoError(t, json.Unmarshal(body, &words))
	require.Len(t, words, 2)
}

func TestHTTP_HealthAndReady(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	resp, _ := e.do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.do(http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	down := newEnvWith(t, nil, errors.New("connection refused"))
	resp, _ = down.do(http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

type panicProfile struct{}

func (panicProfile) Profile(context.Context, string) (*model.User, error) { panic("boom") }

type failingProfile struct{ err error }

func (f failingProfile) Profile(context.Context, string) (*model.User, error) { return nil, f.err }

func TestHTTP_PanicAndInternalErrors(t *testing.T) {
	t.Parallel()

	e := newEnvWith(t, panicProfile{}, nil)
	resp, body := e.do(http.MethodGet, "/api/profile/alice", "", "")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "internal server error", detailOf(t, body))

	e = newEnvWith(t, failingProfile{err: errors.New("pq: secret table detail")}, nil)
	resp, body = e.do(http.MethodGet, "/api/profile/alice", "", "")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "internal server error", detailOf(t, body))
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: limit", errs.ErrInvalidParameter), http.StatusBadRequest},
		{errs.ErrAlreadyExists, http.StatusBadRequest},
		{errs.ErrUnauthorized, http.StatusUnauthorized},
		{errs.ErrUserNotFound, http.StatusNotFound},
		{errs.ErrRateLimited, http.StatusTooManyRequests},
		{errs.NotPersisted(errors.New("disk full")), http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		require.Equal(t, c.want, statusFor(c.err), c.err.Error())
	}
}
