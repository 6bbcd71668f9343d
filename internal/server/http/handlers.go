package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/and161185/sakhatype/internal/convert"
	"github.com/and161185/sakhatype/internal/errs"
	"github.com/and161185/sakhatype/internal/model"
)

const maxBodyBytes = 1 << 16

// --- health ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.ready.Ping(r.Context()); err != nil {
		writeDetail(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// --- auth ---

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in convert.Credentials
	if err := decodeBody(r, s.schemas.credentials, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	tok, err := s.auth.Register(r.Context(), in.Username, in.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convert.ToToken(tok))
}

// handleLogin accepts a JSON body or an OAuth2 password form.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	in, err := s.readCredentials(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tok, err := s.auth.Login(r.Context(), in.Username, in.Password, clientIP(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convert.ToToken(tok))
}

// readCredentials checks form fields against the same schema as JSON bodies.
func (s *Server) readCredentials(r *http.Request) (convert.Credentials, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return convert.Credentials{}, fmt.Errorf("%w: bad form", errs.ErrInvalidParameter)
		}
		doc := map[string]any{}
		for _, k := range []string{"username", "password"} {
			if vs, ok := r.PostForm[k]; ok && len(vs) > 0 {
				doc[k] = vs[0]
			}
		}
		if err := validateDoc(s.schemas.credentials, doc); err != nil {
			return convert.Credentials{}, err
		}
		return convert.Credentials{Username: r.PostFormValue("username"), Password: r.PostFormValue("password")}, nil
	default:
		var in convert.Credentials
		err := decodeBody(r, s.schemas.credentials, &in)
		return in, err
	}
}

// --- users ---

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	username, _ := UsernameFromCtx(r.Context())
	s.writeProfile(w, r, username)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.writeProfile(w, r, chi.URLParam(r, "username"))
}

func (s *Server) writeProfile(w http.ResponseWriter, r *http.Request, username string) {
	u, err := s.profile.Profile(r.Context(), username)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convert.ToUser(u))
}

// --- results ---

func (s *Server) handleRecordResult(w http.ResponseWriter, r *http.Request) {
	username, _ := UsernameFromCtx(r.Context())

	var in convert.Submission
	if err := decodeBody(r, s.schemas.submission, &in); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.results.Record(r.Context(), username, convert.FromSubmission(in))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convert.ToTestResult(*res))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, s.opts.Limits.History)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.results.History(r.Context(), chi.URLParam(r, "username"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convert.ToTestResults(list))
}

// --- leaderboards ---

func (s *Server) handleGlobal(metric model.Metric) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := limitParam(r, s.opts.Limits.Leaderboard)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		rows, err := s.board.Global(r.Context(), metric, limit)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, convert.ToUserRankings(rows))
	}
}

func (s *Server) handleTimeMode(w http.ResponseWriter, r *http.Request) {
	mode, limit, err := s.modeParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows, err := s.board.TimeMode(r.Context(), mode, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convert.ToModeRankings(rows))
}

func (s *Server) handleDailyTimeMode(w http.ResponseWriter, r *http.Request) {
	mode, limit, err := s.modeParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows, err := s.board.DailyTimeMode(r.Context(), mode, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convert.ToModeRankings(rows))
}

func (s *Server) handleWeeklyXP(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, s.opts.Limits.Leaderboard)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows, err := s.board.WeeklyXP(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convert.ToWeeklyXPRankings(rows))
}

func (s *Server) modeParams(r *http.Request) (mode, limit int, err error) {
	mode, err = strconv.Atoi(chi.URLParam(r, "mode"))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: time mode must be an integer", errs.ErrInvalidParameter)
	}
	limit, err = limitParam(r, s.opts.Limits.Leaderboard)
	return mode, limit, err
}

// --- words ---

func (s *Server) handleWords(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, s.opts.Limits.Words)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	words, err := s.words.Words(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if words == nil {
		words = []string{}
	}
	respondJSON(w, http.StatusOK, words)
}

// --- helpers ---

// decodeBody validates the raw body against sch before decoding it into dst.
func decodeBody(r *http.Request, sch *jsonschema.Schema, dst any) error {
	raw, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: unreadable body: %v", errs.ErrInvalidParameter, err)
	}
	if err := validateRaw(sch, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: malformed body: %v", errs.ErrInvalidParameter, err)
	}
	return nil
}

// limitParam parses ?limit=, falling back to def when absent. Range checks stay in the services.
func limitParam(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: limit must be an integer", errs.ErrInvalidParameter)
	}
	return n, nil
}

// clientIP strips the port from RemoteAddr, which RealIP may already have rewritten.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
