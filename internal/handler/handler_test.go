package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/interviewace/interviewace/internal/i18n"
	"github.com/interviewace/interviewace/internal/model"
	"github.com/interviewace/interviewace/internal/session"
	"github.com/interviewace/interviewace/internal/store"
)

type fakeSupplier struct{}

func (fakeSupplier) Generate(_ context.Context, cfg model.SessionConfig) ([]model.Question, error) {
	qs := make([]model.Question, 0, cfg.TotalQuestions())
	for i := 0; i < cfg.CountMCQ; i++ {
		qs = append(qs, model.Question{
			ID:             fmt.Sprintf("q%d", i+1),
			Kind:           model.KindMCQ,
			Prompt:         "pick",
			Options:        []string{"a", "b"},
			ExpectedAnswer: "a",
		})
	}
	return qs, nil
}

func (fakeSupplier) ResetUsed() {}

type fakeEvaluator struct{}

func (fakeEvaluator) Evaluate(_ context.Context, questions []model.Question, answers model.AnswerMap) (*model.AggregateResult, error) {
	correct := 0
	for _, q := range questions {
		if answers[q.ID] == q.ExpectedAnswer {
			correct++
		}
	}
	return &model.AggregateResult{
		OverallScore:   correct * 100 / len(questions),
		CorrectCount:   correct,
		TotalQuestions: len(questions),
	}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	manager := session.NewManager(func() session.Supplier {
		return fakeSupplier{}
	}, fakeEvaluator{}, func(userID int64, cfg model.SessionConfig, res *model.AggregateResult) {
		_, _ = db.SaveResult(userID, cfg, res)
	})

	h := New(db, manager, Config{})
	r := chi.NewRouter()
	r.Use(i18n.Middleware("en"))
	h.Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// client wraps an http.Client with the signup cookie jar and JSON helpers.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, srv *httptest.Server) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &client{t: t, base: srv.URL, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (c *client) decode(resp *http.Response, v any) {
	c.t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		c.t.Fatalf("decode response: %v", err)
	}
}

func (c *client) signup(email, password string) {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/api/auth/signup", credentials{Email: email, Password: password})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("signup: status %d", resp.StatusCode)
	}
}

func (c *client) waitActive(id string) assessmentView {
	c.t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		var view assessmentView
		resp := c.do(http.MethodGet, "/api/assessments/"+id, nil)
		c.decode(resp, &view)
		if view.Phase == model.PhaseActive {
			return view
		}
		select {
		case <-deadline:
			c.t.Fatalf("assessment never became active, at %q", view.Phase)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	resp := c.do(http.MethodGet, "/api/history", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var body map[string]apiError
	c.decode(resp, &body)
	if body["error"].Code != "unauthorized" {
		t.Errorf("expected code 'unauthorized', got %q", body["error"].Code)
	}
	if body["error"].Message == "" || body["error"].Message == "error.unauthorized" {
		t.Errorf("expected localized message, got %q", body["error"].Message)
	}
}

func TestSignupLoginFlow(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	// Weak password rejected.
	resp := c.do(http.MethodPost, "/api/auth/signup", credentials{Email: "eve@example.com", Password: "short"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("weak password: expected 400, got %d", resp.StatusCode)
	}

	c.signup("eve@example.com", "correct horse battery")

	// Duplicate signup conflicts.
	resp = c.do(http.MethodPost, "/api/auth/signup", credentials{Email: "EVE@example.com", Password: "correct horse battery"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate signup: expected 409, got %d", resp.StatusCode)
	}

	var me userView
	resp = c.do(http.MethodGet, "/api/auth/me", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: status %d", resp.StatusCode)
	}
	c.decode(resp, &me)
	if me.Email != "eve@example.com" || me.Role != "candidate" {
		t.Errorf("unexpected identity: %+v", me)
	}

	// Fresh client: wrong password rejected, right one accepted.
	c2 := newClient(t, srv)
	resp = c2.do(http.MethodPost, "/api/auth/login", credentials{Email: "eve@example.com", Password: "wrong"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", resp.StatusCode)
	}
	resp = c2.do(http.MethodPost, "/api/auth/login", credentials{Email: "eve@example.com", Password: "correct horse battery"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
}

func TestAssessmentLifecycle(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	c.signup("frank@example.com", "long enough password")

	var created assessmentView
	resp := c.do(http.MethodPost, "/api/assessments", model.SessionConfig{CountMCQ: 2, TimeLimitSec: 600})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d", resp.StatusCode)
	}
	c.decode(resp, &created)
	if created.ID == "" {
		t.Fatal("expected an assessment id")
	}

	view := c.waitActive(created.ID)
	if len(view.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(view.Questions))
	}
	for _, q := range view.Questions {
		if q.ExpectedAnswer != "" {
			t.Fatal("active assessment leaked expected answers")
		}
	}

	// Answer one right, one wrong.
	resp = c.do(http.MethodPost, "/api/assessments/"+created.ID+"/answer", map[string]string{"questionId": "q1", "answer": "a"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer: status %d", resp.StatusCode)
	}
	resp = c.do(http.MethodPost, "/api/assessments/"+created.ID+"/answer", map[string]string{"questionId": "q2", "answer": "b"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer 2: status %d", resp.StatusCode)
	}

	// Unknown question rejected.
	resp = c.do(http.MethodPost, "/api/assessments/"+created.ID+"/answer", map[string]string{"questionId": "zzz", "answer": "a"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown question: expected 400, got %d", resp.StatusCode)
	}

	resp = c.do(http.MethodPost, "/api/assessments/"+created.ID+"/submit", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit: status %d", resp.StatusCode)
	}

	// Poll until graded.
	deadline := time.After(2 * time.Second)
	var result model.AggregateResult
	for {
		resp = c.do(http.MethodGet, "/api/assessments/"+created.ID+"/result", nil)
		if resp.StatusCode == http.StatusOK {
			c.decode(resp, &result)
			break
		}
		resp.Body.Close()
		select {
		case <-deadline:
			t.Fatal("result never became available")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if result.OverallScore != 50 || result.CorrectCount != 1 {
		t.Errorf("unexpected result: %+v", result)
	}

	// The completed run shows up in history.
	var records []model.ResultRecord
	resp = c.do(http.MethodGet, "/api/history", nil)
	c.decode(resp, &records)
	if len(records) != 1 || records[0].Score != 50 {
		t.Errorf("unexpected history: %+v", records)
	}
}

func TestAssessmentOwnership(t *testing.T) {
	srv := newTestServer(t)

	owner := newClient(t, srv)
	owner.signup("gina@example.com", "long enough password")
	var created assessmentView
	resp := owner.do(http.MethodPost, "/api/assessments", model.SessionConfig{CountMCQ: 1, TimeLimitSec: 60})
	owner.decode(resp, &created)

	intruder := newClient(t, srv)
	intruder.signup("hank@example.com", "long enough password")
	resp = intruder.do(http.MethodGet, "/api/assessments/"+created.ID, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign assessment, got %d", resp.StatusCode)
	}
}

func TestAdminRouteForbiddenForCandidates(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)
	c.signup("ivan@example.com", "long enough password")

	resp := c.do(http.MethodPost, "/api/admin/bank", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}
