package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-reports/backend/internal/auth"
	"research-reports/backend/internal/logging"
	"research-reports/backend/internal/render"
	"research-reports/backend/internal/repository"
	"research-reports/backend/internal/services"
	"research-reports/backend/pkg/models"
)

// memStore is an in-memory ResearchStore that is also its own Provider.
type memStore struct {
	mu       sync.Mutex
	items    map[string]*models.Research
	pingErr  error
	acquired int
}

func newMemStore() *memStore {
	return &memStore{items: make(map[string]*models.Research)}
}

func (m *memStore) Acquire(ctx context.Context) (repository.ResearchStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquired++
	return m, nil
}

func (m *memStore) List(ctx context.Context) ([]*models.Research, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Research, 0, len(m.items))
	for _, r := range m.items {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) Get(ctx context.Context, id string) (*models.Research, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r, nil
}

func (m *memStore) Create(ctx context.Context, research *models.Research) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[research.ID] = research
	return nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *memStore) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *memStore) put(r *models.Research) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[r.ID] = r
}

type recordingSubmitter struct {
	jobs []models.ResearchParams
}

func (s *recordingSubmitter) SubmitJob(ctx context.Context, id string, params models.ResearchParams) error {
	s.jobs = append(s.jobs, params)
	return nil
}

type fakeQuestions struct {
	result services.QuestionResult
	query  string
}

func (f *fakeQuestions) Generate(ctx context.Context, query string) services.QuestionResult {
	f.query = query
	return f.result
}

type fakeReports struct {
	calls []string
}

func (f *fakeReports) ReportContent(md string) (string, error) {
	f.calls = append(f.calls, md)
	return "<h1>rendered</h1>", nil
}

type fakePDF struct {
	calls []string
}

func (f *fakePDF) Generate(ctx context.Context, html string) ([]byte, error) {
	f.calls = append(f.calls, html)
	return []byte("%PDF-1.7 fake"), nil
}

type testEnv struct {
	e         *echo.Echo
	store     *memStore
	submitter *recordingSubmitter
	questions *fakeQuestions
	reports   *fakeReports
	pdf       *fakePDF
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:     newMemStore(),
		submitter: &recordingSubmitter{},
		questions: &fakeQuestions{result: services.QuestionsSuccess{}},
		reports:   &fakeReports{},
		pdf:       &fakePDF{},
	}

	templates, err := NewTemplates()
	require.NoError(t, err)

	logger := logging.NewNop()
	e := echo.New()
	e.Renderer = templates
	e.HTTPErrorHandler = NewErrorHandler(e, logger)

	srv := &Server{
		Research:  services.NewResearchService(env.store, env.submitter, logger),
		Questions: env.questions,
		Detail:    render.NewRenderer(),
		Reports:   env.reports,
		PDF:       env.pdf,
		Logger:    logger,
		Version:   "test",
	}
	e.GET("/healthz", srv.HandleHealth)
	RegisterRoutes(e.Group(""), srv)
	env.e = e
	return env
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) get(path string) *httptest.ResponseRecorder {
	return env.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func strPtr(s string) *string { return &s }

func TestCreateResearch_StoresRunningAndRedirects(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(postForm("/create", url.Values{
		"query":    {"How do tides form?"},
		"depth":    {"3"},
		"breadth":  {"5"},
		"question": {"Which ocean?", "For what audience?"},
		"answer":   {"Atlantic"},
	}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	all, err := env.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	r := all[0]
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, models.ResearchStatusRunning, r.Status)
	assert.Equal(t, "How do tides form?", r.Query)
	assert.Equal(t, []models.QuestionAnswer{
		{Question: "Which ocean?", Answer: "Atlantic"},
		{Question: "For what audience?", Answer: ""},
	}, r.Questions)
	assert.Nil(t, r.Result)
	assert.Nil(t, r.UserID)

	require.Len(t, env.submitter.jobs, 1)
	assert.Equal(t, r.ID, env.submitter.jobs[0].ID)
	assert.Equal(t, "3", env.submitter.jobs[0].Depth)
}

func TestCreateResearch_RecordsSignedInUser(t *testing.T) {
	env := newTestEnv(t)

	req := postForm("/create", url.Values{"query": {"q"}, "depth": {"1"}, "breadth": {"1"}})
	req = req.WithContext(auth.WithUser(req.Context(), "alice@example.com"))
	rec := env.do(req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	all, _ := env.store.List(context.Background())
	require.Len(t, all, 1)
	require.NotNil(t, all[0].UserID)
	assert.Equal(t, "alice@example.com", *all[0].UserID)
}

func TestExampleFlow_DetailShowsRunningPlaceholder(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(postForm("/create", url.Values{"query": {"Solar sail propulsion"}, "depth": {"2"}, "breadth": {"4"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	list := env.get("/")
	assert.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Body.String(), "Solar sail propulsion")

	all, _ := env.store.List(context.Background())
	require.Len(t, all, 1)

	detail := env.get("/details/" + all[0].ID)
	assert.Equal(t, http.StatusOK, detail.Code)
	assert.Contains(t, detail.Body.String(), models.RunningReportPlaceholder)
}

func TestResearchDetails_RendersReportWithoutFences(t *testing.T) {
	env := newTestEnv(t)
	env.store.put(&models.Research{
		ID:     "r1",
		Query:  "q",
		Status: models.ResearchStatusComplete,
		Result: strPtr("```markdown\n# Findings\n\nAll good.\n```"),
	})

	rec := env.get("/details/r1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<h1 id="findings">Findings</h1>`)
	assert.NotContains(t, body, "```")
}

func TestDownloadMarkdown_IsByteForByte(t *testing.T) {
	env := newTestEnv(t)
	report := "```markdown\n# Report\n\n- a\n- b\n```"
	env.store.put(&models.Research{ID: "r1", Query: "q", Status: models.ResearchStatusComplete, Result: &report})

	rec := env.get("/details/r1/download/markdown")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report, rec.Body.String())
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="report.md"`, rec.Header().Get(echo.HeaderContentDisposition))
}

func TestDownloadPDF_RendersStoredResult(t *testing.T) {
	env := newTestEnv(t)
	report := "# Report"
	env.store.put(&models.Research{ID: "r1", Query: "q", Status: models.ResearchStatusComplete, Result: &report})

	rec := env.get("/details/r1/download/pdf")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="report.pdf"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, "%PDF-1.7 fake", rec.Body.String())

	assert.Equal(t, []string{report}, env.reports.calls)
	assert.Equal(t, []string{"<h1>rendered</h1>"}, env.pdf.calls)
}

func TestUnknownID_NotFoundWithoutRendering(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{
		"/details/missing",
		"/details/missing/download/pdf",
		"/details/missing/download/markdown",
	} {
		rec := env.get(path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	assert.Empty(t, env.reports.calls)
	assert.Empty(t, env.pdf.calls)
}

func TestReRunResearch_CreatesNewRecord(t *testing.T) {
	env := newTestEnv(t)
	original := &models.Research{
		ID:        "orig",
		Query:     "q",
		Depth:     "2",
		Breadth:   "3",
		Questions: []models.QuestionAnswer{{Question: "Why?", Answer: "Because"}},
		Status:    models.ResearchStatusComplete,
		Result:    strPtr("done"),
	}
	env.store.put(original)

	rec := env.do(postForm("/re-run", url.Values{"id": {"orig"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	all, _ := env.store.List(context.Background())
	require.Len(t, all, 2)

	var rerun *models.Research
	for _, r := range all {
		if r.ID != "orig" {
			rerun = r
		}
	}
	require.NotNil(t, rerun)
	assert.Equal(t, models.ResearchStatusRunning, rerun.Status)
	assert.Equal(t, original.Query, rerun.Query)
	assert.Equal(t, original.Depth, rerun.Depth)
	assert.Equal(t, original.Breadth, rerun.Breadth)
	assert.Equal(t, original.Questions, rerun.Questions)
	assert.Nil(t, rerun.Result)

	got, _ := env.store.Get(context.Background(), "orig")
	assert.Equal(t, models.ResearchStatusComplete, got.Status)
}

func TestReRunAndDelete_UnknownIDNotFound(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusNotFound, env.do(postForm("/re-run", url.Values{"id": {"missing"}})).Code)
	assert.Equal(t, http.StatusNotFound, env.do(postForm("/delete", url.Values{"id": {"missing"}})).Code)
	assert.Empty(t, env.submitter.jobs)
}

func TestDeleteResearch(t *testing.T) {
	env := newTestEnv(t)
	env.store.put(&models.Research{ID: "r1", Query: "q"})

	rec := env.do(postForm("/delete", url.Values{"id": {"r1"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.get("/details/r1").Code)
}

func TestGenerateQuestions_RendersForm(t *testing.T) {
	env := newTestEnv(t)
	env.questions.result = services.QuestionsSuccess{Questions: []string{"Q1", "Q2", "Q3", "Q4", "Q5"}}

	rec := env.do(postForm("/create/questions", url.Values{"query": {"Fusion timelines"}, "breadth": {"7"}}))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Equal(t, "Fusion timelines", env.questions.query)
	assert.Equal(t, 5, strings.Count(body, `name="question"`))
	assert.Contains(t, body, `id="depth-hidden" name="depth" value="3"`)
	assert.Contains(t, body, `id="breadth-hidden" name="breadth" value="7"`)
}

func TestGenerateQuestions_CredentialErrorShowsHelp(t *testing.T) {
	env := newTestEnv(t)
	env.questions.result = services.QuestionsCredentialError{Message: services.CredentialHelp}

	rec := env.do(postForm("/create/questions", url.Values{"query": {"q"}}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "GOOGLE_API_KEY")
}

func TestGenerateQuestions_FatalIsServerError(t *testing.T) {
	env := newTestEnv(t)
	env.questions.result = services.QuestionsFatal{Cause: errors.New("model exploded")}

	rec := env.do(postForm("/create/questions", url.Values{"query": {"q"}}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNewResearchForm(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/create")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="initial-depth"`)
	assert.Contains(t, body, `id="initial-breadth"`)
	assert.Equal(t, 15, strings.Count(body, "<option "))
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	env.store.pingErr = errors.New("connection refused")
	rec = env.get("/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
