package api

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"research-reports/backend/internal/auth"
	"research-reports/backend/internal/services"
	"research-reports/backend/pkg/models"
)

var (
	depthOptions   = []string{"1", "2", "3", "4", "5"}
	breadthOptions = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}
)

const (
	defaultDepth   = "3"
	defaultBreadth = "5"
)

type basePage struct {
	User string
}

type listPage struct {
	basePage
	Researches []*models.Research
}

type createPage struct {
	basePage
	Depths         []string
	Breadths       []string
	DefaultDepth   string
	DefaultBreadth string
}

type questionsPage struct {
	basePage
	Query     string
	Depth     string
	Breadth   string
	Questions []string
}

type detailsPage struct {
	basePage
	Research   *models.Research
	ReportHTML template.HTML
}

type messagePage struct {
	basePage
	Message template.HTML
}

func base(c echo.Context) basePage {
	return basePage{User: auth.UserFromContext(c.Request().Context())}
}

// ListResearches renders every research, newest first
// (GET /)
func (s *Server) ListResearches(c echo.Context) error {
	researches, err := s.Research.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "list", listPage{basePage: base(c), Researches: researches})
}

// NewResearchForm renders the empty research form
// (GET /create)
func (s *Server) NewResearchForm(c echo.Context) error {
	return c.Render(http.StatusOK, "create", createPage{
		basePage:       base(c),
		Depths:         depthOptions,
		Breadths:       breadthOptions,
		DefaultDepth:   defaultDepth,
		DefaultBreadth: defaultBreadth,
	})
}

// GenerateQuestions asks the language model for follow-up questions
// (POST /create/questions)
func (s *Server) GenerateQuestions(c echo.Context) error {
	query := c.FormValue("query")

	switch res := s.Questions.Generate(c.Request().Context(), query).(type) {
	case services.QuestionsSuccess:
		return c.Render(http.StatusOK, "questions", questionsPage{
			basePage:  base(c),
			Query:     query,
			Depth:     formValueOr(c, "depth", defaultDepth),
			Breadth:   formValueOr(c, "breadth", defaultBreadth),
			Questions: res.Questions,
		})
	case services.QuestionsCredentialError:
		s.Logger.Warn("question generation rejected credentials")
		return c.Render(http.StatusOK, "message", messagePage{
			basePage: base(c),
			Message:  template.HTML(res.Message),
		})
	case services.QuestionsFatal:
		return res.Cause
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "unexpected question result")
	}
}

// CreateResearch stores a new research and starts its workflow
// (POST /create)
func (s *Server) CreateResearch(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form: "+err.Error())
	}

	questions := form["question"]
	answers := form["answer"]
	pairs := make([]models.QuestionAnswer, len(questions))
	for i, q := range questions {
		pairs[i].Question = q
		if i < len(answers) {
			pairs[i].Answer = answers[i]
		}
	}

	in := models.NewResearch{
		Query:     form.Get("query"),
		Depth:     form.Get("depth"),
		Breadth:   form.Get("breadth"),
		Questions: pairs,
	}
	if user := auth.UserFromContext(c.Request().Context()); user != "" {
		in.UserID = &user
	}

	if _, err := s.Research.Create(c.Request().Context(), in); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// ResearchDetails renders one research and its report
// (GET /details/:id)
func (s *Server) ResearchDetails(c echo.Context) error {
	research, err := s.Research.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return researchError(err)
	}

	report, err := s.Detail.DetailHTML(research.Result)
	if err != nil {
		return err
	}

	return c.Render(http.StatusOK, "details", detailsPage{
		basePage:   base(c),
		Research:   research,
		ReportHTML: template.HTML(report),
	})
}

// ReRunResearch starts a new research from an existing one
// (POST /re-run)
func (s *Server) ReRunResearch(c echo.Context) error {
	if _, err := s.Research.ReRun(c.Request().Context(), c.FormValue("id")); err != nil {
		return researchError(err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// DeleteResearch removes a research
// (POST /delete)
func (s *Server) DeleteResearch(c echo.Context) error {
	if err := s.Research.Delete(c.Request().Context(), c.FormValue("id")); err != nil {
		return researchError(err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func formValueOr(c echo.Context, name, fallback string) string {
	if v := strings.TrimSpace(c.FormValue(name)); v != "" {
		return v
	}
	return fallback
}
