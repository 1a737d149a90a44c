package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// MaxFollowUpQuestions caps how many questions are shown to the user.
const MaxFollowUpQuestions = 5

const followUpQuestionsPrompt = `You are an expert research assistant helping a user scope a research request.
Given the user's research query, ask clarifying follow-up questions that would
change how the research is carried out: scope, time frame, geography, audience,
preferred sources and the level of detail expected.
Ask at most 5 questions. Each question must be short, self-contained and
answerable in one or two sentences. Do not answer the query yourself.`

// CredentialHelp is shown when the language model rejects or lacks an API key.
const CredentialHelp = `<p>Provided GOOGLE_API_KEY is invalid!</p>
<p>Please set GOOGLE_API_KEY (or RESEARCH_GENAI_API_KEY) in the environment of the server and restart it.</p>`

// QuestionResult is the outcome of a question generation call. It is one of
// QuestionsSuccess, QuestionsCredentialError or QuestionsFatal.
type QuestionResult interface {
	isQuestionResult()
}

// QuestionsSuccess carries the generated questions in model order.
type QuestionsSuccess struct {
	Questions []string
}

// QuestionsCredentialError carries an instructional HTML message for the user.
type QuestionsCredentialError struct {
	Message string
}

// QuestionsFatal carries any other failure.
type QuestionsFatal struct {
	Cause error
}

func (QuestionsSuccess) isQuestionResult()         {}
func (QuestionsCredentialError) isQuestionResult() {}
func (QuestionsFatal) isQuestionResult()           {}

// ContentGenerator is the slice of the genai Models API used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIQuestionGenerator asks a Gemini model for follow-up questions.
type GenAIQuestionGenerator struct {
	models ContentGenerator
	model  string
}

// NewGenAIQuestionGenerator creates a generator backed by the Gemini API. An
// empty apiKey yields a generator that always reports a credential error.
func NewGenAIQuestionGenerator(ctx context.Context, apiKey, model string) (*GenAIQuestionGenerator, error) {
	if apiKey == "" {
		return &GenAIQuestionGenerator{model: model}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return NewQuestionGenerator(client.Models, model), nil
}

// NewQuestionGenerator creates a generator over any ContentGenerator.
func NewQuestionGenerator(models ContentGenerator, model string) *GenAIQuestionGenerator {
	return &GenAIQuestionGenerator{models: models, model: model}
}

// Generate asks the model for follow-up questions about query.
func (g *GenAIQuestionGenerator) Generate(ctx context.Context, query string) QuestionResult {
	if g.models == nil {
		questionCount(ctx, "credential_error")
		return QuestionsCredentialError{Message: CredentialHelp}
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(query), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(followUpQuestionsPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    questionsSchema,
	})
	if err != nil {
		if isCredentialError(err) {
			questionCount(ctx, "credential_error")
			return QuestionsCredentialError{Message: CredentialHelp}
		}
		questionCount(ctx, "fatal")
		return QuestionsFatal{Cause: fmt.Errorf("generate follow-up questions: %w", err)}
	}

	questions, err := parseQuestions(resp.Text())
	if err != nil {
		questionCount(ctx, "fatal")
		return QuestionsFatal{Cause: err}
	}
	questionCount(ctx, "success")
	return QuestionsSuccess{Questions: questions}
}

var questionsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"questions": {
			Type:        genai.TypeArray,
			Description: "Follow up questions to clarify the research direction, max of 5",
			Items:       &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{"questions"},
}

func parseQuestions(raw string) ([]string, error) {
	var out struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		return nil, fmt.Errorf("decode follow-up questions: %w", err)
	}
	if len(out.Questions) > MaxFollowUpQuestions {
		out.Questions = out.Questions[:MaxFollowUpQuestions]
	}
	if out.Questions == nil {
		out.Questions = []string{}
	}
	return out.Questions, nil
}

// isCredentialError recognises a missing, malformed or rejected API key.
func isCredentialError(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return false
		}
		apiErr = *ptr
	}
	switch apiErr.Status {
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return true
	}
	switch apiErr.Code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return strings.Contains(strings.ToLower(apiErr.Message), "api key")
	}
	return false
}
