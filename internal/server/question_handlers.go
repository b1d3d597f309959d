package server

import (
	"strings"

	"decider/internal/models"
	"decider/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	msgQuestionsFetched  = "Successfully fetched questions"
	msgQuestionFetched   = "Successfully fetched question"
	msgQuestionAdded     = "Question added"
	msgFetchFailed       = "Failed to fetch questions"
	msgCreateFailed      = "Failed to create question"
	msgDetailFetchFailed = "Failed to get question details"
)

// GetQuestions handles GET /api/questions
func (s *Server) GetQuestions(c *fiber.Ctx) error {
	questions, err := s.questionService.Feed(c.UserContext(), service.FeedInput{
		ViewerID:   viewer(c),
		Tab:        c.Query("tab"),
		Limit:      c.Query("limit"),
		Offset:     c.Query("offset"),
		Categories: queryList(c, "categories[]"),
	})
	if err != nil {
		return s.respondError(c, err, msgFetchFailed)
	}
	return models.RespondOK(c, msgQuestionsFetched, questions, fiber.Map{"count": len(questions)})
}

// GetQuestion handles GET /api/questions/:question_id
func (s *Server) GetQuestion(c *fiber.Ctx) error {
	detail, err := s.questionService.Detail(c.UserContext(), viewer(c), parsePositiveID(c, "question_id"))
	if err != nil {
		return s.respondError(c, err, msgDetailFetchFailed)
	}
	return models.RespondOK(c, msgQuestionFetched, detail, nil)
}

// CreateQuestion handles POST /api/questions. The payload is the JSON in
// form field "data", or the request body itself when sent as JSON.
func (s *Server) CreateQuestion(c *fiber.Ctx) error {
	in, err := service.ParseCreateQuestion(viewer(c), createPayload(c))
	if err != nil {
		return s.respondError(c, err, msgCreateFailed)
	}

	created, err := s.questionService.Create(c.UserContext(), in)
	if err != nil {
		return s.respondError(c, err, msgCreateFailed)
	}
	return models.RespondCreated(c, msgQuestionAdded, created)
}

func createPayload(c *fiber.Ctx) []byte {
	if data := c.FormValue("data"); data != "" {
		return []byte(data)
	}
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		return append([]byte(nil), c.Body()...)
	}
	return nil
}
