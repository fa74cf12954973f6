package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/safepath/safepath-server/internal/middleware"
	"github.com/safepath/safepath-server/internal/model"
	"github.com/safepath/safepath-server/internal/repository"
	"github.com/safepath/safepath-server/internal/service"
)

// QnAHandler serves the question-and-answer board.
type QnAHandler struct {
	Questions *repository.QuestionRepo
	Votes     *service.VoteService
}

func NewQnAHandler(questions *repository.QuestionRepo, votes *service.VoteService) *QnAHandler {
	return &QnAHandler{Questions: questions, Votes: votes}
}

type questionReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type answerReq struct {
	Content string `json:"content"`
}

type answerVoteReq struct {
	VoteType string `json:"vote_type"` // upvote | downvote
}

// Ask creates a question.
func (h *QnAHandler) Ask(c echo.Context) error {
	var req questionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	if req.Category == "" {
		req.Category = "general"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	q := model.Question{
		AuthorID:    middleware.UserID(c),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	}
	if err := h.Questions.Create(ctx, &q); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, q)
}

// List returns questions with their answers. sort=recent (default) orders by
// last activity; sort=upvoted surfaces questions whose best answer has the
// most upvotes.
func (h *QnAHandler) List(c echo.Context) error {
	limit := queryInt(c, "limit", 20)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	questions, err := h.Questions.List(ctx, c.QueryParam("sort"), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"questions": questions})
}

// Get returns one question with its ranked answers.
func (h *QnAHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	q, err := h.Questions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "question not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, q)
}

// Answer posts an answer to a question.
func (h *QnAHandler) Answer(c echo.Context) error {
	questionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req answerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Questions.Author(ctx, questionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "question not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	a := model.Answer{
		QuestionID: questionID,
		AuthorID:   middleware.UserID(c),
		Content:    req.Content,
	}
	if err := h.Questions.AddAnswer(ctx, &a); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, a)
}

// VoteAnswer applies the caller's vote to an answer under the
// mutually-exclusive model and returns the answer as it stands.
func (h *QnAHandler) VoteAnswer(c echo.Context) error {
	questionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	answerID, err := strconv.ParseUint(c.Param("answerId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid answer id"})
	}
	var req answerVoteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Votes.VoteAnswer(ctx, middleware.UserID(c), questionID, answerID, req.VoteType)
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vote_type"})
	case errors.Is(err, service.ErrTargetNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "answer not found"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "vote failed"})
	}
	return c.JSON(http.StatusOK, a)
}

// AcceptAnswer marks one answer as accepted; question author only.
func (h *QnAHandler) AcceptAnswer(c echo.Context) error {
	questionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	answerID, err := strconv.ParseUint(c.Param("answerId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid answer id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Votes.AcceptAnswer(ctx, middleware.UserID(c), questionID, answerID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "question or answer not found"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the question author can accept"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "accept failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "answer accepted"})
}
