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

// CommunityHandler serves the discussion forum: threads, replies, votes.
type CommunityHandler struct {
	Discussions *repository.DiscussionRepo
	Replies     *repository.ReplyRepo
	VoteRepo    *repository.VoteRepo
	Votes       *service.VoteService
}

func NewCommunityHandler(d *repository.DiscussionRepo, r *repository.ReplyRepo, vr *repository.VoteRepo, vs *service.VoteService) *CommunityHandler {
	return &CommunityHandler{Discussions: d, Replies: r, VoteRepo: vr, Votes: vs}
}

// Selectable discussion categories, mirrored by the client UI.
var discussionCategories = []model.Category{
	{ID: "safety_tips", Name: "Safety Tips", Icon: "shield", Color: "#4CAF50"},
	{ID: "area_alerts", Name: "Area Alerts", Icon: "alert-triangle", Color: "#F44336"},
	{ID: "experiences", Name: "Experiences", Icon: "message-circle", Color: "#2196F3"},
	{ID: "questions", Name: "Questions", Icon: "help-circle", Color: "#9C27B0"},
	{ID: "resources", Name: "Resources", Icon: "book-open", Color: "#FF9800"},
	{ID: "general", Name: "General", Icon: "users", Color: "#607D8B"},
}

func validCategory(id string) bool {
	for _, cat := range discussionCategories {
		if cat.ID == id {
			return true
		}
	}
	return false
}

// ----- DTOs -----

type discussionReq struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	ImageURL string   `json:"image_url"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
}

type replyReq struct {
	Content string `json:"content"`
}

type voteReq struct {
	TargetID   uint64 `json:"target_id"`
	TargetType string `json:"target_type"` // discussion | reply
	VoteType   string `json:"vote_type"`   // upvote | downvote
}

type votesLookupReq struct {
	TargetIDs  []uint64 `json:"target_ids"`
	TargetType string   `json:"target_type"`
}

// Categories returns the static category list.
func (h *CommunityHandler) Categories(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"categories": discussionCategories})
}

// CreateDiscussion opens a new thread.
func (h *CommunityHandler) CreateDiscussion(c echo.Context) error {
	var req discussionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if req.Title == "" || req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and content required"})
	}
	if req.Category == "" {
		req.Category = "general"
	}
	if !validCategory(req.Category) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d := model.Discussion{
		AuthorID: middleware.UserID(c),
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Tags:     req.Tags,
		ImageURL: strings.TrimSpace(req.ImageURL),
		Lat:      req.Lat,
		Lng:      req.Lng,
	}
	if err := h.Discussions.Create(ctx, &d); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, d)
}

// ListDiscussions browses threads with filtering, search and sorting.
func (h *CommunityHandler) ListDiscussions(c echo.Context) error {
	f := repository.DiscussionFilter{
		Category: c.QueryParam("category"),
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Sort:     c.QueryParam("sort"),
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 20),
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if lat, lng, ok := queryLatLng(c); ok {
		f.Lat, f.Lng = &lat, &lng
		f.RadiusKm = queryFloat(c, "radius_km", 10)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	discussions, total, err := h.Discussions.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"discussions": discussions,
		"total":       total,
		"page":        f.Page,
		"limit":       f.Limit,
		"pages":       (total + int64(f.Limit) - 1) / int64(f.Limit),
	})
}

// GetDiscussion returns one thread and counts the view.
func (h *CommunityHandler) GetDiscussion(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Discussions.GetByID(ctx, id, true)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "discussion not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, d)
}

// UpdateDiscussion edits a thread; author only.
func (h *CommunityHandler) UpdateDiscussion(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req discussionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if req.Title == "" || req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and content required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	existing, err := h.Discussions.GetByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "discussion not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if existing.AuthorID != middleware.UserID(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not the author"})
	}

	existing.Title = req.Title
	existing.Content = req.Content
	if req.Category != "" {
		if !validCategory(req.Category) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category"})
		}
		existing.Category = req.Category
	}
	existing.Tags = req.Tags
	existing.ImageURL = strings.TrimSpace(req.ImageURL)

	if err := h.Discussions.Update(ctx, existing); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "discussion updated"})
}

// DeleteDiscussion removes a thread and everything hanging off it; author only.
func (h *CommunityHandler) DeleteDiscussion(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	existing, err := h.Discussions.GetByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "discussion not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if existing.AuthorID != middleware.UserID(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not the author"})
	}

	if err := h.Discussions.Delete(ctx, h.VoteRepo, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "discussion deleted"})
}

// CreateReply posts a reply in a thread.
func (h *CommunityHandler) CreateReply(c echo.Context) error {
	discussionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req replyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Discussions.GetByID(ctx, discussionID, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "discussion not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if d.IsClosed {
		return c.JSON(http.StatusConflict, echo.Map{"error": "discussion is closed"})
	}

	rep := model.Reply{
		DiscussionID: discussionID,
		AuthorID:     middleware.UserID(c),
		Content:      req.Content,
	}
	if err := h.Replies.Create(ctx, &rep); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, rep)
}

// ListReplies pages through a thread's replies.
func (h *CommunityHandler) ListReplies(c echo.Context) error {
	discussionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	replies, total, err := h.Replies.ListByDiscussion(ctx, discussionID, c.QueryParam("sort"), page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"replies": replies,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// Vote toggles the caller's vote on a discussion or reply and returns the
// outcome with fresh tallies.
func (h *CommunityHandler) Vote(c echo.Context) error {
	var req voteReq
	if err := c.Bind(&req); err != nil || req.TargetID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	result, err := h.Votes.Toggle(ctx, middleware.UserID(c), req.TargetID, req.TargetType, req.VoteType)
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid target_type or vote_type"})
	case errors.Is(err, service.ErrTargetNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "target not found"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "vote failed"})
	}
	return c.JSON(http.StatusOK, result)
}

// MyVotes returns the caller's standing votes over a batch of targets so the
// client can paint vote buttons without one request per row.
func (h *CommunityHandler) MyVotes(c echo.Context) error {
	var req votesLookupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.TargetIDs) > 200 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "too many target_ids"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	votes, err := h.Votes.GetVotesForTargets(ctx, middleware.UserID(c), req.TargetIDs, req.TargetType)
	if err != nil {
		if errors.Is(err, service.ErrInvalidArgument) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid target_type"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"votes": votes})
}
