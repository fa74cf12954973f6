package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/safepath/safepath-server/internal/middleware"
	"github.com/safepath/safepath-server/internal/repository"
	"github.com/safepath/safepath-server/internal/service"
)

// ChatHandler serves the safety assistant endpoint.
type ChatHandler struct {
	Chat  *service.ChatService
	Users *repository.UserRepo
}

func NewChatHandler(chat *service.ChatService, users *repository.UserRepo) *ChatHandler {
	return &ChatHandler{Chat: chat, Users: users}
}

type chatReq struct {
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

// Ask answers one message. Location comes from the request when given,
// otherwise from the user's stored profile location.
func (h *ChatHandler) Ask(c echo.Context) error {
	var req chatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 25*time.Second)
	defer cancel()

	var lat, lng float64
	if req.Lat != nil && req.Lng != nil {
		lat, lng = *req.Lat, *req.Lng
	} else if u, err := h.Users.GetByID(ctx, middleware.UserID(c)); err == nil && u.Lat != nil && u.Lng != nil {
		lat, lng = *u.Lat, *u.Lng
	}

	reply, err := h.Chat.Answer(ctx, req.Message, lat, lng)
	if err != nil {
		if errors.Is(err, service.ErrInvalidArgument) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "message required"})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "assistant unavailable"})
	}
	return c.JSON(http.StatusOK, reply)
}
