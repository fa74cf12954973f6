package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/safepath/safepath-server/internal/repository"
)

// FAQHandler serves the seeded FAQ list.
type FAQHandler struct {
	FAQs *repository.FAQRepo
}

func NewFAQHandler(faqs *repository.FAQRepo) *FAQHandler {
	return &FAQHandler{FAQs: faqs}
}

// List returns FAQs, optionally filtered by ?category=.
func (h *FAQHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	faqs, err := h.FAQs.List(ctx, c.QueryParam("category"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"faqs": faqs})
}
