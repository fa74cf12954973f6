package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/safepath/safepath-server/internal/middleware"
	"github.com/safepath/safepath-server/internal/model"
	"github.com/safepath/safepath-server/internal/queue"
	"github.com/safepath/safepath-server/internal/repository"
)

// SOSHandler raises and tracks emergency alerts. Raising an alert persists
// it and publishes a fan-out event to the sos.alert queue; the background
// consumer sends the SMS messages so the request returns fast.
type SOSHandler struct {
	SOS      *repository.SOSRepo
	Contacts *repository.ContactRepo
	Users    *repository.UserRepo
}

func NewSOSHandler(sos *repository.SOSRepo, contacts *repository.ContactRepo, users *repository.UserRepo) *SOSHandler {
	return &SOSHandler{SOS: sos, Contacts: contacts, Users: users}
}

type raiseSOSReq struct {
	Message    string   `json:"message"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
	MediaURL   string   `json:"media_url"`
	ContactIDs []uint64 `json:"contact_ids"` // empty = all saved contacts
}

// Raise creates an alert and queues the contact fan-out.
func (h *SOSHandler) Raise(c echo.Context) error {
	var req raiseSOSReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Lat == nil || req.Lng == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lat and lng required"})
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		msg = "Emergency SOS Alert!"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID := middleware.UserID(c)
	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	var contacts []model.Contact
	if len(req.ContactIDs) > 0 {
		contacts, err = h.Contacts.ListByIDs(ctx, userID, req.ContactIDs)
	} else {
		contacts, err = h.Contacts.ListByUser(ctx, userID)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load contacts failed"})
	}
	if len(contacts) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no emergency contacts to notify"})
	}

	alert := model.SOSAlert{
		UserID:   userID,
		Message:  msg,
		Lat:      *req.Lat,
		Lng:      *req.Lng,
		MediaURL: strings.TrimSpace(req.MediaURL),
		Status:   model.SOSPending,
	}
	ids := make([]uint64, len(contacts))
	targets := make([]queue.AlertTarget, len(contacts))
	for i, ct := range contacts {
		ids[i] = ct.ID
		targets[i] = queue.AlertTarget{Name: ct.Name, Phone: ct.Phone}
	}
	if err := h.SOS.Create(ctx, &alert, ids); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create alert failed"})
	}

	// Publish failure is logged but does not fail the request; the alert row
	// stays pending and can be retried.
	if err := queue.PublishSOSAlert(ctx, queue.SOSAlertEvent{
		AlertID:  alert.ID,
		UserID:   userID,
		UserName: user.Name,
		Message:  msg,
		Lat:      alert.Lat,
		Lng:      alert.Lng,
		Contacts: targets,
		RaisedAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("sos: publish alert %d failed: %v", alert.ID, err)
	}

	alert.Contacts = contacts
	alert.UserName = user.Name
	return c.JSON(http.StatusCreated, alert)
}

// History lists the caller's alerts, newest first.
func (h *SOSHandler) History(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	alerts, err := h.SOS.ListByUser(ctx, middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"alerts": alerts})
}

// Resolve marks one of the caller's alerts resolved.
func (h *SOSHandler) Resolve(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.SOS.UpdateStatus(ctx, id, middleware.UserID(c), model.SOSResolved); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "alert not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "alert resolved"})
}
