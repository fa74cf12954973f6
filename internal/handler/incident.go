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
)

// IncidentHandler serves incident reporting and browsing. Reporting works
// for anonymous visitors too; when a valid token is present the report is
// attributed unless the reporter asks to stay anonymous.
type IncidentHandler struct {
	Incidents *repository.IncidentRepo
	Users     *repository.UserRepo
}

func NewIncidentHandler(incidents *repository.IncidentRepo, users *repository.UserRepo) *IncidentHandler {
	return &IncidentHandler{Incidents: incidents, Users: users}
}

type reportIncidentReq struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Severity       string   `json:"severity"`
	Lat            *float64 `json:"lat"`
	Lng            *float64 `json:"lng"`
	Address        string   `json:"address"`
	IsAnonymous    bool     `json:"is_anonymous"`
	ReporterName   string   `json:"reporter_name"`
	Photos         []string `json:"photos"`
	DateOfIncident string   `json:"date_of_incident"` // RFC3339, default now
}

// Report files an incident.
func (h *IncidentHandler) Report(c echo.Context) error {
	var req reportIncidentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" || req.Description == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and description required"})
	}
	if !model.IncidentCategories[req.Category] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category"})
	}
	if req.Severity == "" {
		req.Severity = "medium"
	}
	if !model.IncidentSeverities[req.Severity] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown severity"})
	}
	if req.Lat == nil || req.Lng == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lat and lng required"})
	}

	occurred := time.Now().UTC()
	if req.DateOfIncident != "" {
		t, err := time.Parse(time.RFC3339, req.DateOfIncident)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_of_incident"})
		}
		occurred = t.UTC()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	in := model.Incident{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Severity:       req.Severity,
		Lat:            *req.Lat,
		Lng:            *req.Lng,
		Address:        strings.TrimSpace(req.Address),
		IsAnonymous:    req.IsAnonymous,
		ReporterName:   strings.TrimSpace(req.ReporterName),
		Photos:         req.Photos,
		DateOfIncident: occurred,
	}
	if userID := middleware.UserID(c); userID != 0 && !req.IsAnonymous {
		in.ReportedBy = &userID
		if in.ReporterName == "" {
			if u, err := h.Users.GetByID(ctx, userID); err == nil {
				in.ReporterName = u.Name
			}
		}
	} else {
		in.IsAnonymous = true
		in.ReporterName = ""
	}

	if err := h.Incidents.Create(ctx, &in); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, in)
}

// List browses incidents, optionally filtered by category, severity and a
// geographic radius (default 5km when coordinates are given).
func (h *IncidentHandler) List(c echo.Context) error {
	f := repository.IncidentFilter{
		Category: c.QueryParam("category"),
		Severity: c.QueryParam("severity"),
		Limit:    queryInt(c, "limit", 20),
		Skip:     queryInt(c, "skip", 0),
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if lat, lng, ok := queryLatLng(c); ok {
		f.Lat, f.Lng = &lat, &lng
		f.RadiusKm = queryFloat(c, "radius_km", 5)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	incidents, total, err := h.Incidents.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"incidents": incidents, "total": total})
}

// Get returns one incident with its photos and comments.
func (h *IncidentHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	in, err := h.Incidents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "incident not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, in)
}

// Mine lists the authenticated caller's own reports.
func (h *IncidentHandler) Mine(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	incidents, err := h.Incidents.ListByReporter(ctx, middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"incidents": incidents})
}

type incidentCommentReq struct {
	Comment     string `json:"comment"`
	IsAnonymous bool   `json:"is_anonymous"`
	Name        string `json:"name"`
}

// Comment adds a comment under an incident. Works for anonymous visitors.
func (h *IncidentHandler) Comment(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req incidentCommentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if req.Comment == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "comment required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Incidents.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "incident not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	cm := model.IncidentComment{
		IncidentID:    id,
		IsAnonymous:   req.IsAnonymous,
		CommenterName: strings.TrimSpace(req.Name),
		Comment:       req.Comment,
	}
	if userID := middleware.UserID(c); userID != 0 && !req.IsAnonymous {
		cm.UserID = &userID
		if cm.CommenterName == "" {
			if u, err := h.Users.GetByID(ctx, userID); err == nil {
				cm.CommenterName = u.Name
			}
		}
	} else {
		cm.IsAnonymous = true
	}

	if err := h.Incidents.AddComment(ctx, &cm); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, cm)
}

// ----- shared query helpers -----

func queryInt(c echo.Context, name string, def int) int {
	if v := c.QueryParam(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func queryFloat(c echo.Context, name string, def float64) float64 {
	if v := c.QueryParam(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func queryLatLng(c echo.Context) (float64, float64, bool) {
	latS, lngS := c.QueryParam("lat"), c.QueryParam("lng")
	if latS == "" || lngS == "" {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(latS, 64)
	lng, err2 := strconv.ParseFloat(lngS, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lng, true
}
