package server

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"

	"audit-service/internal/service"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"
)

type EventQueryService interface {
	GetPage(ctx context.Context, request service.PageRequest) (*service.PageResponse, error)
}

type Server struct {
	eventQuery EventQueryService
	db         *sql.DB
}

func NewServer(eventQuery EventQueryService, db *sql.DB) *Server {
	return &Server{
		eventQuery: eventQuery,
		db:         db,
	}
}

func (s *Server) HealthCheck(c echo.Context) error {
	if err := s.db.Ping(); err != nil {
		log.WithField("error", err).Error("Health check failed: database is down")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "database connection error",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// GetEvents serves one page of the audit trail for a single event
// type partition.
func (s *Server) GetEvents(c echo.Context) error {
	eventType := c.QueryParam("eventType")
	if eventType == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "eventType is required",
		})
	}

	take := 0
	if takeStr := c.QueryParam("take"); takeStr != "" {
		if parsed, err := strconv.Atoi(takeStr); err == nil && parsed > 0 {
			take = parsed
		}
	}

	request := service.PageRequest{
		EventType:          eventType,
		Take:               take,
		From:               c.QueryParam("from"),
		To:                 c.QueryParam("to"),
		StartedAtExclusive: c.QueryParam("startedAtExclusive"),
	}

	page, err := s.eventQuery.GetPage(c.Request().Context(), request)
	if err != nil {
		log.WithError(err).WithField("event_type", eventType).Error("Failed to query events")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	return c.JSON(http.StatusOK, page)
}
