package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Handler holds shared dependencies (db pool, matching engine, logger) for
// all route handlers.
type Handler struct {
	db     *pgxpool.Pool
	engine *minutaEngine
	log    *zap.Logger
}

// apiError returns a consistent JSON error response: {"error": "message"}.
func apiError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// matchError maps the matching/lifecycle error taxonomy onto HTTP responses.
// The three terminal outcomes stay distinguishable by message and code;
// anything unrecognized is a transient failure of the whole attempt, to be
// retried by explicit user action.
func (h *Handler) matchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errNoProfile):
		apiError(c, http.StatusNotFound, "no medical profile found, complete your profile setup first")
	case errors.Is(err, errNoPlansAvailable):
		apiError(c, http.StatusNotFound, "no plans available for this profile")
	case errors.Is(err, errNoSuitablePlan):
		apiError(c, http.StatusUnprocessableEntity, "no existing plan meets your needs, ask your clinician for a manual assignment")
	case errors.Is(err, errAssignmentExists):
		apiError(c, http.StatusConflict, "an active plan assignment already exists")
	case errors.Is(err, errNoActiveAssignment):
		apiError(c, http.StatusNotFound, "no active plan assignment")
	case errors.Is(err, errOwnershipViolation):
		apiError(c, http.StatusForbidden, "assignment does not belong to this account")
	default:
		h.log.Error("matching attempt failed", zap.Error(err))
		apiError(c, http.StatusInternalServerError, "matching attempt failed, try again")
	}
}

/* ─── Server setup ────────────────────────────────────────────────────── */

// registerRoutes registers all API routes on the router.
func (h *Handler) registerRoutes(router *gin.Engine) {
	// Public routes
	router.POST("/api/login", h.login)

	// Authenticated routes
	api := router.Group("/api", h.authMiddleware())
	api.GET("/minuta/current", h.getCurrentMinuta)
	api.POST("/minuta/request", h.requestMinuta)
	api.POST("/minuta/revoke", h.revokeMinuta)
	api.GET("/minuta/meals", h.getMinutaMeals)
	api.GET("/minuta/history", h.getMinutaHistory)
	api.GET("/minuta/calories", h.getCalorieEstimate)
}
