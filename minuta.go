package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// getCurrentMinuta returns the caller's plan assignment with its lifecycle
// state. When nothing usable is assigned, the response carries the calorie
// estimate and recommended plan category instead, so the client can render
// the "request a plan" card with real numbers.
// GET /api/minuta/current.
func (h *Handler) getCurrentMinuta(c *gin.Context) {
	personaID := c.GetString("persona_id")

	a, state, err := h.engine.CurrentAssignment(c, personaID)
	if err != nil {
		h.matchError(c, err)
		return
	}
	if a != nil && state == stateActive {
		c.JSON(http.StatusOK, gin.H{"assigned": true, "state": state, "assignment": a})
		return
	}

	// Unassigned or expired: offer the estimate for a fresh request.
	_, estimate, err := h.engine.EstimateCalories(c, personaID)
	if errors.Is(err, errNoProfile) {
		c.JSON(http.StatusOK, gin.H{
			"assigned":         false,
			"state":            state,
			"profile_complete": false,
			"message":          "complete your medical profile to request a plan",
		})
		return
	}
	if err != nil {
		h.matchError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"assigned":         false,
		"state":            state,
		"profile_complete": true,
		"estimate":         estimate,
	})
}

// requestMinuta runs a full matching attempt for the caller and persists the
// winning plan. Body: dietary restrictions flags (all optional, default false).
// POST /api/minuta/request. Returns 201 with the assignment and its
// compatibility verdict, 409 when an unexpired assignment already exists.
func (h *Handler) requestMinuta(c *gin.Context) {
	personaID := c.GetString("persona_id")

	var restrictions dietaryRestrictions
	if err := c.ShouldBindJSON(&restrictions); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	assignment, result, err := h.engine.RequestPlan(c, personaID, restrictions)
	if err != nil {
		h.matchError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"assignment":    assignment,
		"compatibility": result,
	})
}

// revokeMinuta deactivates the caller's assignment and clears its cached
// meals. POST /api/minuta/revoke. Returns 204; a later GET /minuta/current
// reports unassigned and offers a new request.
func (h *Handler) revokeMinuta(c *gin.Context) {
	personaID := c.GetString("persona_id")

	if err := h.engine.Revoke(c, personaID); err != nil {
		h.matchError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// getMinutaMeals returns the active plan's meals for a day of the week.
// GET /api/minuta/meals?day=1..7 (1=Monday; defaults to today).
func (h *Handler) getMinutaMeals(c *gin.Context) {
	personaID := c.GetString("persona_id")

	day := isoWeekday(time.Now())
	if raw := c.Query("day"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 7 {
			apiError(c, http.StatusBadRequest, "day must be an integer between 1 (Monday) and 7 (Sunday)")
			return
		}
		day = parsed
	}

	meals, err := h.engine.MealsForDay(c, personaID, day)
	if err != nil {
		h.matchError(c, err)
		return
	}
	// Ensure empty array (not null) in JSON
	if meals == nil {
		meals = []meal{}
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "meals": meals})
}

// getMinutaHistory returns the caller's assignment history, newest first,
// including inactive and expired records.
// GET /api/minuta/history.
func (h *Handler) getMinutaHistory(c *gin.Context) {
	personaID := c.GetString("persona_id")

	history, err := h.engine.AssignmentHistory(c, personaID)
	if err != nil {
		h.matchError(c, err)
		return
	}
	if history == nil {
		history = []planAssignment{}
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// getCalorieEstimate returns the estimator output for the caller's profile.
// GET /api/minuta/calories.
func (h *Handler) getCalorieEstimate(c *gin.Context) {
	personaID := c.GetString("persona_id")

	_, estimate, err := h.engine.EstimateCalories(c, personaID)
	if err != nil {
		h.matchError(c, err)
		return
	}
	c.JSON(http.StatusOK, estimate)
}

// isoWeekday maps Go's Sunday-first weekday to the 1=Monday..7=Sunday scheme
// the meal tables use.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
