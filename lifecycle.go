package main

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// assignmentValidityDays is the validity window of a new assignment.
const assignmentValidityDays = 7

// assignmentState is the per-patient lifecycle state, derived lazily on read.
// Revocation leaves no active record, so a revoked patient reads back as
// unassigned on the next check.
type assignmentState string

const (
	stateUnassigned assignmentState = "unassigned"
	stateActive     assignmentState = "active"
	stateExpired    assignmentState = "expired"
)

// minutaEngine owns the diet-plan assignment lifecycle: deciding whether an
// existing assignment still stands, running the estimate→filter→score
// pipeline for a replacement, and persisting the outcome. All reads are
// fetched fresh per attempt (plan validity is time-dependent) and every
// assignment read is gated by the ownership check. The clock is injected so
// expiry is testable without a fake scheduler.
type minutaEngine struct {
	profiles    profileStore
	catalog     planCatalog
	assignments assignmentStore
	meals       mealStore
	cache       mealCache
	log         *zap.Logger
	now         func() time.Time
}

func newMinutaEngine(profiles profileStore, catalog planCatalog, assignments assignmentStore, meals mealStore, cache mealCache, log *zap.Logger) *minutaEngine {
	return &minutaEngine{
		profiles:    profiles,
		catalog:     catalog,
		assignments: assignments,
		meals:       meals,
		cache:       cache,
		log:         log,
		now:         time.Now,
	}
}

// verifyOwnership confirms the assignment belongs to the requesting persona
// before any plan detail derived from it is disclosed. Exact string equality:
// adjacent or substring-related IDs must not pass. A mismatch is a security
// failure for the request — logged and refused, never recovered.
func (e *minutaEngine) verifyOwnership(a *planAssignment, personaID string) error {
	if a.PersonaID != personaID {
		e.log.Error("assignment ownership violation",
			zap.String("assignment_id", a.ID),
			zap.String("assignment_persona", a.PersonaID),
			zap.String("requesting_persona", personaID))
		return errOwnershipViolation
	}
	return nil
}

// CurrentAssignment reads the persona's active assignment and classifies its
// state. Expiry is detected here, lazily, by comparing valid_until against
// the injected clock's current date — there is no background job.
func (e *minutaEngine) CurrentAssignment(ctx context.Context, personaID string) (*planAssignment, assignmentState, error) {
	a, err := e.assignments.ActiveAssignment(ctx, personaID)
	if err != nil {
		return nil, stateUnassigned, err
	}
	if a == nil {
		return nil, stateUnassigned, nil
	}
	if err := e.verifyOwnership(a, personaID); err != nil {
		return nil, stateUnassigned, err
	}
	if a.ValidUntil.Time.Before(e.today()) {
		return a, stateExpired, nil
	}
	return a, stateActive, nil
}

// today truncates the injected clock to midnight UTC so valid_until (a date)
// compares against a date, not a timestamp.
func (e *minutaEngine) today() time.Time {
	y, m, d := e.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// calorieEstimate is the estimator output for one persona, including the
// catalog category recommendation shown when no plan is assigned.
type calorieEstimate struct {
	ExactKcal           int      `json:"exact_kcal"`
	RecommendedCategory int      `json:"recommended_category"`
	CategoryDiff        int      `json:"category_diff"`
	DefaultedFields     []string `json:"defaulted_fields,omitempty"`
}

// EstimateCalories fetches the persona's profile and computes the renal-
// adjusted caloric target. Defaulted biometric fields are logged — a target
// computed from defaults instead of real patient data must be visible.
func (e *minutaEngine) EstimateCalories(ctx context.Context, personaID string) (*patientProfile, calorieEstimate, error) {
	profile, err := e.profiles.PatientProfile(ctx, personaID)
	if err != nil {
		return nil, calorieEstimate{}, err
	}

	kcal, defaulted := estimateForProfile(profile, true)
	if len(defaulted) > 0 {
		e.log.Warn("calorie estimate used defensive defaults",
			zap.String("persona_id", personaID),
			zap.Strings("fields", defaulted))
	}
	category, diff := calorieCategory(kcal)
	return profile, calorieEstimate{
		ExactKcal:           kcal,
		RecommendedCategory: category,
		CategoryDiff:        diff,
		DefaultedFields:     defaulted,
	}, nil
}

// RequestPlan runs one full matching attempt: fresh profile read, caloric
// target, sex filter, compatibility scoring, and atomic persistence of the
// winning plan as a new active assignment valid for seven days.
//
// An unexpired active assignment short-circuits with errAssignmentExists; an
// expired one is deactivated and replaced by re-running the full pipeline
// rather than auto-renewed. Nothing is written until a candidate has been
// fully selected.
func (e *minutaEngine) RequestPlan(ctx context.Context, personaID string, restrictions dietaryRestrictions) (*planAssignment, compatibilityResult, error) {
	existing, state, err := e.CurrentAssignment(ctx, personaID)
	if err != nil {
		return nil, compatibilityResult{}, err
	}
	if existing != nil && state == stateActive {
		return existing, compatibilityResult{}, errAssignmentExists
	}

	profile, estimate, err := e.EstimateCalories(ctx, personaID)
	if err != nil {
		return nil, compatibilityResult{}, err
	}

	plans, err := e.catalog.CandidatePlans(ctx)
	if err != nil {
		return nil, compatibilityResult{}, err
	}
	if len(plans) == 0 {
		return nil, compatibilityResult{}, errNoPlansAvailable
	}

	candidates, lastResort := filterBySex(plans, profile.Sex)
	if len(candidates) == 0 {
		// Plans exist but none fits this sex designation and there was no
		// single-entry pool to fall back on.
		return nil, compatibilityResult{}, errNoPlansAvailable
	}

	best, result, err := selectBestPlan(profile.Sex, candidates, restrictions, profile.Dialysis, estimate.ExactKcal, lastResort)
	if err != nil {
		if errors.Is(err, errMatchInconsistency) {
			e.log.Error("discarding match that failed final sex verification",
				zap.String("persona_id", personaID))
		}
		return nil, compatibilityResult{}, err
	}

	// Retire the expired record before persisting its replacement — one
	// active assignment per patient.
	if existing != nil && state == stateExpired {
		if err := e.assignments.UpdateAssignmentStatus(ctx, existing.ID, statusInactive); err != nil {
			return nil, compatibilityResult{}, err
		}
	}

	now := e.now()
	created, err := e.assignments.CreateAssignment(ctx, planAssignment{
		ID:          uuid.NewString(),
		PlanID:      best.ID,
		PersonaID:   personaID,
		PlanName:    best.Name,
		CreatedDate: DateOnly{now},
		ValidUntil:  DateOnly{now.AddDate(0, 0, assignmentValidityDays)},
		Status:      statusActive,
	})
	if err != nil {
		return nil, compatibilityResult{}, err
	}

	e.log.Info("assigned diet plan",
		zap.String("persona_id", personaID),
		zap.String("plan_id", best.ID),
		zap.Int("compatibility", result.Percentage),
		zap.Bool("last_resort", result.IsLastResort))
	return created, result, nil
}

// AssignmentHistory lists the persona's past and present assignments, newest
// first. The store query is persona-scoped, but every row is still passed
// through the ownership gate before disclosure.
func (e *minutaEngine) AssignmentHistory(ctx context.Context, personaID string) ([]planAssignment, error) {
	history, err := e.assignments.AssignmentHistory(ctx, personaID)
	if err != nil {
		return nil, err
	}
	for i := range history {
		if err := e.verifyOwnership(&history[i], personaID); err != nil {
			return nil, err
		}
	}
	return history, nil
}

// Revoke deactivates the persona's assignment and flushes its cached meal
// data. The flush is part of the revocation: revoked plan contents must not
// remain readable locally.
func (e *minutaEngine) Revoke(ctx context.Context, personaID string) error {
	a, _, err := e.CurrentAssignment(ctx, personaID)
	if err != nil {
		return err
	}
	if a == nil {
		return errNoActiveAssignment
	}
	if err := e.assignments.UpdateAssignmentStatus(ctx, a.ID, statusInactive); err != nil {
		return err
	}
	if err := e.cache.FlushPlan(ctx, a.PlanID); err != nil {
		return err
	}
	e.log.Info("revoked diet plan assignment",
		zap.String("persona_id", personaID),
		zap.String("assignment_id", a.ID))
	return nil
}

// MealsForDay returns the active plan's meals for a day of the week (1=Monday
// through 7=Sunday), ownership-gated and cached. Results are re-filtered by
// day client-side even though the meal store already filters — the legacy
// endpoint has returned off-day rows before.
func (e *minutaEngine) MealsForDay(ctx context.Context, personaID string, dayOfWeek int) ([]meal, error) {
	a, state, err := e.CurrentAssignment(ctx, personaID)
	if err != nil {
		return nil, err
	}
	if a == nil || state != stateActive {
		return nil, errNoActiveAssignment
	}

	if cached, ok := e.cache.GetMeals(ctx, a.PlanID, dayOfWeek); ok {
		return cached, nil
	}

	fetched, err := e.meals.MealsForPlanAndDay(ctx, a.PlanID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	meals := make([]meal, 0, len(fetched))
	for _, m := range fetched {
		if m.DayOfWeek == dayOfWeek {
			meals = append(meals, m)
		}
	}
	if len(meals) != len(fetched) {
		e.log.Warn("meal store returned off-day rows",
			zap.String("plan_id", a.PlanID),
			zap.Int("day", dayOfWeek),
			zap.Int("dropped", len(fetched)-len(meals)))
	}

	e.cache.SetMeals(ctx, a.PlanID, dayOfWeek, meals)
	return meals, nil
}
