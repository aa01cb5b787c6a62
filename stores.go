package main

import (
	"context"
	"errors"
)

// Terminal matching outcomes. Each maps to a distinct client-facing response;
// in particular "no plans available" (catalog problem) and "no suitable plan"
// (candidates exist but none scores acceptably) must stay distinguishable.
var (
	errNoProfile          = errors.New("no medical profile for persona")
	errNoPlansAvailable   = errors.New("no diet plans available")
	errNoSuitablePlan     = errors.New("no plan meets the patient's needs")
	errMatchInconsistency = errors.New("matched plan failed final sex verification")
	errOwnershipViolation = errors.New("assignment does not belong to requesting persona")
	errNoActiveAssignment = errors.New("no active assignment")
	errAssignmentExists   = errors.New("an unexpired active assignment already exists")
)

// profileStore serves read-only medical profiles. Backed by the legacy
// clinical API; a missing profile is errNoProfile, not a transient failure.
type profileStore interface {
	PatientProfile(ctx context.Context, personaID string) (*patientProfile, error)
}

// planCatalog serves the immutable diet-plan catalog.
type planCatalog interface {
	CandidatePlans(ctx context.Context) ([]dietPlan, error)
}

// assignmentStore owns plan-assignment records. This service is the only
// writer for this record type; writes are single-record upserts.
type assignmentStore interface {
	// ActiveAssignment returns the persona's assignment with status=active,
	// or (nil, nil) when none exists.
	ActiveAssignment(ctx context.Context, personaID string) (*planAssignment, error)
	// AssignmentHistory returns every assignment for the persona, newest first.
	AssignmentHistory(ctx context.Context, personaID string) ([]planAssignment, error)
	CreateAssignment(ctx context.Context, a planAssignment) (*planAssignment, error)
	UpdateAssignmentStatus(ctx context.Context, id string, status assignmentStatus) error
}

// mealStore serves per-day meal details for a plan.
type mealStore interface {
	MealsForPlanAndDay(ctx context.Context, planID string, dayOfWeek int) ([]meal, error)
}

// mealCache holds meals fetched for the active plan. Lookups are best-effort
// (a miss just refetches), but FlushPlan must succeed for a revocation to be
// considered complete.
type mealCache interface {
	GetMeals(ctx context.Context, planID string, dayOfWeek int) ([]meal, bool)
	SetMeals(ctx context.Context, planID string, dayOfWeek int, meals []meal)
	FlushPlan(ctx context.Context, planID string) error
}
