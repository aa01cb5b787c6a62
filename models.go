package main

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"2006-01-02"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ScanDate implements pgtype.DateScanner so pgx can scan PostgreSQL date
// columns (OID 1082) into DateOnly. NULL values zero the time and return nil
// so that *DateOnly pointer fields can be set to nil by pgx's NULL handling.
func (d *DateOnly) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		d.Time = time.Time{}
		return nil
	}
	d.Time = v.Time
	return nil
}

/* ─── Enums and wire normalization ───────────────────────────────────── */

// The legacy clinical API serves Spanish, accent-carrying, inconsistently
// cased category strings ("Masculino", "hemodiálisis", "muy_activo"). All of
// that fragility is absorbed here, at the wire boundary; everything past the
// parse functions works with exhaustive typed constants.

// accentFolder maps Spanish accented letters to their bare forms so category
// comparison is accent-insensitive.
var accentFolder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
)

// normalizeCategory lowercases, strips accents, and collapses underscores to
// spaces so "Diálisis_Peritoneal" and "dialisis peritoneal" compare equal.
func normalizeCategory(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = accentFolder.Replace(s)
	return strings.ReplaceAll(s, "_", " ")
}

// patientSex is the sex designation used for plan compatibility. Plans may
// additionally be marked for both sexes or left unspecified.
type patientSex string

const (
	sexMale        patientSex = "male"
	sexFemale      patientSex = "female"
	sexBoth        patientSex = "both"
	sexUnspecified patientSex = ""
)

// parseSex normalizes legacy sex/gender values. Unknown values map to
// unspecified rather than erroring — the filter treats unspecified plans as
// compatible with everyone, and the estimator applies its own default for
// patients.
func parseSex(raw string) patientSex {
	switch normalizeCategory(raw) {
	case "m", "masculino", "male", "hombre":
		return sexMale
	case "f", "femenino", "female", "mujer":
		return sexFemale
	case "ambos", "both", "unisex":
		return sexBoth
	default:
		return sexUnspecified
	}
}

// dialysisType is the patient's dialysis modality, a key plan-compatibility axis.
type dialysisType string

const (
	dialysisHemo       dialysisType = "hemodialysis"
	dialysisPeritoneal dialysisType = "peritoneal"
	dialysisBoth       dialysisType = "both"
	dialysisNone       dialysisType = ""
)

func parseDialysis(raw string) dialysisType {
	switch normalizeCategory(raw) {
	case "hemodialisis", "hemodialysis":
		return dialysisHemo
	case "peritoneal", "dialisis peritoneal", "peritoneal dialysis":
		return dialysisPeritoneal
	case "ambas", "ambos", "both":
		return dialysisBoth
	default:
		return dialysisNone
	}
}

// activityLevel feeds the TDEE multiplier in the calorie estimator.
type activityLevel string

const (
	activitySedentary activityLevel = "sedentary"
	activityLight     activityLevel = "light"
	activityModerate  activityLevel = "moderate"
	activityHigh      activityLevel = "high"
	activityVeryHigh  activityLevel = "very_high"
	activityUnknown   activityLevel = ""
)

func parseActivityLevel(raw string) activityLevel {
	switch normalizeCategory(raw) {
	case "sedentario", "sedentary":
		return activitySedentary
	case "ligera", "ligero", "light":
		return activityLight
	case "moderada", "moderado", "moderate":
		return activityModerate
	case "alta", "activo", "high", "active":
		return activityHigh
	case "muy alta", "muy activo", "very high", "very active":
		return activityVeryHigh
	default:
		return activityUnknown
	}
}

// assignmentStatus is the lifecycle status of a plan assignment. Stored in
// English; the parse accepts the legacy Spanish values for imported rows.
type assignmentStatus string

const (
	statusActive   assignmentStatus = "active"
	statusInactive assignmentStatus = "inactive"
)

func parseAssignmentStatus(raw string) assignmentStatus {
	switch normalizeCategory(raw) {
	case "activa", "activo", "active":
		return statusActive
	default:
		return statusInactive
	}
}

/* ─── Domain structs ─────────────────────────────────────────────────── */

// patientProfile is the read-only medical profile served by the legacy
// clinical API. Biometric fields are pointers: a nil field means the patient
// never completed that part of the medical record, and the calorie estimator
// substitutes a flagged default.
type patientProfile struct {
	PersonaID string        `json:"persona_id"`
	Sex       patientSex    `json:"sex"`
	WeightKG  *float64      `json:"weight_kg"`
	HeightM   *float64      `json:"height_m"`
	Age       *int          `json:"age"`
	Activity  activityLevel `json:"activity_level"`
	Dialysis  dialysisType  `json:"dialysis_type"`
}

// dietaryRestrictions is the per-request restriction set. Supplied by the
// caller with each plan request; never persisted here.
type dietaryRestrictions struct {
	LowSodium     bool `json:"low_sodium"`
	LowPotassium  bool `json:"low_potassium"`
	LowPhosphorus bool `json:"low_phosphorus"`
	LowProtein    bool `json:"low_protein"`
}

// dietPlan is an immutable catalog entry from the legacy plan catalog
// ("minuta"). Calories is the plan's designed daily total.
type dietPlan struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Sex           patientSex   `json:"sex"`
	Dialysis      dialysisType `json:"dialysis_type"`
	LowSodium     bool         `json:"low_sodium"`
	LowPotassium  bool         `json:"low_potassium"`
	LowPhosphorus bool         `json:"low_phosphorus"`
	LowProtein    bool         `json:"low_protein"`
	Calories      float64      `json:"calories"`
}

// planAssignment binds a catalog plan to a persona for a validity window.
// Maps to the minuta_assignments table; this service is the only writer.
type planAssignment struct {
	ID          string           `json:"id"           db:"id"`
	PlanID      string           `json:"plan_id"      db:"plan_id"`
	PersonaID   string           `json:"persona_id"   db:"persona_id"`
	PlanName    string           `json:"plan_name"    db:"plan_name"`
	CreatedDate DateOnly         `json:"created_date" db:"created_date"`
	ValidUntil  DateOnly         `json:"valid_until"  db:"valid_until"`
	Status      assignmentStatus `json:"status"       db:"status"`
}

// compatibilityResult is the scorer's verdict for one candidate plan.
// Transient — returned to the caller, never persisted.
type compatibilityResult struct {
	Compatible     bool     `json:"compatible"`
	Percentage     int      `json:"percentage"`
	Reason         string   `json:"reason"`
	FailedCriteria []string `json:"failed_criteria"`
	IsLastResort   bool     `json:"is_last_resort"`
}

// meal is one entry of a plan's daily menu, served by the legacy
// detalles-minuta endpoint. DayOfWeek is 1 (Monday) through 7 (Sunday).
type meal struct {
	ID          string `json:"id"`
	PlanID      string `json:"plan_id"`
	DayOfWeek   int    `json:"day_of_week"`
	MealType    string `json:"meal_type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// user maps to the users table. AuthToken and Password are hidden from JSON
// responses. PersonaID links the login to the clinical persona record.
type user struct {
	ID        int        `json:"id"         db:"id"`
	Username  string     `json:"username"   db:"username"`
	Email     string     `json:"email"      db:"email"`
	PersonaID string     `json:"persona_id" db:"persona_id"`
	AuthToken string     `json:"-"          db:"auth_token"`
	Password  string     `json:"-"          db:"password"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}
