package main

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

/* ─── Product constants ──────────────────────────────────────────────── */

// Scoring weights and thresholds. These are product-chosen values carried
// over from the clinical team's rubric; they live in one block so a review
// changes one place.
const (
	weightRestriction = 20 // per unmet dietary restriction
	weightDialysis    = 30 // dialysis modality mismatch
	weightCalories    = 10 // caloric deviation beyond tolerance

	// calorieToleranceKcal was tightened from ±500 to ±100. 100 is the
	// current contractual value; the tightening has no documented clinical
	// derivation and is worth revisiting with a nephrology dietitian.
	calorieToleranceKcal = 100

	compatibleThreshold = 70 // score at or above this is "compatible"
	acceptanceFloor     = 50 // below this, with alternatives, no plan is assigned
	lastResortCap       = 50 // ceiling for a sex-mismatched sole candidate
)

// Criterion keys, in deduction order. Stable identifiers surfaced to clients
// in failed_criteria.
const (
	criterionLowSodium     = "low_sodium"
	criterionLowPotassium  = "low_potassium"
	criterionLowPhosphorus = "low_phosphorus"
	criterionLowProtein    = "low_protein"
	criterionDialysisType  = "dialysis_type"
	criterionCalories      = "calories"
	criterionSex           = "sex"
)

/* ─── Candidate Filter ───────────────────────────────────────────────── */

// filterBySex narrows the catalog to plans compatible with the patient's
// sex. A plan qualifies when its sex is unspecified, marked for both, or
// equals the patient's (values are already normalized at the wire boundary).
//
// When filtering eliminates everything but the catalog holds exactly one
// plan, that plan is retained as a last resort — an imperfect plan beats no
// plan when nothing else exists — and lastResort=true tells the scorer to
// penalize it. An empty result with lastResort=false is definitive: the
// caller must not proceed to scoring.
func filterBySex(candidates []dietPlan, sex patientSex) (matches []dietPlan, lastResort bool) {
	for _, p := range candidates {
		if planSexCompatible(p, sex) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 && len(candidates) == 1 {
		return candidates, true
	}
	return matches, false
}

func planSexCompatible(p dietPlan, sex patientSex) bool {
	return p.Sex == sexUnspecified || p.Sex == sexBoth || p.Sex == sex
}

/* ─── Compatibility Scorer ───────────────────────────────────────────── */

// scorePlan scores one candidate against the patient's restrictions,
// dialysis modality, and caloric target. Starts at 100 and deducts a fixed
// weight per failed criterion; isLastResort additionally records a sex
// failure and caps the result at 50.
func scorePlan(p dietPlan, r dietaryRestrictions, modality dialysisType, targetKcal int, isLastResort bool) compatibilityResult {
	score := 100
	var failed []string

	if r.LowSodium && !p.LowSodium {
		score -= weightRestriction
		failed = append(failed, criterionLowSodium)
	}
	if r.LowPotassium && !p.LowPotassium {
		score -= weightRestriction
		failed = append(failed, criterionLowPotassium)
	}
	if r.LowPhosphorus && !p.LowPhosphorus {
		score -= weightRestriction
		failed = append(failed, criterionLowPhosphorus)
	}
	if r.LowProtein && !p.LowProtein {
		score -= weightRestriction
		failed = append(failed, criterionLowProtein)
	}

	// Modality only counts when the patient's is known; a "both" plan fits
	// every modality.
	if modality != dialysisNone && p.Dialysis != dialysisBoth && p.Dialysis != modality {
		score -= weightDialysis
		failed = append(failed, criterionDialysisType)
	}

	if math.Abs(p.Calories-float64(targetKcal)) > calorieToleranceKcal {
		score -= weightCalories
		failed = append(failed, criterionCalories)
	}

	if isLastResort {
		failed = append(failed, criterionSex)
		if score > lastResortCap {
			score = lastResortCap
		}
	}
	if score < 0 {
		score = 0
	}

	return compatibilityResult{
		Compatible:     score >= compatibleThreshold,
		Percentage:     score,
		Reason:         reasonForCriteria(failed, isLastResort),
		FailedCriteria: failed,
		IsLastResort:   isLastResort,
	}
}

// criterionMessages holds the user-facing clause for each failed criterion.
var criterionMessages = map[string]string{
	criterionLowSodium:     "does not meet your sodium restriction",
	criterionLowPotassium:  "does not meet your potassium restriction",
	criterionLowPhosphorus: "does not meet your phosphorus restriction",
	criterionLowProtein:    "does not meet your protein restriction",
	criterionDialysisType:  "is not designed for your dialysis type",
	criterionSex:           "is not designed for your sex",
	criterionCalories:      "has a caloric content different from your recommendation",
}

// reasonForCriteria builds the explanatory text from failed criteria. At most
// two are spelled out so the message stays readable; the rest are counted.
func reasonForCriteria(failed []string, isLastResort bool) string {
	if len(failed) == 0 {
		return "This plan is compatible with your needs"
	}

	shown := failed
	if len(shown) > 2 {
		shown = shown[:2]
	}
	clauses := make([]string, 0, len(shown))
	for _, c := range shown {
		msg, ok := criterionMessages[c]
		if !ok {
			msg = c
		}
		clauses = append(clauses, msg)
	}

	reason := "This plan " + strings.Join(clauses, " and ")
	if extra := len(failed) - len(shown); extra > 0 {
		if extra == 1 {
			reason += " (and 1 more criterion)"
		} else {
			reason += " (and " + strconv.Itoa(extra) + " more criteria)"
		}
	}
	if isLastResort {
		reason += ". It is the only plan available, so it is offered despite the mismatch"
	}
	return reason
}

/* ─── Selection ──────────────────────────────────────────────────────── */

// selectBestPlan scores every candidate and applies the strict
// max-then-tiebreak ordering: highest score wins, ties broken by the smaller
// absolute caloric deviation from target. Returns errNoSuitablePlan when the
// best score is under the acceptance floor and alternatives existed, and
// errMatchInconsistency when the would-be winner fails the final sex
// re-verification (an internal bug guard, never silently returned).
//
// The sole last-resort candidate bypasses both the floor and the final sex
// check — it is returned regardless of score, tagged with its failures.
func selectBestPlan(sex patientSex, candidates []dietPlan, r dietaryRestrictions, modality dialysisType, targetKcal int, isLastResort bool) (dietPlan, compatibilityResult, error) {
	if len(candidates) == 0 {
		return dietPlan{}, compatibilityResult{}, errNoPlansAvailable
	}

	type scored struct {
		plan   dietPlan
		result compatibilityResult
		delta  float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, p := range candidates {
		ranked = append(ranked, scored{
			plan:   p,
			result: scorePlan(p, r, modality, targetKcal, isLastResort),
			delta:  math.Abs(p.Calories - float64(targetKcal)),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].result.Percentage != ranked[j].result.Percentage {
			return ranked[i].result.Percentage > ranked[j].result.Percentage
		}
		return ranked[i].delta < ranked[j].delta
	})

	best := ranked[0]

	if isLastResort && len(candidates) == 1 {
		return best.plan, best.result, nil
	}
	if best.result.Percentage < acceptanceFloor && len(candidates) > 1 {
		return dietPlan{}, compatibilityResult{}, errNoSuitablePlan
	}
	// Final consistency check: a winner that slipped past the sex filter
	// indicates a bug upstream. Discard the match rather than return it.
	if !planSexCompatible(best.plan, sex) {
		return dietPlan{}, compatibilityResult{}, errMatchInconsistency
	}
	return best.plan, best.result, nil
}
