package main

import (
	"errors"
	"testing"
)

// planFixture builds a candidate that satisfies every restriction, matches
// hemodialysis, and sits exactly on the caloric target. Individual tests
// break specific criteria.
func planFixture(id string, calories float64) dietPlan {
	return dietPlan{
		ID:            id,
		Name:          "Plan " + id,
		Sex:           sexFemale,
		Dialysis:      dialysisHemo,
		LowSodium:     true,
		LowPotassium:  true,
		LowPhosphorus: true,
		LowProtein:    true,
		Calories:      calories,
	}
}

func allRestrictions() dietaryRestrictions {
	return dietaryRestrictions{LowSodium: true, LowPotassium: true, LowPhosphorus: true, LowProtein: true}
}

/* ─── Candidate Filter tests ─────────────────────────────────────────── */

// TestFilterBySex_BothAlwaysIncluded verifies that a plan marked for both
// sexes passes the filter regardless of the patient's sex.
func TestFilterBySex_BothAlwaysIncluded(t *testing.T) {
	both := dietPlan{ID: "b", Sex: sexBoth}
	for _, sex := range []patientSex{sexMale, sexFemale} {
		matches, lastResort := filterBySex([]dietPlan{both, {ID: "m", Sex: sexMale}}, sex)
		if lastResort {
			t.Fatalf("unexpected last resort for %s", sex)
		}
		found := false
		for _, p := range matches {
			if p.ID == "b" {
				found = true
			}
		}
		if !found {
			t.Errorf("sex=%s: both-sexes plan missing from %v", sex, matches)
		}
	}
}

// TestFilterBySex_UnspecifiedIncluded verifies that plans with no sex
// designation are compatible with everyone.
func TestFilterBySex_UnspecifiedIncluded(t *testing.T) {
	matches, _ := filterBySex([]dietPlan{{ID: "u", Sex: sexUnspecified}}, sexFemale)
	if len(matches) != 1 {
		t.Errorf("expected unspecified plan to pass the filter, got %v", matches)
	}
}

// TestFilterBySex_ExactMatchOnly verifies that a male-only plan is filtered
// out for a female patient when alternatives exist.
func TestFilterBySex_ExactMatchOnly(t *testing.T) {
	pool := []dietPlan{{ID: "m", Sex: sexMale}, {ID: "f", Sex: sexFemale}}
	matches, lastResort := filterBySex(pool, sexFemale)
	if lastResort {
		t.Fatal("unexpected last resort")
	}
	if len(matches) != 1 || matches[0].ID != "f" {
		t.Errorf("matches = %v, want only plan f", matches)
	}
}

// TestFilterBySex_SingleIncompatibleIsLastResort verifies the single-entry
// fallback: one sex-incompatible plan in the whole catalog is retained with
// lastResort=true rather than leaving the patient with nothing.
func TestFilterBySex_SingleIncompatibleIsLastResort(t *testing.T) {
	matches, lastResort := filterBySex([]dietPlan{{ID: "m", Sex: sexMale}}, sexFemale)
	if !lastResort {
		t.Fatal("expected lastResort=true")
	}
	if len(matches) != 1 || matches[0].ID != "m" {
		t.Errorf("matches = %v, want the sole candidate", matches)
	}
}

// TestFilterBySex_EmptyResultIsDefinitive verifies that zero matches from a
// multi-plan pool is a definitive outcome, not a last resort.
func TestFilterBySex_EmptyResultIsDefinitive(t *testing.T) {
	pool := []dietPlan{{ID: "m1", Sex: sexMale}, {ID: "m2", Sex: sexMale}}
	matches, lastResort := filterBySex(pool, sexFemale)
	if len(matches) != 0 || lastResort {
		t.Errorf("got (%v, %v), want no matches and no last resort", matches, lastResort)
	}
}

/* ─── Compatibility Scorer tests ─────────────────────────────────────── */

// TestScorePlan_PerfectMatch verifies the 100%/compatible verdict for a plan
// meeting every restriction with matching modality and in-tolerance calories.
func TestScorePlan_PerfectMatch(t *testing.T) {
	r := scorePlan(planFixture("p", 1600), allRestrictions(), dialysisHemo, 1600, false)
	if !r.Compatible || r.Percentage != 100 {
		t.Errorf("got %d%% compatible=%v, want 100%% compatible=true", r.Percentage, r.Compatible)
	}
	if len(r.FailedCriteria) != 0 {
		t.Errorf("failed criteria = %v, want none", r.FailedCriteria)
	}
}

// TestScorePlan_SingleRestrictionFailure verifies the fixed -20 deduction:
// exactly one unmet restriction scores 80 and stays compatible.
func TestScorePlan_SingleRestrictionFailure(t *testing.T) {
	p := planFixture("p", 1600)
	p.LowSodium = false
	r := scorePlan(p, allRestrictions(), dialysisHemo, 1600, false)
	if r.Percentage != 80 || !r.Compatible {
		t.Errorf("got %d%% compatible=%v, want 80%% compatible=true", r.Percentage, r.Compatible)
	}
	if len(r.FailedCriteria) != 1 || r.FailedCriteria[0] != criterionLowSodium {
		t.Errorf("failed criteria = %v, want [low_sodium]", r.FailedCriteria)
	}
}

// TestScorePlan_DialysisMismatch verifies the -30 modality deduction and that
// 70 is still compatible (the threshold is inclusive).
func TestScorePlan_DialysisMismatch(t *testing.T) {
	p := planFixture("p", 1600)
	p.Dialysis = dialysisPeritoneal
	r := scorePlan(p, allRestrictions(), dialysisHemo, 1600, false)
	if r.Percentage != 70 || !r.Compatible {
		t.Errorf("got %d%% compatible=%v, want 70%% compatible=true", r.Percentage, r.Compatible)
	}
}

// TestScorePlan_BothModalityMatchesEverything verifies that a "both" plan
// never takes the modality deduction.
func TestScorePlan_BothModalityMatchesEverything(t *testing.T) {
	p := planFixture("p", 1600)
	p.Dialysis = dialysisBoth
	for _, modality := range []dialysisType{dialysisHemo, dialysisPeritoneal, dialysisBoth} {
		if r := scorePlan(p, allRestrictions(), modality, 1600, false); r.Percentage != 100 {
			t.Errorf("modality %s: got %d%%, want 100%%", modality, r.Percentage)
		}
	}
}

// TestScorePlan_UnknownPatientModalitySkipsCheck verifies that the modality
// criterion is waived when the patient's modality is unknown.
func TestScorePlan_UnknownPatientModalitySkipsCheck(t *testing.T) {
	p := planFixture("p", 1600)
	p.Dialysis = dialysisPeritoneal
	if r := scorePlan(p, allRestrictions(), dialysisNone, 1600, false); r.Percentage != 100 {
		t.Errorf("got %d%%, want 100%% when patient modality unknown", r.Percentage)
	}
}

// TestScorePlan_CalorieToleranceBoundary verifies the ±100 kcal tolerance:
// a deviation of exactly 100 takes no deduction, 101 takes -10.
func TestScorePlan_CalorieToleranceBoundary(t *testing.T) {
	within := scorePlan(planFixture("p", 1700), allRestrictions(), dialysisHemo, 1600, false)
	if within.Percentage != 100 {
		t.Errorf("deviation 100: got %d%%, want 100%%", within.Percentage)
	}
	beyond := scorePlan(planFixture("p", 1701), allRestrictions(), dialysisHemo, 1600, false)
	if beyond.Percentage != 90 {
		t.Errorf("deviation 101: got %d%%, want 90%%", beyond.Percentage)
	}
	if len(beyond.FailedCriteria) != 1 || beyond.FailedCriteria[0] != criterionCalories {
		t.Errorf("failed criteria = %v, want [calories]", beyond.FailedCriteria)
	}
}

// TestScorePlan_EverythingFailsClampsAtZero verifies the floor: four missed
// restrictions, a modality mismatch, and off-target calories can't go negative.
func TestScorePlan_EverythingFailsClampsAtZero(t *testing.T) {
	p := dietPlan{ID: "p", Sex: sexFemale, Dialysis: dialysisPeritoneal, Calories: 3000}
	r := scorePlan(p, allRestrictions(), dialysisHemo, 1600, false)
	if r.Percentage != 0 || r.Compatible {
		t.Errorf("got %d%% compatible=%v, want 0%% compatible=false", r.Percentage, r.Compatible)
	}
}

// TestScorePlan_LastResortCapsAtFifty verifies the last-resort path: a plan
// that would otherwise score 100 is capped at 50, records the sex criterion,
// and explains itself.
func TestScorePlan_LastResortCapsAtFifty(t *testing.T) {
	r := scorePlan(planFixture("p", 1600), allRestrictions(), dialysisHemo, 1600, true)
	if r.Percentage != 50 || r.Compatible {
		t.Errorf("got %d%% compatible=%v, want 50%% compatible=false", r.Percentage, r.Compatible)
	}
	foundSex := false
	for _, c := range r.FailedCriteria {
		if c == criterionSex {
			foundSex = true
		}
	}
	if !foundSex {
		t.Errorf("failed criteria = %v, want sex recorded", r.FailedCriteria)
	}
	if !r.IsLastResort || r.Reason == "" {
		t.Error("expected last-resort flag and explanatory reason")
	}
}

// TestScorePlan_LastResortDoesNotRaiseLowScores verifies the cap is a
// ceiling, not a floor: an already-poor plan keeps its lower score.
func TestScorePlan_LastResortDoesNotRaiseLowScores(t *testing.T) {
	p := planFixture("p", 1600)
	p.LowSodium = false
	p.LowPotassium = false
	p.LowPhosphorus = false
	// 100 - 3×20 = 40, below the 50 cap.
	r := scorePlan(p, allRestrictions(), dialysisHemo, 1600, true)
	if r.Percentage != 40 {
		t.Errorf("got %d%%, want 40%%", r.Percentage)
	}
}

/* ─── Selection tests ────────────────────────────────────────────────── */

// TestSelectBestPlan_HighestScoreWins pins the reference scenario: a fully
// matching plan beats a sodium-failing one.
func TestSelectBestPlan_HighestScoreWins(t *testing.T) {
	match := dietPlan{ID: "good", Sex: sexFemale, Dialysis: dialysisHemo, LowSodium: true, Calories: 1600}
	miss := dietPlan{ID: "bad", Sex: sexBoth, Dialysis: dialysisBoth, LowSodium: false, Calories: 1600}
	restrictions := dietaryRestrictions{LowSodium: true}

	best, result, err := selectBestPlan(sexFemale, []dietPlan{miss, match}, restrictions, dialysisHemo, 1600, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best.ID != "good" {
		t.Errorf("selected %s, want good", best.ID)
	}
	if result.Percentage != 100 || !result.Compatible {
		t.Errorf("got %d%% compatible=%v, want 100%% compatible=true", result.Percentage, result.Compatible)
	}
}

// TestSelectBestPlan_TieBrokenByCaloricDeviation verifies the strict
// max-then-tiebreak ordering: equal scores resolve to the smaller |Δkcal|.
func TestSelectBestPlan_TieBrokenByCaloricDeviation(t *testing.T) {
	// Both miss sodium and exceed the caloric tolerance, so both score 70;
	// only their deviation from target differs.
	near := planFixture("near", 1750) // deviation 150
	far := planFixture("far", 1850)   // deviation 250
	near.LowSodium = false
	far.LowSodium = false

	best, _, err := selectBestPlan(sexFemale, []dietPlan{far, near}, allRestrictions(), dialysisHemo, 1600, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best.ID != "near" {
		t.Errorf("selected %s, want near (smaller caloric deviation)", best.ID)
	}
}

// TestSelectBestPlan_AcceptanceFloor verifies that a best score under 50,
// with alternatives present, yields no assignment rather than a poor match.
func TestSelectBestPlan_AcceptanceFloor(t *testing.T) {
	// Each candidate misses all four restrictions: score 20.
	a := dietPlan{ID: "a", Sex: sexFemale, Dialysis: dialysisHemo, Calories: 1600}
	b := dietPlan{ID: "b", Sex: sexFemale, Dialysis: dialysisHemo, Calories: 1600}

	_, _, err := selectBestPlan(sexFemale, []dietPlan{a, b}, allRestrictions(), dialysisHemo, 1600, false)
	if !errors.Is(err, errNoSuitablePlan) {
		t.Errorf("err = %v, want errNoSuitablePlan", err)
	}
}

// TestSelectBestPlan_SoleLastResortBypassesFloor verifies that the single
// last-resort candidate comes back regardless of score, tagged with its
// failures.
func TestSelectBestPlan_SoleLastResortBypassesFloor(t *testing.T) {
	p := dietPlan{ID: "only", Sex: sexMale, Dialysis: dialysisPeritoneal, Calories: 3000}
	best, result, err := selectBestPlan(sexFemale, []dietPlan{p}, allRestrictions(), dialysisHemo, 1600, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best.ID != "only" || !result.IsLastResort {
		t.Errorf("got (%s, lastResort=%v), want the sole candidate flagged", best.ID, result.IsLastResort)
	}
	if result.Percentage > lastResortCap {
		t.Errorf("percentage = %d, want ≤ %d", result.Percentage, lastResortCap)
	}
}

// TestSelectBestPlan_FinalSexCheckDiscardsInconsistency verifies the bug
// guard: a sex-incompatible winner that somehow reached selection is
// discarded, not returned.
func TestSelectBestPlan_FinalSexCheckDiscardsInconsistency(t *testing.T) {
	male := planFixture("m", 1600)
	male.Sex = sexMale
	worse := planFixture("w", 1600)
	worse.Sex = sexMale
	worse.LowSodium = false

	_, _, err := selectBestPlan(sexFemale, []dietPlan{male, worse}, allRestrictions(), dialysisHemo, 1600, false)
	if !errors.Is(err, errMatchInconsistency) {
		t.Errorf("err = %v, want errMatchInconsistency", err)
	}
}

// TestSelectBestPlan_EmptyPool verifies the empty-input guard.
func TestSelectBestPlan_EmptyPool(t *testing.T) {
	_, _, err := selectBestPlan(sexFemale, nil, allRestrictions(), dialysisHemo, 1600, false)
	if !errors.Is(err, errNoPlansAvailable) {
		t.Errorf("err = %v, want errNoPlansAvailable", err)
	}
}

/* ─── Reason text tests ──────────────────────────────────────────────── */

// TestReasonForCriteria verifies the at-most-two-criteria message shape and
// the overflow counter.
func TestReasonForCriteria(t *testing.T) {
	if got := reasonForCriteria(nil, false); got != "This plan is compatible with your needs" {
		t.Errorf("empty criteria reason = %q", got)
	}

	three := []string{criterionLowSodium, criterionDialysisType, criterionCalories}
	got := reasonForCriteria(three, false)
	want := "This plan does not meet your sodium restriction and is not designed for your dialysis type (and 1 more criterion)"
	if got != want {
		t.Errorf("reason = %q, want %q", got, want)
	}
}
