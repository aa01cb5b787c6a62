package main

import "math"

// activityMultipliers maps activity levels to their TDEE multiplier. This is
// the single source of truth for valid activity levels — also used by the
// profile normalizer to decide whether a level needs the moderate fallback.
var activityMultipliers = map[activityLevel]float64{
	activitySedentary: 1.2,
	activityLight:     1.375,
	activityModerate:  1.55,
	activityHigh:      1.725,
	activityVeryHigh:  1.9,
}

// renalAdjustmentFactor is the 10% caloric reduction applied for dialysis
// patients, whose recommended intake is lower than the general
// Harris-Benedict estimate.
const renalAdjustmentFactor = 0.9

// Defensive biometric defaults, used when the medical profile is incomplete.
// Callers must flag defaulted fields (see estimateForProfile) so a default
// never silently masks a missing profile.
const (
	defaultWeightKG = 70.0
	defaultHeightM  = 1.70
	defaultAge      = 40
)

// calorieCategories is the catalog's plan-calorie ladder. Computed targets
// are snapped to the nearest rung when recommending a plan size.
var calorieCategories = []int{1400, 1600, 1800, 2000, 2200}

// estimateCalories computes the target daily caloric intake via the revised
// Harris-Benedict BMR equations, an activity multiplier, and an optional
// renal adjustment. It never fails: an unknown activity level falls back to
// moderate (1.55), and any patientSex other than male uses the female
// equation. Result is rounded to the nearest kcal.
func estimateCalories(sex patientSex, weightKG, heightM float64, age int, activity activityLevel, renalAdjustment bool) int {
	heightCM := heightM * 100

	var bmr float64
	if sex == sexMale {
		bmr = 88.362 + 13.397*weightKG + 4.799*heightCM - 5.677*float64(age)
	} else {
		bmr = 447.593 + 9.247*weightKG + 3.098*heightCM - 4.330*float64(age)
	}

	mult, found := activityMultipliers[activity]
	if !found {
		mult = activityMultipliers[activityModerate]
	}
	kcal := bmr * mult

	if renalAdjustment {
		kcal *= renalAdjustmentFactor
	}
	// Round once, after the adjustment, so the adjusted value is exactly
	// round(0.9 * unadjusted-float) rather than a double-rounded drift.
	return int(math.Round(kcal))
}

// estimateForProfile resolves missing biometric fields to the defensive
// defaults and returns the estimate together with the names of every
// defaulted field. Callers log the list — a plan matched on defaults instead
// of real patient data must be visible in the record.
func estimateForProfile(p *patientProfile, renalAdjustment bool) (kcal int, defaulted []string) {
	sex := p.Sex
	if sex != sexMale && sex != sexFemale {
		sex = sexMale
		defaulted = append(defaulted, "sex")
	}

	weight := defaultWeightKG
	if p.WeightKG != nil && *p.WeightKG > 0 {
		weight = *p.WeightKG
	} else {
		defaulted = append(defaulted, "weight_kg")
	}

	height := defaultHeightM
	if p.HeightM != nil && *p.HeightM > 0 {
		height = *p.HeightM
	} else {
		defaulted = append(defaulted, "height_m")
	}

	age := defaultAge
	if p.Age != nil && *p.Age > 0 {
		age = *p.Age
	} else {
		defaulted = append(defaulted, "age")
	}

	activity := p.Activity
	if _, ok := activityMultipliers[activity]; !ok {
		activity = activityModerate
		defaulted = append(defaulted, "activity_level")
	}

	return estimateCalories(sex, weight, height, age, activity, renalAdjustment), defaulted
}

// calorieCategory snaps an exact kcal value to the nearest rung of the
// catalog ladder and reports the absolute distance. Ties keep the lower rung.
func calorieCategory(kcal int) (category, diff int) {
	category = calorieCategories[0]
	diff = abs(kcal - category)
	for _, c := range calorieCategories[1:] {
		if d := abs(kcal - c); d < diff {
			category, diff = c, d
		}
	}
	return category, diff
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
