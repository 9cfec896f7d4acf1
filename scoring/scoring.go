// Package scoring converts raw fitness-test measurements into the 0-10
// per-component scores and the A-E letter grade. Scores are never stored;
// they are recomputed from the current measurements on every read.
package scoring

import (
	"math"

	"fitnesstest-server-go/models"
)

// ScoredComponents lists the eight components that count toward the total,
// in report order. Grip strength is one component scored from four values.
var ScoredComponents = []string{
	models.AveGrip,
	models.SitUps,
	models.SeatedToeTouch,
	models.SideSteps,
	models.ShuttleRuns,
	models.Sprint50m,
	models.LongJump,
	models.SoftballThrow,
}

// singleAttempt marks components where only trial 1 counts. Trial 2 values
// are still stored and editable, they just never reach the lookup.
var singleAttempt = map[string]bool{
	models.SitUps:      true,
	models.Sprint50m:   true,
	models.ShuttleRuns: true,
}

const eps = 1e-9

// TruncateTenth cuts a value to one decimal place toward zero, the way
// sprint times are banded (8.06 -> 8.0, 8.19 -> 8.1).
func TruncateTenth(v float64) float64 {
	return math.Trunc(v*10+eps) / 10
}

// bestOf picks the better of two attempts, treating an unset second trial
// as a repeat of the first.
func bestOf(t1, t2 float64) float64 {
	if t2 == 0 {
		return t1
	}
	return math.Max(t1, t2)
}

// GripValue derives the single grip-strength measurement: the maximum over
// both hands and both attempts, with each hand's missing second attempt
// standing in as its first. Left and right are looked up against one table,
// never scored separately.
func GripValue(t1, t2 models.TrialMeasurements) float64 {
	left := bestOf(t1[models.GripL], t2[models.GripL])
	right := bestOf(t1[models.GripR], t2[models.GripR])
	return math.Max(left, right)
}

// lookup finds the band containing v for (component, gender). No band -> 0.
func lookup(component string, gender models.Gender, v float64) int {
	byGender, ok := scoreTables[component]
	if !ok {
		return 0
	}
	for _, r := range byGender[gender] {
		if v < r.Min-eps {
			continue
		}
		if r.Unbounded || v <= r.Max+eps {
			return r.Score
		}
	}
	return 0
}

// Score maps one component's trial values to its 0-10 score. For grip
// strength pass the derived GripValue as trial 1 or use ComponentScore.
func Score(component string, gender models.Gender, trial1, trial2 float64) int {
	v := trial1
	if !singleAttempt[component] {
		v = bestOf(trial1, trial2)
	}
	if component == models.Sprint50m {
		v = TruncateTenth(v)
	}
	return lookup(component, gender, v)
}

// ComponentScore scores one of the eight ScoredComponents straight from a
// record's trials.
func ComponentScore(component string, rec models.StudentRecord) int {
	if component == models.AveGrip {
		return lookup(models.AveGrip, rec.Gender, GripValue(rec.Trial1, rec.Trial2))
	}
	return Score(component, rec.Gender, rec.Trial1[component], rec.Trial2[component])
}

// TotalScore sums the eight component scores for a record.
func TotalScore(rec models.StudentRecord) int {
	total := 0
	for _, c := range ScoredComponents {
		total += ComponentScore(c, rec)
	}
	return total
}

// DetermineGrade maps a total score to its letter for a grade level. The
// level may be a bare prefix ("G2") or a full class section ("G2A"); only
// the first two characters are consulted. The first threshold the total
// meets wins; totals below every threshold, and unknown levels, are E.
func DetermineGrade(totalScore int, gradeLevel string) string {
	if len(gradeLevel) > 2 {
		gradeLevel = gradeLevel[:2]
	}
	thresholds, ok := gradeThresholds[gradeLevel]
	if !ok {
		return "E"
	}
	for i, min := range thresholds {
		if totalScore >= min {
			return gradeLetters[i]
		}
	}
	return "E"
}

// ScoreSheet bundles everything the report and the live-score endpoint show
// for one student.
type ScoreSheet struct {
	Components map[string]int `json:"components"`
	Total      int            `json:"total"`
	Grade      string         `json:"grade"`
}

// Sheet computes the full score sheet for a record.
func Sheet(rec models.StudentRecord) ScoreSheet {
	components := make(map[string]int, len(ScoredComponents))
	total := 0
	for _, c := range ScoredComponents {
		s := ComponentScore(c, rec)
		components[c] = s
		total += s
	}
	return ScoreSheet{
		Components: components,
		Total:      total,
		Grade:      DetermineGrade(total, rec.ClassSection),
	}
}
