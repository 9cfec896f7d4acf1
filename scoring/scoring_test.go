package scoring

import (
	"testing"

	"fitnesstest-server-go/models"
)

func buildRecord(gender models.Gender, class string) models.StudentRecord {
	return models.StudentRecord{
		EnName:       "Taro Yamada",
		Gender:       gender,
		ClassSection: class,
		Trial1:       models.NewTrialMeasurements(),
		Trial2:       models.NewTrialMeasurements(),
	}
}

func TestSprintTruncatesBeforeLookup(t *testing.T) {
	if got := Score(models.Sprint50m, models.Boy, 8.06, 0); got != 10 {
		t.Fatalf("expected 8.06 to truncate to 8.0 and score 10, got %d", got)
	}
	if got := Score(models.Sprint50m, models.Boy, 8.19, 0); got != 9 {
		t.Fatalf("expected 8.19 to truncate to 8.1 and score 9, got %d", got)
	}
	if got := Score(models.Sprint50m, models.Boy, 8.1, 0); got != 9 {
		t.Fatalf("expected 8.1 to score 9, got %d", got)
	}
}

func TestSprintIgnoresSecondTrial(t *testing.T) {
	// A slower second attempt must not change the score.
	if got := Score(models.Sprint50m, models.Boy, 8.0, 13.5); got != 10 {
		t.Fatalf("expected second trial to be ignored, got %d", got)
	}
}

func TestBestOfTwoTrials(t *testing.T) {
	if got := Score(models.LongJump, models.Boy, 150, 170); got != 8 {
		t.Fatalf("expected best trial (170) to score 8, got %d", got)
	}
	// Unset second trial falls back to the first.
	if got := Score(models.LongJump, models.Boy, 150, 0); got != 6 {
		t.Fatalf("expected 150 to score 6, got %d", got)
	}
}

func TestOutOfRangeScoresZero(t *testing.T) {
	if got := Score(models.SitUps, models.Girl, 0, 0); got != 0 {
		t.Fatalf("expected unset measurement to score 0, got %d", got)
	}
	if got := Score(models.SitUps, models.Girl, -3, 0); got != 0 {
		t.Fatalf("expected negative measurement to score 0, got %d", got)
	}
}

func TestEveryBandValueScoresOnce(t *testing.T) {
	// Integer sweep over each table's covered domain: exactly one band must
	// claim each value, and adjacent bands must not leave integer gaps.
	for component, byGender := range scoreTables {
		for gender, ranges := range byGender {
			for v := 1.0; v <= 250; v++ {
				hits := 0
				for _, r := range ranges {
					if v >= r.Min && (r.Unbounded || v <= r.Max) {
						hits++
					}
				}
				covered := v >= ranges[len(ranges)-1].Min || component == models.Sprint50m
				if covered && hits != 1 {
					t.Fatalf("%s/%s: value %v matched %d bands", component, gender, v, hits)
				}
			}
		}
	}
}

func TestGripUsesMaxOfFourValues(t *testing.T) {
	rec := buildRecord(models.Boy, "G3A")
	rec.Trial1[models.GripL] = 12
	rec.Trial1[models.GripR] = 14
	rec.Trial2[models.GripL] = 13
	rec.Trial2[models.GripR] = 11

	if got := ComponentScore(models.AveGrip, rec); got != 6 {
		t.Fatalf("expected max grip 14 to score 6, got %d", got)
	}

	// Raising any single one of the four values to a new maximum moves the
	// score with the table.
	for _, key := range []string{models.GripL, models.GripR} {
		for _, trial := range []models.TrialMeasurements{rec.Trial1, rec.Trial2} {
			prev := trial[key]
			trial[key] = 21
			if got := ComponentScore(models.AveGrip, rec); got != 8 {
				t.Fatalf("expected new max 21 via %s to score 8, got %d", key, got)
			}
			trial[key] = prev
		}
	}
}

func TestGripSecondTrialFallsBackPerHand(t *testing.T) {
	rec := buildRecord(models.Girl, "G2A")
	rec.Trial1[models.GripL] = 16
	rec.Trial1[models.GripR] = 10
	// No second attempt recorded for either hand.
	if got := GripValue(rec.Trial1, rec.Trial2); got != 16 {
		t.Fatalf("expected grip value 16, got %v", got)
	}
}

func TestDetermineGrade(t *testing.T) {
	cases := []struct {
		total int
		level string
		want  string
	}{
		{45, "G2", "B"},
		{45, "G2A", "B"},
		{47, "G2", "A"},
		{34, "G2", "C"},
		{26, "G2", "E"},
		{10, "G2", "E"},
		{50, "ZZ", "E"},
	}
	for _, c := range cases {
		if got := DetermineGrade(c.total, c.level); got != c.want {
			t.Fatalf("DetermineGrade(%d, %q) = %q, want %q", c.total, c.level, got, c.want)
		}
	}
}

func TestDetermineGradeIsMonotonic(t *testing.T) {
	rank := map[string]int{"A": 5, "B": 4, "C": 3, "D": 2, "E": 1}
	for level := range gradeThresholds {
		prev := 0
		for total := 0; total <= 80; total++ {
			r := rank[DetermineGrade(total, level)]
			if r < prev {
				t.Fatalf("grade for level %s dropped at total %d", level, total)
			}
			prev = r
		}
	}
}

func TestTotalScoreSumsEightComponents(t *testing.T) {
	rec := buildRecord(models.Boy, "G2A")
	rec.Trial1[models.GripL] = 26 // 10
	rec.Trial1[models.SitUps] = 26
	rec.Trial1[models.SeatedToeTouch] = 49
	rec.Trial1[models.SideSteps] = 50
	rec.Trial1[models.ShuttleRuns] = 80
	rec.Trial1[models.Sprint50m] = 7.9
	rec.Trial1[models.LongJump] = 192
	rec.Trial1[models.SoftballThrow] = 40

	if got := TotalScore(rec); got != 80 {
		t.Fatalf("expected perfect total 80, got %d", got)
	}

	sheet := Sheet(rec)
	if sheet.Total != 80 || sheet.Grade != "A" {
		t.Fatalf("expected total 80 grade A, got %d %s", sheet.Total, sheet.Grade)
	}
	if len(sheet.Components) != 8 {
		t.Fatalf("expected 8 component scores, got %d", len(sheet.Components))
	}
}

func TestEmptyRecordScoresZeroEverywhere(t *testing.T) {
	rec := buildRecord(models.Girl, "G1A")
	sheet := Sheet(rec)
	if sheet.Total != 0 {
		t.Fatalf("expected zero total for untested student, got %d", sheet.Total)
	}
	if sheet.Grade != "E" {
		t.Fatalf("expected grade E for zero total, got %s", sheet.Grade)
	}
}
