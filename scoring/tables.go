package scoring

import "fitnesstest-server-go/models"

// ScoreRange maps the closed interval [Min, Max] to a score. Unbounded marks
// an open-ended top band (Max ignored).
type ScoreRange struct {
	Min       float64
	Max       float64
	Score     int
	Unbounded bool
}

// top is an open-ended band starting at min.
func top(min float64, score int) ScoreRange {
	return ScoreRange{Min: min, Score: score, Unbounded: true}
}

func band(min, max float64, score int) ScoreRange {
	return ScoreRange{Min: min, Max: max, Score: score}
}

// scoreTables holds the band list per component per gender. Bands cover the
// expected measurement domain with no gaps; values outside every band score 0.
// For 50msprint lower is better, so the top score sits in the lowest band.
var scoreTables = map[string]map[models.Gender][]ScoreRange{
	models.AveGrip: {
		models.Boy: {
			top(26, 10), band(23, 25, 9), band(20, 22, 8), band(17, 19, 7),
			band(14, 16, 6), band(11, 13, 5), band(9, 10, 4), band(7, 8, 3),
			band(5, 6, 2), band(1, 4, 1),
		},
		models.Girl: {
			top(25, 10), band(22, 24, 9), band(19, 21, 8), band(16, 18, 7),
			band(13, 15, 6), band(11, 12, 5), band(9, 10, 4), band(7, 8, 3),
			band(4, 6, 2), band(1, 3, 1),
		},
	},
	models.SitUps: {
		models.Boy: {
			top(26, 10), band(23, 25, 9), band(20, 22, 8), band(18, 19, 7),
			band(15, 17, 6), band(12, 14, 5), band(9, 11, 4), band(6, 8, 3),
			band(3, 5, 2), band(1, 2, 1),
		},
		models.Girl: {
			top(23, 10), band(20, 22, 9), band(18, 19, 8), band(16, 17, 7),
			band(14, 15, 6), band(12, 13, 5), band(9, 11, 4), band(6, 8, 3),
			band(3, 5, 2), band(1, 2, 1),
		},
	},
	models.SeatedToeTouch: {
		models.Boy: {
			top(49, 10), band(43, 48, 9), band(38, 42, 8), band(34, 37, 7),
			band(30, 33, 6), band(27, 29, 5), band(23, 26, 4), band(19, 22, 3),
			band(15, 18, 2), band(1, 14, 1),
		},
		models.Girl: {
			top(52, 10), band(46, 51, 9), band(41, 45, 8), band(37, 40, 7),
			band(33, 36, 6), band(29, 32, 5), band(25, 28, 4), band(21, 24, 3),
			band(18, 20, 2), band(1, 17, 1),
		},
	},
	models.SideSteps: {
		models.Boy: {
			top(50, 10), band(46, 49, 9), band(42, 45, 8), band(38, 41, 7),
			band(34, 37, 6), band(30, 33, 5), band(26, 29, 4), band(22, 25, 3),
			band(18, 21, 2), band(1, 17, 1),
		},
		models.Girl: {
			top(47, 10), band(43, 46, 9), band(40, 42, 8), band(36, 39, 7),
			band(32, 35, 6), band(28, 31, 5), band(25, 27, 4), band(21, 24, 3),
			band(17, 20, 2), band(1, 16, 1),
		},
	},
	models.ShuttleRuns: {
		models.Boy: {
			top(80, 10), band(69, 79, 9), band(57, 68, 8), band(45, 56, 7),
			band(33, 44, 6), band(23, 32, 5), band(15, 22, 4), band(10, 14, 3),
			band(8, 9, 2), band(1, 7, 1),
		},
		models.Girl: {
			top(64, 10), band(54, 63, 9), band(44, 53, 8), band(35, 43, 7),
			band(26, 34, 6), band(19, 25, 5), band(14, 18, 4), band(10, 13, 3),
			band(8, 9, 2), band(1, 7, 1),
		},
	},
	models.Sprint50m: {
		models.Boy: {
			band(0.1, 8.0, 10), band(8.1, 8.4, 9), band(8.5, 8.8, 8),
			band(8.9, 9.3, 7), band(9.4, 9.9, 6), band(10.0, 10.6, 5),
			band(10.7, 11.4, 4), band(11.5, 12.2, 3), band(12.3, 13.0, 2),
			top(13.1, 1),
		},
		models.Girl: {
			band(0.1, 8.3, 10), band(8.4, 8.7, 9), band(8.8, 9.1, 8),
			band(9.2, 9.6, 7), band(9.7, 10.2, 6), band(10.3, 10.9, 5),
			band(11.0, 11.6, 4), band(11.7, 12.4, 3), band(12.5, 13.2, 2),
			top(13.3, 1),
		},
	},
	models.LongJump: {
		models.Boy: {
			top(192, 10), band(180, 191, 9), band(168, 179, 8), band(156, 167, 7),
			band(143, 155, 6), band(130, 142, 5), band(117, 129, 4),
			band(105, 116, 3), band(93, 104, 2), band(1, 92, 1),
		},
		models.Girl: {
			top(181, 10), band(170, 180, 9), band(160, 169, 8), band(147, 159, 7),
			band(134, 146, 6), band(121, 133, 5), band(109, 120, 4),
			band(98, 108, 3), band(85, 97, 2), band(1, 84, 1),
		},
	},
	models.SoftballThrow: {
		models.Boy: {
			top(40, 10), band(35, 39, 9), band(30, 34, 8), band(24, 29, 7),
			band(18, 23, 6), band(13, 17, 5), band(10, 12, 4), band(7, 9, 3),
			band(5, 6, 2), band(1, 4, 1),
		},
		models.Girl: {
			top(25, 10), band(21, 24, 9), band(17, 20, 8), band(14, 16, 7),
			band(11, 13, 6), band(8, 10, 5), band(6, 7, 4), band(5, 5, 3),
			band(4, 4, 2), band(1, 3, 1),
		},
	},
}

// gradeThresholds holds, per grade level, the five descending minimum totals
// for letters A through E. A total below every threshold is also an E.
var gradeThresholds = map[string][5]int{
	"G1": {39, 33, 27, 22, 21},
	"G2": {47, 41, 34, 27, 26},
	"G3": {53, 46, 39, 32, 31},
	"G4": {59, 52, 45, 38, 37},
	"G5": {65, 58, 50, 42, 41},
	"G6": {71, 63, 55, 46, 45},
}

var gradeLetters = [5]string{"A", "B", "C", "D", "E"}
