package grade

import (
	"fmt"
	"math"
)

// Grade is a letter grade (optionally with a +/- modifier) summarizing one
// dimension of compatibility between two profiles.
type Grade string

const (
	APlus  Grade = "A+"
	A      Grade = "A"
	AMinus Grade = "A-"
	BPlus  Grade = "B+"
	B      Grade = "B"
	BMinus Grade = "B-"
	CPlus  Grade = "C+"
	C      Grade = "C"
	CMinus Grade = "C-"
	D      Grade = "D"
	F      Grade = "F"
)

// Weighting of the two compatibility dimensions in the combined score.
const (
	astroWeight = 0.4
	quizWeight  = 0.6
)

// scale maps every grade to its numeric sub-score. The mapping is total and
// strictly monotonic in grade order (F worst, A+ best).
var scale = map[Grade]int{
	APlus:  98,
	A:      95,
	AMinus: 90,
	BPlus:  87,
	B:      83,
	BMinus: 80,
	CPlus:  77,
	C:      73,
	CMinus: 70,
	D:      60,
	F:      40,
}

// Ordered lists all grades from worst to best.
var Ordered = []Grade{F, D, CMinus, C, CPlus, BMinus, B, BPlus, AMinus, A, APlus}

// Valid reports whether g is a known grade.
func (g Grade) Valid() bool {
	_, ok := scale[g]
	return ok
}

// Value returns the numeric sub-score for g.
func (g Grade) Value() (int, error) {
	v, ok := scale[g]
	if !ok {
		return 0, fmt.Errorf("unknown grade %q", string(g))
	}
	return v, nil
}

// Combine merges an astrological grade and a questionnaire grade into a
// single 0-100 score: 0.4*astro + 0.6*questionnaire, rounded to the nearest
// integer and clamped. Pure function: no I/O, no randomness.
func Combine(astro, quiz Grade) (int, error) {
	a, err := astro.Value()
	if err != nil {
		return 0, fmt.Errorf("astro grade: %w", err)
	}
	q, err := quiz.Value()
	if err != nil {
		return 0, fmt.Errorf("questionnaire grade: %w", err)
	}
	combined := int(math.Round(astroWeight*float64(a) + quizWeight*float64(q)))
	return clamp(combined), nil
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
