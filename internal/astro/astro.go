// Package astro supplies the astrological compatibility collaborator: a
// pure function of two profiles' natal placements returning a letter grade.
// The natal chart itself (sun/moon/rising) is derived at onboarding time and
// stored on the profile; this package only reads the stored placements.
package astro

import (
	"fmt"
	"time"

	"github.com/astropair/astropair/internal/db"
	svcErr "github.com/astropair/astropair/internal/errors"
	"github.com/astropair/astropair/internal/grade"
)

// Element groups per sign. Same-element pairs harmonize best; fire-air and
// earth-water are the classical complementary axes.
var elements = map[string]string{
	"aries": "fire", "leo": "fire", "sagittarius": "fire",
	"taurus": "earth", "virgo": "earth", "capricorn": "earth",
	"gemini": "air", "libra": "air", "aquarius": "air",
	"cancer": "water", "scorpio": "water", "pisces": "water",
}

var complementary = map[string]string{
	"fire":  "air",
	"air":   "fire",
	"earth": "water",
	"water": "earth",
}

// Grader grades astrological compatibility from stored placements.
// Deterministic: the same two profiles always produce the same grade.
type Grader struct{}

func NewGrader() *Grader { return &Grader{} }

// Grade compares the sun (weight 3), moon (weight 2) and rising (weight 1)
// placements of both profiles. Placements missing on either side are skipped;
// if no placement is comparable at all, the pair has insufficient data.
func (g *Grader) Grade(a, b *db.Profile) (grade.Grade, error) {
	if !a.HasBirthData() || !b.HasBirthData() {
		return "", fmt.Errorf("astro grading %d/%d: %w", a.ID, b.ID, svcErr.ErrInsufficientData)
	}

	type placement struct {
		signA, signB string
		weight       int
	}
	placements := []placement{
		{a.SunSign, b.SunSign, 3},
		{a.MoonSign, b.MoonSign, 2},
		{a.RisingSign, b.RisingSign, 1},
	}

	points, max := 0, 0
	for _, p := range placements {
		if p.signA == "" || p.signB == "" {
			continue
		}
		points += affinity(p.signA, p.signB) * p.weight
		max += 3 * p.weight
	}
	if max == 0 {
		return "", fmt.Errorf("astro grading %d/%d: no comparable placements: %w", a.ID, b.ID, svcErr.ErrInsufficientData)
	}

	return gradeForRatio(float64(points) / float64(max)), nil
}

// affinity scores a sign pair 1..3: same element 3, complementary elements
// 2, anything else 1.
func affinity(signA, signB string) int {
	ea, eb := elements[signA], elements[signB]
	switch {
	case ea == "" || eb == "":
		return 1
	case ea == eb:
		return 3
	case complementary[ea] == eb:
		return 2
	default:
		return 1
	}
}

func gradeForRatio(r float64) grade.Grade {
	switch {
	case r >= 0.99:
		return grade.APlus
	case r >= 0.88:
		return grade.A
	case r >= 0.80:
		return grade.AMinus
	case r >= 0.72:
		return grade.BPlus
	case r >= 0.64:
		return grade.B
	case r >= 0.58:
		return grade.BMinus
	case r >= 0.52:
		return grade.CPlus
	case r >= 0.47:
		return grade.C
	case r >= 0.42:
		return grade.CMinus
	case r >= 0.36:
		return grade.D
	default:
		return grade.F
	}
}

type signBoundary struct {
	month time.Month
	day   int
	sign  string
}

// Boundaries are the first day of each sign, in calendar order.
var boundaries = []signBoundary{
	{time.January, 20, "aquarius"},
	{time.February, 19, "pisces"},
	{time.March, 21, "aries"},
	{time.April, 20, "taurus"},
	{time.May, 21, "gemini"},
	{time.June, 21, "cancer"},
	{time.July, 23, "leo"},
	{time.August, 23, "virgo"},
	{time.September, 23, "libra"},
	{time.October, 23, "scorpio"},
	{time.November, 22, "sagittarius"},
	{time.December, 22, "capricorn"},
}

// SignForDate returns the sun sign for a birth date. Used when deriving
// placements at seed/onboarding time.
func SignForDate(t time.Time) string {
	sign := "capricorn" // before Jan 20
	for _, b := range boundaries {
		if t.Month() > b.month || (t.Month() == b.month && t.Day() >= b.day) {
			sign = b.sign
		}
	}
	return sign
}
