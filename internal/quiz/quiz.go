// Package quiz supplies the questionnaire compatibility collaborator: a
// pure function grading two profiles by how closely their stored answer
// sheets agree.
package quiz

import (
	"fmt"

	"github.com/astropair/astropair/internal/db"
	svcErr "github.com/astropair/astropair/internal/errors"
	"github.com/astropair/astropair/internal/grade"
)

// Grader grades questionnaire compatibility by answer agreement.
type Grader struct{}

func NewGrader() *Grader { return &Grader{} }

// Grade compares the two answer sheets position by position and grades the
// agreement ratio over the longer sheet. Either side missing answers is an
// insufficient-data condition, surfaced explicitly rather than guessed.
func (g *Grader) Grade(a, b *db.Profile) (grade.Grade, error) {
	if !a.HasQuizData() || !b.HasQuizData() {
		return "", fmt.Errorf("quiz grading %d/%d: %w", a.ID, b.ID, svcErr.ErrInsufficientData)
	}

	answersA, err := a.Answers()
	if err != nil {
		return "", fmt.Errorf("quiz grading: profile %d answers corrupt: %w", a.ID, err)
	}
	answersB, err := b.Answers()
	if err != nil {
		return "", fmt.Errorf("quiz grading: profile %d answers corrupt: %w", b.ID, err)
	}
	if len(answersA) == 0 || len(answersB) == 0 {
		return "", fmt.Errorf("quiz grading %d/%d: %w", a.ID, b.ID, svcErr.ErrInsufficientData)
	}

	longer := len(answersA)
	if len(answersB) > longer {
		longer = len(answersB)
	}
	shorter := len(answersA)
	if len(answersB) < shorter {
		shorter = len(answersB)
	}

	matches := 0
	for i := 0; i < shorter; i++ {
		if answersA[i] == answersB[i] {
			matches++
		}
	}

	return gradeForAgreement(float64(matches) / float64(longer)), nil
}

func gradeForAgreement(r float64) grade.Grade {
	switch {
	case r >= 0.95:
		return grade.APlus
	case r >= 0.85:
		return grade.A
	case r >= 0.75:
		return grade.AMinus
	case r >= 0.65:
		return grade.BPlus
	case r >= 0.55:
		return grade.B
	case r >= 0.45:
		return grade.BMinus
	case r >= 0.38:
		return grade.CPlus
	case r >= 0.30:
		return grade.C
	case r >= 0.22:
		return grade.CMinus
	case r >= 0.12:
		return grade.D
	default:
		return grade.F
	}
}
