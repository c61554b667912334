package astro_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astropair/astropair/internal/astro"
	"github.com/astropair/astropair/internal/db"
	svcErr "github.com/astropair/astropair/internal/errors"
)

func profileWithPlacements(id uint64, sun, moon, rising string) *db.Profile {
	birth := time.Date(1990, time.June, 15, 0, 0, 0, 0, time.UTC)
	return &db.Profile{
		ID:         id,
		BirthDate:  &birth,
		SunSign:    sun,
		MoonSign:   moon,
		RisingSign: rising,
	}
}

func TestSignForDate(t *testing.T) {
	cases := []struct {
		date time.Time
		want string
	}{
		{time.Date(1990, time.March, 21, 0, 0, 0, 0, time.UTC), "aries"},
		{time.Date(1990, time.March, 20, 0, 0, 0, 0, time.UTC), "pisces"},
		{time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC), "capricorn"},
		{time.Date(1990, time.December, 25, 0, 0, 0, 0, time.UTC), "capricorn"},
		{time.Date(1990, time.August, 1, 0, 0, 0, 0, time.UTC), "leo"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, astro.SignForDate(c.date), c.date.Format("Jan 2"))
	}
}

func TestGradeDeterministic(t *testing.T) {
	g := astro.NewGrader()
	a := profileWithPlacements(1, "aries", "leo", "gemini")
	b := profileWithPlacements(2, "sagittarius", "aries", "libra")

	first, err := g.Grade(a, b)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := g.Grade(a, b)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestGradeSameElementBeatsClash(t *testing.T) {
	g := astro.NewGrader()
	viewer := profileWithPlacements(1, "aries", "leo", "sagittarius")

	sameElement := profileWithPlacements(2, "leo", "aries", "leo")     // all fire
	clashing := profileWithPlacements(3, "taurus", "cancer", "virgo") // earth/water

	high, err := g.Grade(viewer, sameElement)
	require.NoError(t, err)
	low, err := g.Grade(viewer, clashing)
	require.NoError(t, err)

	highVal, err := high.Value()
	require.NoError(t, err)
	lowVal, err := low.Value()
	require.NoError(t, err)
	assert.Greater(t, highVal, lowVal)
}

func TestGradeInsufficientData(t *testing.T) {
	g := astro.NewGrader()
	complete := profileWithPlacements(1, "aries", "leo", "gemini")
	missing := &db.Profile{ID: 2} // no birth data at all

	_, err := g.Grade(complete, missing)
	require.Error(t, err)
	assert.True(t, errors.Is(err, svcErr.ErrInsufficientData))
}

func TestGradeSkipsMissingSecondaryPlacements(t *testing.T) {
	g := astro.NewGrader()
	a := profileWithPlacements(1, "aries", "", "")
	b := profileWithPlacements(2, "leo", "cancer", "virgo")

	// sun-only comparison still grades
	_, err := g.Grade(a, b)
	assert.NoError(t, err)
}
