package signature_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astropair/astropair/internal/utils/signature"
)

func TestHashStable(t *testing.T) {
	type filters struct {
		Genders []string `json:"genders"`
		MinAge  *int     `json:"min_age,omitempty"`
	}

	min := 25
	a, err := signature.Hash(filters{Genders: []string{"female"}, MinAge: &min})
	require.NoError(t, err)
	b, err := signature.Hash(filters{Genders: []string{"female"}, MinAge: &min})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// Reordered string sets are the same filter set and must land on the same
// cache entry.
func TestHashIgnoresStringSetOrder(t *testing.T) {
	type filters struct {
		Genders []string `json:"genders"`
	}

	a, err := signature.Hash(filters{Genders: []string{"male", "female"}})
	require.NoError(t, err)
	b, err := signature.Hash(filters{Genders: []string{"female", "male"}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHashDistinguishesFilterSets(t *testing.T) {
	type filters struct {
		Zodiac string `json:"zodiac,omitempty"`
		MaxAge *int   `json:"max_age,omitempty"`
	}

	a, err := signature.Hash(filters{Zodiac: "aries"})
	require.NoError(t, err)
	b, err := signature.Hash(filters{Zodiac: "leo"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	// absent and present optional fields must not collide
	max := 40
	c, err := signature.Hash(filters{Zodiac: "aries", MaxAge: &max})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
