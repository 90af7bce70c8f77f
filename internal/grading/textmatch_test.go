package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldAnswer(t *testing.T) {
	assert.Equal(t, "paris", foldAnswer("  Paris! "))
	assert.Equal(t, "its the mitochondria", foldAnswer("It's\tthe   MITOCHONDRIA."))
	assert.Equal(t, "", foldAnswer(" ?! "))
}

func TestEditDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"energy", "energie", 2},
		{"café", "cafe", 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, editDistance(tc.a, tc.b), "%q/%q", tc.a, tc.b)
		assert.Equal(t, tc.want, editDistance(tc.b, tc.a), "%q/%q", tc.b, tc.a)
	}
}

func TestMatchesReference(t *testing.T) {
	refs := []string{"", "Photosynthesis"}
	assert.True(t, matchesReference("photosynthesis.", refs, 0))
	assert.False(t, matchesReference("photosynthesys", refs, 0))
	assert.True(t, matchesReference("photosynthesys", refs, 1))
	assert.False(t, matchesReference("   ", refs, 5))
}
