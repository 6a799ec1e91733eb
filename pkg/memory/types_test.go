package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-10))
	assert.Equal(t, 0, ClampScore(0))
	assert.Equal(t, 55, ClampScore(55))
	assert.Equal(t, 100, ClampScore(100))
	assert.Equal(t, 100, ClampScore(250))
}

func TestValidCategory(t *testing.T) {
	for _, category := range AllCategories {
		assert.True(t, ValidCategory(category))
	}

	assert.False(t, ValidCategory("made_up"))
	assert.False(t, ValidCategory(""))
}

func TestKeepableCategoriesExcludesNoise(t *testing.T) {
	assert.Len(t, KeepableCategories, len(AllCategories)-1)
	assert.NotContains(t, KeepableCategories, CategoryNoise)
}

func TestHasTag(t *testing.T) {
	rec := ScoredRecord{Tags: []string{"win", "llm-scored"}}

	assert.True(t, rec.HasTag("win"))
	assert.False(t, rec.HasTag("loss"))
}
