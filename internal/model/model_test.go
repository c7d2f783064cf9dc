package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKnownWarningCategory(t *testing.T) {
	for _, name := range WarningCategories {
		assert.True(t, KnownWarningCategory(name))
	}
	assert.False(t, KnownWarningCategory("Door Open While Moving"))
	assert.False(t, KnownWarningCategory("pcw-lf")) // exact match only
	assert.False(t, KnownWarningCategory(""))
}
