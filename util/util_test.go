package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetKeysSorted(t *testing.T) {
	m := map[string]int{"b": 1, "c": 2, "a": 3}
	assert.Equal(t, []string{"a", "b", "c"}, GetKeys(m))
}

func TestClamp(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(1, Clamp(0, 1, 10))
	assert.Equal(10, Clamp(12, 1, 10))
	assert.Equal(5, Clamp(5, 1, 10))
}

func TestSumDurations(t *testing.T) {
	total := Sum([]time.Duration{time.Millisecond, 2 * time.Millisecond})
	assert.Equal(t, uint64(3*time.Millisecond), total)
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("Midi Through Port-0", "through port"))
	assert.False(t, ContainsFold("Launchkey 49", "novation"))
}
