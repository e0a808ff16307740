package tracker

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jsphweid/keystream/model"
)

func TestPressRelease(t *testing.T) {
	tr := New()
	tr.Press(60, 100)

	assert := assert.New(t)
	assert.True(tr.IsActive(60))
	vel, ok := tr.VelocityOf(60)
	assert.True(ok)
	assert.Equal(uint8(100), vel)

	assert.True(tr.Release(60))
	assert.False(tr.IsActive(60))
	assert.Equal(0, tr.Len())
	_, ok = tr.VelocityOf(60)
	assert.False(ok)
}

func TestOverlappingPresses(t *testing.T) {
	tr := New()
	tr.Press(64, 80)
	tr.Press(64, 90)

	assert := assert.New(t)
	assert.Equal(2, tr.Count(64))
	vel, _ := tr.VelocityOf(64)
	assert.Equal(uint8(90), vel)

	tr.Release(64)
	assert.True(tr.IsActive(64))
	tr.Release(64)
	assert.False(tr.IsActive(64))
}

func TestReleaseUnheldIsNoop(t *testing.T) {
	tr := New()
	assert.False(t, tr.Release(61))
	assert.Equal(t, 0, tr.Count(61))

	tr.Press(61, 10)
	assert.True(t, tr.IsActive(61))
}

func TestActiveMatchesPressMinusRelease(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tr := New()
	balance := 0

	for i := 0; i < 2000; i++ {
		if rng.Intn(2) == 0 {
			tr.Press(60, uint8(rng.Intn(128)))
			balance++
		} else {
			tr.Release(60)
			if balance > 0 {
				balance--
			}
		}
		if !assert.Equal(t, balance > 0, tr.IsActive(60), "step %d", i) {
			return
		}
		assert.Equal(t, balance, tr.Count(60))
	}
}

func TestResetAll(t *testing.T) {
	tr := New()
	tr.Press(60, 1)
	tr.Press(64, 1)
	tr.ResetAll()

	assert.Equal(t, 0, tr.Len())
	assert.False(t, tr.IsActive(60))
}

func TestSnapshotIsSortedCopy(t *testing.T) {
	tr := New()
	tr.Press(67, 30)
	tr.Press(60, 10)
	tr.Press(64, 20)
	tr.Press(64, 25)

	snap := tr.Snapshot()
	assert.Equal(t, []model.ActiveNote{
		{Note: 60, Velocity: 10, Count: 1},
		{Note: 64, Velocity: 25, Count: 2},
		{Note: 67, Velocity: 30, Count: 1},
	}, snap)

	snap[0].Count = 99
	assert.Equal(t, 1, tr.Count(60))
}
