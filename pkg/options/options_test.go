package options

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestResolveDefaults(t *testing.T) {
	got := Resolve(DefaultOptions)
	assert.Equal(t, 10, got.NBest)
	assert.Equal(t, 0, got.QueueLimit)
	assert.True(t, math.IsInf(float64(got.WeightLimit), 1))
	assert.True(t, math.IsInf(float64(got.Beam), 1))
	assert.True(t, got.CaseHandling)
}

func TestResolveClamps(t *testing.T) {
	nan := float32(math.NaN())
	got := Resolve(DefaultOptions,
		WithNBest(-3),
		WithQueueLimit(-1),
		WithWeightLimit(nan),
		WithBeam(-2),
	)
	assert.Equal(t, 0, got.NBest)
	assert.Equal(t, 0, got.QueueLimit)
	assert.True(t, math.IsInf(float64(got.WeightLimit), 1))
	assert.Equal(t, float32(0), got.Beam)
}

func TestResolveDoesNotTouchBase(t *testing.T) {
	base := DefaultOptions
	_ = Resolve(base, WithNBest(1), WithoutCaseHandling(), nil)
	assert.Equal(t, DefaultOptions, base)
}

func TestPresets(t *testing.T) {
	kb := Resolve(DefaultOptions, WithKeyboardBudget())
	assert.Equal(t, 5, kb.NBest)
	assert.Equal(t, 1000, kb.QueueLimit)
	assert.Equal(t, float32(10), kb.WeightLimit)
	assert.Equal(t, float32(5), kb.Beam)

	// later options win
	ex := Resolve(DefaultOptions, WithKeyboardBudget(), WithExhaustiveSearch(), WithNBest(3))
	assert.Equal(t, 3, ex.NBest)
	assert.Equal(t, 0, ex.QueueLimit)
	assert.True(t, math.IsInf(float64(ex.Beam), 1))
}

func TestWorkDirAndLogger(t *testing.T) {
	l := zap.NewNop()
	got := Resolve(DefaultOptions, WithWorkDir("/tmp/x"), WithLogger(l))
	assert.Equal(t, "/tmp/x", got.WorkDir)
	assert.Same(t, l, got.Logger)
}
