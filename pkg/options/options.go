package options

import (
	"math"

	"go.uber.org/zap"
)

// DefaultOptions mirrors what the keyboard asks for when it does not say otherwise:
// ten suggestions, no queue bound and no weight or beam ceiling.
var DefaultOptions = SpellerOptions{
	NBest:        10,
	QueueLimit:   0,
	WeightLimit:  float32(math.Inf(1)),
	Beam:         float32(math.Inf(1)),
	CaseHandling: true,
}

type SpellerOptions struct {
	NBest        int     // 0 disables the cap
	QueueLimit   int     // maximum frontier size, 0 = unbounded
	WeightLimit  float32 // candidates heavier than this are pruned during search
	Beam         float32 // allowed slack over the best candidate found so far
	CaseHandling bool    // also try the lower-cased form of Title/UPPER words
	WorkDir      string  // where archives are unpacked; empty keeps tables in memory
	Logger       *zap.Logger
}

type Options interface {
	Apply(options *SpellerOptions)
}

type FuncConfig struct {
	ops func(options *SpellerOptions)
}

func (w FuncConfig) Apply(conf *SpellerOptions) {
	w.ops(conf)
}

func NewFuncOption(f func(options *SpellerOptions)) *FuncConfig {
	return &FuncConfig{ops: f}
}

// Resolve applies opts on top of base and normalizes the numeric knobs.
func Resolve(base SpellerOptions, opts ...Options) SpellerOptions {
	for _, o := range opts {
		if o != nil {
			o.Apply(&base)
		}
	}
	base.WeightLimit = ClampLimit(base.WeightLimit)
	base.Beam = ClampLimit(base.Beam)
	if base.QueueLimit < 0 {
		base.QueueLimit = 0
	}
	if base.NBest < 0 {
		base.NBest = 0
	}
	return base
}

// ClampLimit maps NaN to +Inf and negative values to zero. Setters never fail.
func ClampLimit(v float32) float32 {
	if v != v {
		return float32(math.Inf(1))
	}
	if v < 0 {
		return 0
	}
	return v
}

func WithNBest(n int) Options {
	return NewFuncOption(func(options *SpellerOptions) {
		options.NBest = n
	})
}

func WithQueueLimit(limit int) Options {
	return NewFuncOption(func(options *SpellerOptions) {
		options.QueueLimit = limit
	})
}

func WithWeightLimit(weight float32) Options {
	return NewFuncOption(func(options *SpellerOptions) {
		options.WeightLimit = weight
	})
}

func WithBeam(beam float32) Options {
	return NewFuncOption(func(options *SpellerOptions) {
		options.Beam = beam
	})
}

func WithoutCaseHandling() Options {
	return NewFuncOption(func(options *SpellerOptions) {
		options.CaseHandling = false
	})
}

func WithWorkDir(dir string) Options {
	return NewFuncOption(func(options *SpellerOptions) {
		options.WorkDir = dir
	})
}

func WithLogger(l *zap.Logger) Options {
	return NewFuncOption(func(options *SpellerOptions) {
		options.Logger = l
	})
}

// Presets

// WithKeyboardBudget is tuned for a soft keyboard banner: a handful of
// suggestions and a bounded frontier so latency stays flat on slow devices.
func WithKeyboardBudget() Options {
	return NewFuncOption(func(options *SpellerOptions) {
		options.NBest = 5
		options.QueueLimit = 1000
		options.WeightLimit = 10
		options.Beam = 5
	})
}

// WithExhaustiveSearch removes every bound; only useful for offline checks.
func WithExhaustiveSearch() Options {
	return NewFuncOption(func(options *SpellerOptions) {
		options.NBest = 0
		options.QueueLimit = 0
		options.WeightLimit = float32(math.Inf(1))
		options.Beam = float32(math.Inf(1))
	})
}
