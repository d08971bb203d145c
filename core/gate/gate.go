package gate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"LoudGate/core/loudness"
	"LoudGate/core/render"
	"LoudGate/logger"

	"github.com/google/uuid"
)

const (
	// DefaultMaxAttempts bounds the gain-correction loop.
	DefaultMaxAttempts = 8

	// DefaultPeakEpsilonDb absorbs floating-point and measurement jitter in
	// the pass check; exact equality against the ceiling would be flaky.
	DefaultPeakEpsilonDb = 0.05

	// DefaultSafetyMarginDb is added on top of the measured excess when
	// correcting. Cancelling the excess exactly leaves the next attempt
	// right at the boundary, prone to failing again on noise.
	DefaultSafetyMarginDb = 0.2

	// DefaultRequantizeStepDb is the one-shot extra reduction applied when
	// down-quantizing to the final bit depth pushed the peak back over the
	// ceiling. The value is an inherited heuristic; treat it as tunable,
	// not derived.
	DefaultRequantizeStepDb = 0.3

	// DefaultMinGainDb is the floor of the total reduction. A pathological
	// or clipped input could otherwise drive the correction toward an
	// unusably quiet result.
	DefaultMinGainDb = -18.0
)

// Renderer is the slice of the render surface the gate needs.
type Renderer interface {
	RenderWAV(ctx context.Context, spec render.Spec) error
}

// Measurer is the slice of the measurement surface the gate needs.
type Measurer interface {
	Measure(ctx context.Context, path string) (*loudness.Metrics, error)
}

// Attempt is one entry in the convergence audit trail. The sequence is
// append-only and returned in chronological order.
type Attempt struct {
	Index   int              `json:"index"` // 1-based, contiguous
	GainDb  float64          `json:"gainDb"`
	Metrics loudness.Metrics `json:"metrics"`
	Passed  bool             `json:"passed"`
}

// Result is the outcome of one MakeReleaseReady invocation. Passes can be
// false while a usable best-effort file was still written; the caller
// decides whether to accept it.
type Result struct {
	GainDb     float64          `json:"gainDb"`
	Metrics    loudness.Metrics `json:"metrics"` // of the delivered file
	Attempts   []Attempt        `json:"attempts"`
	Passes     bool             `json:"passes"`
	OutputPath string           `json:"outputPath"`
}

// CheckResult is the outcome of a one-shot compliance check.
type CheckResult struct {
	Passes     bool             `json:"passes"`
	Metrics    loudness.Metrics `json:"metrics"`
	HeadroomDb float64          `json:"headroomDb"` // ceiling minus measured peak
}

// Params configures one MakeReleaseReady run.
type Params struct {
	InputPath   string
	OutputPath  string
	CeilingDb   float64 // true-peak ceiling in dBTP
	BitDepth    render.BitDepth
	SampleRate  int
	MaxAttempts int // zero means DefaultMaxAttempts
}

// Gate drives the render→measure→correct loop until the true-peak ceiling
// is satisfied or the attempt budget runs out.
type Gate struct {
	renderer Renderer
	measurer Measurer

	PeakEpsilonDb    float64
	SafetyMarginDb   float64
	RequantizeStepDb float64
	MinGainDb        float64
}

// New creates a Gate with the default tuning constants.
func New(r Renderer, m Measurer) *Gate {
	return &Gate{
		renderer:         r,
		measurer:         m,
		PeakEpsilonDb:    DefaultPeakEpsilonDb,
		SafetyMarginDb:   DefaultSafetyMarginDb,
		RequantizeStepDb: DefaultRequantizeStepDb,
		MinGainDb:        DefaultMinGainDb,
	}
}

// MakeReleaseReady renders p.InputPath at successively corrected gains until
// the measured true peak sits at or below the ceiling (within epsilon), then
// delivers the passing candidate at the requested bit depth and re-verifies
// the delivered file. Candidates are 32-bit float so quantization noise
// cannot contaminate the pass/fail measurement.
//
// Process-level failures (spawn, timeout, nonzero exit, parse) abort the
// whole run; the loop only ever retries the gain decision, never a failed
// process.
func (g *Gate) MakeReleaseReady(ctx context.Context, p Params) (*Result, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	workDir := filepath.Join(os.TempDir(), "loudgate-"+uuid.New().String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	// Scoped cleanup on every exit path; errors never mask the result.
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("failed to remove scratch directory",
				logger.String("dir", workDir), logger.ErrorField(err))
		}
	}()

	gainDb := 0.0
	attempts := make([]Attempt, 0, maxAttempts)
	lastCandidate := ""

	for i := 1; i <= maxAttempts; i++ {
		candidate := filepath.Join(workDir, fmt.Sprintf("candidate_%d.wav", i-1))
		spec := render.Spec{
			InputPath:  p.InputPath,
			OutputPath: candidate,
			BitDepth:   render.Depth32Float,
			SampleRate: p.SampleRate,
			Filter:     render.GainFilter(gainDb),
		}
		if err := g.renderer.RenderWAV(ctx, spec); err != nil {
			return nil, err
		}
		lastCandidate = candidate

		metrics, err := g.measurer.Measure(ctx, candidate)
		if err != nil {
			return nil, err
		}

		passed := metrics.TruePeakDb <= p.CeilingDb+g.PeakEpsilonDb
		attempts = append(attempts, Attempt{
			Index:   i,
			GainDb:  gainDb,
			Metrics: *metrics,
			Passed:  passed,
		})

		logger.Info("mastering attempt",
			logger.String("input", p.InputPath),
			logger.Int("attempt", i),
			logger.Float64("gainDb", gainDb),
			logger.Float64("truePeakDb", metrics.TruePeakDb),
			logger.Float64("ceilingDb", p.CeilingDb),
			logger.Bool("passed", passed))

		if !passed {
			// Overshoot slightly rather than landing on the boundary.
			correction := (metrics.TruePeakDb - p.CeilingDb) + g.SafetyMarginDb
			gainDb = g.clampGain(gainDb - correction)
			continue
		}

		finalMetrics, err := g.deliver(ctx, candidate, p)
		if err != nil {
			return nil, err
		}

		finalOK := finalMetrics.TruePeakDb <= p.CeilingDb+g.PeakEpsilonDb
		if finalOK || p.BitDepth == render.Depth32Float {
			// Float output involved no quantization step, so a failed
			// re-check leaves no further lever to pull; return as-is.
			return &Result{
				GainDb:     gainDb,
				Metrics:    *finalMetrics,
				Attempts:   attempts,
				Passes:     finalOK,
				OutputPath: p.OutputPath,
			}, nil
		}

		// Down-quantizing raised the peak back over the ceiling. Apply one
		// small fixed reduction and go around again rather than silently
		// emitting a non-compliant file.
		logger.Info("final re-check failed after quantization, reducing gain",
			logger.Float64("finalTruePeakDb", finalMetrics.TruePeakDb),
			logger.Float64("stepDb", g.RequantizeStepDb))
		gainDb = g.clampGain(gainDb - g.RequantizeStepDb)
	}

	// Budget exhausted: still deliver a best-effort file from the last
	// candidate; Passes:false tells the caller it is non-compliant.
	finalMetrics, err := g.deliver(ctx, lastCandidate, p)
	if err != nil {
		return nil, err
	}

	logger.Warn("attempt budget exhausted, delivering best-effort output",
		logger.String("input", p.InputPath),
		logger.Int("attempts", len(attempts)),
		logger.Float64("truePeakDb", finalMetrics.TruePeakDb))

	return &Result{
		GainDb:     attempts[len(attempts)-1].GainDb,
		Metrics:    *finalMetrics,
		Attempts:   attempts,
		Passes:     finalMetrics.TruePeakDb <= p.CeilingDb+g.PeakEpsilonDb,
		OutputPath: p.OutputPath,
	}, nil
}

// CheckReleaseReady measures path once and reports compliance against the
// ceiling, without rendering anything.
func (g *Gate) CheckReleaseReady(ctx context.Context, path string, ceilingDb float64) (*CheckResult, error) {
	metrics, err := g.measurer.Measure(ctx, path)
	if err != nil {
		return nil, err
	}
	return &CheckResult{
		Passes:     metrics.TruePeakDb <= ceilingDb+g.PeakEpsilonDb,
		Metrics:    *metrics,
		HeadroomDb: ceilingDb - metrics.TruePeakDb,
	}, nil
}

// deliver renders the measured candidate, not the original input, into the
// requested final bit depth and re-measures the delivered file. The second
// measurement exists because quantizing float down to 16/24-bit can itself
// raise the true peak slightly.
func (g *Gate) deliver(ctx context.Context, candidate string, p Params) (*loudness.Metrics, error) {
	spec := render.Spec{
		InputPath:  candidate,
		OutputPath: p.OutputPath,
		BitDepth:   p.BitDepth,
		SampleRate: p.SampleRate,
	}
	if err := g.renderer.RenderWAV(ctx, spec); err != nil {
		return nil, err
	}
	return g.measurer.Measure(ctx, p.OutputPath)
}

func (g *Gate) clampGain(gainDb float64) float64 {
	if gainDb < g.MinGainDb {
		return g.MinGainDb
	}
	return gainDb
}
