package loudness

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"LoudGate/core/engine"
	"LoudGate/logger"
)

// Metrics holds the loudness statistics of one measurement run.
// Values are raw IEEE doubles straight from the engine output; rounding is a
// presentation concern and never happens here.
type Metrics struct {
	IntegratedLufs   float64 `json:"integratedLufs"`
	RangeLu          float64 `json:"rangeLu"`
	TruePeakDb       float64 `json:"truePeakDb"`
	ShortTermMaxLufs float64 `json:"shortTermMaxLufs"`
	MomentaryMaxLufs float64 `json:"momentaryMaxLufs"`
}

// ParseError indicates a required labeled value could not be located in the
// engine's diagnostic output. Guessing a value instead is explicitly not an
// option: a wrong number here would silently ship a non-compliant master.
type ParseError struct {
	Field  string
	Output string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not locate %s in engine output: %s", e.Field, engine.Tail(e.Output, 2000))
}

// The ebur128 summary is human-oriented text, not a stable machine format.
// Each field therefore carries an ordered list of patterns: a strict one
// anchored on its summary section, then a looser label-only fallback that
// survives layout drift. The summary is printed after the per-frame
// readings, so the last match is the authoritative one.
var (
	integratedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?s)Integrated loudness:.*?I:\s+(-?\d+(?:\.\d+)?)\s+LUFS`),
		regexp.MustCompile(`I:\s+(-?\d+(?:\.\d+)?)\s+LUFS`),
	}
	rangePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?s)Loudness range:.*?LRA:\s+(-?\d+(?:\.\d+)?)\s+LU`),
		regexp.MustCompile(`LRA:\s+(-?\d+(?:\.\d+)?)\s+LU`),
	}
	peakPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?s)True peak:.*?Peak:\s+(-?\d+(?:\.\d+)?)\s+dBFS`),
		regexp.MustCompile(`Peak:\s+(-?\d+(?:\.\d+)?)`),
	}

	// Per-frame short-term and momentary readings, e.g.
	// "[Parsed_ebur128_0 @ ...] t: 2.8 TARGET:-23 LUFS M: -22.3 S: -23.4 ..."
	momentaryFramePattern = regexp.MustCompile(`\bM:\s*(-?\d+(?:\.\d+)?)`)
	shortTermFramePattern = regexp.MustCompile(`\bS:\s*(-?\d+(?:\.\d+)?)`)
)

// Measurer runs the engine in measurement mode and extracts Metrics from
// its diagnostic stream.
type Measurer struct {
	runner     engine.Runner
	ffmpegPath string
}

// NewMeasurer creates a Measurer backed by the given process runner.
func NewMeasurer(runner engine.Runner, ffmpegPath string) *Measurer {
	return &Measurer{runner: runner, ffmpegPath: ffmpegPath}
}

// Measure runs a full loudness measurement on inputPath.
// The engine writes its summary to stderr, not to its primary output, so
// that is the stream parsed here.
func (m *Measurer) Measure(ctx context.Context, inputPath string) (*Metrics, error) {
	output, err := m.runEbur128(ctx, inputPath, "ebur128=peak=true")
	if err != nil {
		return nil, err
	}

	metrics := &Metrics{}
	if metrics.IntegratedLufs, err = findField(output, "integrated loudness", integratedPatterns); err != nil {
		return nil, err
	}
	if metrics.RangeLu, err = findField(output, "loudness range", rangePatterns); err != nil {
		return nil, err
	}
	if metrics.TruePeakDb, err = findField(output, "true peak", peakPatterns); err != nil {
		return nil, err
	}

	// Short-term and momentary maxima are best-effort context scanned from
	// the per-frame readings; absence is not an error.
	metrics.ShortTermMaxLufs = maxFrameReading(output, shortTermFramePattern, metrics.IntegratedLufs)
	metrics.MomentaryMaxLufs = maxFrameReading(output, momentaryFramePattern, metrics.IntegratedLufs)

	logger.Debug("loudness measured",
		logger.String("input", inputPath),
		logger.Float64("integratedLufs", metrics.IntegratedLufs),
		logger.Float64("truePeakDb", metrics.TruePeakDb))

	return metrics, nil
}

// MeasureTruePeak is the fast variant: per-frame logging is suppressed and
// only the true-peak scalar is extracted.
func (m *Measurer) MeasureTruePeak(ctx context.Context, inputPath string) (float64, error) {
	output, err := m.runEbur128(ctx, inputPath, "ebur128=framelog=quiet:peak=true")
	if err != nil {
		return 0, err
	}
	return findField(output, "true peak", peakPatterns)
}

// runEbur128 invokes the engine with a null sink and the given loudness
// filter, returning the diagnostic stream.
func (m *Measurer) runEbur128(ctx context.Context, inputPath, filter string) (string, error) {
	cmd := engine.Command{
		Name: m.ffmpegPath,
		Args: []string{
			"-hide_banner",
			"-nostats",
			"-i", inputPath,
			"-vn",
			"-af", filter,
			"-f", "null",
			"-",
		},
	}

	res, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("loudness measurement of %s failed: %w", inputPath, err)
	}
	if err := engine.RequireSuccess(res, cmd.Line()); err != nil {
		return "", fmt.Errorf("loudness measurement of %s failed: %w", inputPath, err)
	}
	return res.Stderr, nil
}

// findField tries each pattern in order and returns the value of the last
// occurrence matched by the first pattern that hits at all.
func findField(output, field string, patterns []*regexp.Regexp) (float64, error) {
	for _, p := range patterns {
		matches := p.FindAllStringSubmatch(output, -1)
		if len(matches) == 0 {
			continue
		}
		raw := matches[len(matches)-1][1]
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		return val, nil
	}
	return 0, &ParseError{Field: field, Output: output}
}

// maxFrameReading scans all per-frame occurrences of a reading and returns
// the maximum, or fallback when none were observed.
func maxFrameReading(output string, pattern *regexp.Regexp, fallback float64) float64 {
	matches := pattern.FindAllStringSubmatch(output, -1)
	max := fallback
	found := false
	for _, m := range matches {
		val, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if !found || val > max {
			max = val
			found = true
		}
	}
	return max
}
