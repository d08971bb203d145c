package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"LoudGate/config"
	"LoudGate/core/gate"
	"LoudGate/core/render"
	"LoudGate/logger"

	"github.com/fsnotify/fsnotify"
)

// sourceExtensions lists the file types picked up from the inbox.
var sourceExtensions = map[string]bool{
	".wav":  true,
	".flac": true,
	".aif":  true,
	".aiff": true,
}

// Watcher masters every audio file dropped into the inbox directory and
// writes the result to the outbox. One file is processed at a time; the
// engine itself is the resource bottleneck, and parallelism belongs to the
// orchestrator, not here.
type Watcher struct {
	gate *gate.Gate
	cfg  *config.Config

	// seen dedupes Create/Write event bursts for the same path.
	seen sync.Map
}

// New creates a Watcher.
func New(g *gate.Gate, cfg *config.Config) *Watcher {
	return &Watcher{gate: g, cfg: cfg}
}

// Run watches the inbox until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.cfg.InboxDir, 0755); err != nil {
		return fmt.Errorf("failed to create inbox directory: %w", err)
	}
	if err := os.MkdirAll(w.cfg.OutboxDir, 0755); err != nil {
		return fmt.Errorf("failed to create outbox directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.cfg.InboxDir); err != nil {
		return fmt.Errorf("failed to watch inbox %s: %w", w.cfg.InboxDir, err)
	}

	logger.Info("watching inbox",
		logger.String("inbox", w.cfg.InboxDir),
		logger.String("outbox", w.cfg.OutboxDir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !sourceExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			if _, loaded := w.seen.LoadOrStore(event.Name, struct{}{}); loaded {
				continue
			}

			w.process(ctx, event.Name)
			w.seen.Delete(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", logger.ErrorField(err))
		}
	}
}

// process masters one dropped file.
func (w *Watcher) process(ctx context.Context, path string) {
	if err := waitForStable(ctx, path); err != nil {
		logger.Warn("dropped file never settled",
			logger.String("path", path), logger.ErrorField(err))
		return
	}

	base := filepath.Base(path)
	output := filepath.Join(w.cfg.OutboxDir,
		strings.TrimSuffix(base, filepath.Ext(base))+"_mastered.wav")

	logger.Info("mastering dropped file",
		logger.String("input", path), logger.String("output", output))

	result, err := w.gate.MakeReleaseReady(ctx, gate.Params{
		InputPath:   path,
		OutputPath:  output,
		CeilingDb:   w.cfg.TruePeakCeiling,
		BitDepth:    render.Depth24,
		SampleRate:  w.cfg.SampleRate,
		MaxAttempts: w.cfg.MaxAttempts,
	})
	if err != nil {
		logger.Error("mastering failed",
			logger.String("input", path), logger.ErrorField(err))
		return
	}

	logger.Info("mastering finished",
		logger.String("output", output),
		logger.Bool("passes", result.Passes),
		logger.Float64("gainDb", result.GainDb),
		logger.Int("attempts", len(result.Attempts)))
}

// waitForStable polls the file size until it stops growing; a file still
// being copied into the inbox would otherwise be measured half-written.
func waitForStable(ctx context.Context, path string) error {
	var lastSize int64 = -1
	stable := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}

		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() == lastSize {
			stable++
			if stable >= 2 {
				return nil
			}
		} else {
			stable = 0
			lastSize = info.Size()
		}
	}
}
