package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harrison/pitufo/internal/config"
	"github.com/harrison/pitufo/internal/fileutil"
	"github.com/harrison/pitufo/internal/models"
	"github.com/harrison/pitufo/internal/parser"
)

// ErrInterrupted is returned by Run when the context was canceled before
// every candidate was processed.
var ErrInterrupted = errors.New("run interrupted")

// Logger defines the interface for reporting run progress and results.
type Logger interface {
	LogDebug(message string)
	LogWarn(message string)
	LogFileOutcome(outcome models.FileOutcome)
	LogSummary(summary models.RunSummary)
}

// Recorder persists outcomes of a single run.
type Recorder interface {
	RecordOutcome(ctx context.Context, outcome models.FileOutcome) error
	Finish(ctx context.Context, summary models.RunSummary) error
}

// Runner drives one normalization run over a directory tree.
type Runner struct {
	cfg         config.Config
	transformer *Transformer
	logger      Logger
	recorder    Recorder
}

// NewRunner creates a Runner for a validated configuration.
// The logger and recorder parameters are optional and can be nil.
func NewRunner(cfg config.Config, logger Logger, recorder Recorder) *Runner {
	return &Runner{
		cfg: cfg,
		transformer: NewTransformer(TransformOptions{
			Minify:   cfg.Minify,
			StripBOM: cfg.StripBOM,
			Atomic:   cfg.AtomicWrite,
			Digest:   recorder != nil,
		}),
		logger:   logger,
		recorder: recorder,
	}
}

// WalkOptions returns the traversal options used for a configuration.
func WalkOptions(cfg config.Config, onSkip func(error)) fileutil.WalkOptions {
	return fileutil.WalkOptions{
		Extensions:     []string{parser.Extension},
		FollowSymlinks: cfg.FollowSymlinks,
		MaxDepth:       cfg.MaxDepth,
		OnSkip:         onSkip,
	}
}

// Run walks the configured root and normalizes every candidate.
// Per-file failures are reported and counted but never stop the run.
// It returns an error only when the root cannot be opened or the run was
// interrupted by SIGINT/SIGTERM or by ctx; the summary covers every file
// processed up to that point.
func (r *Runner) Run(ctx context.Context) (models.RunSummary, error) {
	var summary models.RunSummary
	start := time.Now()

	// Set up context with cancellation for signal handling
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	walkOpts := WalkOptions(r.cfg, r.logSkip)
	walkOpts.Context = ctx
	candidates, err := fileutil.Walk(r.cfg.Path, walkOpts)
	if err != nil {
		return summary, fmt.Errorf("cannot open root: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			if r.logger != nil {
				r.logger.LogWarn("Received interrupt signal, finishing files in progress...")
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	// Outcomes of files already in flight are still recorded after cancellation.
	recordCtx := context.WithoutCancel(ctx)

	var mu sync.Mutex
	handle := func(c fileutil.Candidate) {
		outcome := r.transformer.Process(c.Path)

		mu.Lock()
		summary.Add(outcome)
		mu.Unlock()

		if r.logger != nil {
			r.logger.LogFileOutcome(outcome)
		}
		if r.recorder != nil {
			if err := r.recorder.RecordOutcome(recordCtx, outcome); err != nil && r.logger != nil {
				r.logger.LogWarn(fmt.Sprintf("history: %v", err))
			}
		}
	}

	if r.cfg.Workers > 1 {
		var g errgroup.Group
		g.SetLimit(r.cfg.Workers)
		for c := range candidates {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				handle(c)
				return nil
			})
		}
		g.Wait()
	} else {
		for c := range candidates {
			if ctx.Err() != nil {
				break
			}
			handle(c)
		}
	}

	summary.Duration = time.Since(start)

	if r.logger != nil {
		r.logger.LogSummary(summary)
	}
	if r.recorder != nil {
		if err := r.recorder.Finish(recordCtx, summary); err != nil && r.logger != nil {
			r.logger.LogWarn(fmt.Sprintf("history: %v", err))
		}
	}

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("%w after %d files: %w", ErrInterrupted, summary.Candidates, context.Cause(ctx))
	}
	return summary, nil
}

func (r *Runner) logSkip(err error) {
	if r.logger != nil {
		r.logger.LogDebug(fmt.Sprintf("skipped: %v", err))
	}
}
