// Package batch orchestrates metadata stripping across a set of media
// items: items are processed strictly one after another, every failure is
// isolated to its item, progress and completion callbacks are delivered in
// order on a single goroutine, and the private working area of each item is
// securely erased before the next one starts.
package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/doubleangels/redact-sub001/core"
	"github.com/doubleangels/redact-sub001/core/imagesan"
	"github.com/doubleangels/redact-sub001/core/outpath"
	"github.com/doubleangels/redact-sub001/core/remux"
	"github.com/doubleangels/redact-sub001/core/wipe"
)

// Coordinator runs batches of media items through the stripping engine.
type Coordinator struct {
	cfg core.Config
	log zerolog.Logger

	sanitizer *imagesan.Sanitizer
	remuxer   *remux.Remuxer
	eraser    *wipe.Eraser
	resolver  *outpath.Resolver

	mu      sync.Mutex
	results []core.Outcome
}

// New builds a Coordinator from a validated Config.
func New(cfg core.Config, log zerolog.Logger) *Coordinator {
	log = log.With().Str("component", "batch").Logger()
	return &Coordinator{
		cfg:       cfg,
		log:       log,
		sanitizer: imagesan.New(log),
		remuxer:   remux.New(log),
		eraser:    wipe.New(log, cfg.ErasePasses),
		resolver:  outpath.New(cfg.OutputDir),
	}
}

// event is one ordered callback delivery: a per-item progress tick, or the
// final completion notice.
type event struct {
	complete bool
	current  int
	total    int
	message  string
	success  int
}

// Process runs the batch. Items are processed sequentially; onProgress
// fires once per item with current counting 1..len(items) in order, then
// onComplete fires exactly once with the number of successes. Both
// callbacks may be nil. Per-item failures are recorded in Results and do
// not stop the batch; cancellation via ctx stops between items, after
// which onComplete still fires with the successes so far and ctx.Err() is
// returned.
func (c *Coordinator) Process(ctx context.Context, items []core.MediaItem, onProgress core.ProgressFunc, onComplete core.CompleteFunc) error {
	runLog := c.log.With().Str("run_id", uuid.NewString()).Logger()

	c.mu.Lock()
	c.results = make([]core.Outcome, 0, len(items))
	c.mu.Unlock()

	if len(items) == 0 {
		if onComplete != nil {
			onComplete(0)
		}
		return nil
	}

	events := make(chan event, len(items)+1)
	var g errgroup.Group

	g.Go(func() error {
		defer close(events)
		total := len(items)
		success := 0
		for i, item := range items {
			if err := ctx.Err(); err != nil {
				runLog.Warn().Int("processed", i).Int("total", total).Msg("batch cancelled")
				events <- event{complete: true, success: success}
				return err
			}

			output, kind, err := c.processItem(runLog, item)
			outcome := core.Outcome{Item: item, Output: output, Err: err}
			if err != nil {
				runLog.Error().Err(err).Str("source", item.Source).Msg("item failed")
			} else {
				success++
			}

			c.mu.Lock()
			c.results = append(c.results, outcome)
			c.mu.Unlock()

			events <- event{current: i + 1, total: total, message: progressMessage(item, kind, err)}
		}
		events <- event{complete: true, success: success}
		return nil
	})

	g.Go(func() error {
		for ev := range events {
			if ev.complete {
				if onComplete != nil {
					onComplete(ev.success)
				}
			} else if onProgress != nil {
				onProgress(ev.current, ev.total, ev.message)
			}
		}
		return nil
	})

	return g.Wait()
}

// ProcessOne strips a single item and returns the produced output path.
func (c *Coordinator) ProcessOne(ctx context.Context, item core.MediaItem) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	output, _, err := c.processItem(c.log, item)
	return output, err
}

// Results returns the outcomes of the most recent Process run.
func (c *Coordinator) Results() []core.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Outcome, len(c.results))
	copy(out, c.results)
	return out
}

// LastProduced returns the path of the most recently produced output.
func (c *Coordinator) LastProduced() (string, bool) {
	return c.resolver.LastProduced()
}

// processItem rewrites one item inside a private working directory, moves
// the intermediate to its resolved destination, and erases the working
// area regardless of outcome. Panics inside the rewrite are converted to
// item failures. The resolved kind is returned for progress labelling.
func (c *Coordinator) processItem(log zerolog.Logger, item core.MediaItem) (output string, kind core.Kind, err error) {
	kind = item.Kind
	workDir := filepath.Join(c.cfg.WorkDir, uuid.NewString())
	if mkErr := os.MkdirAll(workDir, 0o700); mkErr != nil {
		return "", kind, fmt.Errorf("could not create working area: %w", mkErr)
	}
	defer func() {
		if wErr := c.eraser.EraseDir(workDir); wErr != nil {
			log.Warn().Err(wErr).Str("dir", workDir).Msg("working area erase failed")
		}
		if r := recover(); r != nil {
			output = ""
			err = fmt.Errorf("internal failure processing %s: %v", item.Source, r)
		}
	}()

	if kind == "" {
		// Undeclared kind: classify by content.
		if format, dErr := core.DetectFormat(item.Source); dErr == nil {
			kind = core.KindFor(format)
		}
	}

	intermediate := filepath.Join(workDir, "clean"+filepath.Ext(item.Source))
	switch kind {
	case core.KindImage:
		err = c.sanitizer.Sanitize(item.Source, intermediate)
	case core.KindVideo:
		err = c.remuxer.Remux(item.Source, intermediate)
	default:
		err = fmt.Errorf("%w: unknown kind %q", core.ErrUnsupportedFormat, kind)
	}
	if err != nil {
		return "", kind, err
	}

	dst, err := c.resolver.Resolve(item)
	if err != nil {
		return "", kind, err
	}
	if err := moveFile(intermediate, dst); err != nil {
		return "", kind, fmt.Errorf("could not place output: %w", err)
	}
	c.resolver.RecordProduced(dst)
	log.Info().Str("source", item.Source).Str("output", dst).Msg("item cleaned")
	return dst, kind, nil
}

// progressMessage builds the human-facing phase label for a progress tick,
// switching on the kind the item actually resolved to.
func progressMessage(item core.MediaItem, kind core.Kind, err error) string {
	name := item.DisplayName
	if name == "" {
		name = filepath.Base(item.Source)
	}
	if err != nil {
		return "failed " + name
	}
	if kind == core.KindVideo {
		return "remuxed " + name
	}
	return "sanitized " + name
}

// moveFile renames src to dst, falling back to a copy when the rename
// crosses filesystems. The source is left for the working-area erase.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
