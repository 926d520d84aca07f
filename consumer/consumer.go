package consumer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"keyword-popularity/record"
)

// ErrSourceMissing is returned when the live data file does not exist.
var ErrSourceMissing = errors.New("live data file missing")

// defaultMaxLinesPerCycle bounds how long a single cycle can run when
// the consumer is far behind the producer.
const defaultMaxLinesPerCycle = 10000

// maxLoggedLineLen keeps skipped-line log entries bounded.
const maxLoggedLineLen = 200

// Store receives the derived counts.
type Store interface {
	Increment(ctx context.Context, hour int, keyword string) error
}

// CycleStats summarizes one polling cycle.
type CycleStats struct {
	Lines   int   // fully terminated lines consumed
	Applied int   // lines that incremented a counter
	Skipped int   // blank or malformed lines
	Failed  int   // lines whose store update failed
	Offset  int64 // byte offset after the cycle
	Capped  bool  // cycle stopped at the line cap
}

// Consumer tails the live data file and applies each complete line to
// the store. The byte offset only ever moves forward, past lines that
// have been consumed.
type Consumer struct {
	path     string
	store    Store
	maxLines int
	offset   int64
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithMaxLinesPerCycle overrides the per-cycle line cap. Zero disables
// the cap entirely.
func WithMaxLinesPerCycle(n int) Option {
	return func(c *Consumer) {
		c.maxLines = n
	}
}

// New creates a Consumer reading from path, starting at byte zero.
func New(path string, store Store, opts ...Option) *Consumer {
	c := &Consumer{
		path:     path,
		store:    store,
		maxLines: defaultMaxLinesPerCycle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Offset reports how many bytes of the live data file have been consumed.
func (c *Consumer) Offset() int64 {
	return c.offset
}

// RunCycle performs one polling cycle: open the file, seek to the owned
// offset, and consume fully terminated lines until the data or the line
// cap runs out. A trailing fragment without a newline is still being
// written by the producer and stays unconsumed until a later cycle
// completes it.
func (c *Consumer) RunCycle(ctx context.Context) (CycleStats, error) {
	stats := CycleStats{Offset: c.offset}

	f, err := os.Open(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return stats, fmt.Errorf("%w: %s", ErrSourceMissing, c.path)
		}
		return stats, fmt.Errorf("open live data file: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(c.offset, io.SeekStart); err != nil {
		return stats, fmt.Errorf("seek live data file: %w", err)
	}

	r := bufio.NewReader(f)
	for {
		if c.maxLines > 0 && stats.Lines >= c.maxLines {
			stats.Capped = true
			break
		}

		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		line, err := r.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read live data file: %w", err)
		}

		c.offset += int64(len(line))
		stats.Lines++
		stats.Offset = c.offset
		c.consume(ctx, line, &stats)
	}

	return stats, nil
}

// Run polls the live data file until ctx is cancelled. The first cycle
// starts immediately; later cycles follow the ticker.
func (c *Consumer) Run(ctx context.Context, interval time.Duration) error {
	if err := c.cycle(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.cycle(ctx); err != nil {
				return err
			}
		}
	}
}

func (c *Consumer) cycle(ctx context.Context) error {
	stats, err := c.RunCycle(ctx)
	if err != nil {
		return err
	}

	if stats.Lines == 0 {
		slog.Debug("no new data", "offset", stats.Offset)
		return nil
	}

	slog.Info("cycle complete",
		"lines", stats.Lines,
		"applied", stats.Applied,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"offset", stats.Offset,
		"capped", stats.Capped)
	return nil
}

// consume applies one line to the store. A line that cannot be parsed or
// stored is logged and counted, never retried; the offset has already
// moved past it.
func (c *Consumer) consume(ctx context.Context, line string, stats *CycleStats) {
	key, skip := record.ParseLine(line)
	switch {
	case skip == record.SkipBlank:
		stats.Skipped++
	case skip != record.SkipNone:
		stats.Skipped++
		slog.Warn("skipping line",
			"reason", skip.String(),
			"line", truncate(strings.TrimSpace(line), maxLoggedLineLen))
	default:
		if err := c.store.Increment(ctx, key.Hour, key.Keyword); err != nil {
			stats.Failed++
			slog.Error("failed to update keyword count",
				"hour", key.Hour,
				"keyword", key.Keyword,
				"error", err)
		} else {
			stats.Applied++
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
