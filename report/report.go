package report

import (
	"context"
	"fmt"
	"log/slog"

	"keyword-popularity/storage"
)

const defaultTopN = 10

// Source provides the aggregated counters the report reads.
type Source interface {
	PeakHours(ctx context.Context) ([]storage.Row, error)
	TopKeywords(ctx context.Context, limit int) ([]storage.Row, error)
}

// Reporter logs a daily summary of the keyword counters.
type Reporter struct {
	source Source
	topN   int
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithTopN sets how many keywords the ranking section includes.
func WithTopN(n int) Option {
	return func(r *Reporter) {
		r.topN = n
	}
}

// New creates a Reporter reading from source.
func New(source Source, opts ...Option) *Reporter {
	r := &Reporter{
		source: source,
		topN:   defaultTopN,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run writes the report to the log: the peak hour for every keyword,
// then the highest counters overall.
func (r *Reporter) Run(ctx context.Context) error {
	slog.Info("starting keyword report", "top_n", r.topN)

	peaks, err := r.source.PeakHours(ctx)
	if err != nil {
		return fmt.Errorf("load peak hours: %w", err)
	}

	if len(peaks) == 0 {
		slog.Info("no keyword data yet")
		return nil
	}

	for _, row := range peaks {
		slog.Info("keyword peak hour",
			"keyword", row.Keyword,
			"hour", row.Hour,
			"count", row.Count)
	}

	top, err := r.source.TopKeywords(ctx, r.topN)
	if err != nil {
		return fmt.Errorf("load top keywords: %w", err)
	}

	for i, row := range top {
		slog.Info("top keyword",
			"rank", i+1,
			"keyword", row.Keyword,
			"hour", row.Hour,
			"count", row.Count)
	}

	slog.Info("keyword report complete", "keywords", len(peaks))
	return nil
}
