package observability

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"time"
)

// SlogObserver writes events to a slog.Logger. The event type is the
// message and the record carries the event's timestamp. Data keys follow the
// source attribute in sorted order.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver returns an observer logging to logger, or to slog.Default
// when logger is nil.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	level := event.Level.SlogLevel()
	if !o.logger.Enabled(ctx, level) {
		return
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	record := slog.NewRecord(ts, level, string(event.Type), 0)
	record.AddAttrs(slog.String("source", event.Source))
	for _, k := range slices.Sorted(maps.Keys(event.Data)) {
		record.AddAttrs(slog.Any(k, event.Data[k]))
	}

	_ = o.logger.Handler().Handle(ctx, record)
}
