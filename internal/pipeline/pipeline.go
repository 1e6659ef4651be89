// Package pipeline drives the stream: walk every slice file, fold each
// feature into the hexagon aggregator, pass raw features straight through,
// then flush the aggregate layer once the input is exhausted.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/3dfirelab/webFET/internal/domain"
	"github.com/3dfirelab/webFET/internal/emit"
	"github.com/3dfirelab/webFET/internal/hexbin"
	"github.com/3dfirelab/webFET/internal/observability"
)

// FeatureSource streams normalized features in deterministic order.
type FeatureSource interface {
	Walk(ctx context.Context, visit func(*domain.Feature) error) error
}

// Options carries the per-run stream parameters.
type Options struct {
	// Resolution is the single hexagon resolution aggregates are built at.
	Resolution int
	// LowZoomMax caps the aggregate layer; HighZoomMin floors the raw layer.
	LowZoomMax  int
	HighZoomMin int
	// OmitRaw drops the pass-through layer and emits aggregates only.
	OmitRaw bool
	// Window filters observations by resolved timestamp. Features whose
	// timestamp never resolves bypass the filter.
	Window domain.DateRange
	// Stats maps entity id to its overall time range, used to fill raw
	// records that carry no range of their own.
	Stats map[string]domain.TimeRange
}

// Pipeline orchestrates the source-fold-emit pass.
type Pipeline struct {
	source  FeatureSource
	sink    emit.Sink
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates a Pipeline over the given source and sink.
func New(source FeatureSource, sink emit.Sink, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:  source,
		sink:    sink,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once the pipeline has seen at least one feature,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not streamed any features yet")
	}
	return nil
}

// Run executes one full pass. A sink reporting closure stops the run cleanly;
// everything already accepted downstream stays valid, so that is success.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("stream started",
		"resolution", p.opts.Resolution,
		"low_zoom_max", p.opts.LowZoomMax,
		"high_zoom_min", p.opts.HighZoomMin,
		"omit_raw", p.opts.OmitRaw,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	agg := hexbin.New(p.opts.Resolution)
	enc := emit.NewEncoder()

	err := p.source.Walk(ctx, func(f *domain.Feature) error {
		p.ready.Store(true)
		return p.process(ctx, f, agg, enc)
	})
	if err != nil {
		if errors.Is(err, emit.ErrSinkClosed) {
			p.logger.Info("stream stopping, output sink closed")
			return nil
		}
		return err
	}

	if err := p.flush(ctx, agg, enc); err != nil {
		if errors.Is(err, emit.ErrSinkClosed) {
			p.logger.Info("stream stopping, output sink closed")
			return nil
		}
		return err
	}

	p.logger.Info("stream finished", "aggregates", agg.Len())
	return nil
}

// process folds one feature and, unless raw output is omitted, emits its
// pass-through record.
func (p *Pipeline) process(ctx context.Context, f *domain.Feature, agg *hexbin.Aggregator, enc *emit.Encoder) error {
	ts, resolved := f.ResolveTimestamp()
	if resolved && !p.opts.Window.Contains(ts) {
		p.metrics.FeaturesDropped.WithLabelValues("date_filter").Inc()
		return nil
	}
	if resolved {
		agg.Observe(f, ts)
	}

	if p.opts.OmitRaw {
		return nil
	}

	var overlay *domain.TimeRange
	if r, ok := p.opts.Stats[f.EntityID]; ok {
		overlay = &r
	}
	line, err := enc.Encode(emit.Raw(f, overlay, p.opts.HighZoomMin))
	if err != nil {
		return err
	}
	if err := p.sink.Emit(ctx, emit.KindRaw, f.EntityID, line); err != nil {
		return err
	}
	p.metrics.RecordsEmitted.WithLabelValues("raw").Inc()
	return nil
}

// flush emits one polygon record per aggregate bucket.
func (p *Pipeline) flush(ctx context.Context, agg *hexbin.Aggregator, enc *emit.Encoder) error {
	for _, a := range agg.Aggregates() {
		rec, err := emit.Hex(a, p.opts.LowZoomMax)
		if err != nil {
			p.logger.Warn("dropping aggregate with unusable boundary", "cell", a.Cell.String(), "error", err)
			continue
		}
		line, err := enc.Encode(rec)
		if err != nil {
			return err
		}
		if err := p.sink.Emit(ctx, emit.KindAggregate, a.Cell.String(), line); err != nil {
			return err
		}
		p.metrics.RecordsEmitted.WithLabelValues("aggregate").Inc()
	}
	return nil
}
