// Package engine runs the assessment pipeline: normalize, segment, extract,
// score and explain. It holds no per-request state, so one Engine serves
// concurrent callers.
package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/example/woundrisk/internal/apperr"
	"github.com/example/woundrisk/internal/explain"
	"github.com/example/woundrisk/internal/imaging"
	"github.com/example/woundrisk/internal/risk"
	"github.com/example/woundrisk/internal/scoring"
	"github.com/example/woundrisk/internal/segment"
	"github.com/example/woundrisk/internal/signals"
	"github.com/example/woundrisk/internal/weights"
)

// Engine scores wound photographs against the weights held by a Store.
type Engine struct {
	store      *weights.Store
	imaging    imaging.Options
	segment    segment.Options
	extractors []signals.Extractor
}

// Option customizes an Engine.
type Option func(*Engine)

// WithImagingOptions overrides the normalizer bounds.
func WithImagingOptions(opts imaging.Options) Option {
	return func(e *Engine) { e.imaging = opts }
}

// WithMaxEdge caps the longest edge of the working buffer.
func WithMaxEdge(maxEdge int) Option {
	return func(e *Engine) {
		if maxEdge > 0 {
			e.imaging.MaxEdge = maxEdge
		}
	}
}

// WithSegmentOptions overrides the segmenter parameters.
func WithSegmentOptions(opts segment.Options) Option {
	return func(e *Engine) { e.segment = opts }
}

// WithExtractors replaces the image extractors.
func WithExtractors(extractors ...signals.Extractor) Option {
	return func(e *Engine) { e.extractors = extractors }
}

// New builds an Engine reading weights from store.
func New(store *weights.Store, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		imaging:    imaging.DefaultOptions(),
		segment:    segment.DefaultOptions(),
		extractors: signals.Extractors(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ready reports whether a weight snapshot is loaded.
func (e *Engine) Ready() bool {
	return e.store.Ready()
}

// Assess scores one image with the reported symptoms. Any error is terminal
// and no partial assessment is returned with it.
func (e *Engine) Assess(ctx context.Context, image []byte, symptoms risk.Symptoms) (*risk.Assessment, error) {
	cfg := e.store.Snapshot()
	if cfg == nil {
		return nil, apperr.New(apperr.KindConfig, "no weight configuration loaded")
	}

	buf, err := imaging.Normalize(image, e.imaging)
	if err != nil {
		return nil, err
	}
	masks, err := segment.Segment(buf, e.segment)
	if err != nil {
		return nil, err
	}
	imageSignals, err := e.extract(ctx, buf, masks)
	if err != nil {
		return nil, err
	}

	all := append(imageSignals, signals.Symptoms(symptoms)...)
	res := scoring.Score(all, cfg)
	text, steps := explain.Generate(res.Level, res.Signals)

	return &risk.Assessment{
		RiskScore:            res.Score,
		RiskLevel:            res.Level,
		Signals:              res.Signals,
		Explanation:          text,
		Disclaimer:           risk.Disclaimer,
		RecommendedNextSteps: steps,
	}, nil
}

// extract runs every extractor concurrently. Results land at the extractor's
// index so the output order never depends on scheduling.
func (e *Engine) extract(ctx context.Context, buf *imaging.PixelBuffer, masks *segment.Masks) ([]risk.Signal, error) {
	out := make([]risk.Signal, len(e.extractors))
	g, _ := errgroup.WithContext(ctx)
	for i, ex := range e.extractors {
		i, ex := i, ex // per-iteration copies; go.mod targets go 1.21 loop semantics
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = apperr.Newf(apperr.KindSegmentation, "extractor %s failed: %v", ex.Name, r)
				}
			}()
			s := ex.Extract(buf, masks)
			if s.Name == "" {
				s.Name = ex.Name
			}
			s.Value = risk.Clamp01(s.Value)
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract signals: %w", err)
	}
	return out, nil
}
