// Package fallback is the network-independent estimator used when the
// assessment service cannot be reached. It reads one coarse colour proxy
// instead of the segmented four-signal pipeline, but returns the same
// record shape, thresholds and disclaimer.
package fallback

import (
	"context"

	"github.com/example/woundrisk/internal/explain"
	"github.com/example/woundrisk/internal/imaging"
	"github.com/example/woundrisk/internal/risk"
	"github.com/example/woundrisk/internal/scoring"
	"github.com/example/woundrisk/internal/signals"
	"github.com/example/woundrisk/internal/weights"
)

// VisualColorProxy names the single image signal of the fallback estimate.
const VisualColorProxy = "visual_color_proxy"

const (
	proxyWeight  = 0.6
	proxyCeiling = 0.5
	sampleEdge   = 64
)

// Estimator computes local estimates. Symptom weights come from weights, or
// from the built-in defaults when it is nil.
type Estimator struct {
	weights *weights.Config
}

// New returns an Estimator using cfg for symptom weights.
func New(cfg *weights.Config) *Estimator {
	if cfg == nil {
		cfg = weights.Defaults()
	}
	return &Estimator{weights: cfg}
}

// Assess returns the fallback estimate for image.
func (e *Estimator) Assess(_ context.Context, image []byte, symptoms risk.Symptoms) (*risk.Assessment, error) {
	buf, err := imaging.Normalize(image, imaging.DefaultOptions())
	if err != nil {
		return nil, err
	}

	value := ColorProxy(imaging.Downsample(buf, sampleEdge))
	proxy := risk.Signal{
		Name:   VisualColorProxy,
		Value:  value,
		Weight: proxyWeight,
		Note:   signals.Note(VisualColorProxy, value),
	}
	weighted := append([]risk.Signal{proxy}, scoring.Weigh(signals.Symptoms(symptoms), e.weights)...)

	score := scoring.Sum(weighted)
	level := risk.LevelFor(score)
	ranked := scoring.Rank(weighted)
	text, steps := explain.Generate(level, ranked)

	return &risk.Assessment{
		RiskScore:            score,
		RiskLevel:            level,
		Signals:              ranked,
		Explanation:          text,
		Disclaimer:           risk.Disclaimer,
		RecommendedNextSteps: steps,
	}, nil
}

// ColorProxy is the share of red-hued pixels across the whole frame,
// saturating at proxyCeiling.
func ColorProxy(buf *imaging.PixelBuffer) float64 {
	area := buf.Area()
	if area == 0 {
		return 0
	}
	red := 0
	for i := 0; i < area; i++ {
		if signals.IsRedHue(buf.RGB(i)) {
			red++
		}
	}
	return risk.Clamp01(float64(red) / float64(area) / proxyCeiling)
}
