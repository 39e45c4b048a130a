// Package scoring combines weighted signals into a bounded score and risk level.
package scoring

import (
	"sort"

	"github.com/example/woundrisk/internal/risk"
	"github.com/example/woundrisk/internal/weights"
)

// Result is the outcome of one scoring pass.
type Result struct {
	Score float64
	Level risk.Level
	// Signals carry their weights and are ranked by contribution.
	Signals []risk.Signal
}

// Weigh returns copies of signals carrying the weights from cfg. Names without
// an entry get weight 0 and are kept.
func Weigh(signals []risk.Signal, cfg *weights.Config) []risk.Signal {
	out := make([]risk.Signal, len(signals))
	for i, s := range signals {
		out[i] = s.WithWeight(cfg.Weight(s.Name))
	}
	return out
}

// Sum is the clamped weighted linear sum. Weights are not renormalized.
func Sum(weighted []risk.Signal) float64 {
	var total float64
	for _, s := range weighted {
		total += s.Contribution()
	}
	return risk.Clamp01(total)
}

// Rank orders signals by contribution, highest first. Ties keep input order,
// so callers pass signals in declaration order.
func Rank(weighted []risk.Signal) []risk.Signal {
	out := make([]risk.Signal, len(weighted))
	copy(out, weighted)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Contribution() > out[j].Contribution()
	})
	return out
}

// Score weighs signals with cfg and returns the score, its level and the ranked signals.
func Score(signals []risk.Signal, cfg *weights.Config) Result {
	weighted := Weigh(signals, cfg)
	score := Sum(weighted)
	return Result{
		Score:   score,
		Level:   risk.LevelFor(score),
		Signals: Rank(weighted),
	}
}
