package usecase

import (
	"context"

	"github.com/example/woundrisk/internal/risk"
)

// MetricsSummary represents aggregated assessment insights.
type MetricsSummary struct {
	TotalAssessments int64                `json:"total_assessments"`
	AverageScore     float64              `json:"average_score"`
	ByLevel          map[risk.Level]int64 `json:"by_level"`
}

// GetMetricsSummary aggregates assessment metrics from persisted logs.
func (uc *AssessmentUseCase) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	if uc.repo == nil {
		return nil, ErrStorageDisabled
	}
	aggregation, err := uc.repo.AggregateMetrics(ctx)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalAssessments: aggregation.TotalCount,
		AverageScore:     aggregation.AverageScore,
		ByLevel: map[risk.Level]int64{
			risk.LevelLow:    0,
			risk.LevelMedium: 0,
			risk.LevelHigh:   0,
		},
	}
	for _, lc := range aggregation.ByLevel {
		summary.ByLevel[risk.Level(lc.Level)] += lc.Count
	}
	return summary, nil
}
