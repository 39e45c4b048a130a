package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/woundrisk/internal/retry"
)

// ErrNotFound is returned when no assessment log matches.
var ErrNotFound = errors.New("assessment not found")

// AssessmentLog represents a persisted assessment.
type AssessmentLog struct {
	ID           uint      `gorm:"primaryKey"`
	AssessmentID string    `gorm:"column:assessment_id;uniqueIndex;size:64"`
	Subject      string    `gorm:"column:subject;index;size:128"`
	Score        float64   `gorm:"column:score"`
	Level        string    `gorm:"column:level;index;size:16"`
	ImageSHA256  string    `gorm:"column:image_sha256;size:64"`
	Payload      string    `gorm:"column:payload;type:text"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (AssessmentLog) TableName() string {
	return "assessment_logs"
}

// LevelCount is the number of stored assessments at one risk level.
type LevelCount struct {
	Level string
	Count int64
}

// MetricsAggregation summarizes stored assessments.
type MetricsAggregation struct {
	TotalCount   int64
	AverageScore float64
	ByLevel      []LevelCount
}

// AssessmentRepository provides persistence APIs for assessment logs.
type AssessmentRepository struct {
	db             *gorm.DB
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewAssessmentRepository creates a new repository instance.
func NewAssessmentRepository(db *gorm.DB, logger *zap.Logger) *AssessmentRepository {
	policy := retry.DefaultPolicy()
	return &AssessmentRepository{
		db:             db,
		logger:         logger.Named("assessment_repository"),
		retryAttempts:  policy.Attempts,
		initialBackoff: policy.InitialBackoff,
		maxBackoff:     policy.MaxBackoff,
	}
}

// AutoMigrate ensures the schema is available.
func (r *AssessmentRepository) AutoMigrate(ctx context.Context) error {
	return r.executeWithRetry(ctx, "repository.auto_migrate", "", func() error {
		return r.db.WithContext(ctx).AutoMigrate(&AssessmentLog{})
	})
}

// SaveLog persists an assessment log entry.
func (r *AssessmentRepository) SaveLog(ctx context.Context, log *AssessmentLog) error {
	return r.executeWithRetry(ctx, "repository.save_log", log.AssessmentID, func() error {
		return r.db.WithContext(ctx).Create(log).Error
	})
}

// FindByAssessmentID retrieves the log for assessmentID owned by subject.
func (r *AssessmentRepository) FindByAssessmentID(ctx context.Context, assessmentID, subject string) (*AssessmentLog, error) {
	var log AssessmentLog
	err := r.executeWithRetry(ctx, "repository.find_by_assessment_id", assessmentID, func() error {
		err := r.db.WithContext(ctx).First(&log, "assessment_id = ? AND subject = ?", assessmentID, subject).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// AggregateMetrics counts stored assessments per level and averages their scores.
func (r *AssessmentRepository) AggregateMetrics(ctx context.Context) (*MetricsAggregation, error) {
	var totals struct {
		TotalCount   int64
		AverageScore float64
	}
	var levels []LevelCount
	err := r.executeWithRetry(ctx, "repository.aggregate_metrics", "", func() error {
		db := r.db.WithContext(ctx).Model(&AssessmentLog{})
		if err := db.Select("COUNT(*) AS total_count, COALESCE(AVG(score), 0) AS average_score").
			Scan(&totals).Error; err != nil {
			return err
		}
		levels = levels[:0]
		return r.db.WithContext(ctx).Model(&AssessmentLog{}).
			Select("level, COUNT(*) AS count").
			Group("level").
			Order("level").
			Scan(&levels).Error
	})
	if err != nil {
		return nil, err
	}
	return &MetricsAggregation{
		TotalCount:   totals.TotalCount,
		AverageScore: totals.AverageScore,
		ByLevel:      levels,
	}, nil
}

func (r *AssessmentRepository) executeWithRetry(ctx context.Context, operation, requestID string, fn func() error) error {
	policy := retry.Policy{
		Attempts:       r.retryAttempts,
		InitialBackoff: r.initialBackoff,
		MaxBackoff:     r.maxBackoff,
	}
	return retry.Do(ctx, r.logger, policy, operation, requestID, fn)
}
