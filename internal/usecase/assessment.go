package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/woundrisk/internal/apperr"
	"github.com/example/woundrisk/internal/assessor"
	"github.com/example/woundrisk/internal/logging"
	"github.com/example/woundrisk/internal/repository"
	"github.com/example/woundrisk/internal/retry"
	"github.com/example/woundrisk/internal/risk"
	"github.com/example/woundrisk/internal/weights"
)

var (
	// ErrNotFound is returned when no stored assessment is visible to the caller.
	ErrNotFound = errors.New("assessment not found")
	// ErrStorageDisabled is returned by history operations when no store is configured.
	ErrStorageDisabled = errors.New("assessment storage is not configured")
)

// AssessmentRepository defines the persistence operations needed by the use case.
type AssessmentRepository interface {
	SaveLog(ctx context.Context, log *repository.AssessmentLog) error
	FindByAssessmentID(ctx context.Context, assessmentID, subject string) (*repository.AssessmentLog, error)
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// AssessmentUseCase runs assessments and records their outcome. Storage is
// best-effort: a failed write is logged and the assessment is still returned.
type AssessmentUseCase struct {
	assessor    assessor.Assessor
	store       *weights.Store
	repo        AssessmentRepository
	cache       ResultCache
	logger      *zap.Logger
	retryPolicy retry.Policy
	now         func() time.Time
}

// StoredAssessment is an assessment read back from storage.
type StoredAssessment struct {
	AssessmentID string           `json:"assessment_id"`
	CreatedAt    time.Time        `json:"created_at"`
	Assessment   *risk.Assessment `json:"assessment"`
}

type cachedAssessment struct {
	AssessmentID string           `json:"assessment_id"`
	Subject      string           `json:"subject"`
	CreatedAt    time.Time        `json:"created_at"`
	Assessment   *risk.Assessment `json:"assessment"`
}

// Option customizes an AssessmentUseCase.
type Option func(*AssessmentUseCase)

// WithRepository enables persistence.
func WithRepository(repo AssessmentRepository) Option {
	return func(uc *AssessmentUseCase) { uc.repo = repo }
}

// WithCache enables the result cache.
func WithCache(cache ResultCache) Option {
	return func(uc *AssessmentUseCase) { uc.cache = cache }
}

// WithRetryPolicy overrides the storage retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(uc *AssessmentUseCase) { uc.retryPolicy = policy }
}

// NewAssessmentUseCase constructs a new use case instance.
func NewAssessmentUseCase(a assessor.Assessor, store *weights.Store, logger *zap.Logger, opts ...Option) *AssessmentUseCase {
	uc := &AssessmentUseCase{
		assessor:    a,
		store:       store,
		logger:      logger.Named("assessment_usecase"),
		retryPolicy: retry.DefaultPolicy(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Ready reports whether a weight snapshot is loaded.
func (uc *AssessmentUseCase) Ready() bool {
	return uc.store.Ready()
}

// Assess scores image for subject and returns the new assessment id.
func (uc *AssessmentUseCase) Assess(ctx context.Context, subject string, image []byte, symptoms risk.Symptoms) (string, *risk.Assessment, error) {
	assessmentID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.assess", assessmentID)

	result, err := uc.assessor.Assess(ctx, image, symptoms)
	if err != nil {
		wrapped := logging.NewOperationError("usecase.assess", assessmentID, err)
		if apperr.HTTPStatus(err) < 500 {
			opLogger.Info("image rejected", zap.String("kind", apperr.KindOf(err).String()), zap.Error(err))
		} else {
			opLogger.Error("assessment failed", zap.Error(wrapped))
		}
		return "", nil, wrapped
	}

	opLogger.Info("assessment completed",
		zap.Float64("risk_score", result.RiskScore),
		zap.String("risk_level", string(result.RiskLevel)),
	)

	createdAt := uc.now()
	uc.persist(ctx, opLogger, assessmentID, subject, image, createdAt, result)
	uc.cacheResult(ctx, opLogger, cachedAssessment{
		AssessmentID: assessmentID,
		Subject:      subject,
		CreatedAt:    createdAt,
		Assessment:   result,
	})

	return assessmentID, result, nil
}

func (uc *AssessmentUseCase) persist(ctx context.Context, opLogger *zap.Logger, assessmentID, subject string, image []byte, createdAt time.Time, result *risk.Assessment) {
	if uc.repo == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		opLogger.Warn("failed to serialize assessment", zap.Error(err))
		return
	}
	hash := sha256.Sum256(image)
	log := &repository.AssessmentLog{
		AssessmentID: assessmentID,
		Subject:      subject,
		Score:        result.RiskScore,
		Level:        string(result.RiskLevel),
		ImageSHA256:  hex.EncodeToString(hash[:]),
		Payload:      string(payload),
		CreatedAt:    createdAt,
	}
	if err := uc.repo.SaveLog(ctx, log); err != nil {
		opLogger.Warn("failed to persist assessment log", zap.Error(err))
	}
}

func (uc *AssessmentUseCase) cacheResult(ctx context.Context, opLogger *zap.Logger, entry cachedAssessment) {
	if uc.cache == nil {
		return
	}
	serialized, err := json.Marshal(entry)
	if err != nil {
		opLogger.Warn("failed to serialize cached assessment", zap.Error(err))
		return
	}
	if err := retry.Do(ctx, uc.logger, uc.retryPolicy, "cache.set.assessment", entry.AssessmentID, func() error {
		return uc.cache.Put(ctx, entry.AssessmentID, serialized)
	}); err != nil {
		opLogger.Warn("failed to cache assessment", zap.Error(err))
	}
}

// GetAssessment returns the stored assessment assessmentID if subject owns it.
func (uc *AssessmentUseCase) GetAssessment(ctx context.Context, subject, assessmentID string) (*StoredAssessment, error) {
	if uc.repo == nil && uc.cache == nil {
		return nil, ErrStorageDisabled
	}
	opLogger := logging.WithOperation(uc.logger, "usecase.get_assessment", assessmentID)

	if uc.cache != nil {
		var cached []byte
		err := retry.Do(ctx, uc.logger, uc.retryPolicy, "cache.get.assessment", assessmentID, func() error {
			payload, err := uc.cache.Fetch(ctx, assessmentID)
			if err != nil {
				return err
			}
			cached = payload
			return nil
		})
		switch {
		case err == nil:
			var entry cachedAssessment
			if err := json.Unmarshal(cached, &entry); err != nil {
				opLogger.Warn("failed to decode cached assessment", zap.Error(err))
				break
			}
			if entry.Subject != subject {
				return nil, ErrNotFound
			}
			return &StoredAssessment{
				AssessmentID: assessmentID,
				CreatedAt:    entry.CreatedAt,
				Assessment:   entry.Assessment,
			}, nil
		case !errors.Is(err, ErrCacheMiss):
			opLogger.Warn("failed to read cache", zap.Error(err))
		}
	}

	if uc.repo == nil {
		return nil, ErrNotFound
	}
	log, err := uc.repo.FindByAssessmentID(ctx, assessmentID, subject)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, logging.NewOperationError("usecase.get_assessment", assessmentID, err)
	}

	var result risk.Assessment
	if err := json.Unmarshal([]byte(log.Payload), &result); err != nil {
		return nil, logging.NewOperationError("usecase.decode_assessment", assessmentID, err)
	}
	return &StoredAssessment{
		AssessmentID: log.AssessmentID,
		CreatedAt:    log.CreatedAt,
		Assessment:   &result,
	}, nil
}

// ReloadWeights re-reads the weight file and swaps it in atomically.
func (uc *AssessmentUseCase) ReloadWeights() (*weights.Config, error) {
	opLogger := logging.WithOperation(uc.logger, "usecase.reload_weights", "")
	cfg, err := uc.store.Reload()
	if err != nil {
		opLogger.Error("weight reload failed, keeping previous weights", zap.Error(err))
		return nil, err
	}
	opLogger.Info("weights reloaded",
		zap.String("source", cfg.Source()),
		zap.Strings("missing", cfg.Missing()),
	)
	return cfg, nil
}
