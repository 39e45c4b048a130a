// Package assessor declares the port every risk assessor satisfies: the
// in-process engine, the remote gRPC client and the local fallback.
package assessor

import (
	"context"

	"github.com/example/woundrisk/internal/risk"
)

// Assessor produces a risk assessment for one image and symptom set.
type Assessor interface {
	Assess(ctx context.Context, image []byte, symptoms risk.Symptoms) (*risk.Assessment, error)
}

// Func adapts a function to Assessor.
type Func func(ctx context.Context, image []byte, symptoms risk.Symptoms) (*risk.Assessment, error)

// Assess calls f.
func (f Func) Assess(ctx context.Context, image []byte, symptoms risk.Symptoms) (*risk.Assessment, error) {
	return f(ctx, image, symptoms)
}

// WithFallback returns an Assessor that calls primary and, when it fails,
// answers from secondary. onFallback, when set, sees the primary error.
func WithFallback(primary, secondary Assessor, onFallback func(error)) Assessor {
	return Func(func(ctx context.Context, image []byte, symptoms risk.Symptoms) (*risk.Assessment, error) {
		res, err := primary.Assess(ctx, image, symptoms)
		if err == nil {
			return res, nil
		}
		if onFallback != nil {
			onFallback(err)
		}
		return secondary.Assess(ctx, image, symptoms)
	})
}
