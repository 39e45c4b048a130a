package assessor

import (
	"context"
	"errors"
	"testing"

	"github.com/example/woundrisk/internal/risk"
)

func fixed(level risk.Level, err error) Assessor {
	return Func(func(context.Context, []byte, risk.Symptoms) (*risk.Assessment, error) {
		if err != nil {
			return nil, err
		}
		return &risk.Assessment{RiskLevel: level}, nil
	})
}

func TestWithFallbackPrefersPrimary(t *testing.T) {
	called := false
	a := WithFallback(fixed(risk.LevelHigh, nil), fixed(risk.LevelLow, nil), func(error) { called = true })
	res, err := a.Assess(context.Background(), nil, risk.Symptoms{})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if res.RiskLevel != risk.LevelHigh || called {
		t.Fatalf("expected primary result without fallback, got %s", res.RiskLevel)
	}
}

func TestWithFallbackUsesSecondaryOnError(t *testing.T) {
	primaryErr := errors.New("unavailable")
	var seen error
	a := WithFallback(fixed("", primaryErr), fixed(risk.LevelLow, nil), func(err error) { seen = err })
	res, err := a.Assess(context.Background(), nil, risk.Symptoms{})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if res.RiskLevel != risk.LevelLow {
		t.Fatalf("expected fallback result, got %s", res.RiskLevel)
	}
	if !errors.Is(seen, primaryErr) {
		t.Fatalf("expected primary error to be reported, got %v", seen)
	}
}

func TestWithFallbackReturnsSecondaryError(t *testing.T) {
	secondaryErr := errors.New("bad image")
	a := WithFallback(fixed("", errors.New("down")), fixed("", secondaryErr), nil)
	if _, err := a.Assess(context.Background(), nil, risk.Symptoms{}); !errors.Is(err, secondaryErr) {
		t.Fatalf("expected secondary error, got %v", err)
	}
}
