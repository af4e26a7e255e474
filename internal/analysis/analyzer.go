// Package analysis turns review text and rating into structured analysis
// tags, using a generative backend when configured and a deterministic
// heuristic otherwise.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/bizrank/review-service/internal/resilience"
	"github.com/bizrank/review-service/internal/types"
)

//go:generate mockgen -destination=mocks/mock_chat_client.go -package=mocks github.com/bizrank/review-service/internal/analysis ChatClient

// Input is one review to analyze
type Input struct {
	Text            string
	Rating          float64
	CategoryContext string // e.g. "plumbing", used to frame the prompt
}

// Strategy produces analysis tags for a review
type Strategy interface {
	Name() string
	Analyze(ctx context.Context, in Input) (*types.AnalysisTags, error)
}

var analysisResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "review_analysis_total",
	Help: "Total number of analyzed reviews by strategy and outcome",
}, []string{"strategy", "outcome"}) // outcome: ok, fallback

// Analyzer runs the primary strategy behind a circuit breaker and falls
// back to the heuristic on error, open circuit or invalid output
type Analyzer struct {
	primary  Strategy
	fallback Strategy
	breaker  *resilience.CircuitBreaker
	now      func() time.Time
	logger   zerolog.Logger
}

// NewAnalyzer creates an analyzer. primary may be nil, in which case only
// the fallback runs.
func NewAnalyzer(primary, fallback Strategy, breaker *resilience.CircuitBreaker, logger *zerolog.Logger) *Analyzer {
	if fallback == nil {
		fallback = NewHeuristic()
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "analyzer").Logger()
	}
	return &Analyzer{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		now:      time.Now,
		logger:   l,
	}
}

// Analyze returns validated tags for in
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*types.AnalysisTags, error) {
	if a.primary != nil {
		tags, err := a.runPrimary(ctx, in)
		if err == nil {
			analysisResults.WithLabelValues(a.primary.Name(), "ok").Inc()
			return a.stamp(tags, in), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn().Err(err).Str("strategy", a.primary.Name()).Msg("Primary analysis failed, using fallback")
		analysisResults.WithLabelValues(a.primary.Name(), "fallback").Inc()
	}

	tags, err := a.fallback.Analyze(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("fallback analysis failed: %w", err)
	}
	if err := tags.Validate(); err != nil {
		return nil, fmt.Errorf("fallback analysis produced invalid tags: %w", err)
	}
	analysisResults.WithLabelValues(a.fallback.Name(), "ok").Inc()
	return a.stamp(tags, in), nil
}

func (a *Analyzer) runPrimary(ctx context.Context, in Input) (*types.AnalysisTags, error) {
	var tags *types.AnalysisTags
	call := func() error {
		t, err := a.primary.Analyze(ctx, in)
		if err != nil {
			return err
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("invalid analysis output: %w", err)
		}
		tags = t
		return nil
	}

	var err error
	if a.breaker == nil {
		err = call()
	} else {
		err = a.breaker.Execute(call)
	}
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (a *Analyzer) stamp(tags *types.AnalysisTags, in Input) *types.AnalysisTags {
	tags.Rating = in.Rating
	if tags.AnalyzedAt.IsZero() {
		tags.AnalyzedAt = a.now().UTC()
	}
	return tags
}
