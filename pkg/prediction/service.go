// Package prediction runs the demand prediction pipeline:
//
//	validate → assemble → predict → weather penalty → clamp
//
// A Service holds one regressor per variant, injected at construction, and
// no other state. It is safe for concurrent use.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/HatiCode/ridewise/pkg/features"
	"github.com/HatiCode/ridewise/pkg/models"
	"github.com/HatiCode/ridewise/pkg/validation"
)

// Error kinds reported to an Observer.
const (
	KindValidation    = "validation"
	KindConfiguration = "configuration"
	KindInference     = "inference"
)

// Observer receives pipeline measurements. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObservePrediction(variant string, d time.Duration, value float64)
	ObserveError(variant, kind string)
}

// Config wires a Service. Either regressor may be nil; predicting with a
// missing regressor yields a ConfigurationError.
type Config struct {
	Daily  models.Regressor
	Hourly models.Regressor

	Logger   *slog.Logger
	Observer Observer

	// NoWeatherPenalty skips the weather multiplier.
	NoWeatherPenalty bool
}

// Result is the outcome of one prediction.
type Result struct {
	Variant features.Variant

	// Raw is the regressor output before post-processing.
	Raw float64

	// Penalty is the multiplier that was applied.
	Penalty float64

	// Value is max(0, Raw·Penalty).
	Value float64

	Input  features.Input
	Vector features.Vector
}

// Count is the prediction as a whole number of rentals, truncated.
func (r Result) Count() int {
	return int(r.Value)
}

type pipeline struct {
	assembler *features.Assembler
	regressor models.Regressor
}

// Service predicts daily and hourly demand.
type Service struct {
	pipelines map[features.Variant]pipeline
	logger    *slog.Logger
	observer  Observer
	penalty   bool
}

// New builds a Service, checking each regressor against its assembler. A
// regressor that declares a different column order or vector length is
// rejected with a ConfigurationError.
func New(cfg Config) (*Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		pipelines: make(map[features.Variant]pipeline, 2),
		logger:    logger,
		observer:  cfg.Observer,
		penalty:   !cfg.NoWeatherPenalty,
	}

	for v, reg := range map[features.Variant]models.Regressor{
		features.Daily:  cfg.Daily,
		features.Hourly: cfg.Hourly,
	} {
		asm, err := features.ForVariant(v)
		if err != nil {
			return nil, err
		}
		if reg != nil {
			if err := checkContract(v, asm, reg); err != nil {
				return nil, err
			}
		}
		s.pipelines[v] = pipeline{assembler: asm, regressor: reg}
	}

	return s, nil
}

func checkContract(v features.Variant, asm *features.Assembler, reg models.Regressor) error {
	if n := reg.NumFeatures(); n > 0 && n != asm.Len() {
		return &ConfigurationError{
			Variant: string(v),
			Reason:  fmt.Sprintf("model %s expects %d features, assembler produces %d", reg.Name(), n, asm.Len()),
		}
	}

	names := models.FeatureNames(reg)
	if len(names) == 0 {
		return nil
	}
	cols := asm.Columns()
	for i := range cols {
		if i >= len(names) || names[i] != cols[i] {
			got := "<none>"
			if i < len(names) {
				got = names[i]
			}
			return &ConfigurationError{
				Variant: string(v),
				Reason:  fmt.Sprintf("model %s column %d is %q, assembler produces %q", reg.Name(), i, got, cols[i]),
			}
		}
	}
	return nil
}

// Ready reports which variants have a regressor.
func (s *Service) Ready() map[features.Variant]bool {
	out := make(map[features.Variant]bool, len(s.pipelines))
	for v, p := range s.pipelines {
		out[v] = p.regressor != nil
	}
	return out
}

// Predict runs the pipeline for one record.
func (s *Service) Predict(ctx context.Context, record features.Record, v features.Variant) (Result, error) {
	p, ok := s.pipelines[v]
	if !ok {
		s.observeError(string(v), KindValidation)
		return Result{}, &ValidationError{
			Fields:  []string{"type"},
			Message: fmt.Sprintf("unknown prediction type %q", v),
		}
	}
	if p.regressor == nil {
		s.observeError(string(v), KindConfiguration)
		return Result{}, &ConfigurationError{Variant: string(v), Reason: "no model loaded"}
	}

	in, err := s.validate(record, v)
	if err != nil {
		s.observeError(string(v), KindValidation)
		return Result{}, err
	}

	if in.DateStatus == features.DateMalformed {
		s.logger.Warn("unparseable date, using default day of month",
			"variant", v, "date", in.RawDate, "default_day", features.DefaultDay)
	}

	vec := p.assembler.Assemble(in)

	start := time.Now()
	raw, err := p.regressor.Predict(ctx, vec)
	if err == nil && (math.IsNaN(raw) || math.IsInf(raw, 0)) {
		err = fmt.Errorf("model returned %v", raw)
	}
	if err != nil {
		s.observeError(string(v), KindInference)
		s.logger.Error("inference failed",
			"variant", v,
			"model", p.regressor.Name(),
			"features", p.assembler.Named(vec),
			"error", err,
		)
		return Result{}, &InferenceError{Variant: string(v), Model: p.regressor.Name(), Err: err}
	}
	elapsed := time.Since(start)

	penalty := 1.0
	if s.penalty {
		penalty = WeatherPenalty(in.Weather)
	}
	value := math.Max(0, raw*penalty)

	if s.observer != nil {
		s.observer.ObservePrediction(string(v), elapsed, value)
	}
	s.logger.Debug("prediction complete",
		"variant", v,
		"model", p.regressor.Name(),
		"raw", raw,
		"penalty", penalty,
		"value", value,
		"duration_ms", elapsed.Milliseconds(),
	)

	return Result{
		Variant: v,
		Raw:     raw,
		Penalty: penalty,
		Value:   value,
		Input:   in,
		Vector:  vec,
	}, nil
}

// validate checks presence, numeric form and ranges, in that order, so the
// caller hears about every missing field before any bad value.
func (s *Service) validate(record features.Record, v features.Variant) (features.Input, error) {
	if missing := record.Missing(features.RequiredFields(v)); len(missing) > 0 {
		return features.Input{}, missingFields(missing)
	}

	in, err := features.FromRecord(record, v)
	if err != nil {
		var fe features.FieldErrors
		if errors.As(err, &fe) {
			return features.Input{}, &ValidationError{Fields: fe.Fields(), Message: fe.Error()}
		}
		return features.Input{}, &ValidationError{Message: err.Error()}
	}

	if err := validation.Struct(&in); err != nil {
		var verr *validation.Errors
		if errors.As(err, &verr) {
			return features.Input{}, &ValidationError{Fields: verr.Fields(), Message: verr.Error()}
		}
		return features.Input{}, &ValidationError{Message: err.Error()}
	}

	return in, nil
}

func (s *Service) observeError(variant, kind string) {
	if s.observer != nil {
		s.observer.ObserveError(variant, kind)
	}
}
