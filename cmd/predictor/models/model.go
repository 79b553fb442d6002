// Package models builds the regressor for each prediction variant from the
// predictor config.
package models

import (
	"fmt"
	"log/slog"

	"github.com/HatiCode/ridewise/cmd/predictor/config"
	"github.com/HatiCode/ridewise/pkg/features"
	"github.com/HatiCode/ridewise/pkg/models"
)

// New returns the regressor for v. A configured BYOM endpoint takes
// precedence over an artifact path.
func New(cfg *config.Config, v features.Variant, logger *slog.Logger) (models.Regressor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if url := cfg.ModelURL(v); url != "" {
		asm, err := features.ForVariant(v)
		if err != nil {
			return nil, err
		}
		logger.Info("initializing BYOM model",
			"variant", v,
			"url", url,
			"value_path", cfg.BYOMValuePath,
			"timeout", cfg.BYOMTimeout,
		)
		return models.NewBYOMModel(url, models.BYOMOptions{
			ValuePath:    cfg.BYOMValuePath,
			Timeout:      cfg.BYOMTimeout,
			FeatureNames: asm.Columns(),
			Logger:       logger.With("variant", v),
		}), nil
	}

	path := cfg.ModelPath(v)
	if path == "" {
		return nil, fmt.Errorf("%s model: no artifact path or BYOM url configured", v)
	}

	reg, err := models.LoadArtifact(path)
	if err != nil {
		return nil, fmt.Errorf("%s model: %w", v, err)
	}
	logger.Info("loaded model artifact",
		"variant", v,
		"path", path,
		"model", reg.Name(),
		"features", reg.NumFeatures(),
	)
	return reg, nil
}

// NewAll builds the daily and hourly regressors.
func NewAll(cfg *config.Config, logger *slog.Logger) (daily, hourly models.Regressor, err error) {
	if daily, err = New(cfg, features.Daily, logger); err != nil {
		return nil, nil, err
	}
	if hourly, err = New(cfg, features.Hourly, logger); err != nil {
		return nil, nil, err
	}
	return daily, hourly, nil
}
