package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"github.com/HatiCode/ridewise/pkg/auth"
	"github.com/HatiCode/ridewise/pkg/document"
	"github.com/HatiCode/ridewise/pkg/features"
	"github.com/HatiCode/ridewise/pkg/models"
	"github.com/HatiCode/ridewise/pkg/prediction"
)

// =============================================================================
// PREDICT COMMAND
// =============================================================================

func predictCommand() *cli.Command {
	return &cli.Command{
		Name:  "predict",
		Usage: "Predict rentals for one JSON record",
		Flags: append(modelFlags(),
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Path to the JSON record (- for stdin)",
				Required: true,
			},
		),
		Action: runPredict,
	}
}

func runPredict(c *cli.Context) error {
	v, err := features.ParseVariant(c.String("variant"))
	if err != nil {
		return err
	}

	data, err := readInput(c, c.String("input"))
	if err != nil {
		return err
	}

	var record features.Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&record); err != nil {
		return fmt.Errorf("failed to parse %s: %w", c.String("input"), err)
	}

	res, err := predict(c, record, v)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return writeJSON(c.App.Writer, map[string]any{
			"prediction": res.Count(),
			"type":       v,
			"raw":        res.Raw,
			"penalty":    res.Penalty,
		})
	}
	fmt.Fprintf(c.App.Writer, "Predicted %s bike demand: %d bikes\n", v, res.Count())
	return nil
}

// =============================================================================
// EXTRACT COMMAND
// =============================================================================

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Extract a record from a text document, and predict when a model is given",
		Flags: append(modelFlags(),
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the text document (- for stdin)",
				Required: true,
			},
		),
		Action: runExtract,
	}
}

func runExtract(c *cli.Context) error {
	v, err := features.ParseVariant(c.String("variant"))
	if err != nil {
		return err
	}

	data, err := readInput(c, c.String("file"))
	if err != nil {
		return err
	}

	record, err := document.Extract(string(data))
	if err != nil {
		return fmt.Errorf("could not extract data from %s: %w", c.String("file"), err)
	}

	out := map[string]any{"extracted_data": record}
	if modelPath(c, v) != "" {
		res, err := predict(c, record, v)
		if err != nil {
			return err
		}
		out["prediction"] = res.Count()
		out["type"] = v
	}
	return writeJSON(c.App.Writer, out)
}

// =============================================================================
// TOKEN COMMAND
// =============================================================================

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Mint a bearer token for local testing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "secret",
				Usage:    "HS256 signing secret",
				EnvVars:  []string{"JWT_SECRET"},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "user",
				Aliases:  []string{"u"},
				Usage:    "User id to embed in the token",
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Value: auth.DefaultTTL,
				Usage: "Token lifetime",
			},
		},
		Action: func(c *cli.Context) error {
			if c.Duration("ttl") <= 0 {
				return errors.New("ttl must be positive")
			}
			m, err := auth.NewManager(c.String("secret"), c.Duration("ttl"))
			if err != nil {
				return err
			}
			token, err := m.GenerateToken(c.String("user"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "variant",
			Aliases: []string{"t"},
			Value:   string(features.Daily),
			Usage:   "Prediction variant (daily, hourly)",
		},
		&cli.StringFlag{
			Name:    "daily-model",
			Usage:   "Daily model artifact (JSON)",
			EnvVars: []string{"DAILY_MODEL_PATH"},
		},
		&cli.StringFlag{
			Name:    "hourly-model",
			Usage:   "Hourly model artifact (JSON)",
			EnvVars: []string{"HOURLY_MODEL_PATH"},
		},
		&cli.BoolFlag{
			Name:  "no-weather-penalty",
			Usage: "Skip the weather penalty",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print the result as JSON",
		},
	}
}

func modelPath(c *cli.Context, v features.Variant) string {
	if v == features.Hourly {
		return c.String("hourly-model")
	}
	return c.String("daily-model")
}

// predict loads the artifact for v and runs one prediction.
func predict(c *cli.Context, record features.Record, v features.Variant) (prediction.Result, error) {
	path := modelPath(c, v)
	if path == "" {
		return prediction.Result{}, fmt.Errorf("--%s-model is required", v)
	}

	reg, err := models.LoadArtifact(path)
	if err != nil {
		return prediction.Result{}, err
	}

	cfg := prediction.Config{
		Logger:           newLogger(c),
		NoWeatherPenalty: c.Bool("no-weather-penalty"),
	}
	if v == features.Hourly {
		cfg.Hourly = reg
	} else {
		cfg.Daily = reg
	}

	svc, err := prediction.New(cfg)
	if err != nil {
		return prediction.Result{}, err
	}
	return svc.Predict(c.Context, record, v)
}

func readInput(c *cli.Context, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(c.App.Reader)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func newLogger(c *cli.Context) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
