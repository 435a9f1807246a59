// Command predict runs one prediction against the configured model directory
// and prints the outcome. It exits with status 2 when the disease's model is
// unavailable and 1 on any other failure.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"healthrisk/config"
	"healthrisk/disease"
	"healthrisk/logging"
	"healthrisk/predict"
	"healthrisk/registry"
)

const exitModelUnavailable = 2

// fieldFlags collects repeated -field name=value pairs.
type fieldFlags map[string]float64

func (f fieldFlags) String() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+"="+strconv.FormatFloat(v, 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}

func (f fieldFlags) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("field %s: %w", name, err)
	}
	f[strings.TrimSpace(name)] = v
	return nil
}

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	diseaseName := flag.String("disease", "", "disease to predict: diabetes, heart_disease, parkinsons, lung_cancer, thyroid")
	featureList := flag.String("features", "", "comma-separated feature vector in schema order")
	showSchema := flag.Bool("schema", false, "print the feature schema of -disease and exit")
	fields := fieldFlags{}
	flag.Var(fields, "field", "named feature as name=value; repeatable, unset fields take their defaults")
	flag.Parse()

	os.Exit(run(*configPath, *diseaseName, *featureList, fields, *showSchema))
}

func run(configPath, diseaseName, featureList string, fields fieldFlags, showSchema bool) int {
	d, err := disease.Parse(diseaseName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	schema := d.Schema()
	if showSchema {
		for i, f := range schema.Fields {
			fmt.Printf("%2d  %-28s %-12s default %g\n", i, f.Name, f.Kind, f.Default)
		}
		return 0
	}

	features, err := buildFeatures(schema, featureList, fields)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	logCfg := cfg.Log
	if logCfg.Level == "info" {
		logCfg.Level = "warn"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	reg := registry.New(registry.Options{
		Sources:  cfg.Sources(),
		Isolated: cfg.Models.Isolated,
		Logger:   logger,
	})
	if _, err := reg.Load(); err != nil {
		logger.Warn("model registry incomplete", zap.Error(err))
	}

	dispatcher, err := predict.NewDispatcher(reg, predict.Options{Logger: logger})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	outcome, err := dispatcher.Predict(context.Background(), d, features)
	if err != nil {
		if errors.Is(err, predict.ErrModelUnavailable) {
			fmt.Fprintln(os.Stderr, "Models not loaded properly. Please check the Models directory.")
			return exitModelUnavailable
		}
		fmt.Fprintf(os.Stderr, "Error during prediction: %v\n", err)
		return 1
	}

	fmt.Printf("%s: %s\n%s\n", d.Title(), outcome.Tag, outcome.Message)
	return 0
}

func buildFeatures(schema disease.Schema, featureList string, fields fieldFlags) ([]float64, error) {
	if featureList != "" && len(fields) > 0 {
		return nil, errors.New("use either -features or -field, not both")
	}

	var features []float64
	if featureList != "" {
		for _, part := range strings.Split(featureList, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid feature %q: %w", part, err)
			}
			features = append(features, v)
		}
	} else {
		vec, err := schema.Vector(fields)
		if err != nil {
			return nil, err
		}
		features = vec
	}

	if err := schema.Validate(features); err != nil {
		return nil, err
	}
	return features, nil
}
