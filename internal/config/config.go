package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/3dfirelab/webFET/internal/domain"
)

// Config holds all stream settings, populated from command-line flags plus
// the logging environment variables.
type Config struct {
	DataDir     string
	Resolution  int
	LowZoomMax  int
	HighZoomMin int
	OmitRaw     bool
	Window      domain.DateRange
	StatsPath   string

	KafkaBrokers []string
	KafkaTopic   string
	MetricsAddr  string

	LogLevel  string
	LogFormat string
}

// KafkaEnabled reports whether records should also be published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load parses args (not including the program name), applies derived
// defaults, and validates. Logging settings come from LOG_LEVEL and
// LOG_FORMAT because stdout belongs to the data stream.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("stream", flag.ContinueOnError)

	cfg := &Config{}
	var (
		highZoomMin = fs.Int("high-zoom-min", -1, "Min zoom for raw features (default: low-zoom-max + 1)")
		startDate   = fs.String("start-date", "", "Inclusive start day, YYYY-MM-DD UTC")
		endDate     = fs.String("end-date", "", "Inclusive end day, YYYY-MM-DD UTC")
		brokers     = fs.String("kafka-brokers", "", "Comma-separated Kafka brokers (needs -kafka-topic)")
	)
	fs.StringVar(&cfg.DataDir, "data-dir", "GeoJson", "Directory of GeoJSON slice files")
	fs.IntVar(&cfg.Resolution, "h3-res", 4, "H3 aggregation resolution")
	fs.IntVar(&cfg.LowZoomMax, "low-zoom-max", 4, "Max zoom for the H3 aggregate layer")
	fs.BoolVar(&cfg.OmitRaw, "omit-raw", false, "Emit only H3 aggregates, no raw features")
	fs.StringVar(&cfg.StatsPath, "stats-gdf", "", "Optional GeoJSON stats table with time_start/time_end per fire event")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", "", "Kafka topic for emitted records")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Listen address for /healthz, /readyz and /metrics (disabled when empty)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Resolution < 0 || cfg.Resolution > 15 {
		return nil, fmt.Errorf("h3-res %d out of range 0..15", cfg.Resolution)
	}
	if cfg.LowZoomMax < 0 {
		return nil, errors.New("low-zoom-max must not be negative")
	}

	cfg.HighZoomMin = *highZoomMin
	if cfg.HighZoomMin < 0 {
		cfg.HighZoomMin = cfg.LowZoomMax + 1
	}
	if cfg.HighZoomMin <= cfg.LowZoomMax {
		return nil, fmt.Errorf("high-zoom-min %d must exceed low-zoom-max %d", cfg.HighZoomMin, cfg.LowZoomMax)
	}

	window, err := parseWindow(*startDate, *endDate)
	if err != nil {
		return nil, err
	}
	cfg.Window = window

	cfg.KafkaBrokers = splitBrokers(*brokers)
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("kafka-brokers requires kafka-topic")
	}
	if cfg.KafkaTopic != "" && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("kafka-topic requires kafka-brokers")
	}

	cfg.LogLevel = envOrDefault("LOG_LEVEL", "info")
	cfg.LogFormat = envOrDefault("LOG_FORMAT", "json")

	return cfg, nil
}

// parseWindow turns inclusive calendar days into the half-open epoch window
// the pipeline filters on: [start 00:00, day-after-end 00:00).
func parseWindow(start, end string) (domain.DateRange, error) {
	var window domain.DateRange

	if start != "" {
		day, err := time.Parse(time.DateOnly, start)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("parse start-date: %w", err)
		}
		window.Start = day.UTC()
	}
	if end != "" {
		day, err := time.Parse(time.DateOnly, end)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("parse end-date: %w", err)
		}
		window.End = day.UTC().Add(24 * time.Hour)
	}
	if !window.Start.IsZero() && !window.End.IsZero() && !window.Start.Before(window.End) {
		return domain.DateRange{}, errors.New("start-date is after end-date")
	}
	return window, nil
}

func splitBrokers(raw string) []string {
	if raw == "" {
		return nil
	}
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
